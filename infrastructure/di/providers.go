package di

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tra-backend/application/ports"
	"tra-backend/infrastructure/config"
	"tra-backend/infrastructure/messaging/eventbridge"
	"tra-backend/infrastructure/persistence/dynamodb"
	"tra-backend/interfaces/http/rest"
	"tra-backend/interfaces/http/rest/handlers"
	pkgerrors "tra-backend/pkg/errors"
)

// Container holds the fully wired application
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	Router http.Handler

	Assessments ports.AssessmentRepository
	Documents   ports.DocumentRepository
	Events      ports.EventRepository
	Messages    ports.MessageRepository
	Publisher   ports.EventPublisher
}

// Shutdown flushes buffered log entries
func (c *Container) Shutdown() {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

func provideConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

func provideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, pkgerrors.NewExternalError("aws", err)
	}
	return awsCfg, nil
}

func provideDynamoDBClient(awsCfg aws.Config) dynamodb.StorageBackend {
	return awsdynamodb.NewFromConfig(awsCfg)
}

func provideStore(db dynamodb.StorageBackend, cfg *config.Config, logger *zap.Logger) (*dynamodb.Store, error) {
	return dynamodb.NewStore(db, cfg.DynamoDBTable, logger)
}

func provideBatchWriter(db dynamodb.StorageBackend, cfg *config.Config, logger *zap.Logger) (*dynamodb.BatchWriter, error) {
	return dynamodb.NewBatchWriter(db, cfg.DynamoDBTable, logger, cfg.BatchConcurrency, cfg.BatchMaxRetries)
}

func providePublisher(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) (ports.EventPublisher, error) {
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
}

func provideEventRepository(store *dynamodb.Store, writer *dynamodb.BatchWriter, logger *zap.Logger) (ports.EventRepository, error) {
	return dynamodb.NewEventRepository(store, writer, logger)
}

func provideAssessmentRepository(store *dynamodb.Store, events ports.EventRepository, publisher ports.EventPublisher, logger *zap.Logger) (ports.AssessmentRepository, error) {
	return dynamodb.NewAssessmentRepository(store, events, publisher, logger)
}

func provideDocumentRepository(store *dynamodb.Store, writer *dynamodb.BatchWriter, events ports.EventRepository, publisher ports.EventPublisher, logger *zap.Logger) (ports.DocumentRepository, error) {
	return dynamodb.NewDocumentRepository(store, writer, events, publisher, logger)
}

func provideMessageRepository(store *dynamodb.Store, logger *zap.Logger) (ports.MessageRepository, error) {
	return dynamodb.NewMessageRepository(store, logger)
}

func provideAssessmentHandler(assessments ports.AssessmentRepository, documents ports.DocumentRepository, events ports.EventRepository, logger *zap.Logger) *handlers.AssessmentHandler {
	return handlers.NewAssessmentHandler(assessments, documents, events, logger)
}

func provideDocumentHandler(documents ports.DocumentRepository, logger *zap.Logger) *handlers.DocumentHandler {
	return handlers.NewDocumentHandler(documents, logger)
}

func provideChatHandler(messages ports.MessageRepository, logger *zap.Logger) *handlers.ChatHandler {
	return handlers.NewChatHandler(messages, logger)
}

func provideRouter(cfg *config.Config, logger *zap.Logger, assessmentHandler *handlers.AssessmentHandler, documentHandler *handlers.DocumentHandler, chatHandler *handlers.ChatHandler) http.Handler {
	return rest.NewRouter(cfg, logger, assessmentHandler, documentHandler, chatHandler)
}

func provideContainer(
	cfg *config.Config,
	logger *zap.Logger,
	router http.Handler,
	assessments ports.AssessmentRepository,
	documents ports.DocumentRepository,
	events ports.EventRepository,
	messages ports.MessageRepository,
	publisher ports.EventPublisher,
) *Container {
	return &Container{
		Config:      cfg,
		Logger:      logger,
		Router:      router,
		Assessments: assessments,
		Documents:   documents,
		Events:      events,
		Messages:    messages,
		Publisher:   publisher,
	}
}
