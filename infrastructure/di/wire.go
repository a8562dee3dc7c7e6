//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
)

// InitializeContainer wires the application graph
func InitializeContainer(ctx context.Context) (*Container, error) {
	wire.Build(
		provideConfig,
		provideLogger,
		provideAWSConfig,
		provideDynamoDBClient,
		provideStore,
		provideBatchWriter,
		providePublisher,
		provideEventRepository,
		provideAssessmentRepository,
		provideDocumentRepository,
		provideMessageRepository,
		provideAssessmentHandler,
		provideDocumentHandler,
		provideChatHandler,
		provideRouter,
		provideContainer,
	)
	return nil, nil
}
