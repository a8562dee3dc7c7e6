package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration, loaded from the environment
type Config struct {
	// Server
	ServerAddress string
	Environment   string
	IsLambda      bool

	// AWS
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Batch writes
	BatchConcurrency int
	BatchMaxRetries  int

	// Auth
	JWTSecret string
	JWTIssuer string

	// Observability
	LogLevel   string
	EnableCORS bool
}

// Load builds the configuration from environment variables with sensible
// development defaults.
func Load() *Config {
	return &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		IsLambda:      os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "tra-backend"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "tra-events"),

		BatchConcurrency: getEnvAsInt("BATCH_CONCURRENCY", 4),
		BatchMaxRetries:  getEnvAsInt("BATCH_MAX_RETRIES", 3),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "tra-backend"),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		EnableCORS: getEnvAsBool("ENABLE_CORS", true),
	}
}

// Validate checks that production deployments carry the settings that have
// no safe default.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required in production")
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
