// Package config resolves process configuration from environment variables
// with development-friendly fallbacks.
package config

import (
	"os"
	"strings"
)

// Config holds everything main needs to assemble the service graph.
type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string

	KafkaBrokers      []string
	ConfirmationTopic string

	WebhookSecret string

	AWSRegion  string
	S3Bucket   string
	S3Endpoint string
}

// Load reads the environment once at startup.
func Load() Config {
	return Config{
		HTTPAddr:      ":" + getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "beauty-store"),

		KafkaBrokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		ConfirmationTopic: getEnv("ORDER_CONFIRMATION_TOPIC", "orders.confirmed"),

		WebhookSecret: getEnv("WEBHOOK_SECRET", "webhook-secret"),

		AWSRegion:  getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:   getEnv("S3_BUCKET", "beauty-receipts"),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
