package embedworker

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/emergent-company/emergent/pkg/logger"
)

// NewSQSClient constructs the SQS client the worker long-polls against.
// Modeled on internal/storage.Service's client construction: config
// loading happens once at startup, errors here are fatal to boot rather
// than surfaced per-message.
func NewSQSClient(cfg Config, log *slog.Logger) (*sqs.Client, error) {
	if !cfg.Queue.Enabled() {
		log.Warn("embed queue not configured, embedding worker will idle")
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Queue.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for embed queue: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg)
	log.Info("embed queue client initialized", logger.Scope("embedworker"), slog.String("queue", cfg.Queue.QueueURL))
	return client, nil
}
