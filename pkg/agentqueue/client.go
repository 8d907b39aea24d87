// Package agentqueue wraps the SQS queue that carries scheduled-task
// execution envelopes to the agent runtime, the same queue shape the
// embedding pipeline uses for chunk-index messages but pointed at a
// different queue URL and payload.
package agentqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Envelope is the agent execution envelope enqueued for a dispatched
// scheduled task (§4.H).
type Envelope struct {
	Source   string       `json:"source"`
	TaskData TaskEnvelope `json:"taskData"`
}

// TaskEnvelope carries the task definition plus the resolved credential
// and dispatch source tag the agent runtime expects.
type TaskEnvelope struct {
	UserID         string `json:"userId"`
	TaskID         string `json:"taskId"`
	TaskName       string `json:"taskName"`
	TaskType       string `json:"taskType"`
	APIKey         string `json:"apiKey"`
	Source         string `json:"source"`
	ExecutionID    string `json:"executionId"`
	ScheduledForAt string `json:"scheduledForAt"`
}

// Client enqueues agent execution envelopes. An interface so the task
// dispatcher can be tested without a live queue.
type Client interface {
	Enqueue(ctx context.Context, env Envelope) error
}

type sqsClient struct {
	sqs      *sqs.Client
	queueURL string
	log      *slog.Logger
}

// New constructs an SQS-backed agent queue client. Returns a no-op client
// if the queue isn't configured, mirroring embedworker's degrade-to-idle
// behavior for local/dev environments.
func New(cfg config.AgentQueueConfig, log *slog.Logger) (Client, error) {
	log = log.With(logger.Scope("agentqueue"))
	if !cfg.Enabled() {
		log.Warn("agent queue not configured, scheduled-task dispatch will no-op")
		return noopClient{log: log}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for agent queue: %w", err)
	}

	return &sqsClient{
		sqs:      sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
		log:      log,
	}, nil
}

func (c *sqsClient) Enqueue(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal agent envelope: %w", err)
	}

	_, err = c.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue agent envelope: %w", err)
	}
	c.log.DebugContext(ctx, "enqueued agent envelope", slog.String("taskId", env.TaskData.TaskID))
	return nil
}

type noopClient struct {
	log *slog.Logger
}

func (n noopClient) Enqueue(ctx context.Context, env Envelope) error {
	n.log.InfoContext(ctx, "agent queue disabled, dropping envelope", slog.String("taskId", env.TaskData.TaskID))
	return nil
}
