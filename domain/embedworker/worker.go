package embedworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/emergent-company/emergent/domain/embedstore"
	"github.com/emergent-company/emergent/domain/progress"
	"github.com/emergent-company/emergent/domain/reprocess"
	"github.com/emergent-company/emergent/internal/storage"
	"github.com/emergent-company/emergent/pkg/embeddings"
	"github.com/emergent-company/emergent/pkg/logger"
	"github.com/emergent-company/emergent/pkg/qasummary"
)

// Worker consumes one SQS message per child chunk and drives it through
// preprocessing, embedding, QA-summary embedding, and persistence, marking
// the child processing in the progress coordinator before its micro-chunks
// and completed or failed after them.
type Worker struct {
	cfg         Config
	sqsClient   *sqs.Client
	storage     *storage.Service
	coordinator *progress.Coordinator
	planner     *reprocess.Planner
	embedRepo   *embedstore.Repository
	embedder    embeddings.Client
	qaClient    qasummary.Client
	log         *slog.Logger

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWorker creates a new embedding worker.
func NewWorker(
	cfg Config,
	sqsClient *sqs.Client,
	storageSvc *storage.Service,
	coordinator *progress.Coordinator,
	planner *reprocess.Planner,
	embedRepo *embedstore.Repository,
	embedder embeddings.Client,
	qaClient qasummary.Client,
	log *slog.Logger,
) *Worker {
	return &Worker{
		cfg:         cfg,
		sqsClient:   sqsClient,
		storage:     storageSvc,
		coordinator: coordinator,
		planner:     planner,
		embedRepo:   embedRepo,
		embedder:    embedder,
		qaClient:    qaClient,
		log:         log.With(logger.Scope("embedworker")),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the long-poll consume loop in a background goroutine. It is
// a no-op if the queue isn't configured (local/dev environments).
func (w *Worker) Start(ctx context.Context) {
	if !w.cfg.Queue.Enabled() || w.sqsClient == nil {
		w.log.Info("embedding worker disabled: no queue configured")
		close(w.doneCh)
		return
	}
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	go w.loop(ctx)
}

// Stop signals the consume loop to exit and waits for it to drain its
// current batch.
func (w *Worker) Stop() {
	if !w.running.Load() {
		return
	}
	close(w.stopCh)
	<-w.doneCh
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		out, err := w.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.cfg.Queue.QueueURL),
			MaxNumberOfMessages: w.cfg.Queue.MaxMessages,
			WaitTimeSeconds:     w.cfg.Queue.WaitTimeSeconds,
			VisibilityTimeout:   w.cfg.Queue.VisibilityTimeout,
		})
		if err != nil {
			w.log.Error("receive message failed", logger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-w.stopCh:
				return
			}
			continue
		}

		for _, msg := range out.Messages {
			w.handleAndAck(ctx, msg)
		}
	}
}

func (w *Worker) handleAndAck(ctx context.Context, msg sqstypes.Message) {
	var qm QueueMessage
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &qm); err != nil {
		w.log.Error("malformed queue message, dropping", logger.Error(err))
		w.ack(ctx, msg)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, w.cfg.Queue.EmbedTimeout)
	defer cancel()

	start := time.Now()
	err := w.HandleMessage(callCtx, qm)
	result := "success"
	if err != nil {
		// Fetch and embedding failures are recorded on the progress
		// record (child and parent failed); failures while planning or
		// while reading or writing progress state are only logged here.
		// Redelivery storms are avoided by ACKing regardless.
		result = "failure"
		w.log.Error("message handling failed", logger.Error(err), slog.String("src", qm.Src))
	}
	childOutcomes.WithLabelValues(result).Inc()
	childDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg sqstypes.Message) {
	_, err := w.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.cfg.Queue.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		w.log.Error("failed to delete message", logger.Error(err))
	}
}

// HandleMessage runs the full per-child-chunk contract described in §4.C.
// It is exported so tests can drive it directly without a real queue.
func (w *Worker) HandleMessage(ctx context.Context, qm QueueMessage) error {
	childKey := fmt.Sprintf("%d", qm.ChunkIndex)

	if qm.ForceReprocess && w.planner.ShouldPlan(qm.Src) {
		expected := make([]string, qm.TotalChunks)
		for i := 0; i < qm.TotalChunks; i++ {
			expected[i] = fmt.Sprintf("%d", i+1)
		}
		if _, err := w.planner.Plan(ctx, qm.Src, expected); err != nil {
			return fmt.Errorf("reprocess planning failed: %w", err)
		}
	}

	terminal, err := w.coordinator.IsTerminal(ctx, qm.Src)
	if err != nil {
		return fmt.Errorf("failed to check terminal state: %w", err)
	}
	if terminal {
		w.log.DebugContext(ctx, "dropping message for terminated document", slog.String("src", qm.Src))
		return nil
	}

	rec, err := w.coordinator.Get(ctx, qm.Src)
	if err != nil {
		return fmt.Errorf("failed to read progress record: %w", err)
	}
	if qm.ForceReprocess && rec != nil {
		if entry, ok := rec.ChildChunks[childKey]; ok && entry.Status == progress.ChildCompleted {
			w.log.DebugContext(ctx, "selective skip: child already completed", slog.String("src", qm.Src), slog.String("child", childKey))
			return nil
		}
	}

	if err := w.coordinator.UpdateChildStatus(ctx, qm.Src, childKey, progress.ChildProcessing, "", ""); err != nil {
		return fmt.Errorf("failed to mark child processing: %w", err)
	}

	chunkFile, err := w.fetchChunkFile(ctx, qm)
	if err != nil {
		return w.failChild(ctx, qm.Src, childKey, err)
	}

	for i, local := range chunkFile.Chunks {
		if err := w.embedOne(ctx, qm.Src, childKey, i, local); err != nil {
			return w.failChild(ctx, qm.Src, childKey, err)
		}
	}

	if err := w.coordinator.UpdateChildStatus(ctx, qm.Src, childKey, progress.ChildCompleted, "", ""); err != nil {
		return fmt.Errorf("failed to mark child completed: %w", err)
	}

	// Narrow the read-after-write window before the parent aggregator
	// reads every sibling child's freshly-written status.
	time.Sleep(100 * time.Millisecond)
	if _, err := w.coordinator.UpdateParentStatus(ctx, qm.Src, "", ""); err != nil {
		w.log.WarnContext(ctx, "parent status aggregation race lost, will settle on a later write",
			slog.String("src", qm.Src), logger.Error(err))
	}

	return nil
}

func (w *Worker) failChild(ctx context.Context, src, childKey string, cause error) error {
	if err := w.coordinator.UpdateChildStatus(ctx, src, childKey, progress.ChildFailed, cause.Error(), ""); err != nil {
		w.log.ErrorContext(ctx, "failed to record child failure", logger.Error(err), slog.String("src", src))
	}
	if _, err := w.coordinator.UpdateParentStatus(ctx, src, progress.ParentFailed, cause.Error()); err != nil {
		w.log.ErrorContext(ctx, "failed to force parent failed", logger.Error(err), slog.String("src", src))
	}
	return cause
}

func (w *Worker) fetchChunkFile(ctx context.Context, qm QueueMessage) (*ChunkFile, error) {
	data, err := w.storage.GetObjectBytes(ctx, qm.Bucket, qm.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chunk file: %w", err)
	}
	var cf ChunkFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse chunk file: %w", err)
	}
	return &cf, nil
}

func (w *Worker) embedOne(ctx context.Context, src, childKey string, localIndex int, local LocalChunk) error {
	content := preprocessText(local.Content)

	contentVecs, err := w.embedder.EmbedDocuments(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("content embedding failed: %w", err)
	}
	if len(contentVecs) != 1 {
		return fmt.Errorf("content embedding returned %d vectors, expected 1", len(contentVecs))
	}

	qaSummary, err := w.qaClient.Summarize(ctx, content)
	if err != nil {
		return fmt.Errorf("qa summary failed: %w", err)
	}
	qaVecs, err := w.embedder.EmbedDocuments(ctx, []string{qaSummary})
	if err != nil {
		return fmt.Errorf("qa embedding failed: %w", err)
	}
	if len(qaVecs) != 1 {
		return fmt.Errorf("qa embedding returned %d vectors, expected 1", len(qaVecs))
	}

	row := &embedstore.Row{
		Src:                 src,
		ChildChunk:          childKey,
		LocalEmbeddingIndex: localIndex,
		Locations:           local.Locations,
		OrigIndexes:         local.Indexes,
		CharIndex:           local.CharIndex,
		TokenCount:          approxTokenCount(content),
		Content:             content,
	}
	if err := w.embedRepo.Insert(ctx, row, contentVecs[0], qaVecs[0]); err != nil {
		return fmt.Errorf("failed to persist embedding row: %w", err)
	}
	return nil
}
