package embedstatus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/emergent-company/emergent/domain/progress"
	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/internal/storage"
	"github.com/emergent-company/emergent/pkg/logger"
)

const maxConcurrentLookups = 10

// imageAwaitingWindow is how long an image object may sit without a
// text/plain content-type before its status degrades from processing to
// failed — the image pipeline is expected to convert it well within this.
const imageAwaitingWindow = 5 * time.Minute

// Service answers getStatus([{key, type}]) batch queries (§4.E).
type Service struct {
	storage *storage.Service
	coord   *progress.Coordinator
	cfg     config.RagStorageConfig
	sem     *semaphore.Weighted
	log     *slog.Logger
}

// NewService creates a new status query service.
func NewService(storageSvc *storage.Service, coord *progress.Coordinator, appCfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		storage: storageSvc,
		coord:   coord,
		cfg:     appCfg.RagStorage,
		sem:     semaphore.NewWeighted(maxConcurrentLookups),
		log:     log.With(logger.Scope("embedstatus")),
	}
}

// GetStatus resolves every query concurrently (bounded to
// maxConcurrentLookups in flight) and returns a key -> status map. A key
// whose individual lookup failed is simply omitted, not propagated as a
// batch-level error.
func (s *Service) GetStatus(ctx context.Context, queries []StatusQuery) (map[string]Status, error) {
	results := make(map[string]Status, len(queries))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, q := range queries {
		q := q
		if err := s.sem.Acquire(ctx, 1); err != nil {
			// Context canceled; stop issuing new lookups but let
			// in-flight ones finish below.
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.sem.Release(1)

			status, err := s.resolveOne(ctx, q)
			if err != nil {
				s.log.WarnContext(ctx, "status lookup failed, omitting key",
					slog.String("key", q.Key), logger.Error(err))
				return
			}
			mu.Lock()
			results[q.Key] = status
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results, nil
}

func (s *Service) resolveOne(ctx context.Context, q StatusQuery) (Status, error) {
	if q.Type == ItemImage {
		return s.resolveImage(ctx, q.Key)
	}
	return s.resolveText(ctx, q.Key)
}

func (s *Service) resolveImage(ctx context.Context, key string) (Status, error) {
	meta, err := s.storage.HeadObjectMeta(ctx, s.cfg.ImageInputBucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return StatusNotFound, nil
		}
		return "", err
	}

	if strings.HasPrefix(meta.ContentType, "text/plain") {
		return StatusCompleted, nil
	}
	if strings.HasPrefix(meta.ContentType, "image/") {
		if time.Since(meta.LastModified) <= imageAwaitingWindow {
			return StatusProcessing, nil
		}
		return StatusFailed, nil
	}
	return StatusFailed, nil
}

func (s *Service) resolveText(ctx context.Context, key string) (Status, error) {
	src := trimSrc(key)
	rec, err := s.coord.Get(ctx, src)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return StatusStarting, nil
	}
	if rec.Terminated {
		return StatusTerminated, nil
	}
	if rec.ParentStatus != "" {
		return Status(rec.ParentStatus), nil
	}
	return StatusStarting, nil
}
