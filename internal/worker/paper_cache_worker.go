package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examio/examio-backend/internal/config"
	"github.com/examio/examio-backend/internal/service"
)

const (
	PaperBatchSize    = 20
	PaperBatchTimeout = 2 * time.Second
	PaperPollTimeout  = 1 * time.Second
)

// PaperCacheWorker rebuilds cached exam papers after exams or questions
// change. Mutating services push exam IDs onto a Redis queue; the worker
// drains the queue, dedupes, and rebuilds each paper once per batch.
type PaperCacheWorker struct {
	exams *service.ExamService
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewPaperCacheWorker(exams *service.ExamService, rdb *redis.Client, log zerolog.Logger) *PaperCacheWorker {
	return &PaperCacheWorker{
		exams: exams,
		rdb:   rdb,
		log:   log.With().Str("component", "paper_cache_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *PaperCacheWorker) Start(ctx context.Context) {
	w.log.Info().Msg("PaperCacheWorker started")

	batch := make([]string, 0, PaperBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= PaperBatchSize || time.Since(lastFlush) >= PaperBatchTimeout) {

			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, PaperPollTimeout, config.WorkerKey.PaperRefreshQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			batch = append(batch, item[1])
		}
	}
}

func (w *PaperCacheWorker) flush(ctx context.Context, batch []string) {
	if len(batch) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(batch))
	for _, raw := range batch {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		examID, err := uuid.Parse(raw)
		if err != nil {
			w.log.Error().Str("exam_id", raw).Msg("Invalid exam ID in refresh queue")
			continue
		}

		if err := w.exams.WarmPaperCache(ctx, examID); err != nil {
			w.log.Warn().Err(err).Str("exam_id", raw).Msg("Paper rebuild failed")
			continue
		}

		w.log.Debug().Str("exam_id", raw).Msg("Paper cache rebuilt")
	}
}
