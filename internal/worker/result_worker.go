package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/metrics"
	"github.com/stemsi/lms-backend/internal/model"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultSource yields queued results and takes back the ones that failed.
type ResultSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*model.ExamResult, error)
	Requeue(ctx context.Context, result model.ExamResult) error
}

// ResultSink persists results.
type ResultSink interface {
	InsertBatch(ctx context.Context, results []model.ExamResult) error
	Insert(ctx context.Context, result *model.ExamResult) error
}

// ResultWorker drains the result queue into PostgreSQL in batches.
type ResultWorker struct {
	source ResultSource
	sink   ResultSink
	log    zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(source ResultSource, sink ResultSink, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		source: source,
		sink:   sink,
		log:    log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then flushes what it holds.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]model.ExamResult, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {
			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return
		default:
		}

		result, err := w.source.Pop(ctx, ResultPollTimeout)
		if err != nil {
			if errors.Is(err, errInvalidPayload) {
				w.log.Error().Err(err).Msg("Dropping unreadable result")
			} else if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Pop error")
			}
			continue
		}
		if result != nil {
			batch = append(batch, *result)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-row fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flush(ctx context.Context, batch []model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	err := w.sink.InsertBatch(ctx, batch)
	if err == nil {
		metrics.ResultsPersisted.Add(float64(len(batch)))
		w.log.Debug().Int("count", len(batch)).Msg("Results persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Batch insert failed, falling back to single inserts")

	for i := range batch {
		result := batch[i]
		if err := w.sink.Insert(ctx, &result); err != nil {
			w.log.Error().Err(err).Str("session_id", result.SessionID).Msg("Insert failed, requeueing")
			if err := w.source.Requeue(ctx, result); err != nil {
				w.log.Error().Err(err).Str("session_id", result.SessionID).Msg("Requeue failed, result lost")
			}
			continue
		}
		metrics.ResultsPersisted.Inc()
	}
}
