package persistence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"RewardLedger/internal/event"
	"RewardLedger/internal/observability"
)

const (
	defaultBatchSize     = 64
	defaultFlushInterval = 50 * time.Millisecond
	retryBaseDelay       = 100 * time.Millisecond
	retryMaxDelay        = 30 * time.Second
)

// Worker drains the engine's persist channel into the reward log. The
// channel send on the engine side blocks, so as long as this worker
// keeps retrying, no committed envelope is ever lost.
type Worker struct {
	log           zerolog.Logger
	writer        *LogWriter
	idem          *IdempotencyStore
	input         <-chan *event.Envelope
	batchSize     int
	flushInterval time.Duration
}

// NewWorker builds a worker over the log writer. idem may be nil when
// the database idempotency tier is disabled.
func NewWorker(writer *LogWriter, idem *IdempotencyStore, input <-chan *event.Envelope, log zerolog.Logger) *Worker {
	return &Worker{
		log:           log,
		writer:        writer,
		idem:          idem,
		input:         input,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
}

// Run drains until ctx is cancelled, then flushes what remains.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]*event.Envelope, 0, w.batchSize)
	for {
		select {
		case env, ok := <-w.input:
			if !ok {
				w.flushWithRetry(ctx, batch)
				return
			}
			batch = append(batch, env)
			if len(batch) >= w.batchSize {
				w.flushWithRetry(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flushWithRetry(ctx, batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			w.drainRemaining(batch)
			return
		}
	}
}

// drainRemaining empties the channel and does a final flush with a
// fresh timeout, so shutdown does not abandon queued envelopes.
func (w *Worker) drainRemaining(batch []*event.Envelope) {
	for {
		select {
		case env, ok := <-w.input:
			if !ok {
				goto flush
			}
			batch = append(batch, env)
		default:
			goto flush
		}
	}
flush:
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w.flushWithRetry(ctx, batch)
}

// flushWithRetry writes the batch, backing off exponentially from
// 100ms to a 30s cap until the write lands or ctx ends.
func (w *Worker) flushWithRetry(ctx context.Context, batch []*event.Envelope) {
	if len(batch) == 0 {
		return
	}
	delay := retryBaseDelay
	for {
		err := w.writer.WriteBatch(ctx, batch)
		if err == nil {
			if w.idem != nil {
				if merr := w.idem.MarkBatch(ctx, batch); merr != nil {
					w.log.Warn().Err(merr).Msg("idempotency mark failed, log tier still covers duplicates")
				}
			}
			observability.PersistQueueDepth.Set(float64(len(w.input)))
			return
		}
		observability.PersistFlushRetries.Inc()
		w.log.Error().Err(err).
			Int("batch", len(batch)).
			Dur("retry_in", delay).
			Msg("reward log flush failed")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			w.log.Error().Int("batch", len(batch)).Msg("flush abandoned on shutdown")
			return
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
}
