package projection

import (
	"context"

	"github.com/rs/zerolog"

	"RewardLedger/internal/event"
	"RewardLedger/internal/observability"
	"RewardLedger/internal/persistence"
)

// Worker applies envelopes from the engine's notify channel. The
// channel drops under pressure, so the worker first catches up from
// the reward log on startup and whenever it notices a gap.
type Worker struct {
	log     zerolog.Logger
	history *RewardHistory
	reader  *persistence.LogWriter
	input   <-chan *event.Envelope
}

// NewWorker wires the projection applier to its inputs.
func NewWorker(history *RewardHistory, reader *persistence.LogWriter, input <-chan *event.Envelope, log zerolog.Logger) *Worker {
	return &Worker{log: log, history: history, reader: reader, input: input}
}

// CatchUp replays reward log entries past the watermark.
func (w *Worker) CatchUp(ctx context.Context) error {
	mark, err := w.history.Watermark(ctx)
	if err != nil {
		return err
	}
	var applied int
	err = w.reader.ReadFrom(ctx, mark, func(env *event.Envelope) error {
		if err := w.history.Apply(ctx, env); err != nil {
			return err
		}
		applied++
		observability.ProjectionSequence.Set(float64(env.Sequence))
		return nil
	})
	if err != nil {
		return err
	}
	if applied > 0 {
		w.log.Info().Int("envelopes", applied).Uint64("from", mark).Msg("projections caught up")
	}
	return nil
}

// Run applies live envelopes until ctx is cancelled. A gap between
// the watermark and an incoming sequence means drops happened; the
// worker falls back to the log before applying further.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case env, ok := <-w.input:
			if !ok {
				return
			}
			mark, err := w.history.Watermark(ctx)
			if err == nil && env.Sequence > mark+1 {
				if err := w.CatchUp(ctx); err != nil {
					w.log.Error().Err(err).Msg("projection catch-up failed")
				}
			}
			if err := w.history.Apply(ctx, env); err != nil {
				w.log.Error().Err(err).Uint64("sequence", env.Sequence).Msg("projection apply failed")
				continue
			}
			observability.ProjectionSequence.Set(float64(env.Sequence))
		case <-ctx.Done():
			return
		}
	}
}
