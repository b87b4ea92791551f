// Package projection maintains the read-side tables: current share
// balances, reward flows, and period history. Projections are derived
// state; anything missed at runtime is rebuilt from the reward log.
package projection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"RewardLedger/internal/event"
)

// RewardHistory applies envelopes to the projection tables. Each
// envelope applies in one transaction together with the watermark
// advance, so a crash can never leave a half-applied envelope behind.
type RewardHistory struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRewardHistory wraps an open database handle.
func NewRewardHistory(db *sql.DB, log zerolog.Logger) *RewardHistory {
	return &RewardHistory{db: db, log: log}
}

// Watermark returns the last applied sequence.
func (h *RewardHistory) Watermark(ctx context.Context) (uint64, error) {
	var seq uint64
	err := h.db.QueryRowContext(ctx,
		`SELECT sequence FROM projection_watermark WHERE id = 1`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read projection watermark: %w", err)
	}
	return seq, nil
}

// Apply folds one envelope into the projections. Envelopes at or
// below the watermark are skipped, making redelivery harmless.
func (h *RewardHistory) Apply(ctx context.Context, env *event.Envelope) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin projection tx: %w", err)
	}
	defer tx.Rollback()

	var watermark uint64
	err = tx.QueryRowContext(ctx,
		`SELECT sequence FROM projection_watermark WHERE id = 1 FOR UPDATE`).Scan(&watermark)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("lock projection watermark: %w", err)
	}
	if env.Sequence <= watermark {
		return nil
	}

	for _, note := range env.Notifications {
		if err := h.applyNote(ctx, tx, env, note); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projection_watermark (id, sequence) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET sequence = EXCLUDED.sequence`, env.Sequence)
	if err != nil {
		return fmt.Errorf("advance projection watermark to %d: %w", env.Sequence, err)
	}
	return tx.Commit()
}

func (h *RewardHistory) applyNote(ctx context.Context, tx *sql.Tx, env *event.Envelope, note event.Notification) error {
	switch note.Kind {
	case event.NoteBalanceChanged:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reward_balances (account, shares, updated_seq)
			VALUES ($1, $2, $3)
			ON CONFLICT (account) DO UPDATE
			SET shares = EXCLUDED.shares, updated_seq = EXCLUDED.updated_seq`,
			note.Account, note.NewBalance, env.Sequence)
		if err != nil {
			return fmt.Errorf("project balance for %s: %w", note.Account, err)
		}
	case event.NoteRewardClaimed, event.NoteSinkBurned, event.NoteFunded:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reward_flows (sequence, kind, account, amount, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING`,
			env.Sequence, string(note.Kind), note.Account, note.Amount, env.Operation.Timestamp)
		if err != nil {
			return fmt.Errorf("project %s flow: %w", note.Kind, err)
		}
	case event.NotePeriodStarted:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reward_periods (sequence, amount, rate, finish_at, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (sequence) DO NOTHING`,
			env.Sequence, note.Amount, note.Rate, note.FinishAt, env.Operation.Timestamp)
		if err != nil {
			return fmt.Errorf("project period start: %w", err)
		}
	case event.NoteDurationSet:
		// Durations are visible in the live engine state; no history
		// table for them.
	default:
		h.log.Warn().Str("kind", string(note.Kind)).Msg("unprojected notification kind")
	}
	return nil
}
