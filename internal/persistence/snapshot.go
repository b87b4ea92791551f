package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"RewardLedger/internal/core"
	"RewardLedger/internal/observability"
)

// SnapshotStore persists full engine snapshots so recovery replays
// only the log tail instead of the whole history.
type SnapshotStore struct {
	db   *sql.DB
	log  zerolog.Logger
	keep int
}

// NewSnapshotStore wraps an open database handle. keep bounds how many
// historical snapshots survive pruning.
func NewSnapshotStore(db *sql.DB, keep int, log zerolog.Logger) *SnapshotStore {
	if keep <= 0 {
		keep = 5
	}
	return &SnapshotStore{db: db, log: log, keep: keep}
}

// Save persists the snapshot and prunes old ones.
func (s *SnapshotStore) Save(ctx context.Context, snap *core.Snapshot) error {
	start := time.Now()
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot seq %d: %w", snap.Sequence, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reward_snapshots (sequence, chain_head, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (sequence) DO NOTHING`,
		snap.Sequence, snap.ChainHead, string(body))
	if err != nil {
		return fmt.Errorf("save snapshot seq %d: %w", snap.Sequence, err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM reward_snapshots
		WHERE sequence NOT IN (
			SELECT sequence FROM reward_snapshots ORDER BY sequence DESC LIMIT $1
		)`, s.keep)
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot prune failed")
	}

	observability.SnapshotDuration.Observe(time.Since(start).Seconds())
	s.log.Info().Uint64("sequence", snap.Sequence).Msg("snapshot saved")
	return nil
}

// LoadLatest returns the newest snapshot, or nil when none exists.
func (s *SnapshotStore) LoadLatest(ctx context.Context) (*core.Snapshot, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM reward_snapshots ORDER BY sequence DESC LIMIT 1`).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	var snap core.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
