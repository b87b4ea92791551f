package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"RewardLedger/internal/event"
)

// IdempotencyStore is the database tier of duplicate detection. The
// engine's in-memory cache catches recent duplicates; this tier
// catches anything older than the cache horizon, surviving restarts.
type IdempotencyStore struct {
	db *sql.DB
}

// NewIdempotencyStore wraps an open database handle.
func NewIdempotencyStore(db *sql.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Seen reports whether the operation id was already persisted.
func (s *IdempotencyStore) Seen(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_operations WHERE operation_id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed operation %s: %w", id, err)
	}
	return exists, nil
}

// MarkBatch records the operation ids of a flushed batch. Conflicts
// are ignored; re-marking after a crash is expected.
func (s *IdempotencyStore) MarkBatch(ctx context.Context, envs []*event.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args = make([]interface{}, 0, len(envs)*2)
	)
	sb.WriteString(`INSERT INTO processed_operations (operation_id, sequence) VALUES `)
	for i, env := range envs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d)", i*2+1, i*2+2)
		args = append(args, env.Operation.ID, env.Sequence)
	}
	sb.WriteString(" ON CONFLICT (operation_id) DO NOTHING")

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("mark %d processed operations: %w", len(envs), err)
	}
	return nil
}
