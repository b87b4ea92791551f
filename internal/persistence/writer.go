// Package persistence owns the durable reward log, snapshots, and the
// database tier of duplicate detection. Postgres is the system of
// record; everything else rebuilds from it.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Postgres driver, registered for database/sql.
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"RewardLedger/internal/event"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// LogWriter appends sealed envelopes to the reward log.
type LogWriter struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewLogWriter wraps an open database handle.
func NewLogWriter(db *sql.DB, log zerolog.Logger) *LogWriter {
	return &LogWriter{db: db, log: log}
}

// WriteBatch appends envelopes in one multi-row insert. Conflicting
// sequences are skipped, which makes a replayed flush after a crash
// harmless.
func (w *LogWriter) WriteBatch(ctx context.Context, envs []*event.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args = make([]interface{}, 0, len(envs)*6)
	)
	sb.WriteString(`INSERT INTO reward_log
		(sequence, operation_id, operation_type, occurred_at, prev_hash, state_hash, envelope)
		VALUES `)
	for i, env := range envs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		body, err := env.Marshal()
		if err != nil {
			return err
		}
		// JSONB wants text, not bytea.
		args = append(args,
			env.Sequence,
			env.Operation.ID,
			string(env.Operation.Type),
			env.Operation.Timestamp,
			env.PrevHash,
			env.StateHash,
			string(body),
		)
	}
	sb.WriteString(" ON CONFLICT (sequence) DO NOTHING")

	if _, err := w.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("write reward log batch of %d: %w", len(envs), err)
	}
	return nil
}

// ReadFrom streams envelopes with sequence strictly greater than
// after, in order, into fn. Used by recovery and projection rebuild.
func (w *LogWriter) ReadFrom(ctx context.Context, after uint64, fn func(*event.Envelope) error) error {
	rows, err := w.db.QueryContext(ctx,
		`SELECT envelope FROM reward_log WHERE sequence > $1 ORDER BY sequence`, after)
	if err != nil {
		return fmt.Errorf("read reward log from %d: %w", after, err)
	}
	defer rows.Close()

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return fmt.Errorf("scan reward log row: %w", err)
		}
		env, err := event.ParseEnvelope(body)
		if err != nil {
			return err
		}
		if err := fn(env); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Head returns the highest persisted sequence and its state hash, or
// zero values on an empty log.
func (w *LogWriter) Head(ctx context.Context) (uint64, string, error) {
	var (
		seq  uint64
		hash string
	)
	err := w.db.QueryRowContext(ctx,
		`SELECT sequence, state_hash FROM reward_log ORDER BY sequence DESC LIMIT 1`).
		Scan(&seq, &hash)
	if err == sql.ErrNoRows {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("read reward log head: %w", err)
	}
	return seq, hash, nil
}
