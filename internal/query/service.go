// Package query serves the read side: live account and pool status
// straight from the engine, and historical flows and periods from the
// projection tables.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"RewardLedger/internal/ledger"
	rmath "RewardLedger/internal/math"
	"RewardLedger/internal/state"
)

// EngineView is the live engine surface the service reads. Queries
// take an explicit now so the engine stays clock-free.
type EngineView interface {
	Earned(account ledger.AccountKey, now int64) int64
	CurrentRewardPerShare(now int64) *big.Int
	StakedBalance(account ledger.AccountKey) int64
	UnallocatedShares() int64
	TotalShares() int64
	PeriodPhase(now int64) state.Phase
	PeriodState() state.StateSnapshot
	Sequence() uint64
}

// AccountStatus is the live view of one participant.
type AccountStatus struct {
	Account string `json:"account"`
	Shares  int64  `json:"shares"`
	Earned  int64  `json:"earned"`
}

// PoolStatus is the live view of the whole pool. RewardPerShare is the
// exact 1e18-scaled index; RewardPerShareWhole is the same index in
// whole reward units, rounded half-even for display.
type PoolStatus struct {
	TotalShares         int64       `json:"total_shares"`
	UnallocatedShares   int64       `json:"unallocated_shares"`
	SinkEarned          int64       `json:"sink_earned"`
	RewardPerShare      string      `json:"reward_per_share"`
	RewardPerShareWhole int64       `json:"reward_per_share_whole"`
	RewardRate          int64       `json:"reward_rate"`
	PeriodFinishAt      int64       `json:"period_finish_at"`
	PeriodDuration      int64       `json:"period_duration_seconds"`
	Phase               state.Phase `json:"phase"`
	Sequence            uint64      `json:"sequence"`
}

// Flow is one historical reward movement out of (or into) the pool.
type Flow struct {
	Sequence   uint64 `json:"sequence"`
	Kind       string `json:"kind"`
	Account    string `json:"account"`
	Amount     int64  `json:"amount"`
	OccurredAt int64  `json:"occurred_at"`
}

// Period is one historical period start.
type Period struct {
	Sequence   uint64 `json:"sequence"`
	Amount     int64  `json:"amount"`
	Rate       int64  `json:"rate"`
	FinishAt   int64  `json:"finish_at"`
	OccurredAt int64  `json:"occurred_at"`
}

// Service answers read requests. Historical queries come from the
// projection tables and may lag the live engine by the projection
// watermark; callers that need exact freshness use the live queries.
type Service struct {
	log    zerolog.Logger
	engine EngineView
	db     *sql.DB
	clock  clockwork.Clock
}

// NewService wires the read side. db may be nil in library embeddings,
// which disables historical queries.
func NewService(engine EngineView, db *sql.DB, clock clockwork.Clock, log zerolog.Logger) *Service {
	return &Service{log: log, engine: engine, db: db, clock: clock}
}

// AccountStatus returns the live position of one participant.
func (s *Service) AccountStatus(account uuid.UUID) AccountStatus {
	key := ledger.ParticipantKey(account)
	now := s.clock.Now().Unix()
	return AccountStatus{
		Account: key.String(),
		Shares:  s.engine.StakedBalance(key),
		Earned:  s.engine.Earned(key, now),
	}
}

// PoolStatus returns the live pool view.
func (s *Service) PoolStatus() PoolStatus {
	now := s.clock.Now().Unix()
	st := s.engine.PeriodState()
	idx := s.engine.CurrentRewardPerShare(now)
	return PoolStatus{
		TotalShares:         s.engine.TotalShares(),
		UnallocatedShares:   s.engine.UnallocatedShares(),
		SinkEarned:          s.engine.Earned(ledger.SinkKey(), now),
		RewardPerShare:      idx.String(),
		RewardPerShareWhole: rmath.DivBig(idx, rmath.RewardScale, rmath.RoundHalfEven),
		RewardRate:          st.RewardRate,
		PeriodFinishAt:      st.PeriodFinishAt,
		PeriodDuration:      st.PeriodDuration,
		Phase:               s.engine.PeriodPhase(now),
		Sequence:            s.engine.Sequence(),
	}
}

// Flows returns historical reward movements, newest first. account
// filters when non-empty.
func (s *Service) Flows(ctx context.Context, account string, limit int) ([]Flow, error) {
	if s.db == nil {
		return nil, fmt.Errorf("historical queries disabled: no database")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, kind, account, amount, occurred_at
		FROM reward_flows
		WHERE ($1 = '' OR account = $1)
		ORDER BY sequence DESC
		LIMIT $2`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("query reward flows: %w", err)
	}
	defer rows.Close()

	var out []Flow
	for rows.Next() {
		var f Flow
		if err := rows.Scan(&f.Sequence, &f.Kind, &f.Account, &f.Amount, &f.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan reward flow: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Periods returns historical period starts, newest first.
func (s *Service) Periods(ctx context.Context, limit int) ([]Period, error) {
	if s.db == nil {
		return nil, fmt.Errorf("historical queries disabled: no database")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, amount, rate, finish_at, occurred_at
		FROM reward_periods
		ORDER BY sequence DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reward periods: %w", err)
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.Sequence, &p.Amount, &p.Rate, &p.FinishAt, &p.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan reward period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
