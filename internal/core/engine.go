// Package core hosts the reward engine: the single-writer state
// machine that settles accrual, moves shares, starts periods, and
// seals every processed operation into a hash-chained envelope.
package core

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"RewardLedger/internal/event"
	"RewardLedger/internal/ledger"
	"RewardLedger/internal/observability"
	"RewardLedger/internal/state"
	"RewardLedger/internal/token"
)

// Config sizes the engine at construction.
type Config struct {
	// TotalShares is the fixed pool size. Required.
	TotalShares int64
	// IdempotencyCapacity bounds the in-memory duplicate cache.
	IdempotencyCapacity int
	// ConservationSweepEvery runs a full conservation check every N
	// committed sequences. Zero uses the default of 1000.
	ConservationSweepEvery uint64
}

// Engine is the reward distribution state machine. All methods are
// serialized behind one mutex: settlement mutates global state that
// every query reads, and interleaving would break the index
// monotonicity guarantee. The engine never reads the wall clock;
// operations carry timestamps stamped at the shell boundary, which
// makes log replay reproduce identical state and hashes.
type Engine struct {
	mu sync.Mutex

	log     zerolog.Logger
	shares  *ledger.ShareLedger
	rstate  *state.RewardState
	tracker *state.RewardTracker
	periods *state.PeriodController
	rewards token.Ledger

	idem   *IdempotencyCache
	hasher *ChainHasher

	sequence   uint64
	sweepEvery uint64

	persistCh chan<- *event.Envelope
	notifyCh  chan<- *event.Envelope
}

// NewEngine constructs an engine with the whole share pool in the
// sink. persistCh receives every committed envelope and is drained by
// the persistence worker; sends block so the engine can never outrun
// the log. notifyCh feeds projections and publishers; sends never
// block and drops are counted, since projections rebuild from the log.
func NewEngine(cfg Config, rewards token.Ledger, persistCh, notifyCh chan<- *event.Envelope, log zerolog.Logger) (*Engine, error) {
	shares, err := ledger.NewShareLedger(cfg.TotalShares)
	if err != nil {
		return nil, err
	}
	if cfg.IdempotencyCapacity <= 0 {
		cfg.IdempotencyCapacity = 4096
	}
	if cfg.ConservationSweepEvery == 0 {
		cfg.ConservationSweepEvery = 1000
	}
	rs := state.NewRewardState()
	return &Engine{
		log:        log,
		shares:     shares,
		rstate:     rs,
		tracker:    state.NewRewardTracker(rs, shares),
		periods:    state.NewPeriodController(rs),
		rewards:    rewards,
		idem:       NewIdempotencyCache(cfg.IdempotencyCapacity),
		hasher:     NewChainHasher(),
		sweepEvery: cfg.ConservationSweepEvery,
		persistCh:  persistCh,
		notifyCh:   notifyCh,
	}, nil
}

// Process applies one operation. On success the sealed envelope has
// been handed to persistence; on error no state changed except
// settlement, which the next honest call repeats identically.
func (e *Engine) Process(op *event.Operation) (*event.Envelope, error) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	env, err := e.process(op, false)
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	observability.OperationsProcessed.WithLabelValues(string(op.Type), status).Inc()
	observability.OperationDuration.Observe(time.Since(start).Seconds())
	return env, err
}

// Replay re-applies a persisted envelope during recovery. No channel
// sends, no metrics; the recomputed chain entry must match the stored
// one exactly.
func (e *Engine) Replay(env *event.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	replayed, err := e.process(&env.Operation, true)
	if err != nil {
		return fmt.Errorf("replay seq %d: %w", env.Sequence, err)
	}
	if replayed.Sequence != env.Sequence {
		return fmt.Errorf("replay sequence mismatch: got %d, log has %d", replayed.Sequence, env.Sequence)
	}
	if replayed.StateHash != env.StateHash {
		return fmt.Errorf("replay hash mismatch at seq %d: got %s, log has %s",
			env.Sequence, replayed.StateHash, env.StateHash)
	}
	return nil
}

func (e *Engine) process(op *event.Operation, replay bool) (*event.Envelope, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if e.idem.Seen(op.ID) {
		if !replay {
			observability.IdempotencyHits.WithLabelValues("memory").Inc()
		}
		return nil, fmt.Errorf("operation %s: %w", op.ID, ErrDuplicateOperation)
	}

	notes, err := e.dispatch(op)
	if err != nil {
		return nil, err
	}

	e.sequence++
	if e.sequence%e.sweepEvery == 0 {
		if cerr := e.shares.CheckConservation(); cerr != nil {
			e.log.Error().Err(cerr).Uint64("sequence", e.sequence).Msg("conservation sweep failed")
			panic(cerr)
		}
	}

	prevHash, stateHash := e.hasher.Seal(e.sequence, *op, notes)
	env := &event.Envelope{
		Sequence:      e.sequence,
		Operation:     *op,
		Notifications: notes,
		PrevHash:      prevHash,
		StateHash:     stateHash,
	}

	if !replay {
		if e.persistCh != nil {
			e.persistCh <- env
			observability.PersistQueueDepth.Set(float64(len(e.persistCh)))
		}
		if e.notifyCh != nil {
			select {
			case e.notifyCh <- env:
			default:
				observability.NotificationsDropped.Inc()
				e.log.Warn().Uint64("sequence", env.Sequence).Msg("projection channel full, envelope dropped")
			}
		}
		observability.CurrentSequence.Set(float64(e.sequence))
		observability.RewardRate.Set(float64(e.rstate.RewardRate))
		observability.PeriodFinishAt.Set(float64(e.rstate.PeriodFinishAt))
		observability.UnallocatedShares.Set(float64(e.shares.Unallocated()))
	}
	e.idem.Mark(op.ID)
	return env, nil
}

func (e *Engine) dispatch(op *event.Operation) ([]event.Notification, error) {
	now := op.Timestamp
	switch op.Type {
	case event.OpStake:
		return e.stake(ledger.ParticipantKey(op.Account), op.Amount, now)
	case event.OpWithdraw:
		return e.withdraw(ledger.ParticipantKey(op.Account), op.Amount, now)
	case event.OpClaim:
		return e.claim(ledger.ParticipantKey(op.Account), now)
	case event.OpSetDuration:
		return e.setDuration(op.Duration, now)
	case event.OpStartPeriod:
		return e.startPeriod(op.Amount, now)
	case event.OpBurnSink:
		return e.burnSink(now)
	case event.OpFund:
		return e.fund(op)
	default:
		return nil, fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// stake allocates shares from the sink. Both sides of the movement
// settle first: the participant so its accrual reflects the pre-stake
// balance, and the sink because its balance changes too and unsettled
// accrual would be recomputed against the wrong share count.
func (e *Engine) stake(account ledger.AccountKey, amount, now int64) ([]event.Notification, error) {
	e.tracker.Settle(account, now)
	e.tracker.Settle(ledger.SinkKey(), now)
	entries, err := e.shares.Allocate(account, amount)
	if err != nil {
		return nil, err
	}
	return e.balanceNotes(entries), nil
}

func (e *Engine) withdraw(account ledger.AccountKey, amount, now int64) ([]event.Notification, error) {
	e.tracker.Settle(account, now)
	e.tracker.Settle(ledger.SinkKey(), now)
	entries, err := e.shares.Deallocate(account, amount)
	if err != nil {
		return nil, err
	}
	return e.balanceNotes(entries), nil
}

func (e *Engine) balanceNotes(entries []ledger.Entry) []event.Notification {
	if !ledger.Balanced(entries) {
		// A share move that does not net to zero is corruption, not a
		// caller error.
		panic(fmt.Sprintf("unbalanced share movement: %+v", entries))
	}
	notes := make([]event.Notification, 0, len(entries))
	for _, en := range entries {
		notes = append(notes, event.Notification{
			Kind:        event.NoteBalanceChanged,
			Account:     en.Account.String(),
			Amount:      en.Delta,
			NewBalance:  en.NewBalance,
			Unallocated: e.shares.Unallocated(),
		})
	}
	return notes
}

func (e *Engine) claim(account ledger.AccountKey, now int64) ([]event.Notification, error) {
	e.tracker.Settle(account, now)
	pending := e.tracker.Pending(account)
	if pending == 0 {
		return nil, fmt.Errorf("claim for %s: %w", account, ErrNothingToClaim)
	}
	if err := e.rewards.TransferOut(account.ID, pending); err != nil {
		return nil, fmt.Errorf("claim payout for %s: %w", account, err)
	}
	e.tracker.TakePending(account)
	return []event.Notification{{
		Kind:    event.NoteRewardClaimed,
		Account: account.String(),
		Amount:  pending,
	}}, nil
}

func (e *Engine) setDuration(seconds, now int64) ([]event.Notification, error) {
	if err := e.periods.SetDuration(now, seconds); err != nil {
		return nil, err
	}
	return []event.Notification{{
		Kind:     event.NoteDurationSet,
		Duration: seconds,
	}}, nil
}

// startPeriod flushes sink accrual against the old rate, then commits
// the new rate against the funded balance.
func (e *Engine) startPeriod(amount, now int64) ([]event.Notification, error) {
	e.tracker.Settle(ledger.SinkKey(), now)
	available, err := e.rewards.BalanceOf()
	if err != nil {
		return nil, fmt.Errorf("read reward balance: %w", err)
	}
	if err := e.periods.StartPeriod(now, amount, available); err != nil {
		return nil, err
	}
	return []event.Notification{{
		Kind:     event.NotePeriodStarted,
		Amount:   amount,
		Rate:     e.rstate.RewardRate,
		FinishAt: e.rstate.PeriodFinishAt,
	}}, nil
}

func (e *Engine) burnSink(now int64) ([]event.Notification, error) {
	sink := ledger.SinkKey()
	e.tracker.Settle(sink, now)
	pending := e.tracker.Pending(sink)
	if pending == 0 {
		return nil, ErrNothingToBurn
	}
	if err := e.rewards.Burn(pending); err != nil {
		return nil, fmt.Errorf("burn sink reward: %w", err)
	}
	e.tracker.TakePending(sink)
	return []event.Notification{{
		Kind:    event.NoteSinkBurned,
		Account: sink.String(),
		Amount:  pending,
	}}, nil
}

func (e *Engine) fund(op *event.Operation) ([]event.Notification, error) {
	if err := e.rewards.TransferIn(op.Account, op.Amount); err != nil {
		return nil, fmt.Errorf("fund from %s: %w", op.Account, err)
	}
	return []event.Notification{{
		Kind:    event.NoteFunded,
		Account: op.Account.String(),
		Amount:  op.Amount,
	}}, nil
}

// Earned returns account's total claimable reward at time now.
func (e *Engine) Earned(account ledger.AccountKey, now int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Earned(account, now)
}

// CurrentRewardPerShare returns the live index at time now.
func (e *Engine) CurrentRewardPerShare(now int64) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.CurrentRewardPerShare(now)
}

// StakedBalance returns account's share balance.
func (e *Engine) StakedBalance(account ledger.AccountKey) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shares.BalanceOf(account)
}

// UnallocatedShares returns the sink's share balance.
func (e *Engine) UnallocatedShares() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shares.Unallocated()
}

// TotalShares returns the fixed pool size.
func (e *Engine) TotalShares() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shares.TotalShares()
}

// PeriodPhase returns the derived period lifecycle phase at time now.
func (e *Engine) PeriodPhase(now int64) state.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.periods.Phase(now)
}

// PeriodState returns a copy of the global distribution state.
func (e *Engine) PeriodState() state.StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rstate.Snapshot()
}

// Sequence returns the last committed sequence number.
func (e *Engine) Sequence() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// ChainHead returns the current hash chain head.
func (e *Engine) ChainHead() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasher.Head()
}
