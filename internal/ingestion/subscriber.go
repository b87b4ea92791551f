package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"RewardLedger/internal/core"
	"RewardLedger/internal/event"
	"RewardLedger/internal/observability"
)

// CommandStream is the JetStream stream holding inbound commands.
const CommandStream = "REWARD_CMDS"

// Processor is the engine surface the subscriber drives.
type Processor interface {
	Process(op *event.Operation) (*event.Envelope, error)
}

// DuplicateChecker is the database tier of duplicate detection. The
// engine's own cache catches recent repeats; this tier catches
// replays older than the cache horizon.
type DuplicateChecker interface {
	Seen(ctx context.Context, id uuid.UUID) (bool, error)
}

// Subscriber consumes commands from JetStream with a durable consumer
// and feeds them to the engine one at a time. Operation timestamps are
// stamped here, at the shell boundary, so the engine itself stays
// clock-free and replayable.
type Subscriber struct {
	log     zerolog.Logger
	js      jetstream.JetStream
	clock   clockwork.Clock
	engine  Processor
	dupes   DuplicateChecker
	durable string
}

// NewSubscriber builds a subscriber over an existing NATS connection.
// dupes may be nil to disable the database duplicate tier.
func NewSubscriber(nc *nats.Conn, engine Processor, dupes DuplicateChecker, clock clockwork.Clock, durable string, log zerolog.Logger) (*Subscriber, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return &Subscriber{
		log:     log,
		js:      js,
		clock:   clock,
		engine:  engine,
		dupes:   dupes,
		durable: durable,
	}, nil
}

// EnsureStream creates or updates the command stream.
func (s *Subscriber) EnsureStream(ctx context.Context) error {
	_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      CommandStream,
		Subjects:  []string{CommandSubjectPrefix + ">"},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", CommandStream, err)
	}
	return nil
}

// Run consumes until ctx is cancelled. Rejected commands are acked:
// engine errors signal caller precondition violations, and redelivery
// would only reject them again.
func (s *Subscriber) Run(ctx context.Context) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, CommandStream, jetstream.ConsumerConfig{
		Durable:       s.durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxAckPending: 1,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", s.durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.durable, err)
	}
	defer cc.Stop()

	s.log.Info().Str("stream", CommandStream).Str("durable", s.durable).Msg("command subscriber running")
	<-ctx.Done()
	return ctx.Err()
}

func (s *Subscriber) handle(msg jetstream.Msg) {
	op, err := ParseCommand(msg.Subject(), msg.Data())
	if err != nil {
		s.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("unparseable command, acking")
		_ = msg.Ack()
		return
	}
	op.Timestamp = s.clock.Now().Unix()

	if s.dupes != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		seen, derr := s.dupes.Seen(ctx, op.ID)
		cancel()
		if derr != nil {
			s.log.Warn().Err(derr).Str("operation", op.ID.String()).Msg("duplicate check failed, relying on memory tier")
		} else if seen {
			observability.IdempotencyHits.WithLabelValues("database").Inc()
			s.log.Debug().Str("operation", op.ID.String()).Msg("duplicate command, acking")
			_ = msg.Ack()
			return
		}
	}

	env, err := s.engine.Process(op)
	switch {
	case err == nil:
		s.log.Debug().
			Str("operation", op.ID.String()).
			Str("type", string(op.Type)).
			Uint64("sequence", env.Sequence).
			Msg("command applied")
	case errors.Is(err, core.ErrDuplicateOperation):
		s.log.Debug().Str("operation", op.ID.String()).Msg("duplicate command, acking")
	default:
		s.log.Warn().Err(err).
			Str("operation", op.ID.String()).
			Str("type", string(op.Type)).
			Msg("command rejected")
	}
	if ackErr := msg.Ack(); ackErr != nil {
		s.log.Error().Err(ackErr).Str("operation", op.ID.String()).Msg("ack failed")
	}
}
