package ingestion

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"RewardLedger/internal/event"
)

// EventStream is the JetStream stream holding outbound notifications.
const EventStream = "REWARD_EVENTS"

// Publisher fans each envelope's notifications out to the event
// stream, one message per notification on its kind-specific subject.
type Publisher struct {
	log zerolog.Logger
	js  jetstream.JetStream
}

// NewPublisher builds a publisher over an existing NATS connection.
func NewPublisher(nc *nats.Conn, log zerolog.Logger) (*Publisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return &Publisher{log: log, js: js}, nil
}

// EnsureStream creates or updates the event stream.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     EventStream,
		Subjects: []string{event.SubjectPrefix + ">"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", EventStream, err)
	}
	return nil
}

// Publish emits every notification in the envelope. Message ids are
// derived from the operation id and notification index, so JetStream
// deduplicates republished envelopes.
func (p *Publisher) Publish(ctx context.Context, env *event.Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return err
	}
	for i, note := range env.Notifications {
		msgID := fmt.Sprintf("%s-%d", env.Operation.ID, i)
		_, err := p.js.PublishMsg(ctx, &nats.Msg{
			Subject: note.Subject(),
			Data:    body,
		}, jetstream.WithMsgID(msgID))
		if err != nil {
			return fmt.Errorf("publish %s seq %d: %w", note.Subject(), env.Sequence, err)
		}
	}
	p.log.Debug().Uint64("sequence", env.Sequence).Int("notifications", len(env.Notifications)).Msg("envelope published")
	return nil
}
