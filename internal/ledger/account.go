// Package ledger tracks the fixed pool of ownership shares. The pool
// size never changes: shares move between participant accounts and the
// sink account, which holds everything not currently allocated.
package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountKind tags the role of an account key.
type AccountKind uint8

const (
	// KindParticipant is a real share holder.
	KindParticipant AccountKind = iota + 1
	// KindSink is the reserved account holding unallocated shares.
	// There is exactly one sink; it is distinguished by kind, never by
	// a magic identity value.
	KindSink
)

func (k AccountKind) String() string {
	switch k {
	case KindParticipant:
		return "participant"
	case KindSink:
		return "sink"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AccountKey identifies a share holder.
type AccountKey struct {
	Kind AccountKind
	ID   uuid.UUID
}

// ParticipantKey builds the key for a real share holder.
func ParticipantKey(id uuid.UUID) AccountKey {
	return AccountKey{Kind: KindParticipant, ID: id}
}

// SinkKey returns the key of the unallocated-shares account.
func SinkKey() AccountKey {
	return AccountKey{Kind: KindSink}
}

// IsSink reports whether the key names the sink account.
func (k AccountKey) IsSink() bool {
	return k.Kind == KindSink
}

func (k AccountKey) String() string {
	if k.Kind == KindSink {
		return "sink"
	}
	return fmt.Sprintf("%s:%s", k.Kind, k.ID)
}

// ParseAccountKey inverts String. Used when loading persisted
// snapshots and projections.
func ParseAccountKey(s string) (AccountKey, error) {
	if s == "sink" {
		return SinkKey(), nil
	}
	const prefix = "participant:"
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		id, err := uuid.Parse(s[len(prefix):])
		if err != nil {
			return AccountKey{}, fmt.Errorf("parse account key %q: %w", s, err)
		}
		return ParticipantKey(id), nil
	}
	return AccountKey{}, fmt.Errorf("parse account key %q: unknown form", s)
}
