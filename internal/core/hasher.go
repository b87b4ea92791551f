package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"RewardLedger/internal/event"
)

// GenesisHashSeed anchors the hash chain. Changing it invalidates
// every persisted log, so it is versioned explicitly.
const GenesisHashSeed = "RewardLedger:genesis:v1"

// ChainHasher links each envelope to its predecessor. Replaying the
// log from genesis must reproduce the identical chain; a mismatch
// means the log was tampered with or the engine is non-deterministic.
type ChainHasher struct {
	prev string
}

// NewChainHasher starts a chain at genesis.
func NewChainHasher() *ChainHasher {
	seed := sha256.Sum256([]byte(GenesisHashSeed))
	return &ChainHasher{prev: hex.EncodeToString(seed[:])}
}

// Resume continues a chain from a persisted head hash.
func (h *ChainHasher) Resume(head string) {
	h.prev = head
}

// Head returns the current chain head.
func (h *ChainHasher) Head() string {
	return h.prev
}

// Seal computes the chain entry for a processed operation and advances
// the head. The digest covers the operation and every notification it
// produced.
func (h *ChainHasher) Seal(sequence uint64, op event.Operation, notes []event.Notification) (prevHash, stateHash string) {
	payload, err := json.Marshal(struct {
		Operation     event.Operation      `json:"operation"`
		Notifications []event.Notification `json:"notifications,omitempty"`
	}{op, notes})
	if err != nil {
		// Operation and Notification contain only marshalable fields;
		// failure here is a programming error.
		panic("hasher: marshal sealed payload: " + err.Error())
	}
	digest := sha256.Sum256(payload)

	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)

	hasher := sha256.New()
	hasher.Write([]byte(h.prev))
	hasher.Write(seq[:])
	hasher.Write(digest[:])
	next := hex.EncodeToString(hasher.Sum(nil))

	prevHash = h.prev
	h.prev = next
	return prevHash, next
}
