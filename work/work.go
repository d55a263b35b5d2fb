// Package work defines the proof-of-work verification primitive the
// ledger engine consumes. Work generation lives with wallets and RPC;
// the engine only checks a nonce clears a threshold.
package work

import (
	"encoding/binary"

	"github.com/coreledger/coreledger-node/types"
	"golang.org/x/crypto/blake2b"
)

// Threshold is a difficulty target: a work value is valid for a root
// when the little-endian uint64 read from the tail of
// Blake2b-8(work_le || root) is >= Threshold.
type Threshold uint64

// Class distinguishes the two difficulty tiers: receive-class blocks
// (Open, Receive, and State receives/epochs) use a lower threshold
// than send-class blocks.
type Class uint8

const (
	ClassSend Class = iota
	ClassReceive
)

// Verifier validates a work value against a root hash and difficulty
// class. The ledger engine takes one as a construction-time parameter
// rather than reaching for a singleton.
type Verifier interface {
	Validate(root types.Hash, work uint64, class Class) bool
}

// Thresholds pairs the two difficulty classes into one set of network
// constants, per epoch.
type Thresholds struct {
	Send    Threshold
	Receive Threshold
}

// DefaultThresholds is this module's default-network difficulty.
// Production deployments supply their own via construction.
var DefaultThresholds = Thresholds{
	Send:    0xfffffff800000000,
	Receive: 0xffffffc000000000,
}

type blake2Verifier struct {
	thresholds map[types.Epoch]Thresholds
	fallback   Thresholds
}

// NewVerifier builds a Verifier from per-epoch thresholds, falling back
// to fallback for epochs with no explicit entry.
func NewVerifier(perEpoch map[types.Epoch]Thresholds, fallback Thresholds) Verifier {
	return &blake2Verifier{thresholds: perEpoch, fallback: fallback}
}

func (v *blake2Verifier) thresholdFor(class Class, epoch types.Epoch) Threshold {
	t := v.fallback
	if perEpoch, ok := v.thresholds[epoch]; ok {
		t = perEpoch
	}
	if class == ClassReceive {
		return t.Receive
	}
	return t.Send
}

func (v *blake2Verifier) Validate(root types.Hash, work uint64, class Class) bool {
	return validateAgainst(root, work, v.thresholdFor(class, types.EpochUnspecified))
}

// ValidateEpoch validates work for a specific epoch's threshold set.
func ValidateEpoch(v Verifier, root types.Hash, work uint64, class Class, epoch types.Epoch) bool {
	bv, ok := v.(*blake2Verifier)
	if !ok {
		return v.Validate(root, work, class)
	}
	return validateAgainst(root, work, bv.thresholdFor(class, epoch))
}

func validateAgainst(root types.Hash, work uint64, threshold Threshold) bool {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic(err)
	}
	var workLE [8]byte
	binary.LittleEndian.PutUint64(workLE[:], work)
	h.Write(workLE[:])
	h.Write(root[:])
	sum := h.Sum(nil)
	result := binary.LittleEndian.Uint64(sum)
	return result >= uint64(threshold)
}
