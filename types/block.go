package types

import (
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// BlockType tags the wire-level variant of a block.
type BlockType uint8

const (
	BlockTypeInvalid BlockType = iota
	BlockTypeSend
	BlockTypeReceive
	BlockTypeOpen
	BlockTypeChange
	BlockTypeState
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeSend:
		return "send"
	case BlockTypeReceive:
		return "receive"
	case BlockTypeOpen:
		return "open"
	case BlockTypeChange:
		return "change"
	case BlockTypeState:
		return "state"
	default:
		return "invalid"
	}
}

// IsLegacy reports whether t is one of the four pre-unification
// variants, as opposed to the unified State variant.
func (t BlockType) IsLegacy() bool {
	switch t {
	case BlockTypeSend, BlockTypeReceive, BlockTypeOpen, BlockTypeChange:
		return true
	default:
		return false
	}
}

const (
	signatureSize = 64
	workSize      = 8
)

var errShortBuffer = errors.New("types: buffer too short")

// Block is the closed set of block variants: a tagged-union surface,
// not an open class hierarchy. Every switch over BlockType in this
// module is expected to be exhaustive.
type Block interface {
	Type() BlockType
	// Hash is the domain-separated Blake2b-256 content hash over every
	// hashable field, excluding signature and work. Blocks are
	// immutable, so it is computed once at construction and returned
	// from a plain getter.
	Hash() Hash
	// Previous is the preceding block hash on this chain, or the zero
	// hash for the first block of a chain (Open, or a State block
	// whose Previous field is zero).
	Previous() Hash
	// Root is the fork-position root: Previous() for non-first
	// blocks, or the chain's account for the first block.
	Root() Root
	QualifiedRoot() QualifiedRoot
	Signature() [signatureSize]byte
	Work() uint64
	// Serialize writes the block-type tag followed by the body in
	// the variant's fixed wire layout.
	Serialize() []byte
}

// DeserializeBlock reads a {block_type, body} wire record.
func DeserializeBlock(buf []byte) (Block, error) {
	if len(buf) < 1 {
		return nil, errShortBuffer
	}
	switch BlockType(buf[0]) {
	case BlockTypeSend:
		return deserializeSendBody(buf[1:])
	case BlockTypeReceive:
		return deserializeReceiveBody(buf[1:])
	case BlockTypeOpen:
		return deserializeOpenBody(buf[1:])
	case BlockTypeChange:
		return deserializeChangeBody(buf[1:])
	case BlockTypeState:
		return deserializeStateBody(buf[1:])
	default:
		return nil, errors.New("types: unknown block type")
	}
}

// blockHash computes the domain-separated content hash for a block
// variant: Blake2b-256 over a 32-byte preamble (zero-padded, last byte
// the block type) followed by the hashable fields in wire order.
func blockHash(t BlockType, fields ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	var preamble [32]byte
	preamble[31] = byte(t)
	h.Write(preamble[:])
	for _, f := range fields {
		h.Write(f)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func putWorkLE(w uint64) []byte {
	b := make([]byte, workSize)
	binary.LittleEndian.PutUint64(b, w)
	return b
}

func putWorkBE(w uint64) []byte {
	b := make([]byte, workSize)
	binary.BigEndian.PutUint64(b, w)
	return b
}
