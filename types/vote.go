package types

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// MaxVoteHashes is the largest number of block hashes a single vote
// may cover.
const MaxVoteHashes = 12

// FinalTimestamp is the reserved timestamp sentinel marking a vote as
// final: the voter is irrevocably committed to the covered hashes.
const FinalTimestamp uint64 = ^uint64(0)

var (
	ErrTooManyHashes    = errors.New("types: vote covers more than the maximum number of hashes")
	ErrNoHashes         = errors.New("types: vote covers no hashes")
	ErrBadVoteSignature = errors.New("types: bad vote signature")
)

// Vote is a representative's signed endorsement of up to MaxVoteHashes
// block hashes at a given timestamp.
type Vote struct {
	Voter     Account
	Signature [signatureSize]byte
	Timestamp uint64
	Hashes    []Hash
}

// NewVote constructs and signs a vote with the given Ed25519 private key.
func NewVote(voter Account, priv ed25519.PrivateKey, timestamp uint64, hashes []Hash) (*Vote, error) {
	if len(hashes) == 0 {
		return nil, ErrNoHashes
	}
	if len(hashes) > MaxVoteHashes {
		return nil, ErrTooManyHashes
	}
	v := &Vote{Voter: voter, Timestamp: timestamp, Hashes: hashes}
	sh := v.signingHash()
	sig := ed25519.Sign(priv, sh[:])
	copy(v.Signature[:], sig)
	return v, nil
}

// IsFinal reports whether the vote carries the final-timestamp sentinel.
func (v *Vote) IsFinal() bool {
	return v.Timestamp == FinalTimestamp
}

// signingHash is the Blake2b-256 digest over the vote's timestamp and
// concatenated hashes, domain-separated from block hashing.
func (v *Vote) signingHash() Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	var preamble [32]byte
	preamble[30] = 'V'
	preamble[31] = 'T'
	h.Write(preamble[:])
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], v.Timestamp)
	h.Write(ts[:])
	for _, hash := range v.Hashes {
		h.Write(hash[:])
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Verify checks the vote's signature against its voting account.
func (v *Vote) Verify() error {
	if len(v.Hashes) == 0 {
		return ErrNoHashes
	}
	if len(v.Hashes) > MaxVoteHashes {
		return ErrTooManyHashes
	}
	digest := v.signingHash()
	if !ed25519.Verify(ed25519.PublicKey(v.Voter[:]), digest[:], v.Signature[:]) {
		return ErrBadVoteSignature
	}
	return nil
}

// Serialize writes voter(32) || signature(64) || timestamp(8, LE) ||
// hash_count(1) || hash_count*32.
func (v *Vote) Serialize() []byte {
	out := make([]byte, 0, HashSize+signatureSize+8+1+len(v.Hashes)*HashSize)
	out = append(out, v.Voter[:]...)
	out = append(out, v.Signature[:]...)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], v.Timestamp)
	out = append(out, ts[:]...)
	out = append(out, byte(len(v.Hashes)))
	for _, h := range v.Hashes {
		out = append(out, h[:]...)
	}
	return out
}

// DeserializeVote decodes a vote from its wire layout.
func DeserializeVote(buf []byte) (*Vote, error) {
	const headerLen = HashSize + signatureSize + 8 + 1
	if len(buf) < headerLen {
		return nil, errShortBuffer
	}
	var v Vote
	off := 0
	copy(v.Voter[:], buf[off:off+HashSize])
	off += HashSize
	copy(v.Signature[:], buf[off:off+signatureSize])
	off += signatureSize
	v.Timestamp = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	count := int(buf[off])
	off++
	if count == 0 {
		return nil, ErrNoHashes
	}
	if count > MaxVoteHashes {
		return nil, ErrTooManyHashes
	}
	if len(buf) != off+count*HashSize {
		return nil, errShortBuffer
	}
	v.Hashes = make([]Hash, count)
	for i := 0; i < count; i++ {
		copy(v.Hashes[i][:], buf[off:off+HashSize])
		off += HashSize
	}
	return &v, nil
}
