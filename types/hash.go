// Package types defines the wire and in-memory representation of the
// ledger's core entities: blocks, accounts, votes and the small value
// types threaded through the rest of the module.
package types

import (
	"encoding/hex"
	"errors"
)

// HashSize is the length in bytes of a content hash, account public key
// or block link field.
const HashSize = 32

// Hash is a 32-byte Blake2b-256 digest.
type Hash [HashSize]byte

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// HashFromBytes copies b into a Hash, failing if the length is wrong.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, errors.New("types: invalid hash length")
	}
	copy(h[:], b)
	return h, nil
}

// Account is an Ed25519 public key identifying a chain.
type Account Hash

func (a Account) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the all-zero (burn) account.
func (a Account) IsZero() bool {
	return a == Account{}
}

func (a Account) Bytes() []byte {
	return Hash(a).Bytes()
}

// AccountFromBytes copies b into an Account, failing if the length is wrong.
func AccountFromBytes(b []byte) (Account, error) {
	h, err := HashFromBytes(b)
	return Account(h), err
}

// Root identifies a fork position: the block's own account for the
// first block of a chain, or the previous block's hash otherwise.
type Root = Hash

// QualifiedRoot identifies a fork candidacy: two blocks sharing a
// QualifiedRoot are forks of each other.
type QualifiedRoot struct {
	Root     Root
	Previous Hash
}

func (q QualifiedRoot) String() string {
	return q.Root.String() + ":" + q.Previous.String()
}
