package types

import "encoding/binary"

// StateBlock is the unified variant. Link is context-dependent: zero
// for a change, the destination account for a send (previous balance
// > new balance), the source send's hash for a receive (previous
// balance < new balance), or an epoch marker for an epoch upgrade.
// Classifying which of those applies requires the account's prior
// state and is the ledger engine's job, not this type's.
type StateBlock struct {
	account        Account
	previous       Hash
	representative Account
	balance        Amount
	link           Hash
	signature      [signatureSize]byte
	work           uint64
	hash           Hash
}

func NewStateBlock(account, representative Account, previous Hash, balance Amount, link Hash, signature [signatureSize]byte, work uint64) *StateBlock {
	b := &StateBlock{
		account: account, previous: previous, representative: representative,
		balance: balance, link: link, signature: signature, work: work,
	}
	b.hash = blockHash(BlockTypeState, b.account[:], b.previous[:], b.representative[:], b.balance.Bytes(), b.link[:])
	return b
}

func (b *StateBlock) Type() BlockType { return BlockTypeState }
func (b *StateBlock) Hash() Hash       { return b.hash }
func (b *StateBlock) Previous() Hash   { return b.previous }

// Root is Previous() for a non-opening state block, or the account
// itself when Previous is zero (this block opens the chain).
func (b *StateBlock) Root() Root {
	if b.previous.IsZero() {
		return Hash(b.account)
	}
	return b.previous
}

func (b *StateBlock) QualifiedRoot() QualifiedRoot   { return QualifiedRoot{Root: b.Root(), Previous: b.previous} }
func (b *StateBlock) Signature() [signatureSize]byte { return b.signature }
func (b *StateBlock) Work() uint64                   { return b.work }
func (b *StateBlock) Account() Account               { return b.account }
func (b *StateBlock) Representative() Account        { return b.representative }
func (b *StateBlock) Balance() Amount                { return b.balance }
func (b *StateBlock) Link() Hash                     { return b.link }

func (b *StateBlock) Serialize() []byte {
	out := make([]byte, 0, 1+HashSize*4+AmountSize+signatureSize+workSize)
	out = append(out, byte(BlockTypeState))
	out = append(out, b.account[:]...)
	out = append(out, b.previous[:]...)
	out = append(out, b.representative[:]...)
	out = append(out, b.balance.Bytes()...)
	out = append(out, b.link[:]...)
	out = append(out, b.signature[:]...)
	// State-block work is big-endian on the wire, unlike every legacy
	// variant.
	out = append(out, putWorkBE(b.work)...)
	return out
}

func deserializeStateBody(buf []byte) (*StateBlock, error) {
	const bodyLen = HashSize*4 + AmountSize + signatureSize + workSize
	if len(buf) != bodyLen {
		return nil, errShortBuffer
	}
	var b StateBlock
	off := 0
	copy(b.account[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.previous[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.representative[:], buf[off:off+HashSize])
	off += HashSize
	bal, err := AmountFromBytes(buf[off : off+AmountSize])
	if err != nil {
		return nil, err
	}
	b.balance = bal
	off += AmountSize
	copy(b.link[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.signature[:], buf[off:off+signatureSize])
	off += signatureSize
	b.work = binary.BigEndian.Uint64(buf[off : off+workSize])
	b.hash = blockHash(BlockTypeState, b.account[:], b.previous[:], b.representative[:], b.balance.Bytes(), b.link[:])
	return &b, nil
}
