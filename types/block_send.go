package types

import "encoding/binary"

// SendBlock is the legacy variant debiting Balance from the account's
// previous balance and crediting Destination via a pending entry.
type SendBlock struct {
	previous    Hash
	destination Account
	balance     Amount
	signature   [signatureSize]byte
	work        uint64
	hash        Hash
}

// NewSendBlock constructs a Send block and computes its content hash
// eagerly; hashing is cheap relative to signature verification, so
// there is no lazily-initialized hash slot.
func NewSendBlock(previous Hash, destination Account, balance Amount, signature [signatureSize]byte, work uint64) *SendBlock {
	b := &SendBlock{previous: previous, destination: destination, balance: balance, signature: signature, work: work}
	b.hash = blockHash(BlockTypeSend, b.previous[:], b.destination[:], b.balance.Bytes())
	return b
}

func (b *SendBlock) Type() BlockType                      { return BlockTypeSend }
func (b *SendBlock) Hash() Hash                            { return b.hash }
func (b *SendBlock) Previous() Hash                        { return b.previous }
func (b *SendBlock) Root() Root                             { return b.previous }
func (b *SendBlock) QualifiedRoot() QualifiedRoot          { return QualifiedRoot{Root: b.Root(), Previous: b.previous} }
func (b *SendBlock) Signature() [signatureSize]byte        { return b.signature }
func (b *SendBlock) Work() uint64                           { return b.work }
func (b *SendBlock) Destination() Account                  { return b.destination }
func (b *SendBlock) Balance() Amount                        { return b.balance }

func (b *SendBlock) Serialize() []byte {
	out := make([]byte, 0, 1+HashSize+HashSize+AmountSize+signatureSize+workSize)
	out = append(out, byte(BlockTypeSend))
	out = append(out, b.previous[:]...)
	out = append(out, b.destination[:]...)
	out = append(out, b.balance.Bytes()...)
	out = append(out, b.signature[:]...)
	out = append(out, putWorkLE(b.work)...)
	return out
}

func deserializeSendBody(buf []byte) (*SendBlock, error) {
	const bodyLen = HashSize + HashSize + AmountSize + signatureSize + workSize
	if len(buf) != bodyLen {
		return nil, errShortBuffer
	}
	var b SendBlock
	off := 0
	copy(b.previous[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.destination[:], buf[off:off+HashSize])
	off += HashSize
	bal, err := AmountFromBytes(buf[off : off+AmountSize])
	if err != nil {
		return nil, err
	}
	b.balance = bal
	off += AmountSize
	copy(b.signature[:], buf[off:off+signatureSize])
	off += signatureSize
	b.work = binary.LittleEndian.Uint64(buf[off : off+workSize])
	b.hash = blockHash(BlockTypeSend, b.previous[:], b.destination[:], b.balance.Bytes())
	return &b, nil
}
