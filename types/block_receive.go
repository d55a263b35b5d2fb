package types

import "encoding/binary"

// ReceiveBlock is the legacy variant crediting the account with the
// amount of the Source send block.
type ReceiveBlock struct {
	previous  Hash
	source    Hash
	signature [signatureSize]byte
	work      uint64
	hash      Hash
}

func NewReceiveBlock(previous, source Hash, signature [signatureSize]byte, work uint64) *ReceiveBlock {
	b := &ReceiveBlock{previous: previous, source: source, signature: signature, work: work}
	b.hash = blockHash(BlockTypeReceive, b.previous[:], b.source[:])
	return b
}

func (b *ReceiveBlock) Type() BlockType               { return BlockTypeReceive }
func (b *ReceiveBlock) Hash() Hash                     { return b.hash }
func (b *ReceiveBlock) Previous() Hash                 { return b.previous }
func (b *ReceiveBlock) Root() Root                     { return b.previous }
func (b *ReceiveBlock) QualifiedRoot() QualifiedRoot   { return QualifiedRoot{Root: b.Root(), Previous: b.previous} }
func (b *ReceiveBlock) Signature() [signatureSize]byte { return b.signature }
func (b *ReceiveBlock) Work() uint64                   { return b.work }
func (b *ReceiveBlock) Source() Hash                   { return b.source }

func (b *ReceiveBlock) Serialize() []byte {
	out := make([]byte, 0, 1+HashSize+HashSize+signatureSize+workSize)
	out = append(out, byte(BlockTypeReceive))
	out = append(out, b.previous[:]...)
	out = append(out, b.source[:]...)
	out = append(out, b.signature[:]...)
	out = append(out, putWorkLE(b.work)...)
	return out
}

func deserializeReceiveBody(buf []byte) (*ReceiveBlock, error) {
	const bodyLen = HashSize + HashSize + signatureSize + workSize
	if len(buf) != bodyLen {
		return nil, errShortBuffer
	}
	var b ReceiveBlock
	off := 0
	copy(b.previous[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.source[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.signature[:], buf[off:off+signatureSize])
	off += signatureSize
	b.work = binary.LittleEndian.Uint64(buf[off : off+workSize])
	b.hash = blockHash(BlockTypeReceive, b.previous[:], b.source[:])
	return &b, nil
}
