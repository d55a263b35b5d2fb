package types

import "encoding/binary"

// OpenBlock is the legacy variant creating the first block of a chain.
type OpenBlock struct {
	source         Hash
	representative Account
	account        Account
	signature      [signatureSize]byte
	work           uint64
	hash           Hash
}

func NewOpenBlock(source Hash, representative, account Account, signature [signatureSize]byte, work uint64) *OpenBlock {
	b := &OpenBlock{source: source, representative: representative, account: account, signature: signature, work: work}
	b.hash = blockHash(BlockTypeOpen, b.source[:], b.representative[:], b.account[:])
	return b
}

func (b *OpenBlock) Type() BlockType               { return BlockTypeOpen }
func (b *OpenBlock) Hash() Hash                     { return b.hash }
func (b *OpenBlock) Previous() Hash                 { return Hash{} }
func (b *OpenBlock) Root() Root                     { return Hash(b.account) }
func (b *OpenBlock) QualifiedRoot() QualifiedRoot   { return QualifiedRoot{Root: b.Root(), Previous: Hash{}} }
func (b *OpenBlock) Signature() [signatureSize]byte { return b.signature }
func (b *OpenBlock) Work() uint64                   { return b.work }
func (b *OpenBlock) Source() Hash                   { return b.source }
func (b *OpenBlock) Representative() Account        { return b.representative }
func (b *OpenBlock) Account() Account               { return b.account }

func (b *OpenBlock) Serialize() []byte {
	out := make([]byte, 0, 1+HashSize+HashSize+HashSize+signatureSize+workSize)
	out = append(out, byte(BlockTypeOpen))
	out = append(out, b.source[:]...)
	out = append(out, b.representative[:]...)
	out = append(out, b.account[:]...)
	out = append(out, b.signature[:]...)
	out = append(out, putWorkLE(b.work)...)
	return out
}

func deserializeOpenBody(buf []byte) (*OpenBlock, error) {
	const bodyLen = HashSize + HashSize + HashSize + signatureSize + workSize
	if len(buf) != bodyLen {
		return nil, errShortBuffer
	}
	var b OpenBlock
	off := 0
	copy(b.source[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.representative[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.account[:], buf[off:off+HashSize])
	off += HashSize
	copy(b.signature[:], buf[off:off+signatureSize])
	off += signatureSize
	b.work = binary.LittleEndian.Uint64(buf[off : off+workSize])
	b.hash = blockHash(BlockTypeOpen, b.source[:], b.representative[:], b.account[:])
	return &b, nil
}
