package messages

import (
	"github.com/coreledger/coreledger-node/types"
)

// Message is the closed set of wire messages, the same tagged-variant
// shape the block hierarchy uses.
type Message interface {
	Type() MessageType
	// Serialize writes the header followed by the payload.
	Serialize() []byte
}

// Channel is what the core requires from the (external) transport: it
// can send a message to its remote peer and identify that peer. The
// origin identifiers threaded through the block and vote processors
// for penalization are Channel.PeerID values.
type Channel interface {
	Send(msg Message) error
	PeerID() string
}

// Publish carries one block to be offered to a peer's block processor.
type Publish struct {
	proto ProtocolInfo
	Block types.Block
}

// NewPublish wraps blk for the wire.
func NewPublish(p ProtocolInfo, blk types.Block) *Publish {
	return &Publish{proto: p, Block: blk}
}

func (m *Publish) Type() MessageType { return TypePublish }

func (m *Publish) Serialize() []byte {
	ext := uint16(m.Block.Type()) << extBlockTypeShift
	out := newHeader(m.proto, TypePublish, ext).Serialize()
	return append(out, m.Block.Serialize()...)
}

func deserializePublish(h Header, payload []byte) (*Publish, error) {
	blk, err := types.DeserializeBlock(payload)
	if err != nil {
		return nil, err
	}
	if blk.Type() != h.BlockType() {
		return nil, ErrExtensionsMismatch
	}
	return &Publish{Block: blk}, nil
}

// ConfirmAck carries one vote. The header's count bits duplicate the
// vote's own hash count so a framer can size the payload before
// parsing it.
type ConfirmAck struct {
	proto ProtocolInfo
	Vote  *types.Vote
}

// NewConfirmAck wraps vote for the wire.
func NewConfirmAck(p ProtocolInfo, vote *types.Vote) *ConfirmAck {
	return &ConfirmAck{proto: p, Vote: vote}
}

func (m *ConfirmAck) Type() MessageType { return TypeConfirmAck }

func (m *ConfirmAck) Serialize() []byte {
	ext := uint16(len(m.Vote.Hashes)) << extCountShift
	out := newHeader(m.proto, TypeConfirmAck, ext).Serialize()
	return append(out, m.Vote.Serialize()...)
}

func deserializeConfirmAck(h Header, payload []byte) (*ConfirmAck, error) {
	vote, err := types.DeserializeVote(payload)
	if err != nil {
		return nil, err
	}
	if len(vote.Hashes) != h.Count() {
		return nil, ErrExtensionsMismatch
	}
	return &ConfirmAck{Vote: vote}, nil
}

// HashPair names one election a confirm_req solicits votes for: the
// block hash wanted and the root it contends at.
type HashPair struct {
	Hash types.Hash
	Root types.Root
}

// ConfirmReq solicits votes for up to MaxVoteHashes elections.
type ConfirmReq struct {
	proto ProtocolInfo
	Pairs []HashPair
}

// NewConfirmReq wraps pairs for the wire.
func NewConfirmReq(p ProtocolInfo, pairs []HashPair) *ConfirmReq {
	return &ConfirmReq{proto: p, Pairs: pairs}
}

func (m *ConfirmReq) Type() MessageType { return TypeConfirmReq }

func (m *ConfirmReq) Serialize() []byte {
	ext := uint16(len(m.Pairs)) << extCountShift
	out := newHeader(m.proto, TypeConfirmReq, ext).Serialize()
	for _, p := range m.Pairs {
		out = append(out, p.Hash[:]...)
		out = append(out, p.Root[:]...)
	}
	return out
}

func deserializeConfirmReq(h Header, payload []byte) (*ConfirmReq, error) {
	count := h.Count()
	if count == 0 || count > types.MaxVoteHashes {
		return nil, ErrExtensionsMismatch
	}
	if len(payload) != count*types.HashSize*2 {
		return nil, ErrShortMessage
	}
	pairs := make([]HashPair, count)
	off := 0
	for i := range pairs {
		copy(pairs[i].Hash[:], payload[off:off+types.HashSize])
		off += types.HashSize
		copy(pairs[i].Root[:], payload[off:off+types.HashSize])
		off += types.HashSize
	}
	return &ConfirmReq{Pairs: pairs}, nil
}

// Deserialize decodes one complete message record (header + payload).
func Deserialize(buf []byte) (Message, error) {
	h, err := DeserializeHeader(buf)
	if err != nil {
		return nil, err
	}
	payload := buf[HeaderSize:]
	switch h.Type {
	case TypePublish:
		return deserializePublish(h, payload)
	case TypeConfirmAck:
		return deserializeConfirmAck(h, payload)
	case TypeConfirmReq:
		return deserializeConfirmReq(h, payload)
	default:
		return nil, ErrUnknownType
	}
}
