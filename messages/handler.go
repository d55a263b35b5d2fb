package messages

import (
	"github.com/coreledger/coreledger-node/blockproc"
	"github.com/coreledger/coreledger-node/voteproc"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// Handler routes decoded peer traffic into the core's ingestion
// points: publishes to the block processor, confirm_acks to the vote
// processor. A malformed frame is a protocol error: the message is
// dropped and the origin channel penalized.
type Handler struct {
	Blocks *blockproc.Processor
	Votes  *voteproc.Processor
	// Penalize is called with the peer id of a channel that delivered
	// a malformed frame.
	Penalize func(peer string)
	// OnConfirmReq, if set, is handed vote solicitations; replying
	// with local votes is the (external) request-aggregator's concern.
	OnConfirmReq func(from Channel, pairs []HashPair)

	log       log.Logger
	malformed metrics.Counter
}

// NewHandler builds a Handler over the two ingestion processors.
func NewHandler(blocks *blockproc.Processor, votes *voteproc.Processor) *Handler {
	return &Handler{
		Blocks:    blocks,
		Votes:     votes,
		log:       log.New("module", "messages"),
		malformed: metrics.NewRegisteredCounter("messages/malformed", nil),
	}
}

// Receive decodes and dispatches one raw message frame arriving on
// from. The returned error reports a malformed frame; dispatch-level
// drops (queue full, bad signature) are accounted inside the target
// processor and do not surface here.
func (h *Handler) Receive(from Channel, frame []byte) error {
	msg, err := Deserialize(frame)
	if err != nil {
		h.malformed.Inc(1)
		h.log.Debug("malformed message", "peer", from.PeerID(), "err", err)
		if h.Penalize != nil {
			h.Penalize(from.PeerID())
		}
		return err
	}
	h.Dispatch(from, msg)
	return nil
}

// Dispatch routes an already-decoded message.
func (h *Handler) Dispatch(from Channel, msg Message) {
	switch m := msg.(type) {
	case *Publish:
		h.Blocks.Add(m.Block, blockproc.SourceLive, from.PeerID())
	case *ConfirmAck:
		h.Votes.Vote(m.Vote, from.PeerID(), voteproc.SourceLive)
	case *ConfirmReq:
		if h.OnConfirmReq != nil {
			h.OnConfirmReq(from, m.Pairs)
		}
	}
}
