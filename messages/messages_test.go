package messages

import (
	"crypto/ed25519"
	"testing"

	"github.com/coreledger/coreledger-node/types"
	"github.com/stretchr/testify/require"
)

var testProto = ProtocolInfo{Network: NetworkTest, VersionMax: 20, VersionUsing: 20, VersionMin: 18}

func signedVote(t *testing.T, timestamp uint64, hashes ...types.Hash) *types.Vote {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var voter types.Account
	copy(voter[:], pub)
	v, err := types.NewVote(voter, priv, timestamp, hashes)
	require.NoError(t, err)
	return v
}

func TestHeaderRoundTrip(t *testing.T) {
	h := newHeader(testProto, TypeConfirmAck, uint16(5)<<extCountShift)
	decoded, err := DeserializeHeader(h.Serialize())
	require.NoError(t, err)
	require.Equal(t, h, decoded)
	require.Equal(t, 5, decoded.Count())
	require.Equal(t, TypeConfirmAck, decoded.Type)
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	buf := newHeader(testProto, TypePublish, 0).Serialize()
	buf[0] = 'Q'
	_, err := DeserializeHeader(buf)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestPublishRoundTrip(t *testing.T) {
	blk := types.NewStateBlock(
		types.Account{1}, types.Account{2}, types.Hash{3},
		types.NewAmount(42), types.Hash{4}, [64]byte{5}, 7,
	)
	msg := NewPublish(testProto, blk)

	decoded, err := Deserialize(msg.Serialize())
	require.NoError(t, err)
	pub, ok := decoded.(*Publish)
	require.True(t, ok)
	require.Equal(t, blk.Hash(), pub.Block.Hash())
	require.Equal(t, blk, pub.Block)
}

func TestPublishHeaderEncodesBlockType(t *testing.T) {
	blk := types.NewSendBlock(types.Hash{1}, types.Account{2}, types.NewAmount(3), [64]byte{}, 9)
	buf := NewPublish(testProto, blk).Serialize()
	h, err := DeserializeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, types.BlockTypeSend, h.BlockType())
}

func TestPublishRejectsExtensionMismatch(t *testing.T) {
	blk := types.NewSendBlock(types.Hash{1}, types.Account{2}, types.NewAmount(3), [64]byte{}, 9)
	buf := NewPublish(testProto, blk).Serialize()
	// Claim a state block in the header while carrying a send body; the
	// block-type bits are the low nibble of the extensions' high byte.
	buf[7] = byte(types.BlockTypeState)
	_, err := Deserialize(buf)
	require.ErrorIs(t, err, ErrExtensionsMismatch)
}

func TestConfirmAckRoundTrip(t *testing.T) {
	hashes := make([]types.Hash, types.MaxVoteHashes)
	for i := range hashes {
		hashes[i] = types.Hash{byte(i + 1)}
	}
	vote := signedVote(t, 99, hashes...)
	msg := NewConfirmAck(testProto, vote)

	decoded, err := Deserialize(msg.Serialize())
	require.NoError(t, err)
	ack, ok := decoded.(*ConfirmAck)
	require.True(t, ok)
	require.Equal(t, vote, ack.Vote)
	require.NoError(t, ack.Vote.Verify())
}

func TestConfirmReqRoundTrip(t *testing.T) {
	pairs := []HashPair{
		{Hash: types.Hash{1}, Root: types.Hash{2}},
		{Hash: types.Hash{3}, Root: types.Hash{4}},
	}
	msg := NewConfirmReq(testProto, pairs)

	decoded, err := Deserialize(msg.Serialize())
	require.NoError(t, err)
	req, ok := decoded.(*ConfirmReq)
	require.True(t, ok)
	require.Equal(t, pairs, req.Pairs)
}

func TestDeserializeRejectsUnknownType(t *testing.T) {
	buf := newHeader(testProto, TypeKeepalive, 0).Serialize()
	_, err := Deserialize(buf)
	require.ErrorIs(t, err, ErrUnknownType)
}

type stubChannel struct {
	id   string
	sent []Message
}

func (c *stubChannel) Send(msg Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func (c *stubChannel) PeerID() string { return c.id }

func TestReceivePenalizesMalformedFrame(t *testing.T) {
	h := NewHandler(nil, nil)
	var penalized string
	h.Penalize = func(peer string) { penalized = peer }

	ch := &stubChannel{id: "peer-1"}
	err := h.Receive(ch, []byte{'R', 'X', 20, 20, 18, byte(TypePublish), 0, 0, 0xFF})
	require.Error(t, err)
	require.Equal(t, "peer-1", penalized)
}

func TestDispatchRoutesConfirmReq(t *testing.T) {
	h := NewHandler(nil, nil)
	var got []HashPair
	h.OnConfirmReq = func(_ Channel, pairs []HashPair) { got = pairs }

	pairs := []HashPair{{Hash: types.Hash{7}, Root: types.Hash{8}}}
	ch := &stubChannel{id: "peer-2"}
	require.NoError(t, h.Receive(ch, NewConfirmReq(testProto, pairs).Serialize()))
	require.Equal(t, pairs, got)
}
