package types

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func testVoter(t *testing.T) (Account, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var a Account
	copy(a[:], pub)
	return a, priv
}

func TestVoteSignAndVerify(t *testing.T) {
	voter, priv := testVoter(t)
	v, err := NewVote(voter, priv, 7, []Hash{{1}, {2}})
	require.NoError(t, err)
	require.NoError(t, v.Verify())
	require.False(t, v.IsFinal())

	v.Signature[0] ^= 0xFF
	require.ErrorIs(t, v.Verify(), ErrBadVoteSignature)
}

func TestVoteSerializeRoundTrip(t *testing.T) {
	voter, priv := testVoter(t)
	hashes := make([]Hash, MaxVoteHashes)
	for i := range hashes {
		hashes[i] = Hash{byte(i + 1)}
	}
	v, err := NewVote(voter, priv, FinalTimestamp, hashes)
	require.NoError(t, err)
	require.True(t, v.IsFinal())

	decoded, err := DeserializeVote(v.Serialize())
	require.NoError(t, err)
	require.Equal(t, v, decoded)
	require.NoError(t, decoded.Verify())
}

func TestVoteRejectsHashCountBounds(t *testing.T) {
	voter, priv := testVoter(t)
	_, err := NewVote(voter, priv, 1, nil)
	require.ErrorIs(t, err, ErrNoHashes)

	tooMany := make([]Hash, MaxVoteHashes+1)
	_, err = NewVote(voter, priv, 1, tooMany)
	require.ErrorIs(t, err, ErrTooManyHashes)
}

func TestDeserializeVoteRejectsBadLength(t *testing.T) {
	voter, priv := testVoter(t)
	v, err := NewVote(voter, priv, 1, []Hash{{1}})
	require.NoError(t, err)
	buf := v.Serialize()

	_, err = DeserializeVote(buf[:len(buf)-1])
	require.Error(t, err)

	// A count byte disagreeing with the payload length is rejected.
	buf[HashSize+64+8] = 2
	_, err = DeserializeVote(buf)
	require.Error(t, err)
}

func TestVoteTimestampCoversSignature(t *testing.T) {
	voter, priv := testVoter(t)
	v, err := NewVote(voter, priv, 5, []Hash{{1}})
	require.NoError(t, err)
	v.Timestamp = 6
	require.ErrorIs(t, v.Verify(), ErrBadVoteSignature)
}
