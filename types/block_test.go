package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockSerializeRoundTrip(t *testing.T) {
	var sig [64]byte
	sig[0], sig[63] = 0xAA, 0xBB

	cases := []struct {
		name string
		blk  Block
	}{
		{"send", NewSendBlock(Hash{1}, Account{2}, NewAmount(12345), sig, 0x1122334455667788)},
		{"receive", NewReceiveBlock(Hash{3}, Hash{4}, sig, 0x99)},
		{"open", NewOpenBlock(Hash{5}, Account{6}, Account{7}, sig, 0xABCDEF)},
		{"change", NewChangeBlock(Hash{8}, Account{9}, sig, 42)},
		{"state", NewStateBlock(Account{10}, Account{11}, Hash{12}, NewAmount(67890), Hash{13}, sig, 0xF00D)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := DeserializeBlock(tc.blk.Serialize())
			require.NoError(t, err)
			require.Equal(t, tc.blk, decoded)
			require.Equal(t, tc.blk.Hash(), decoded.Hash())
		})
	}
}

func TestDeserializeBlockRejectsTruncation(t *testing.T) {
	buf := NewChangeBlock(Hash{1}, Account{2}, [64]byte{}, 3).Serialize()
	_, err := DeserializeBlock(buf[:len(buf)-1])
	require.Error(t, err)
	_, err = DeserializeBlock(nil)
	require.Error(t, err)
}

func TestHashExcludesSignatureAndWork(t *testing.T) {
	a := NewStateBlock(Account{1}, Account{2}, Hash{3}, NewAmount(4), Hash{5}, [64]byte{6}, 7)
	b := NewStateBlock(Account{1}, Account{2}, Hash{3}, NewAmount(4), Hash{5}, [64]byte{0xFF}, 999)
	require.Equal(t, a.Hash(), b.Hash())

	c := NewStateBlock(Account{1}, Account{2}, Hash{3}, NewAmount(5), Hash{5}, [64]byte{6}, 7)
	require.NotEqual(t, a.Hash(), c.Hash())
}

func TestHashIsDomainSeparatedByVariant(t *testing.T) {
	// A receive and a change share the same field bytes in the same
	// order; only the variant preamble distinguishes their hashes.
	r := NewReceiveBlock(Hash{1}, Hash{2}, [64]byte{}, 0)
	c := NewChangeBlock(Hash{1}, Account(Hash{2}), [64]byte{}, 0)
	require.NotEqual(t, r.Hash(), c.Hash())
}

func TestRootOfChainOpeners(t *testing.T) {
	open := NewOpenBlock(Hash{1}, Account{2}, Account{3}, [64]byte{}, 0)
	require.Equal(t, Hash(Account{3}), open.Root())
	require.True(t, open.Previous().IsZero())

	stateOpen := NewStateBlock(Account{4}, Account{5}, Hash{}, NewAmount(1), Hash{6}, [64]byte{}, 0)
	require.Equal(t, Hash(Account{4}), stateOpen.Root())

	stateCont := NewStateBlock(Account{4}, Account{5}, Hash{7}, NewAmount(1), Hash{6}, [64]byte{}, 0)
	require.Equal(t, Hash{7}, stateCont.Root())
}

func TestForksShareQualifiedRoot(t *testing.T) {
	a := NewSendBlock(Hash{1}, Account{2}, NewAmount(10), [64]byte{}, 0)
	b := NewSendBlock(Hash{1}, Account{3}, NewAmount(20), [64]byte{}, 0)
	require.NotEqual(t, a.Hash(), b.Hash())
	require.Equal(t, a.QualifiedRoot(), b.QualifiedRoot())

	c := NewSendBlock(Hash{9}, Account{2}, NewAmount(10), [64]byte{}, 0)
	require.NotEqual(t, a.QualifiedRoot(), c.QualifiedRoot())
}

func TestStateWorkIsBigEndianOnTheWire(t *testing.T) {
	blk := NewStateBlock(Account{}, Account{}, Hash{}, ZeroAmount, Hash{}, [64]byte{}, 0x0102030405060708)
	buf := blk.Serialize()
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf[len(buf)-8:])

	legacy := NewChangeBlock(Hash{}, Account{}, [64]byte{}, 0x0102030405060708)
	lbuf := legacy.Serialize()
	require.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, lbuf[len(lbuf)-8:])
}
