package votecache

import (
	"testing"

	"github.com/coreledger/coreledger-node/types"
	"github.com/stretchr/testify/require"
)

func acct(b byte) types.Account {
	var a types.Account
	a[0] = b
	return a
}

func hash(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestConstruction(t *testing.T) {
	c := New(3, 80)
	require.Equal(t, 0, c.Size())
	require.True(t, c.Empty())
	_, ok := c.Find(hash(1))
	require.False(t, ok)
}

func TestInsertOneHash(t *testing.T) {
	c := New(3, 80)
	rep := acct(1)
	c.Vote(hash(1), rep, 1024*1024, types.NewAmount(7))

	require.Equal(t, 1, c.Size())
	entry, ok := c.Find(hash(1))
	require.True(t, ok)
	require.Equal(t, hash(1), entry.Hash)
	require.Len(t, entry.Voters, 1)
	require.Equal(t, rep, entry.Voters[0].Representative)
	require.Equal(t, uint64(1024*1024), entry.Voters[0].Timestamp)
	require.Equal(t, 0, entry.Tally.Cmp(types.NewAmount(7)))
}

func TestInsertOneHashManyVotes(t *testing.T) {
	c := New(3, 80)
	h := hash(1)
	c.Vote(h, acct(1), 1, types.NewAmount(7))
	c.Vote(h, acct(2), 2, types.NewAmount(9))
	c.Vote(h, acct(3), 3, types.NewAmount(11))

	require.Equal(t, 1, c.Size())
	entry, _ := c.Find(h)
	require.Len(t, entry.Voters, 3)
	require.Equal(t, 0, entry.Tally.Cmp(types.NewAmount(7+9+11)))
}

func TestInsertManyHashesManyVotes(t *testing.T) {
	c := New(3, 80)
	h1, h2, h3 := hash(1), hash(2), hash(3)

	c.Vote(h1, acct(1), 1, types.NewAmount(7))
	c.Vote(h2, acct(2), 1, types.NewAmount(9))
	c.Vote(h3, acct(3), 1, types.NewAmount(11))
	require.Equal(t, 3, c.Size())

	// rep4 votes for hash1 too, the highest-weighted voter on that hash.
	c.Vote(h1, acct(4), 1, types.NewAmount(13))

	e1, _ := c.Find(h1)
	require.Len(t, e1.Voters, 2)
	require.Equal(t, 0, e1.Tally.Cmp(types.NewAmount(7+13)))

	e3, _ := c.Find(h3)
	require.Len(t, e3.Voters, 1)
	require.Equal(t, 0, e3.Tally.Cmp(types.NewAmount(11)))
}

func TestInsertDuplicateIgnored(t *testing.T) {
	c := New(3, 80)
	h := hash(1)
	rep := acct(1)
	c.Vote(h, rep, 1, types.NewAmount(9))
	c.Vote(h, rep, 1, types.NewAmount(9))

	require.Equal(t, 1, c.Size())
	entry, _ := c.Find(h)
	require.Len(t, entry.Voters, 1)
}

func TestInsertNewerUpdatesTimestamp(t *testing.T) {
	c := New(3, 80)
	h := hash(1)
	rep := acct(1)
	c.Vote(h, rep, 1, types.NewAmount(9))
	c.Vote(h, rep, types.FinalTimestamp, types.NewAmount(9))

	entry, _ := c.Find(h)
	require.Len(t, entry.Voters, 1)
	require.Equal(t, types.FinalTimestamp, entry.Voters[0].Timestamp)
}

func TestInsertOlderIgnored(t *testing.T) {
	c := New(3, 80)
	h := hash(1)
	rep := acct(1)
	c.Vote(h, rep, 2, types.NewAmount(9))
	c.Vote(h, rep, 1, types.NewAmount(9))

	entry, _ := c.Find(h)
	require.Len(t, entry.Voters, 1)
	require.Equal(t, uint64(2), entry.Voters[0].Timestamp)
}

func TestErase(t *testing.T) {
	c := New(3, 80)
	h1, h2, h3 := hash(1), hash(2), hash(3)
	c.Vote(h1, acct(1), 1, types.NewAmount(7))
	c.Vote(h2, acct(2), 1, types.NewAmount(9))
	c.Vote(h3, acct(3), 1, types.NewAmount(11))
	require.Equal(t, 3, c.Size())

	require.True(t, c.Erase(h2))
	require.Equal(t, 2, c.Size())
	_, ok := c.Find(h2)
	require.False(t, ok)

	require.True(t, c.Erase(h1))
	require.True(t, c.Erase(h3))
	require.True(t, c.Empty())
}

func TestOverfillEvictsOldest(t *testing.T) {
	c := New(3, 80)
	c.Vote(hash(1), acct(1), 1, types.NewAmount(1))
	c.Vote(hash(2), acct(2), 1, types.NewAmount(2))
	c.Vote(hash(3), acct(3), 1, types.NewAmount(3))
	c.Vote(hash(4), acct(4), 1, types.NewAmount(4))

	require.Equal(t, 3, c.Size())
	_, ok := c.Find(hash(1))
	require.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Find(hash(4))
	require.True(t, ok)
}

func TestOverfillEntryIgnoresExtraVoters(t *testing.T) {
	c := New(3, 2)
	h := hash(1)
	c.Vote(h, acct(1), 1, types.NewAmount(9))
	c.Vote(h, acct(2), 1, types.NewAmount(9))
	c.Vote(h, acct(3), 1, types.NewAmount(9))

	entry, _ := c.Find(h)
	require.Len(t, entry.Voters, 2)
}

func TestChangeVoteToFinalVote(t *testing.T) {
	c := New(3, 80)
	h := hash(1)
	rep := acct(1)
	c.Vote(h, rep, 1, types.NewAmount(9))
	c.Vote(h, rep, types.FinalTimestamp, types.NewAmount(9))

	entry, _ := c.Find(h)
	require.Equal(t, 0, entry.Tally.Cmp(types.NewAmount(9)))
	require.Equal(t, 0, entry.FinalTally.Cmp(types.NewAmount(9)))
}

func TestAddFinalVote(t *testing.T) {
	c := New(3, 80)
	h := hash(1)
	c.Vote(h, acct(1), types.FinalTimestamp, types.NewAmount(9))

	entry, _ := c.Find(h)
	require.Equal(t, 0, entry.Tally.Cmp(types.NewAmount(9)))
	require.Equal(t, 0, entry.FinalTally.Cmp(types.NewAmount(9)))
}

func TestTopSortsByFinalThenTally(t *testing.T) {
	c := New(8, 80)
	c.Vote(hash(1), acct(1), 1, types.NewAmount(100))
	c.Vote(hash(2), acct(2), types.FinalTimestamp, types.NewAmount(10))
	c.Vote(hash(3), acct(3), 1, types.NewAmount(50))

	top := c.Top(types.ZeroAmount)
	require.Len(t, top, 3)
	// hash2 has a non-zero final_tally, so it must lead despite the
	// lowest raw tally of the three.
	require.Equal(t, hash(2), top[0].Hash)
	require.Equal(t, hash(1), top[1].Hash)
	require.Equal(t, hash(3), top[2].Hash)
}

func TestTopFiltersBelowMinTally(t *testing.T) {
	c := New(8, 80)
	c.Vote(hash(1), acct(1), 1, types.NewAmount(5))
	c.Vote(hash(2), acct(2), 1, types.NewAmount(50))

	top := c.Top(types.NewAmount(10))
	require.Len(t, top, 1)
	require.Equal(t, hash(2), top[0].Hash)
}
