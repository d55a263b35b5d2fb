package store

import (
	"encoding/binary"

	"github.com/coreledger/coreledger-node/types"
)

// FinalVotes accesses the (root ‖ hash) -> voter ‖ signature ‖ timestamp
// table: a durable record that a representative's final vote landed,
// surviving restarts so a replayed final vote cannot be contradicted.
type FinalVotes struct{ r Reader }

func NewFinalVotes(r Reader) FinalVotes { return FinalVotes{r: r} }

func finalVoteKey(root types.Root, hash types.Hash) []byte {
	out := make([]byte, 0, types.HashSize*2)
	out = append(out, root[:]...)
	out = append(out, hash[:]...)
	return out
}

func (a FinalVotes) Get(root types.Root, hash types.Hash) (types.Account, [64]byte, uint64, bool, error) {
	v, err := a.r.Get(TableFinalVotes, finalVoteKey(root, hash))
	if err == ErrNotFound {
		return types.Account{}, [64]byte{}, 0, false, nil
	}
	if err != nil {
		return types.Account{}, [64]byte{}, 0, false, err
	}
	if len(v) != types.HashSize+64+8 {
		return types.Account{}, [64]byte{}, 0, false, errShort
	}
	var voter types.Account
	copy(voter[:], v[:types.HashSize])
	var sig [64]byte
	copy(sig[:], v[types.HashSize:types.HashSize+64])
	ts := binary.BigEndian.Uint64(v[types.HashSize+64:])
	return voter, sig, ts, true, nil
}

func PutFinalVote(w WriteTxn, root types.Root, hash types.Hash, voter types.Account, sig [64]byte, timestamp uint64) error {
	out := make([]byte, 0, types.HashSize+64+8)
	out = append(out, voter[:]...)
	out = append(out, sig[:]...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], timestamp)
	out = append(out, ts[:]...)
	return w.Put(TableFinalVotes, finalVoteKey(root, hash), out)
}

// OnlineWeight accesses the trailing-window weight-sample table:
// sample timestamp -> observed online weight, used to derive the
// quorum_delta estimate.
type OnlineWeight struct{ r Reader }

func NewOnlineWeight(r Reader) OnlineWeight { return OnlineWeight{r: r} }

func onlineWeightKey(ts int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ts))
	return b[:]
}

func PutOnlineWeightSample(w WriteTxn, ts int64, weight types.Amount) error {
	return w.Put(TableOnlineWeight, onlineWeightKey(ts), weight.Bytes())
}

// Samples returns every recorded (timestamp, weight) sample in ascending
// timestamp order.
func (a OnlineWeight) Samples() ([]int64, []types.Amount, error) {
	it := a.r.Iterator(TableOnlineWeight, nil)
	defer it.Release()
	var times []int64
	var weights []types.Amount
	for it.Next() {
		k := it.Key()
		if len(k) != 8 {
			continue
		}
		times = append(times, int64(binary.BigEndian.Uint64(k)))
		amt, err := types.AmountFromBytes(it.Value())
		if err != nil {
			return nil, nil, err
		}
		weights = append(weights, amt)
	}
	return times, weights, it.Error()
}

func DeleteOnlineWeightSample(w WriteTxn, ts int64) error {
	return w.Delete(TableOnlineWeight, onlineWeightKey(ts))
}

// Peers accesses the endpoint -> last-seen table. The transport layer
// that actually dials peers lives outside this module; this table
// exists so it can persist what it has seen.
type Peers struct{ r Reader }

func NewPeers(r Reader) Peers { return Peers{r: r} }

func PutPeerLastSeen(w WriteTxn, endpoint string, lastSeen int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(lastSeen))
	return w.Put(TablePeers, []byte(endpoint), b[:])
}

func (a Peers) Get(endpoint string) (int64, bool, error) {
	v, err := a.r.Get(TablePeers, []byte(endpoint))
	if err == ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int64(binary.BigEndian.Uint64(v)), true, nil
}
