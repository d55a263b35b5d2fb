// Package election implements the per-qualified-root confirmation
// state machine: a block is seeded as a tentative winner, competing
// forks and votes accumulate against it, and the election transitions
// to Confirmed once quorum is reached or to an expired state on
// eviction.
package election

import (
	"sync"

	"github.com/coreledger/coreledger-node/ledger"
	"github.com/coreledger/coreledger-node/types"
)

// State is the election's lifecycle stage.
type State int

const (
	Passive State = iota
	Active
	Confirmed
	ExpiredConfirmed
	ExpiredUnconfirmed
)

func (s State) String() string {
	switch s {
	case Passive:
		return "passive"
	case Active:
		return "active"
	case Confirmed:
		return "confirmed"
	case ExpiredConfirmed:
		return "expired_confirmed"
	case ExpiredUnconfirmed:
		return "expired_unconfirmed"
	default:
		return "unknown"
	}
}

// voteRecord is the last vote seen from one representative.
type voteRecord struct {
	Timestamp uint64
	Hash      types.Hash
}

// Status is the externally observable snapshot of an election.
type Status struct {
	Winner                   types.Hash
	Tally                    types.Amount
	FinalTally               types.Amount
	VoterCount               int
	ConfirmationRequestCount int
	State                    State
}

// Config gives an Election its quorum and timing parameters, set once
// at construction.
type Config struct {
	Weights             *ledger.RepWeights
	QuorumDelta         func() types.Amount
	ConfirmationMinTime int64
	Clock               func() int64
}

// Election is the state machine for one qualified root.
type Election struct {
	cfg  Config
	root types.QualifiedRoot

	mu                       sync.Mutex
	lastBlocks               map[types.Hash]types.Block
	lastVotes                map[types.Account]voteRecord
	winner                   types.Hash
	tally                    types.Amount
	finalTally               types.Amount
	confirmationRequestCount int
	state                    State
	startedAt                int64
}

// New seeds an election with blk as the tentative winner.
func New(cfg Config, root types.QualifiedRoot, blk types.Block) *Election {
	e := &Election{
		cfg:        cfg,
		root:       root,
		lastBlocks: map[types.Hash]types.Block{blk.Hash(): blk},
		lastVotes:  make(map[types.Account]voteRecord),
		winner:     blk.Hash(),
		tally:      types.ZeroAmount,
		finalTally: types.ZeroAmount,
		state:      Active,
		startedAt:  cfg.Clock(),
	}
	return e
}

// Root is the qualified root this election arbitrates.
func (e *Election) Root() types.QualifiedRoot { return e.root }

// AddBlock registers a competing fork candidate. It does not change
// the winner by itself; the winner only moves on a vote application
// that gives the new block a higher tally.
func (e *Election) AddBlock(blk types.Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.lastBlocks[blk.Hash()]; ok {
		return
	}
	e.lastBlocks[blk.Hash()] = blk
}

// Status returns a snapshot of the election's current state.
func (e *Election) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Winner:                   e.winner,
		Tally:                    e.tally,
		FinalTally:               e.finalTally,
		VoterCount:               len(e.lastVotes),
		ConfirmationRequestCount: e.confirmationRequestCount,
		State:                    e.state,
	}
}

// Winner returns the block currently tentatively winning, if known to
// this election.
func (e *Election) Winner() (types.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	blk, ok := e.lastBlocks[e.winner]
	return blk, ok
}

// HasBlock reports whether hash is one of this election's candidates,
// the test the active registry uses to decide whether a vote should be
// delivered here.
func (e *Election) HasBlock(hash types.Hash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.lastBlocks[hash]
	return ok
}

// Losers returns every last-seen block other than the current winner,
// the rollback candidates on confirmation.
func (e *Election) Losers() []types.Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Block, 0, len(e.lastBlocks)-1)
	for h, blk := range e.lastBlocks {
		if h != e.winner {
			out = append(out, blk)
		}
	}
	return out
}

// Vote applies a (voter, timestamp, hash) observation, returning
// whether it caused a change (new vote accepted, winner moved, or
// confirmation reached). A vote for a hash this election does not
// hold, or older than the voter's last, is ignored.
func (e *Election) Vote(voter types.Account, timestamp uint64, hash types.Hash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, known := e.lastBlocks[hash]; !known {
		return false
	}
	if existing, ok := e.lastVotes[voter]; ok && existing.Timestamp >= timestamp {
		return false
	}
	e.lastVotes[voter] = voteRecord{Timestamp: timestamp, Hash: hash}

	e.recomputeTallies()
	e.reselectWinner()
	e.maybeConfirm()
	return true
}

// recomputeTallies refreshes the cached tally/finalTally of the current
// winner from the last_votes map and live representative weights. It
// does not compute the other candidates' tallies; reselectWinner
// computes those itself.
func (e *Election) recomputeTallies() {
	tally, final := e.tallyFor(e.winner)
	e.tally = tally
	e.finalTally = final
}

// tallyFor sums the live weight of every voter currently pointing at
// hash, and separately the weight of voters whose timestamp is the
// final-vote sentinel.
func (e *Election) tallyFor(hash types.Hash) (types.Amount, types.Amount) {
	tally := types.ZeroAmount
	final := types.ZeroAmount
	for voter, v := range e.lastVotes {
		if v.Hash != hash {
			continue
		}
		weight := e.cfg.Weights.Weight(voter)
		tally = tally.Add(weight)
		if v.Timestamp == types.FinalTimestamp {
			final = final.Add(weight)
		}
	}
	return tally, final
}

// reselectWinner picks the candidate block with the maximum
// (final_tally, tally) pair, lexicographically.
func (e *Election) reselectWinner() {
	var bestHash types.Hash
	var bestTally, bestFinal types.Amount
	first := true
	for hash := range e.lastBlocks {
		tally, final := e.tallyFor(hash)
		if first || final.Cmp(bestFinal) > 0 || (final.Cmp(bestFinal) == 0 && tally.Cmp(bestTally) > 0) {
			bestHash, bestTally, bestFinal = hash, tally, final
			first = false
		}
	}
	e.winner = bestHash
	e.tally = bestTally
	e.finalTally = bestFinal
}

// maybeConfirm transitions the election to Confirmed on a strong
// final-vote quorum, or on a plain tally quorum once the election has
// been active at least ConfirmationMinTime.
func (e *Election) maybeConfirm() {
	if e.state != Active {
		return
	}
	quorum := e.cfg.QuorumDelta()
	if e.finalTally.Cmp(quorum) >= 0 {
		e.state = Confirmed
		return
	}
	age := e.cfg.Clock() - e.startedAt
	if e.tally.Cmp(quorum) >= 0 && age >= e.cfg.ConfirmationMinTime {
		e.state = Confirmed
	}
}

// Confirmed reports whether the election has reached quorum.
func (e *Election) Confirmed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == Confirmed
}

// MarkCemented forces the election straight to Confirmed, for an
// ancestor swept into confirmation by the confirming set's walk
// without itself having reached quorum.
func (e *Election) MarkCemented() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != ExpiredConfirmed {
		e.state = Confirmed
	}
}

// Expire transitions a non-confirmed election to ExpiredUnconfirmed,
// or a confirmed one to ExpiredConfirmed, on eviction from the active
// elections registry.
func (e *Election) Expire() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Confirmed {
		e.state = ExpiredConfirmed
	} else {
		e.state = ExpiredUnconfirmed
	}
}

// Age is how long, in seconds, the election has been alive.
func (e *Election) Age() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clock() - e.startedAt
}

// IncrementConfirmationRequests bumps the confirmation_request_count
// stat carried in Status, for the confirm_req message handler.
func (e *Election) IncrementConfirmationRequests() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmationRequestCount++
}
