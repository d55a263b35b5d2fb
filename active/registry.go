// Package active implements the bounded active-elections registry and
// its feeder schedulers: a qualified-root keyed map of live
// elections, fed by four scheduling policies (priority, optimistic,
// hinted, manual) and drained by confirmation.
package active

import (
	"sync"

	"github.com/coreledger/coreledger-node/election"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/votecache"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// ConfirmHandler is notified when an election reaches quorum: it must
// hand the winner to the confirming set and resolve any competing
// blocks already present in the ledger.
type ConfirmHandler interface {
	Cement(winner types.Block) error
	RollbackAndReprocess(loser types.Block, winner types.Block) error
}

// ElectionStarted is emitted when Insert creates a new election.
type ElectionStarted struct {
	Election *election.Election
}

// ElectionStopped is emitted when an election leaves the registry,
// whether by confirmation, cementation or eviction; Status carries
// its final snapshot.
type ElectionStopped struct {
	Election *election.Election
	Status   election.Status
}

// VoteDelivery reports what happened when a vote was offered to one
// election.
type VoteDelivery struct {
	Election *election.Election
	Changed  bool
}

// Config configures a Registry.
type Config struct {
	Capacity    int
	ElectionCfg election.Config
	VoteCache   *votecache.Cache
	Handler     ConfirmHandler
}

// Registry is the bounded qualified-root-keyed election map.
type Registry struct {
	cfg Config
	log log.Logger

	mu     sync.Mutex
	byRoot map[types.QualifiedRoot]*election.Election

	startedFeed event.Feed
	stoppedFeed event.Feed

	inserted metrics.Counter
	evicted  metrics.Counter
	confirms metrics.Counter
}

// New constructs an empty Registry.
func New(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		log:      log.New("module", "active"),
		byRoot:   make(map[types.QualifiedRoot]*election.Election),
		inserted: metrics.NewRegisteredCounter("active/inserted", nil),
		evicted:  metrics.NewRegisteredCounter("active/evicted", nil),
		confirms: metrics.NewRegisteredCounter("active/confirmed", nil),
	}
}

// SubscribeStarted registers ch to receive election-started events.
func (r *Registry) SubscribeStarted(ch chan<- ElectionStarted) event.Subscription {
	return r.startedFeed.Subscribe(ch)
}

// SubscribeStopped registers ch to receive election-stopped events.
func (r *Registry) SubscribeStopped(ch chan<- ElectionStopped) event.Subscription {
	return r.stoppedFeed.Subscribe(ch)
}

// Len reports the number of live elections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byRoot)
}

// Insert creates an election for blk's qualified root if none exists,
// subject to capacity and eviction. It returns the (possibly
// pre-existing) election and whether a new one was created.
func (r *Registry) Insert(blk types.Block) (*election.Election, bool) {
	root := blk.QualifiedRoot()

	r.mu.Lock()
	if existing, ok := r.byRoot[root]; ok {
		r.mu.Unlock()
		existing.AddBlock(blk)
		return existing, false
	}
	var evicted *election.Election
	if len(r.byRoot) >= r.cfg.Capacity {
		evicted = r.evictLowestPriorityLocked()
	}
	e := election.New(r.cfg.ElectionCfg, root, blk)
	r.byRoot[root] = e
	r.mu.Unlock()

	if evicted != nil {
		r.stoppedFeed.Send(ElectionStopped{Election: evicted, Status: evicted.Status()})
	}
	r.startedFeed.Send(ElectionStarted{Election: e})

	if r.cfg.VoteCache != nil {
		e.ReplayCached(r.cfg.VoteCache)
		if e.Confirmed() {
			r.confirm(e)
		}
	}
	r.inserted.Inc(1)
	return e, true
}

// Find looks up the election at root, if any.
func (r *Registry) Find(root types.QualifiedRoot) (*election.Election, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byRoot[root]
	return e, ok
}

// Vote delivers a (voter, timestamp, hash) observation to every
// election holding hash as a candidate. Callers should offer the vote
// to the vote cache themselves when the returned slice is empty.
func (r *Registry) Vote(voter types.Account, timestamp uint64, hash types.Hash) []VoteDelivery {
	r.mu.Lock()
	var targets []*election.Election
	for _, e := range r.byRoot {
		if e.HasBlock(hash) {
			targets = append(targets, e)
		}
	}
	r.mu.Unlock()

	deliveries := make([]VoteDelivery, 0, len(targets))
	for _, e := range targets {
		changed := e.Vote(voter, timestamp, hash)
		deliveries = append(deliveries, VoteDelivery{Election: e, Changed: changed})
		if e.Confirmed() {
			r.confirm(e)
		}
	}
	return deliveries
}

// MarkCemented forces any election holding hash as a candidate
// straight to Confirmed and removes it from the registry, without
// running ConfirmHandler: the caller, typically the confirming set
// sweeping an ancestor chain, has already handled cementation
// itself.
func (r *Registry) MarkCemented(hash types.Hash) {
	r.mu.Lock()
	var stopped []*election.Election
	for root, e := range r.byRoot {
		if e.HasBlock(hash) {
			e.MarkCemented()
			delete(r.byRoot, root)
			stopped = append(stopped, e)
		}
	}
	r.mu.Unlock()

	for _, e := range stopped {
		r.stoppedFeed.Send(ElectionStopped{Election: e, Status: e.Status()})
	}
}

// confirm runs the confirmation side effects: rollback for every
// losing candidate already in the ledger, cementation of the winner,
// and removal from the registry.
func (r *Registry) confirm(e *election.Election) {
	winner, ok := e.Winner()
	if !ok {
		return
	}
	for _, loser := range e.Losers() {
		if err := r.cfg.Handler.RollbackAndReprocess(loser, winner); err != nil {
			r.log.Error("fork rollback failed", "err", err, "root", e.Root())
		}
	}
	if err := r.cfg.Handler.Cement(winner); err != nil {
		r.log.Error("cementation handoff failed", "err", err, "hash", winner.Hash())
	}

	r.mu.Lock()
	delete(r.byRoot, e.Root())
	r.mu.Unlock()
	r.confirms.Inc(1)
	r.stoppedFeed.Send(ElectionStopped{Election: e, Status: e.Status()})
}

// evictLowestPriorityLocked evicts and returns the election with the
// lowest (tally, age) priority: lowest current tally loses, ties
// broken by oldest age. Caller must hold r.mu.
func (r *Registry) evictLowestPriorityLocked() *election.Election {
	var lowestRoot types.QualifiedRoot
	var lowest *election.Election
	first := true
	for root, e := range r.byRoot {
		if e.Confirmed() {
			continue
		}
		if first {
			lowestRoot, lowest, first = root, e, false
			continue
		}
		if lowerPriority(e, lowest) {
			lowestRoot, lowest = root, e
		}
	}
	if lowest == nil {
		return nil
	}
	lowest.Expire()
	delete(r.byRoot, lowestRoot)
	r.evicted.Inc(1)
	return lowest
}

func lowerPriority(a, b *election.Election) bool {
	as, bs := a.Status(), b.Status()
	if cmp := as.Tally.Cmp(bs.Tally); cmp != 0 {
		return cmp < 0
	}
	return a.Age() > b.Age()
}
