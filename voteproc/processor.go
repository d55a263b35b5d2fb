// Package voteproc is the vote processor: a bounded dual queue
// draining signature-checked votes into the active-elections
// registry, falling back to the vote cache for any hash no live
// election is tracking.
package voteproc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coreledger/coreledger-node/active"
	"github.com/coreledger/coreledger-node/ledger"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/votecache"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"golang.org/x/sync/errgroup"
)

// Source is the channel a vote arrived on, mirroring blockproc's
// per-source accounting.
type Source int

const (
	SourceLive Source = iota
	SourceRebroadcast
	SourceCache
)

func (s Source) String() string {
	switch s {
	case SourceLive:
		return "live"
	case SourceRebroadcast:
		return "rebroadcast"
	case SourceCache:
		return "cache"
	default:
		return "unknown"
	}
}

// ErrQueueFull is returned by Vote when the appropriate queue (pr or
// non-pr) is saturated.
var ErrQueueFull = errors.New("voteproc: queue full")

type item struct {
	vote   *types.Vote
	origin string
	source Source
}

// Config configures a Processor.
type Config struct {
	Registry  *active.Registry
	VoteCache *votecache.Cache
	Weights   *ledger.RepWeights

	// PrincipalWeight is the minimum representative weight for a vote's
	// origin channel to be treated as hosting a principal representative,
	// routing it to the priority queue.
	PrincipalWeight types.Amount

	// PRPriority is the number of pr_queue items drained for every
	// non_pr_queue item, when both have work. Zero defaults to 3.
	PRPriority int

	PRCapacity    int
	NonPRCapacity int
	BatchSize     int
	BatchInterval time.Duration

	// PenalizeOrigin is called when a vote fails signature validation,
	// naming the origin channel identifier, if any.
	PenalizeOrigin func(origin string)
}

// ProcessedVote is emitted on the Feed for every vote that passed
// signature validation and was dispatched.
type ProcessedVote struct {
	Vote   *types.Vote
	Source Source
}

// Processor is the single-worker vote drain.
type Processor struct {
	cfg  Config
	log  log.Logger
	feed event.Feed

	prQueue    chan item
	nonPRQueue chan item

	prChannelsMu sync.RWMutex
	prChannels   mapset.Set[string]

	wake  chan struct{}
	stop  chan struct{}
	group *errgroup.Group

	processed metrics.Counter
	invalid   metrics.Counter
	dropped   metrics.Counter
}

// New constructs a Processor. Call Start to begin draining.
func New(cfg Config) *Processor {
	if cfg.PRPriority == 0 {
		cfg.PRPriority = 3
	}
	if cfg.PRCapacity == 0 {
		cfg.PRCapacity = 1024
	}
	if cfg.NonPRCapacity == 0 {
		cfg.NonPRCapacity = 4096
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1024
	}
	if cfg.BatchInterval == 0 {
		cfg.BatchInterval = 10 * time.Millisecond
	}
	return &Processor{
		cfg:        cfg,
		log:        log.New("module", "voteproc"),
		prQueue:    make(chan item, cfg.PRCapacity),
		nonPRQueue: make(chan item, cfg.NonPRCapacity),
		prChannels: mapset.NewThreadUnsafeSet[string](),
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		processed:  metrics.NewRegisteredCounter("voteproc/processed", nil),
		invalid:    metrics.NewRegisteredCounter("voteproc/invalid", nil),
		dropped:    metrics.NewRegisteredCounter("voteproc/dropped", nil),
	}
}

// Vote enqueues vote non-blockingly onto the pr or non-pr queue. A
// vote from a voter carrying at least PrincipalWeight both routes to
// the priority queue and marks origin as a known principal-rep
// channel, so later votes on the same channel route to pr_queue even
// before their own weight is known.
func (p *Processor) Vote(vote *types.Vote, origin string, source Source) error {
	isPrincipal := p.cfg.Weights.Weight(vote.Voter).Cmp(p.cfg.PrincipalWeight) >= 0
	if isPrincipal && origin != "" {
		p.prChannelsMu.Lock()
		p.prChannels.Add(origin)
		p.prChannelsMu.Unlock()
	}

	q := p.nonPRQueue
	if isPrincipal || p.isPrincipalChannel(origin) {
		q = p.prQueue
	}
	select {
	case q <- item{vote: vote, origin: origin, source: source}:
		p.signalWake()
		return nil
	default:
		p.dropped.Inc(1)
		return ErrQueueFull
	}
}

func (p *Processor) isPrincipalChannel(origin string) bool {
	if origin == "" {
		return false
	}
	p.prChannelsMu.RLock()
	defer p.prChannelsMu.RUnlock()
	return p.prChannels.Contains(origin)
}

func (p *Processor) signalWake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start begins the drain worker under ctx.
func (p *Processor) Start(ctx context.Context) {
	p.group, ctx = errgroup.WithContext(ctx)
	p.group.Go(func() error { return p.run(ctx) })
}

// Stop signals the worker to exit and waits for it.
func (p *Processor) Stop() error {
	close(p.stop)
	if p.group == nil {
		return nil
	}
	return p.group.Wait()
}

func (p *Processor) run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.BatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil
		case <-p.wake:
			p.RunOnce()
		case <-ticker.C:
			p.RunOnce()
		}
	}
}

// RunOnce drains up to BatchSize votes, pr_queue favored by PRPriority,
// and returns the number processed.
func (p *Processor) RunOnce() int {
	n := 0
	prBudget := p.cfg.PRPriority
	for n < p.cfg.BatchSize {
		var it item
		var ok bool
		switch {
		case prBudget > 0:
			if it, ok = p.tryRecv(p.prQueue); ok {
				prBudget--
				break
			}
			if it, ok = p.tryRecv(p.nonPRQueue); ok {
				prBudget = p.cfg.PRPriority
				break
			}
		default:
			if it, ok = p.tryRecv(p.nonPRQueue); ok {
				prBudget = p.cfg.PRPriority
				break
			}
			if it, ok = p.tryRecv(p.prQueue); ok {
				prBudget = p.cfg.PRPriority
			}
		}
		if !ok {
			break
		}
		p.process(it)
		n++
	}
	return n
}

func (p *Processor) tryRecv(q chan item) (item, bool) {
	select {
	case it := <-q:
		return it, true
	default:
		return item{}, false
	}
}

// SubscribeProcessed registers ch to receive every dispatched vote,
// the vote-processed hook of the observation surface.
func (p *Processor) SubscribeProcessed(ch chan<- ProcessedVote) event.Subscription {
	return p.feed.Subscribe(ch)
}

func (p *Processor) process(it item) {
	if err := it.vote.Verify(); err != nil {
		p.invalid.Inc(1)
		if p.cfg.PenalizeOrigin != nil {
			p.cfg.PenalizeOrigin(it.origin)
		}
		return
	}
	weight := p.cfg.Weights.Weight(it.vote.Voter)
	for _, h := range it.vote.Hashes {
		deliveries := p.cfg.Registry.Vote(it.vote.Voter, it.vote.Timestamp, h)
		if len(deliveries) == 0 {
			p.cfg.VoteCache.Vote(h, it.vote.Voter, it.vote.Timestamp, weight)
		}
	}
	p.processed.Inc(1)
	p.feed.Send(ProcessedVote{Vote: it.vote, Source: it.source})
}
