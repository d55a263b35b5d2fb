// Package blockproc is the block processor: a bounded multi-producer
// queue that drains into the ledger engine under one write
// transaction per batch, and fans out results to the unchecked map,
// the active-election layer and the local broadcaster.
package blockproc

import (
	"context"
	"sync"
	"time"

	"github.com/coreledger/coreledger-node/ledger"
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/unchecked"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"golang.org/x/sync/errgroup"
)

// Source is the priority class a block was submitted under.
type Source int

const (
	SourceLive Source = iota
	SourceBootstrap
	SourceBootstrapLegacy
	SourceUnchecked
	SourceLocal
	SourceForced
)

func (s Source) String() string {
	switch s {
	case SourceLive:
		return "live"
	case SourceBootstrap:
		return "bootstrap"
	case SourceBootstrapLegacy:
		return "bootstrap_legacy"
	case SourceUnchecked:
		return "unchecked"
	case SourceLocal:
		return "local"
	case SourceForced:
		return "forced"
	default:
		return "unknown"
	}
}

// queuedSources are the capacity-bounded, channel-backed sources.
// Forced is handled separately: it bypasses capacity entirely so a
// local wallet publication is never dropped.
var queuedSources = []Source{SourceLive, SourceLocal, SourceBootstrap, SourceBootstrapLegacy, SourceUnchecked}

// Processed is emitted on the Feed for every block the ledger accepts.
type Processed struct {
	Block  types.Block
	Source Source
}

// Forked is emitted when Process reports Fork: candidate lost to an
// already-stored block sharing its qualified root.
type Forked struct {
	Candidate types.Block
	Existing  types.Block
	Root      types.QualifiedRoot
}

type item struct {
	block    types.Block
	source   Source
	origin   string
	resultCh chan ledger.ProcessResult
}

// Config configures a Processor. Capacities gives the channel bound
// for each entry in queuedSources; zero defaults to 4096.
type Config struct {
	Ledger        *ledger.Ledger
	Store         store.KV
	Unchecked     *unchecked.Map
	Capacities    map[Source]int
	BatchSize     int
	BatchInterval time.Duration
	Clock         func() int64
	// PenalizeOrigin is called for a BadSignature result, naming the
	// origin channel identifier the block arrived on, if any.
	PenalizeOrigin func(origin string)
}

// Processor is the single-worker drain over the per-source queues.
type Processor struct {
	cfg Config
	log log.Logger

	queues map[Source]chan item

	forcedMu sync.Mutex
	forced   []item

	wake  chan struct{}
	stop  chan struct{}
	group *errgroup.Group

	feed     event.Feed
	forkFeed event.Feed

	counters map[ledger.ProcessResult]metrics.Counter
	dropped  metrics.Counter
}

// New constructs a Processor. Call Start to begin draining.
func New(cfg Config) *Processor {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 256
	}
	if cfg.BatchInterval == 0 {
		cfg.BatchInterval = 10 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = func() int64 { return time.Now().Unix() }
	}
	p := &Processor{
		cfg:      cfg,
		log:      log.New("module", "blockproc"),
		queues:   make(map[Source]chan item, len(queuedSources)),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		counters: make(map[ledger.ProcessResult]metrics.Counter),
		dropped:  metrics.NewRegisteredCounter("blockproc/dropped", nil),
	}
	for _, s := range queuedSources {
		capacity := cfg.Capacities[s]
		if capacity == 0 {
			capacity = 4096
		}
		p.queues[s] = make(chan item, capacity)
	}
	return p
}

// SubscribeProcessed registers ch to receive every accepted block.
func (p *Processor) SubscribeProcessed(ch chan<- Processed) event.Subscription {
	return p.feed.Subscribe(ch)
}

// SubscribeForked registers ch to receive fork arbitration events.
func (p *Processor) SubscribeForked(ch chan<- Forked) event.Subscription {
	return p.forkFeed.Subscribe(ch)
}

// Full reports whether source's queue is at capacity; peer-facing
// ingestion paths should stop pulling from the wire when true.
func (p *Processor) Full(s Source) bool {
	q, ok := p.queues[s]
	if !ok {
		return false
	}
	return len(q) >= cap(q)
}

// HalfFull reports whether source's queue is at least half full.
func (p *Processor) HalfFull(s Source) bool {
	q, ok := p.queues[s]
	if !ok {
		return false
	}
	return len(q)*2 >= cap(q)
}

// Add enqueues blk non-blockingly, reporting whether it was accepted.
// Forced submissions are never rejected.
func (p *Processor) Add(blk types.Block, source Source, origin string) bool {
	return p.enqueue(item{block: blk, source: source, origin: origin})
}

// AddBlocking enqueues blk and waits for its ProcessResult, or for ctx
// to expire. The wallet and RPC paths use this; peers never do.
func (p *Processor) AddBlocking(ctx context.Context, blk types.Block, source Source) (ledger.ProcessResult, bool) {
	resultCh := make(chan ledger.ProcessResult, 1)
	if !p.enqueue(item{block: blk, source: source, resultCh: resultCh}) {
		return 0, false
	}
	select {
	case res := <-resultCh:
		return res, true
	case <-ctx.Done():
		return 0, false
	}
}

func (p *Processor) enqueue(it item) bool {
	if it.source == SourceForced {
		p.forcedMu.Lock()
		p.forced = append(p.forced, it)
		p.forcedMu.Unlock()
		p.signalWake()
		return true
	}
	q, ok := p.queues[it.source]
	if !ok {
		return false
	}
	select {
	case q <- it:
		p.signalWake()
		return true
	default:
		return false
	}
}

func (p *Processor) signalWake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start begins the drain worker under ctx, via an errgroup so a worker
// panic or ctx cancellation is observable through Stop's return.
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
			p.RunOnce(ctx)
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}
