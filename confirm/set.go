// Package confirm implements the confirming set: a serial FIFO worker
// that walks a newly-confirmed block's account chain back to the last
// cemented ancestor, cements every block along the way under one
// write transaction, and emits observation events for each.
package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/coreledger/coreledger-node/active"
	"github.com/coreledger/coreledger-node/ledger"
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Cement when the confirming set's bounded
// queue has no room.
var ErrQueueFull = errors.New("confirm: queue full")

// Subtype classifies a cemented block for the block_confirmed event:
// the send/receive/epoch/change distinction the observation layer
// carries.
type Subtype int

const (
	SubtypeChange Subtype = iota
	SubtypeSend
	SubtypeReceive
	SubtypeEpoch
)

func (s Subtype) String() string {
	switch s {
	case SubtypeSend:
		return "send"
	case SubtypeReceive:
		return "receive"
	case SubtypeEpoch:
		return "epoch"
	default:
		return "change"
	}
}

// Confirmed is emitted on the Feed for every block the confirming set
// cements, including ancestors swept in alongside the block that
// triggered the sweep.
type Confirmed struct {
	Block   types.Block
	Account types.Account
	Amount  types.Amount
	Subtype Subtype
	Height  uint64
}

// Config configures a Set.
type Config struct {
	Ledger *ledger.Ledger
	Store  store.KV
	// Registry, if set, has any election for a swept ancestor marked
	// Confirmed directly rather than left to expire unconfirmed.
	Registry      *active.Registry
	Capacity      int
	BatchSize     int
	BatchInterval time.Duration
}

// Set is the single-worker confirming set.
type Set struct {
	cfg Config
	log log.Logger

	queue chan types.Hash
	wake  chan struct{}
	stop  chan struct{}
	group *errgroup.Group

	feed event.Feed

	cemented metrics.Counter
	noop     metrics.Counter
	dropped  metrics.Counter
}

// New constructs a Set. Call Start to begin draining.
func New(cfg Config) *Set {
	if cfg.Capacity == 0 {
		cfg.Capacity = 4096
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 256
	}
	if cfg.BatchInterval == 0 {
		cfg.BatchInterval = 10 * time.Millisecond
	}
	return &Set{
		cfg:      cfg,
		log:      log.New("module", "confirm"),
		queue:    make(chan types.Hash, cfg.Capacity),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		cemented: metrics.NewRegisteredCounter("confirm/cemented", nil),
		noop:     metrics.NewRegisteredCounter("confirm/noop", nil),
		dropped:  metrics.NewRegisteredCounter("confirm/dropped", nil),
	}
}

// Subscribe registers ch to receive every cemented block, including
// swept ancestors.
func (s *Set) Subscribe(ch chan<- Confirmed) event.Subscription {
	return s.feed.Subscribe(ch)
}

// Cement enqueues winner's hash for cementation, implementing
// active.ConfirmHandler. It never blocks; a full queue reports
// ErrQueueFull rather than stalling the election that called it.
func (s *Set) Cement(winner types.Block) error {
	select {
	case s.queue <- winner.Hash():
		s.signalWake()
		return nil
	default:
		s.dropped.Inc(1)
		return ErrQueueFull
	}
}

// RollbackAndReprocess implements active.ConfirmHandler: it rolls
// loser's chain extension back and reprocesses winner in its place,
// under the rollback-fork named writer.
func (s *Set) RollbackAndReprocess(loser, winner types.Block) error {
	return s.cfg.Store.Update(store.WriterRollbackFork, func(txn store.WriteTxn) error {
		if err := s.cfg.Ledger.Rollback(txn, loser.Hash()); err != nil {
			return err
		}
		if res := s.cfg.Ledger.Process(txn, winner); res != ledger.Progress {
			return errors.New("confirm: reprocess winner: " + res.String())
		}
		return nil
	})
}

func (s *Set) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start begins the drain worker under ctx.
func (s *Set) Start(ctx context.Context) {
	s.group, ctx = errgroup.WithContext(ctx)
	s.group.Go(func() error { return s.run(ctx) })
}

// Stop signals the worker to exit and waits for it.
func (s *Set) Stop() error {
	close(s.stop)
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

func (s *Set) run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.BatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-s.wake:
			s.RunOnce()
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce drains up to BatchSize queued hashes under one write
// transaction.
func (s *Set) RunOnce() {
	batch := make([]types.Hash, 0, s.cfg.BatchSize)
drain:
	for len(batch) < s.cfg.BatchSize {
		select {
		case h := <-s.queue:
			batch = append(batch, h)
		default:
			break drain
		}
	}
	if len(batch) == 0 {
		return
	}

	var events []Confirmed
	err := s.cfg.Store.Update(store.WriterConfirmingSet, func(txn store.WriteTxn) error {
		for _, h := range batch {
			sweep, err := s.confirmOne(txn, h)
			if err != nil {
				return err
			}
			events = append(events, sweep...)
		}
		return nil
	})
	if err != nil {
		s.log.Error("confirm batch failed", "err", err)
		return
	}
	for _, ev := range events {
		s.feed.Send(ev)
		if s.cfg.Registry != nil {
			s.cfg.Registry.MarkCemented(ev.Block.Hash())
		}
	}
}

// confirmOne cements hash and every uncemented ancestor back to
// account's current confirmation height, returning one Confirmed
// event per block cemented, oldest first.
func (s *Set) confirmOne(txn store.WriteTxn, hash types.Hash) ([]Confirmed, error) {
	blk, sb, err := store.NewBlocks(txn).Get(hash)
	if err != nil {
		return nil, err
	}
	account := sb.Account

	height, err := store.NewConfirmationHeight(txn).Get(account)
	if err != nil {
		return nil, err
	}
	if sb.Height <= height.Height {
		s.noop.Inc(1)
		return nil, nil
	}

	// Walk Previous() back to (but not past) the confirmed frontier,
	// collecting head-first, then undo the order for cementation so
	// the oldest uncemented ancestor is cemented first.
	type step struct {
		block types.Block
		sb    types.Sideband
	}
	chain := []step{{blk, sb}}
	cursor := blk
	for {
		prevHash := cursor.Previous()
		if prevHash.IsZero() {
			break
		}
		prevBlock, prevSideband, err := store.NewBlocks(txn).Get(prevHash)
		if err != nil {
			return nil, err
		}
		if prevSideband.Height <= height.Height {
			break
		}
		chain = append(chain, step{prevBlock, prevSideband})
		cursor = prevBlock
	}

	events := make([]Confirmed, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		st := chain[i]
		events = append(events, Confirmed{
			Block:   st.block,
			Account: account,
			Amount:  st.sb.Balance,
			Subtype: subtypeOf(st.sb.Details),
			Height:  st.sb.Height,
		})
	}

	return events, store.PutConfirmationHeight(txn, account, types.ConfirmationHeightInfo{
		Height:   sb.Height,
		Frontier: hash,
	})
}

func subtypeOf(d types.BlockDetails) Subtype {
	switch {
	case d.IsSend:
		return SubtypeSend
	case d.IsReceive:
		return SubtypeReceive
	case d.IsEpoch:
		return SubtypeEpoch
	default:
		return SubtypeChange
	}
}
