package ledger

import (
	"github.com/coreledger/coreledger-node/store"
	"github.com/coreledger/coreledger-node/types"
	"github.com/coreledger/coreledger-node/work"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// Config is the ledger engine's construction-time network parameters.
// There are no package-level singletons; tests build fresh instances
// per case.
type Config struct {
	// Genesis is the account that owns the genesis chain.
	Genesis types.Account
	// GenesisBalance is the total supply held by the genesis account.
	GenesisBalance types.Amount
	// GenesisOpen is the hash of the genesis account's open block.
	// Process and Rollback do not read Genesis, GenesisBalance or
	// GenesisOpen: nothing is minted from GenesisBalance, and a block
	// with hash GenesisOpen goes through the same open-block checks as
	// any other.
	GenesisOpen types.Hash
	// EpochSigners maps each epoch to the account authorized to sign
	// upgrades into it.
	EpochSigners types.EpochSigners
	// Work validates proof-of-work against a root and difficulty class.
	Work work.Verifier
	// Clock returns the current wall-clock time in unix seconds; tests
	// supply a deterministic clock.
	Clock func() int64
}

// Ledger is the state-transition layer over the store. Besides its
// configuration it owns the in-memory RepWeights, which Process and
// Rollback update directly as they apply or undo blocks; every other
// mutation happens inside the store.WriteTxn passed to Process/Rollback.
type Ledger struct {
	cfg     Config
	log     log.Logger
	weights *RepWeights

	counterProgress metrics.Counter
	counterRejected metrics.Counter
}

// New constructs a Ledger over cfg.
func New(cfg Config) *Ledger {
	if cfg.Clock == nil {
		cfg.Clock = func() int64 { return 0 }
	}
	return &Ledger{
		cfg:             cfg,
		log:             log.New("module", "ledger"),
		weights:         NewRepWeights(),
		counterProgress: metrics.NewRegisteredCounter("ledger/process/progress", nil),
		counterRejected: metrics.NewRegisteredCounter("ledger/process/rejected", nil),
	}
}

// Weights exposes the live representative weight snapshot, consumed by
// the election engine to tally votes.
func (l *Ledger) Weights() *RepWeights { return l.weights }

// burnAccount is the all-zero account; a chain can never open onto it
// (OpenedBurnAccount).
var burnAccount types.Account

// Process validates and applies block under txn. On any result other
// than Progress, txn is left exactly as it would have
// been had Process never been called for this block (callers are
// expected to run one block per nested validation path and abort the
// whole batch transaction only on a persistent store error, never on a
// ProcessResult other than Progress).
func (l *Ledger) Process(txn store.WriteTxn, blk types.Block) ProcessResult {
	if has, err := store.NewBlocks(txn).Has(blk.Hash()); err == nil && has {
		return Old
	}

	var result ProcessResult
	switch b := blk.(type) {
	case *types.SendBlock:
		result = l.processSend(txn, b)
	case *types.ReceiveBlock:
		result = l.processReceive(txn, b)
	case *types.OpenBlock:
		result = l.processOpen(txn, b)
	case *types.ChangeBlock:
		result = l.processChange(txn, b)
	case *types.StateBlock:
		result = l.processState(txn, b)
	default:
		result = BadSignature
	}

	if result == Progress {
		l.counterProgress.Inc(1)
	} else {
		l.counterRejected.Inc(1)
		metrics.GetOrRegisterCounter("ledger/process/rejected/"+result.String(), nil).Inc(1)
	}
	return result
}

// predecessor resolves the block that blk extends and the account it
// belongs to, or a ProcessResult explaining why it can't be resolved.
func (l *Ledger) predecessor(txn store.Reader, previous types.Hash) (types.Block, types.Sideband, types.AccountInfo, ProcessResult) {
	prevBlock, prevSideband, err := store.NewBlocks(txn).Get(previous)
	if err != nil {
		return nil, types.Sideband{}, types.AccountInfo{}, GapPrevious
	}
	info, err := store.NewAccounts(txn).Get(prevSideband.Account)
	if err != nil {
		return nil, types.Sideband{}, types.AccountInfo{}, GapPrevious
	}
	return prevBlock, prevSideband, info, Progress
}

// checkFork reports Fork if previous already has a different successor
// recorded, or Progress if it is free to be extended by this block.
func checkFork(prevSideband types.Sideband, candidate types.Hash) ProcessResult {
	if prevSideband.Successor.IsZero() || prevSideband.Successor == candidate {
		return Progress
	}
	return Fork
}

func (l *Ledger) verifyWork(root types.Hash, blkWork uint64, class work.Class, epoch types.Epoch) ProcessResult {
	if !work.ValidateEpoch(l.cfg.Work, root, blkWork, class, epoch) {
		return InsufficientWork
	}
	return Progress
}
