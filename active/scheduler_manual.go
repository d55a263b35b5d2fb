package active

import (
	"context"
	"sync"

	"github.com/coreledger/coreledger-node/types"
)

// ManualScheduler is the RPC-driven path: an operator or wallet can
// force a specific block into an election regardless of priority.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []types.Block
}

// NewManualScheduler constructs an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Queue enqueues blk for insertion on the next Tick.
func (s *ManualScheduler) Queue(blk types.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, blk)
}

func (s *ManualScheduler) Tick(ctx context.Context, registry *Registry) (int, error) {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	created := 0
	for _, blk := range pending {
		if _, ok := registry.Insert(blk); ok {
			created++
		}
	}
	return created, nil
}
