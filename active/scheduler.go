package active

import "context"

// Scheduler feeds candidate blocks into a Registry. Each Tick is one
// bounded scheduling pass, returning how many elections it created.
type Scheduler interface {
	Tick(ctx context.Context, registry *Registry) (int, error)
}
