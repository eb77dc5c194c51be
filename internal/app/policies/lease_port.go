package policies

import (
	"context"
	"time"
)

// Lease grants a named job to a single instance for ttl.
type Lease interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
}
