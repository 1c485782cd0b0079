package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/shopdesk/internal/clock"
)

// LocalLocker keeps leases in process memory. It only serialises switches
// handled by this process.
type LocalLocker struct {
	mu     sync.Mutex
	clock  clock.Clock
	leases map[string]localLease
}

type localLease struct {
	token     string
	expiresAt time.Time
}

func NewLocalLocker(clk clock.Clock) *LocalLocker {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &LocalLocker{
		clock:  clk,
		leases: make(map[string]localLease),
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	if err := validate(key, ttl); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, ErrLeaseHeld
	}

	token := uuid.NewString()
	l.leases[key] = localLease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.token == token {
			delete(l.leases, key)
		}
		return nil
	}, nil
}
