package fetcher

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrHostUnavailable is returned while a host's breaker is open.
var ErrHostUnavailable = eris.New("fetcher: host unavailable")

// BreakerState is the state of one host's breaker.
type BreakerState int

// Breaker states.
const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker stops downloads from a host after consecutive failed downloads.
// After cooldown one probe is let through; its result closes or reopens it.
type breaker struct {
	host      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return eris.Wrapf(ErrHostUnavailable, "fetcher: %s failed %d times", b.host, b.failures)
		}
		b.transition(BreakerHalfOpen)
		return nil
	default:
		return nil
	}
}

func (b *breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !failed {
		b.failures = 0
		if b.state != BreakerClosed {
			b.transition(BreakerClosed)
		}
		return
	}

	b.failures++
	switch {
	case b.state == BreakerHalfOpen, b.failures >= b.threshold:
		b.openedAt = b.now()
		if b.state != BreakerOpen {
			b.transition(BreakerOpen)
		}
	}
}

func (b *breaker) current() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *breaker) transition(to BreakerState) {
	zap.L().Info("fetcher: host breaker state changed",
		zap.String("host", b.host),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}

// hostBreakers holds one breaker per host.
type hostBreakers struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu     sync.Mutex
	byHost map[string]*breaker
}

func newHostBreakers(threshold int, cooldown time.Duration) *hostBreakers {
	return &hostBreakers{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		byHost:    make(map[string]*breaker),
	}
}

func (h *hostBreakers) get(host string) *breaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.byHost[host]
	if !ok {
		b = &breaker{host: host, threshold: h.threshold, cooldown: h.cooldown, now: h.now}
		h.byHost[host] = b
	}
	return b
}

func (h *hostBreakers) states() map[string]BreakerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]BreakerState, len(h.byHost))
	for host, b := range h.byHost {
		out[host] = b.current()
	}
	return out
}
