package remote

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// slowDownStep is added to the poll interval every time a client polls too fast.
const slowDownStep = 5 * time.Second

// PollThrottle enforces the minimum interval between token polls per auth_req_id.
type PollThrottle struct {
	mu       sync.Mutex
	limiters map[string]*pollLimiter
	clock    func() time.Time
}

type pollLimiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

func NewPollThrottle(clock func() time.Time) *PollThrottle {
	if clock == nil {
		clock = time.Now
	}
	return &PollThrottle{limiters: make(map[string]*pollLimiter), clock: clock}
}

// Allow reports whether a poll for authReqID may proceed now. The first poll
// is always allowed. Polling too fast lengthens the interval.
func (t *PollThrottle) Allow(authReqID string, interval time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[authReqID]
	if !ok {
		l = &pollLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1), interval: interval}
		t.limiters[authReqID] = l
	}
	if l.limiter.AllowN(t.clock(), 1) {
		return true
	}
	t.slowDownLocked(l)
	return false
}

// SlowDown lengthens the interval after the home provider asked us to back off.
func (t *PollThrottle) SlowDown(authReqID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.limiters[authReqID]; ok {
		t.slowDownLocked(l)
	}
}

func (t *PollThrottle) slowDownLocked(l *pollLimiter) {
	l.interval += slowDownStep
	l.limiter.SetLimitAt(t.clock(), rate.Every(l.interval))
}

// Interval returns the current interval for authReqID, or zero if unknown.
func (t *PollThrottle) Interval(authReqID string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.limiters[authReqID]; ok {
		return l.interval
	}
	return 0
}

// Forget drops the limiter once the flow has a final outcome.
func (t *PollThrottle) Forget(authReqID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.limiters, authReqID)
}
