// Package ratelimit provides per-organization request and token budgeting.
package ratelimit

import (
	"sync"
	"time"
)

const (
	requestWindow = time.Minute
	tokenWindow   = 24 * time.Hour
)

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed bool
	Reason  string
}

// orgState tracks sliding counters for one organization. Counts only grow
// within a window and reset exactly once when the boundary is crossed.
type orgState struct {
	requestCount int
	windowStart  time.Time
	tokenCount   int
	dayStart     time.Time
}

// Limiter holds in-memory rate-limit state keyed by organization. State is
// process-local and lost on restart; rate limiting here is best-effort, not
// a security boundary. A multi-instance deployment needs a shared counter
// store instead.
type Limiter struct {
	mu    sync.Mutex
	state map[string]*orgState
	now   func() time.Time
}

// NewLimiter creates a new limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		state: make(map[string]*orgState),
		now:   time.Now,
	}
}

// Check reports whether an organization may make another request.
// The request-count check takes precedence when both limits are exhausted.
func (l *Limiter) Check(orgID string, requestsPerMinute, tokensPerDay int) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.stateFor(orgID)
	l.rollWindows(st)

	if st.requestCount >= requestsPerMinute {
		return Decision{Allowed: false, Reason: "rate limit exceeded"}
	}
	if st.tokenCount >= tokensPerDay {
		return Decision{Allowed: false, Reason: "daily token limit exceeded"}
	}

	return Decision{Allowed: true}
}

// Record consumes budget after a successful completion. Failed attempts
// must not be recorded.
func (l *Limiter) Record(orgID string, tokensUsed int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.stateFor(orgID)
	l.rollWindows(st)

	st.requestCount++
	st.tokenCount += tokensUsed
}

// stateFor lazily initializes state on first use. Caller holds l.mu.
func (l *Limiter) stateFor(orgID string) *orgState {
	st, ok := l.state[orgID]
	if !ok {
		now := l.now()
		st = &orgState{windowStart: now, dayStart: now}
		l.state[orgID] = st
	}
	return st
}

// rollWindows resets expired windows. The minute and day windows roll
// independently. Caller holds l.mu.
func (l *Limiter) rollWindows(st *orgState) {
	now := l.now()
	if now.Sub(st.windowStart) > requestWindow {
		st.requestCount = 0
		st.windowStart = now
	}
	if now.Sub(st.dayStart) > tokenWindow {
		st.tokenCount = 0
		st.dayStart = now
	}
}
