package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckAllowsUpToLimit(t *testing.T) {
	l := NewLimiter()

	for i := 0; i < 5; i++ {
		d := l.Check("org-1", 5, 1000)
		assert.True(t, d.Allowed, "request %d should be allowed", i+1)
		l.Record("org-1", 10)
	}

	d := l.Check("org-1", 5, 1000)
	assert.False(t, d.Allowed)
	assert.Equal(t, "rate limit exceeded", d.Reason)
}

func TestTokenBudgetExhaustion(t *testing.T) {
	l := NewLimiter()

	d := l.Check("org-1", 100, 50)
	assert.True(t, d.Allowed)
	l.Record("org-1", 50)

	d = l.Check("org-1", 100, 50)
	assert.False(t, d.Allowed)
	assert.Equal(t, "daily token limit exceeded", d.Reason)
}

func TestRequestCheckTakesPrecedence(t *testing.T) {
	l := NewLimiter()
	l.Record("org-1", 100)

	// Both limits exhausted: the request-count reason wins.
	d := l.Check("org-1", 1, 100)
	assert.False(t, d.Allowed)
	assert.Equal(t, "rate limit exceeded", d.Reason)
}

func TestMinuteWindowReset(t *testing.T) {
	l := NewLimiter()
	current := time.Now()
	l.now = func() time.Time { return current }

	l.Record("org-1", 10)
	d := l.Check("org-1", 1, 1000)
	assert.False(t, d.Allowed)

	current = current.Add(61 * time.Second)

	d = l.Check("org-1", 1, 1000)
	assert.True(t, d.Allowed, "budget should replenish after the minute window")
}

func TestDayWindowReset(t *testing.T) {
	l := NewLimiter()
	current := time.Now()
	l.now = func() time.Time { return current }

	l.Record("org-1", 100)
	d := l.Check("org-1", 100, 100)
	assert.False(t, d.Allowed)

	current = current.Add(24*time.Hour + time.Minute)

	d = l.Check("org-1", 100, 100)
	assert.True(t, d.Allowed, "token budget should replenish after the day window")
}

func TestWindowsRollIndependently(t *testing.T) {
	l := NewLimiter()
	current := time.Now()
	l.now = func() time.Time { return current }

	l.Record("org-1", 100)

	// Past the minute window but inside the day window: requests
	// replenish, tokens do not.
	current = current.Add(2 * time.Minute)

	d := l.Check("org-1", 1, 1000)
	assert.True(t, d.Allowed)

	d = l.Check("org-1", 1000, 100)
	assert.False(t, d.Allowed)
	assert.Equal(t, "daily token limit exceeded", d.Reason)
}

func TestOrganizationsAreIsolated(t *testing.T) {
	l := NewLimiter()

	l.Record("org-1", 10)
	d := l.Check("org-1", 1, 1000)
	assert.False(t, d.Allowed)

	d = l.Check("org-2", 1, 1000)
	assert.True(t, d.Allowed)
}

func TestLazyInitializationAllowsFirstRequest(t *testing.T) {
	l := NewLimiter()

	d := l.Check("never-seen", 1, 1)
	assert.True(t, d.Allowed)
}
