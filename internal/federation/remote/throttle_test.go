package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollThrottle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	th := NewPollThrottle(func() time.Time { return now })

	assert.True(t, th.Allow("req-1", 5*time.Second), "first poll is free")
	assert.False(t, th.Allow("req-1", 5*time.Second), "immediate repoll is throttled")
	assert.Equal(t, 10*time.Second, th.Interval("req-1"), "throttled poll lengthens the interval")

	now = now.Add(10 * time.Second)
	assert.True(t, th.Allow("req-1", 5*time.Second))

	th.SlowDown("req-1")
	assert.Equal(t, 15*time.Second, th.Interval("req-1"))

	assert.True(t, th.Allow("req-2", 5*time.Second), "requests are throttled independently")

	th.Forget("req-1")
	assert.Zero(t, th.Interval("req-1"))
	th.SlowDown("unknown")
	assert.Zero(t, th.Interval("unknown"))
}
