package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle_Allow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k := EntityKey("0")

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"first update always allowed", 0, true},
		{"within interval", 500 * time.Millisecond, false},
		{"just before interval", 999 * time.Millisecond, false},
		{"exactly at interval", time.Second, true},
		{"right after allowed update", 1500 * time.Millisecond, false},
		{"next interval", 2 * time.Second, true},
	}

	th := NewThrottle(time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.Allow(k, base.Add(tt.offset)))
		})
	}
}

func TestThrottle_RecordsDecisionTime(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	th := NewThrottle(time.Second)
	k := EntityKey("0")

	th.Allow(k, base)
	th.Allow(k, base.Add(600*time.Millisecond))

	last, ok := th.Last(k)
	assert.True(t, ok)
	assert.Equal(t, base, last, "a denied update does not move the window")
}

func TestThrottle_KeysAreIndependent(t *testing.T) {
	now := time.Now()
	th := NewThrottle(time.Second)

	assert.True(t, th.Allow(EntityKey("0"), now))
	assert.True(t, th.Allow(EntityKey("1"), now))
	assert.True(t, th.Allow(SystemKey, now))
	assert.False(t, th.Allow(SystemKey, now))
}

func TestThrottle_Forget(t *testing.T) {
	now := time.Now()
	th := NewThrottle(time.Second)
	k := EntityKey("node1-0")

	th.Allow(k, now)
	th.Forget(k)

	_, ok := th.Last(k)
	assert.False(t, ok)
	assert.True(t, th.Allow(k, now), "a forgotten key behaves as new")
}

func TestNewThrottle_Default(t *testing.T) {
	assert.Equal(t, DefaultThrottleInterval, NewThrottle(0).Interval())
}
