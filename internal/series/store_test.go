package series

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		expected int
	}{
		{"default capacity", 0, DefaultCapacity},
		{"negative capacity", -5, DefaultCapacity},
		{"custom capacity", 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.capacity)
			assert.Equal(t, tt.expected, s.Capacity())
			assert.Empty(t, s.Keys())
		})
	}
}

func TestInitialize_IsIdempotent(t *testing.T) {
	s := NewStore(10)

	created := s.Initialize("gpu0", t0, map[Metric]float64{Utilization: 10, Temperature: 50})
	require.True(t, created)
	assert.Equal(t, []float64{10}, s.Values("gpu0", Utilization, 0))

	created = s.Initialize("gpu0", t0.Add(time.Second), map[Metric]float64{Utilization: 99})
	assert.False(t, created)
	assert.Equal(t, []float64{10}, s.Values("gpu0", Utilization, 0), "second initialize must not reseed")
}

func TestAppend(t *testing.T) {
	s := NewStore(10)

	assert.False(t, s.Append("unknown", Utilization, 1, t0), "append to unknown entity is rejected")
	assert.False(t, s.Has("unknown"))

	s.Initialize("gpu0", t0, map[Metric]float64{Utilization: 10})
	s.Append("gpu0", Utilization, 20, t0.Add(time.Second))
	s.Append("gpu0", Utilization, 30, t0.Add(2*time.Second))

	assert.Equal(t, []float64{10, 20, 30}, s.Values("gpu0", Utilization, 0))
	assert.Equal(t, []float64{20, 30}, s.Values("gpu0", Utilization, 2))

	samples := s.Samples("gpu0", Utilization)
	require.Len(t, samples, 3)
	assert.Equal(t, t0, samples[0].Time)
	assert.Equal(t, t0.Add(2*time.Second), samples[2].Time)

	// A metric missing from the seed is created on first append.
	s.Append("gpu0", PCIeRX, 512, t0)
	assert.Equal(t, 1, s.Len("gpu0", PCIeRX))
}

func TestAppend_EvictsOldestAtCapacity(t *testing.T) {
	s := NewStore(DefaultCapacity)
	s.Initialize("gpu0", t0, map[Metric]float64{Utilization: 0})

	for i := 1; i <= DefaultCapacity; i++ {
		s.Append("gpu0", Utilization, float64(i), t0.Add(time.Duration(i)*time.Second))
	}

	values := s.Values("gpu0", Utilization, 0)
	require.Len(t, values, DefaultCapacity, "series must never exceed capacity")
	assert.Equal(t, 1.0, values[0], "the seed sample was evicted")
	assert.Equal(t, float64(DefaultCapacity), values[len(values)-1])

	samples := s.Samples("gpu0", Utilization)
	assert.Equal(t, t0.Add(time.Second), samples[0].Time, "timestamps evicted in lockstep")
}

func TestStats(t *testing.T) {
	s := NewStore(4)

	_, ok := s.Stats("gpu0", Utilization)
	assert.False(t, ok)

	s.Initialize("gpu0", t0, map[Metric]float64{Utilization: 10})
	for _, v := range []float64{40, 20, 30} {
		s.Append("gpu0", Utilization, v, t0)
	}

	st, ok := s.Stats("gpu0", Utilization)
	require.True(t, ok)
	assert.Equal(t, Stats{Current: 30, Min: 10, Max: 40, Avg: 25, Count: 4}, st)

	// Stats follow eviction: 10 drops out.
	s.Append("gpu0", Utilization, 50, t0)
	st, _ = s.Stats("gpu0", Utilization)
	assert.Equal(t, Stats{Current: 50, Min: 20, Max: 50, Avg: 35, Count: 4}, st)
}

func TestRemove_ThenReinitializeStartsFresh(t *testing.T) {
	s := NewStore(10)
	s.Initialize("node1-0", t0, map[Metric]float64{Utilization: 1})
	s.Append("node1-0", Utilization, 2, t0)

	s.Remove("node1-0")
	assert.False(t, s.Has("node1-0"))
	assert.Nil(t, s.Values("node1-0", Utilization, 0))

	require.True(t, s.Initialize("node1-0", t0, map[Metric]float64{Utilization: 7}))
	assert.Equal(t, []float64{7}, s.Values("node1-0", Utilization, 0))
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := NewStore(10)
	s.Initialize("gpu0", t0, map[Metric]float64{Utilization: 1, Power: 100})

	snap := s.Snapshot("gpu0")
	require.Len(t, snap, 2)
	snap[Utilization][0].Value = 999

	assert.Equal(t, []float64{1}, s.Values("gpu0", Utilization, 0))
	assert.Nil(t, s.Snapshot("missing"))
}

func TestKeysAndClear(t *testing.T) {
	s := NewStore(10)
	s.Initialize("b", t0, nil)
	s.Initialize("a", t0, nil)

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 2, s.Count())

	s.Remove("a")
	assert.Equal(t, 1, s.Count())

	s.Clear()
	assert.Empty(t, s.Keys())
	assert.Zero(t, s.Count())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(50)
	s.Initialize("gpu0", t0, map[Metric]float64{Utilization: 0})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.Append("gpu0", Utilization, float64(j), t0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.Values("gpu0", Utilization, 10)
				_, _ = s.Stats("gpu0", Utilization)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len("gpu0", Utilization))
}
