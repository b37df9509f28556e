// Package series keeps a bounded rolling history of chart values per GPU.
//
// Each entity owns one fixed-capacity FIFO series per Metric. Statistics
// are computed from the retained samples on demand, so nothing needs to be
// kept in sync when old samples fall off the end.
package series

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultCapacity is the number of samples retained per series.
const DefaultCapacity = 120

// Metric names a chart series.
type Metric string

// Chart series kept for every entity.
const (
	Utilization   Metric = "utilization"
	Temperature   Metric = "temperature"
	Memory        Metric = "memory"
	Power         Metric = "power"
	FanSpeed      Metric = "fan_speed"
	Efficiency    Metric = "efficiency"
	ClockGraphics Metric = "clock_graphics"
	ClockSM       Metric = "clock_sm"
	ClockMemory   Metric = "clock_memory"
	PCIeRX        Metric = "pcie_rx"
	PCIeTX        Metric = "pcie_tx"
)

// Metrics lists every chart series in display order.
var Metrics = []Metric{
	Utilization, Temperature, Memory, Power, FanSpeed, Efficiency,
	ClockGraphics, ClockSM, ClockMemory, PCIeRX, PCIeTX,
}

// Stats summarizes the retained samples of one series.
type Stats struct {
	Current float64
	Min     float64
	Max     float64
	Avg     float64
	Count   int
}

// Store holds the rolling series for every known entity. It is safe for
// concurrent use; the dashboard reads from it while exporting.
type Store struct {
	mu       sync.RWMutex
	capacity int
	entities map[string]map[Metric]*ring
}

// NewStore creates a store whose series hold capacity samples each.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		entities: make(map[string]map[Metric]*ring),
	}
}

// Capacity returns the per-series sample limit.
func (s *Store) Capacity() int {
	return s.capacity
}

// Initialize creates the series for key, seeding each metric in initial
// with one sample at time at. It is a no-op returning false when the
// entity already exists.
func (s *Store) Initialize(key string, at time.Time, initial map[Metric]float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[key]; ok {
		return false
	}

	ent := make(map[Metric]*ring, len(Metrics))
	for m, v := range initial {
		r := newRing(s.capacity)
		r.push(Sample{Time: at, Value: v})
		ent[m] = r
	}
	s.entities[key] = ent
	return true
}

// Has reports whether key has been initialized.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[key]
	return ok
}

// Append pushes a sample onto key's metric series, evicting the oldest
// sample when the series is full. It returns false for an unknown entity.
func (s *Store) Append(key string, metric Metric, value float64, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entities[key]
	if !ok {
		return false
	}
	r, ok := ent[metric]
	if !ok {
		r = newRing(s.capacity)
		ent[metric] = r
	}
	r.push(Sample{Time: at, Value: value})
	return true
}

// AppendAll pushes one sample per metric in values.
func (s *Store) AppendAll(key string, values map[Metric]float64, at time.Time) bool {
	if !s.Has(key) {
		return false
	}
	for m, v := range values {
		s.Append(key, m, v, at)
	}
	return true
}

// Samples returns the retained samples of a series, oldest first.
func (s *Store) Samples(key string, metric Metric) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.lookup(key, metric)
	if r == nil {
		return nil
	}
	return r.all()
}

// Values returns the last n values of a series, oldest first. n <= 0
// returns everything retained.
func (s *Store) Values(key string, metric Metric, n int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.lookup(key, metric)
	if r == nil {
		return nil
	}
	if n <= 0 {
		n = r.count
	}
	samples := r.last(n)
	out := make([]float64, len(samples))
	for i, smp := range samples {
		out[i] = smp.Value
	}
	return out
}

// Len returns the number of retained samples in a series.
func (s *Store) Len(key string, metric Metric) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.lookup(key, metric)
	if r == nil {
		return 0
	}
	return r.count
}

// Stats computes current, min, max and average over the retained samples.
// The second result is false when the series is empty or unknown.
func (s *Store) Stats(key string, metric Metric) (Stats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.lookup(key, metric)
	if r == nil || r.count == 0 {
		return Stats{}, false
	}

	newest, _ := r.newest()
	st := Stats{
		Current: newest.Value,
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
		Count:   r.count,
	}
	var sum float64
	for _, smp := range r.all() {
		sum += smp.Value
		st.Min = math.Min(st.Min, smp.Value)
		st.Max = math.Max(st.Max, smp.Value)
	}
	st.Avg = sum / float64(r.count)
	return st, true
}

// Snapshot returns a deep copy of every series for key.
func (s *Store) Snapshot(key string) map[Metric][]Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entities[key]
	if !ok {
		return nil
	}
	out := make(map[Metric][]Sample, len(ent))
	for m, r := range ent {
		out[m] = r.all()
	}
	return out
}

// Remove drops all series for key. A later Initialize starts from scratch.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, key)
}

// Clear removes every entity.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]map[Metric]*ring)
}

// Count returns the number of known entities.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Keys returns the known entity keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entities))
	for k := range s.entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookup must be called with s.mu held.
func (s *Store) lookup(key string, metric Metric) *ring {
	ent, ok := s.entities[key]
	if !ok {
		return nil
	}
	return ent[metric]
}
