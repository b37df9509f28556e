package series

import "time"

// Sample is one timestamped value in a series.
type Sample struct {
	Time  time.Time
	Value float64
}

// ring is a fixed-size circular buffer of samples. Once full, each push
// overwrites the oldest sample.
type ring struct {
	data  []Sample
	head  int
	count int
}

func newRing(size int) *ring {
	return &ring{data: make([]Sample, size)}
}

func (r *ring) push(s Sample) {
	r.data[r.head] = s
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// last returns the last n samples in chronological order (oldest first).
func (r *ring) last(n int) []Sample {
	if n <= 0 || r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	size := len(r.data)
	out := make([]Sample, n)
	// head is the next write position, so the newest sample is at head-1.
	start := (r.head - n + size) % size
	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%size]
	}
	return out
}

func (r *ring) all() []Sample {
	return r.last(r.count)
}

func (r *ring) newest() (Sample, bool) {
	if r.count == 0 {
		return Sample{}, false
	}
	return r.data[(r.head-1+len(r.data))%len(r.data)], true
}
