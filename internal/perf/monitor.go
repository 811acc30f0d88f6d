// Package perf records request timings for the lifetime of one command.
//
// A Monitor is constructed by the caller and handed to the components that
// should be measured. A nil *Monitor is valid and records nothing.
package perf

import (
	"math"
	"sort"
	"sync"
	"time"
)

// maxSamples caps the samples kept per name for percentile calculation.
const maxSamples = 10000

// Stats summarizes the observations recorded under one name.
type Stats struct {
	Name   string        `json:"name"`
	Count  int           `json:"count"`
	Errors int           `json:"errors"`
	Total  time.Duration `json:"total"`
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	P95    time.Duration `json:"p95"`
}

type series struct {
	count   int
	errors  int
	total   time.Duration
	min     time.Duration
	max     time.Duration
	samples []time.Duration
}

// Monitor aggregates timings by name. Safe for concurrent use.
type Monitor struct {
	mu      sync.Mutex
	enabled bool
	series  map[string]*series
	started time.Time
}

// NewMonitor returns an initialized monitor.
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.Init()
	return m
}

// Init starts collecting. Calling it again keeps the recorded data.
func (m *Monitor) Init() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.series == nil {
		m.series = make(map[string]*series)
		m.started = time.Now()
	}
	m.enabled = true
}

// Reset drops everything recorded so far and stops collecting until Init is called.
func (m *Monitor) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series = nil
	m.started = time.Time{}
	m.enabled = false
}

// Observe records one timing. err marks the observation as failed.
func (m *Monitor) Observe(name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return
	}

	s, ok := m.series[name]
	if !ok {
		s = &series{min: d, max: d}
		m.series[name] = s
	}
	s.count++
	s.total += d
	if err != nil {
		s.errors++
	}
	if d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	if len(s.samples) < maxSamples {
		s.samples = append(s.samples, d)
	}
}

// Snapshot returns the stats for every name, sorted by name.
func (m *Monitor) Snapshot() []Stats {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Stats, 0, len(m.series))
	for name, s := range m.series {
		out = append(out, Stats{
			Name:   name,
			Count:  s.count,
			Errors: s.errors,
			Total:  s.total,
			Min:    s.min,
			Max:    s.max,
			Mean:   s.total / time.Duration(s.count),
			P95:    percentile(s.samples, 0.95),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Uptime returns the time since Init first ran.
func (m *Monitor) Uptime() time.Duration {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started.IsZero() {
		return 0
	}
	return time.Since(m.started)
}

// percentile uses the nearest-rank method.
func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
