package common

import (
	"fmt"
	"sync"
	"time"
)

// Metrics accumulates the counters a decode session reports: bytes
// consumed (for progress reporting), frames walked, resyncs performed,
// telegrams reassembled, evictions, and errors grouped by kind.
type Metrics struct {
	mu sync.Mutex

	start time.Time
	end   time.Time

	bytes      int64
	totalBytes int64
	frames     int64
	resyncs    int64
	telegrams  int64
	evictions  int64
	errsByKind map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{errsByKind: make(map[string]int64)}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

func (m *Metrics) SetTotalBytes(total int64) {
	if total < 0 {
		total = 0
	}
	m.mu.Lock()
	m.totalBytes = total
	m.mu.Unlock()
}

func (m *Metrics) AddBytes(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.bytes += n
	m.mu.Unlock()
}

func (m *Metrics) AddFrame() {
	m.mu.Lock()
	m.frames++
	m.mu.Unlock()
}

func (m *Metrics) IncResync() {
	m.mu.Lock()
	m.resyncs++
	m.mu.Unlock()
}

func (m *Metrics) AddTelegram() {
	m.mu.Lock()
	m.telegrams++
	m.mu.Unlock()
}

func (m *Metrics) AddEviction() {
	m.mu.Lock()
	m.evictions++
	m.mu.Unlock()
}

func (m *Metrics) AddError(kind string) {
	m.mu.Lock()
	m.errsByKind[kind]++
	m.mu.Unlock()
}

// Snapshot returns a consistent, immutable view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := make(map[string]int64, len(m.errsByKind))
	for k, v := range m.errsByKind {
		errs[k] = v
	}
	return MetricsSnapshot{
		Duration:   m.elapsedLocked(),
		Bytes:      m.bytes,
		TotalBytes: m.totalBytes,
		Frames:     m.frames,
		Resyncs:    m.resyncs,
		Telegrams:  m.telegrams,
		Evictions:  m.evictions,
		ErrsByKind: errs,
	}
}

func (m *Metrics) elapsedLocked() time.Duration {
	if m.start.IsZero() {
		return 0
	}
	if !m.end.IsZero() {
		return m.end.Sub(m.start)
	}
	return time.Since(m.start)
}

type MetricsSnapshot struct {
	Duration   time.Duration
	Bytes      int64
	TotalBytes int64
	Frames     int64
	Resyncs    int64
	Telegrams  int64
	Evictions  int64
	ErrsByKind map[string]int64
}

// Summary renders the compact post-run line spec.md §7 requires: frames
// decoded, errors by kind, resyncs performed, telegrams reassembled,
// evictions.
func (s MetricsSnapshot) Summary() string {
	var errCount int64
	for _, n := range s.ErrsByKind {
		errCount += n
	}
	return fmt.Sprintf("frames=%d errors=%d resyncs=%d telegrams=%d evictions=%d duration=%s",
		s.Frames, errCount, s.Resyncs, s.Telegrams, s.Evictions, s.Duration.Round(time.Millisecond))
}
