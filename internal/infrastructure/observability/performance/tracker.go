package performance

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Tracker aggregates completed markers per operation
type Tracker struct {
	stats         map[string]*OperationStats
	recent        []*Marker
	maxRecent     int
	slowThreshold time.Duration
	logger        *slog.Logger
	mu            sync.RWMutex
	started       time.Time
}

// OperationStats is the running summary for one operation name
type OperationStats struct {
	Operation    string        `json:"operation"`
	Count        int64         `json:"count"`
	Failures     int64         `json:"failures"`
	TotalTime    time.Duration `json:"totalTime"`
	MaxTime      time.Duration `json:"maxTime"`
	LastDuration time.Duration `json:"lastDuration"`
}

// AverageTime returns the mean duration across recorded runs
func (s *OperationStats) AverageTime() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Count)
}

// NewTracker creates a tracker. Markers slower than slowThreshold are logged
// at WARN on the given logger when it is non-nil.
func NewTracker(logger *slog.Logger, slowThreshold time.Duration) *Tracker {
	return &Tracker{
		stats:         make(map[string]*OperationStats),
		maxRecent:     256,
		slowThreshold: slowThreshold,
		logger:        logger,
		started:       time.Now(),
	}
}

// StartOperation creates a marker bound to this tracker
func (t *Tracker) StartOperation(operation, subject string) *Marker {
	return &Marker{
		Operation: operation,
		Subject:   subject,
		StartTime: time.Now(),
		Success:   true,
		tracker:   t,
	}
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	s, ok := t.stats[m.Operation]
	if !ok {
		s = &OperationStats{Operation: m.Operation}
		t.stats[m.Operation] = s
	}
	s.Count++
	if !m.Success {
		s.Failures++
	}
	s.TotalTime += m.Duration
	s.LastDuration = m.Duration
	if m.Duration > s.MaxTime {
		s.MaxTime = m.Duration
	}

	t.recent = append(t.recent, m)
	if len(t.recent) > t.maxRecent {
		t.recent = t.recent[len(t.recent)-t.maxRecent:]
	}
	t.mu.Unlock()

	if t.logger != nil && t.slowThreshold > 0 && m.Duration > t.slowThreshold {
		t.logger.Warn("Slow operation",
			"operation", m.Operation,
			"subject", m.Subject,
			"duration", m.Duration,
			"success", m.Success)
	}
}

// Snapshot returns a copy of the per-operation stats sorted by operation name
func (t *Tracker) Snapshot() []OperationStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]OperationStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// Uptime reports how long the tracker has been running
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
