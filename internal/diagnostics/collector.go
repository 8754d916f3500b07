// Package diagnostics accumulates the warnings, rejected rows and counters
// of one analysis run.
//
// A Collector is created at run start and handed explicitly to every stage.
// Stages never read it back to make decisions; it only records what
// happened so the run can be reported.
package diagnostics

import (
	"sort"
	"sync"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/google/uuid"
)

// Counter names written by the pipeline stages.
const (
	CounterRowsInput          = "total_rows_input"
	CounterRowsProcessed      = "rows_processed"
	CounterRowsRejected       = "rows_rejected"
	CounterRowsExempt         = "rows_exempt"
	CounterStatesAnalyzed     = "states_analyzed"
	CounterNexusTriggers      = "nexus_triggers"
	CounterStatesWithExposure = "states_with_exposure"
)

// RejectedRow is an input row dropped during standardization.
type RejectedRow struct {
	SourceFile string            `json:"source_file"`
	SourceRow  int               `json:"source_row"`
	Fields     map[string]string `json:"fields"`
	Reason     string            `json:"rejection_reason"`
}

// Summary is a point-in-time snapshot of a run, ready for serialization.
type Summary struct {
	RunID           string         `json:"run_id"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
	Counters        map[string]int `json:"counters"`
	Warnings        []string       `json:"warnings"`
	WarningsCount   int            `json:"warnings_count"`
}

// Collector is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	runID    string
	start    time.Time
	end      *time.Time
	warnings []string
	seen     map[string]struct{}
	rejected []RejectedRow
	counters map[string]int
}

// NewCollector starts a run with a fresh run ID.
func NewCollector() *Collector {
	return NewCollectorAt(uuid.NewString(), time.Now())
}

// NewCollectorAt starts a run with a fixed ID and start time.
func NewCollectorAt(runID string, start time.Time) *Collector {
	return &Collector{
		runID: runID,
		start: start,
		seen:  make(map[string]struct{}),
		counters: map[string]int{
			CounterRowsInput:          0,
			CounterRowsProcessed:      0,
			CounterRowsRejected:       0,
			CounterNexusTriggers:      0,
			CounterStatesWithExposure: 0,
		},
	}
}

// RunID returns the run identifier.
func (c *Collector) RunID() string {
	return c.runID
}

// StartTime returns when the run started.
func (c *Collector) StartTime() time.Time {
	return c.start
}

// AddWarning records a warning once. Repeating the same message is a no-op,
// so stages can warn per row without flooding the report.
func (c *Collector) AddWarning(msg string) {
	c.mu.Lock()
	if _, dup := c.seen[msg]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[msg] = struct{}{}
	c.warnings = append(c.warnings, msg)
	c.mu.Unlock()

	logger.ComponentLogger("diagnostics").Warn(msg)
}

// Warnings returns the deduplicated warnings in the order first seen.
func (c *Collector) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warnings...)
}

// AddRejectedRow records a dropped row and bumps rows_rejected.
func (c *Collector) AddRejectedRow(row RejectedRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = append(c.rejected, row)
	c.counters[CounterRowsRejected]++
}

// RejectedRows returns the rejected rows in the order recorded.
func (c *Collector) RejectedRows() []RejectedRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RejectedRow(nil), c.rejected...)
}

// SetCounter overwrites a counter.
func (c *Collector) SetCounter(key string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key] = value
}

// AddCounter increments a counter by delta.
func (c *Collector) AddCounter(key string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key] += delta
}

// Counter returns a counter value (zero if never set).
func (c *Collector) Counter(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key]
}

// CounterNames returns the known counter names in sorted order.
func (c *Collector) CounterNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.counters))
	for name := range c.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Finalize stamps the end time. Calling it again moves the end time.
func (c *Collector) Finalize(now time.Time) {
	c.mu.Lock()
	c.end = &now
	duration := now.Sub(c.start)
	c.mu.Unlock()

	logger.ComponentLogger("diagnostics").Infow("Run summary finalized",
		"run_id", c.runID,
		"duration", duration.String(),
	)
}

// Duration returns the run duration, or zero before Finalize.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.end == nil {
		return 0
	}
	return c.end.Sub(c.start)
}

// Summary returns a snapshot of the run.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	counters := make(map[string]int, len(c.counters))
	for k, v := range c.counters {
		counters[k] = v
	}

	s := Summary{
		RunID:         c.runID,
		StartTime:     c.start,
		Counters:      counters,
		Warnings:      append([]string{}, c.warnings...),
		WarningsCount: len(c.warnings),
	}
	if c.end != nil {
		end := *c.end
		s.EndTime = &end
		s.DurationSeconds = end.Sub(c.start).Seconds()
	}
	return s
}
