package diagnostics

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

func TestAddWarningDeduplicates(t *testing.T) {
	c := NewCollectorAt("run-1", runStart)

	c.AddWarning("No configuration found for state 'NY'. Skipping.")
	c.AddWarning("Invalid or missing tax_rate for TX. Skipping.")
	c.AddWarning("No configuration found for state 'NY'. Skipping.")

	assert.Equal(t, []string{
		"No configuration found for state 'NY'. Skipping.",
		"Invalid or missing tax_rate for TX. Skipping.",
	}, c.Warnings())
	assert.Equal(t, 2, c.Summary().WarningsCount)
}

func TestRejectedRowsBumpCounter(t *testing.T) {
	c := NewCollectorAt("run-1", runStart)

	c.AddRejectedRow(RejectedRow{SourceFile: "a.csv", SourceRow: 4, Reason: "Invalid numeric format in 'total_amount'"})
	c.AddRejectedRow(RejectedRow{SourceFile: "a.csv", SourceRow: 9, Reason: "Invalid numeric format in 'total_amount'"})

	assert.Len(t, c.RejectedRows(), 2)
	assert.Equal(t, 2, c.Counter(CounterRowsRejected))
}

func TestCounters(t *testing.T) {
	c := NewCollectorAt("run-1", runStart)

	c.SetCounter(CounterRowsInput, 10)
	c.AddCounter(CounterRowsInput, 5)
	c.AddCounter("custom", 1)

	assert.Equal(t, 15, c.Counter(CounterRowsInput))
	assert.Equal(t, 1, c.Counter("custom"))
	assert.Equal(t, 0, c.Counter("never_set"))
	assert.Contains(t, c.CounterNames(), "custom")
	assert.Contains(t, c.CounterNames(), CounterStatesWithExposure)
}

func TestFinalizeComputesDuration(t *testing.T) {
	c := NewCollectorAt("run-1", runStart)
	assert.Zero(t, c.Duration())
	assert.Nil(t, c.Summary().EndTime)

	c.Finalize(runStart.Add(90 * time.Second))

	s := c.Summary()
	require.NotNil(t, s.EndTime)
	assert.Equal(t, 90.0, s.DurationSeconds)
	assert.Equal(t, 90*time.Second, c.Duration())
}

func TestSummaryIsSnapshot(t *testing.T) {
	c := NewCollectorAt("run-1", runStart)
	c.SetCounter(CounterNexusTriggers, 2)

	s := c.Summary()
	s.Counters[CounterNexusTriggers] = 99
	c.AddWarning("later")

	assert.Equal(t, 2, c.Counter(CounterNexusTriggers))
	assert.Empty(t, s.Warnings)
}

func TestSummaryJSON(t *testing.T) {
	c := NewCollectorAt("run-1", runStart)
	c.AddWarning("w")
	c.Finalize(runStart.Add(time.Second))

	data, err := json.Marshal(c.Summary())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, 1.0, decoded["warnings_count"])
	assert.Equal(t, 1.0, decoded["duration_seconds"])
}

func TestConcurrentUse(t *testing.T) {
	c := NewCollector()
	require.NotEmpty(t, c.RunID())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.AddWarning(fmt.Sprintf("warning %d", i%5))
			c.AddCounter(CounterStatesAnalyzed, 1)
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.Warnings(), 5)
	assert.Equal(t, 50, c.Counter(CounterStatesAnalyzed))
}
