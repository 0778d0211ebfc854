package pipeline

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 1)

	tracker.Start()
	assert.True(t, tracker.started, "should be started")

	tracker.Increment(1)
	tracker.Increment(1)
	tracker.Increment(2)

	elapsed := tracker.Elapsed()
	assert.Greater(t, elapsed, time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "Progress: 1/4 (25.0%)")
	assert.Contains(t, output, "Progress: 4/4 (100.0%)")
	assert.Contains(t, output, "documents/s")
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start()
	for range 25 {
		tracker.Increment(1)
	}

	assert.Equal(t, 2, strings.Count(buf.String(), "Progress:"), "should report at 10 and 20")
}

func TestProgressTracker_FinishKeepsCount(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 5)

	tracker.Start()
	tracker.Increment(3)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "3/10", "interrupted runs report real progress")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 0)

	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0 (0.0%)")
}

func TestProgressTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Start()
	tracker.Increment(15)

	assert.Contains(t, buf.String(), "10/10", "should cap at total")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Increment(5)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}
