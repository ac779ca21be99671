package profiler

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_Operations(t *testing.T) {
	p := New(0)
	assert.Equal(t, DefaultMaxSamples, p.maxSamples)

	p.recordOperationTime("refine", 2*time.Millisecond)
	p.recordOperationTime("refine", 4*time.Millisecond)
	p.recordOperationTime("extract", time.Millisecond)

	r := p.Snapshot()
	require.Len(t, r.Operations, 2)
	assert.Equal(t, "extract", r.Operations[0].Name)

	refine := r.Operations[1]
	assert.Equal(t, "refine", refine.Name)
	assert.Equal(t, int64(2), refine.Count)
	assert.Equal(t, 3*time.Millisecond, refine.Avg)
	assert.Equal(t, 2*time.Millisecond, refine.Min)
	assert.Equal(t, 4*time.Millisecond, refine.Max)
}

func TestProfiler_StartOperation(t *testing.T) {
	p := New(0)
	done := p.StartOperation("order")
	done()

	r := p.Snapshot()
	require.Len(t, r.Operations, 1)
	assert.Equal(t, int64(1), r.Operations[0].Count)
	assert.GreaterOrEqual(t, r.Operations[0].Max, time.Duration(0))
}

func TestProfiler_MetricsKeepBoundedWindow(t *testing.T) {
	p := New(2)
	p.RecordMetric("regions", 1)
	p.RecordMetric("regions", 5)
	p.RecordMetric("regions", 3)

	r := p.Snapshot()
	require.Len(t, r.Metrics, 1)
	m := r.Metrics[0]
	assert.Equal(t, int64(3), m.Count)
	assert.Equal(t, 8.0, m.Sum, "oldest sample dropped")
	assert.Equal(t, 4.0, m.Avg)
	assert.Equal(t, 1.0, m.Min, "extremes cover all samples")
	assert.Equal(t, 5.0, m.Max)
}

func TestProfiler_Concurrent(t *testing.T) {
	p := New(0)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				p.StartOperation("page")()
				p.RecordMetric("dropped", 1)
			}
		}()
	}
	wg.Wait()

	r := p.Snapshot()
	assert.Equal(t, int64(800), r.Operations[0].Count)
	assert.Equal(t, 800.0, r.Metrics[0].Sum)
}

func TestProfiler_LogReport(t *testing.T) {
	p := New(0)
	p.recordOperationTime("refine", time.Millisecond)
	p.RecordMetric("regions", 2)

	var buf bytes.Buffer
	p.LogReport(slog.New(slog.NewTextHandler(&buf, nil)))

	out := buf.String()
	assert.Contains(t, out, "operation=refine")
	assert.Contains(t, out, "metric=regions")
}
