package goSession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricIssueSuccess)
	m.Inc(MetricIssueSuccess)
	m.Inc(MetricReuseDetected)

	if got := m.Value(MetricIssueSuccess); got != 2 {
		t.Fatalf("Value(MetricIssueSuccess) = %d, want 2", got)
	}
	if got := m.Value(MetricReuseDetected); got != 1 {
		t.Fatalf("Value(MetricReuseDetected) = %d, want 1", got)
	}
	if got := m.Value(MetricRotateSuccess); got != 0 {
		t.Fatalf("Value(MetricRotateSuccess) = %d, want 0", got)
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.Inc(MetricIssueSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if got := m.Value(MetricIssueSuccess); got != 0 {
		t.Fatalf("disabled metrics recorded a count: %d", got)
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot not empty: %+v", snap)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	m.Inc(MetricIssueSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics reported enabled")
	}
	if got := m.Value(MetricIssueSuccess); got != 0 {
		t.Fatalf("nil Value = %d, want 0", got)
	}
	snap := m.Snapshot()
	if snap.Counters == nil || snap.Histograms == nil {
		t.Fatal("nil Snapshot returned nil maps")
	}
}

func TestMetricsObserveBucketPlacement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	durations := []struct {
		d      time.Duration
		bucket int
	}{
		{time.Millisecond, 0},
		{5 * time.Millisecond, 0},
		{7 * time.Millisecond, 1},
		{20 * time.Millisecond, 2},
		{40 * time.Millisecond, 3},
		{90 * time.Millisecond, 4},
		{200 * time.Millisecond, 5},
		{400 * time.Millisecond, 6},
		{2 * time.Second, 7},
	}
	for _, tc := range durations {
		m.Observe(MetricValidateLatency, tc.d)
	}

	buckets := m.Snapshot().Histograms[MetricValidateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("histogram has %d buckets, want %d", len(buckets), histBucketCount)
	}
	want := make([]uint64, histBucketCount)
	for _, tc := range durations {
		want[tc.bucket]++
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket[%d] = %d, want %d (buckets %v)", i, buckets[i], want[i], buckets)
		}
	}
}

func TestMetricsObserveWithoutLatencyIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Observe(MetricValidateLatency, time.Millisecond)
	if hist, ok := m.Snapshot().Histograms[MetricValidateLatency]; ok {
		t.Fatalf("latency-disabled snapshot carries histogram: %v", hist)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricValidateSuccess); got != workers*perWorker {
		t.Fatalf("Value = %d, want %d", got, workers*perWorker)
	}
}
