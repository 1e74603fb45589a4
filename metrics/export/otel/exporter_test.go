package otel

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goSession "github.com/MrEthical07/goSession"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }

func (f *fakeSource) AuditDropped() uint64 { return f.dropped }

func testSource() *fakeSource {
	return &fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricIssueSuccess:  4,
				goSession.MetricReuseDetected: 2,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {3, 1, 0, 0, 0, 0, 0, 0},
			},
		},
		dropped: 7,
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	values := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] = dp.Value
				}
			}
		}
	}
	return values
}

func TestExporterObservesCountersAndHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	exporter, err := NewOTelExporterFromSource(provider.Meter("gosession-test"), testSource())
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	t.Cleanup(func() { _ = exporter.Close() })

	values := collect(t, reader)
	want := map[string]int64{
		"gosession_issue_success_total":                      4,
		"gosession_reuse_detected_total":                     2,
		"gosession_rotate_success_total":                     0,
		"gosession_audit_dropped_total":                      7,
		"gosession_validate_latency_seconds_bucket_le_0_005": 3,
		"gosession_validate_latency_seconds_bucket_le_0_01":  4,
		"gosession_validate_latency_seconds_bucket_le_inf":   4,
		"gosession_validate_latency_seconds_count":           4,
	}
	for name, v := range want {
		if got, ok := values[name]; !ok || got != v {
			t.Fatalf("%s = %d (present %v), want %d", name, got, ok, v)
		}
	}
}

func TestExporterCloseUnregisters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	source := testSource()
	exporter, err := NewOTelExporterFromSource(provider.Meter("gosession-test"), source)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second Close is a no-op for a nil registration path too.
	var nilExp *OTelExporter
	if err := nilExp.Close(); err != nil {
		t.Fatalf("nil Close failed: %v", err)
	}

	values := collect(t, reader)
	if _, ok := values["gosession_issue_success_total"]; ok {
		t.Fatal("closed exporter still reporting observations")
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	if _, err := NewOTelExporterFromSource(nil, testSource()); err != ErrNilMeter {
		t.Fatalf("err = %v, want ErrNilMeter", err)
	}
	if _, err := NewOTelExporterFromSource(provider.Meter("gosession-test"), nil); err != ErrNilSource {
		t.Fatalf("err = %v, want ErrNilSource", err)
	}
}
