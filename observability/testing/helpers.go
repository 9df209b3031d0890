// Package testing provides in-memory metric readers and assertions for tests
// that exercise instrumented cache code without a running collector.
//
//	mp := NewTestMeterProvider()
//	otel.SetMeterProvider(mp)
//	defer mp.Shutdown(context.Background())
//
//	// run cache operations
//
//	rm := mp.Collect(t)
//	AssertMetricExists(t, rm, "db.client.operation.duration")
package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	metricNotFoundErrMsg = "metric %s not found"
	noDataPointsErrMsg   = "no data points for metric %s"
)

// TestMeterProvider pairs an SDK MeterProvider with the manual reader feeding it.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider whose metrics are collected on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads everything recorded so far.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindMetric returns the metric called name, or nil.
func FindMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// AssertMetricExists fails the test when name was never recorded.
func AssertMetricExists(t *testing.T, rm metricdata.ResourceMetrics, name string) {
	t.Helper()
	require.NotNil(t, FindMetric(rm, name), metricNotFoundErrMsg, name)
}

// AssertMetricDescription checks the description registered with the instrument.
func AssertMetricDescription(t *testing.T, rm metricdata.ResourceMetrics, name, expected string) {
	t.Helper()
	m := FindMetric(rm, name)
	require.NotNil(t, m, metricNotFoundErrMsg, name)
	assert.Equal(t, expected, m.Description, "metric %s description mismatch", name)
}

// GetMetricSumValue returns the first data point of an int64 or float64 sum.
func GetMetricSumValue(rm metricdata.ResourceMetrics, name string) (any, error) {
	m := FindMetric(rm, name)
	if m == nil {
		return nil, fmt.Errorf(metricNotFoundErrMsg, name)
	}

	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		if len(data.DataPoints) == 0 {
			return nil, fmt.Errorf(noDataPointsErrMsg, name)
		}
		return data.DataPoints[0].Value, nil
	case metricdata.Sum[float64]:
		if len(data.DataPoints) == 0 {
			return nil, fmt.Errorf(noDataPointsErrMsg, name)
		}
		return data.DataPoints[0].Value, nil
	default:
		return nil, fmt.Errorf("metric %s is not a Sum type", name)
	}
}

// GetMetricHistogramCount sums the counts of every data point of a histogram,
// whichever aggregation produced it.
func GetMetricHistogramCount(rm metricdata.ResourceMetrics, name string) (uint64, error) {
	m := FindMetric(rm, name)
	if m == nil {
		return 0, fmt.Errorf(metricNotFoundErrMsg, name)
	}

	var total uint64
	switch data := m.Data.(type) {
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			total += dp.Count
		}
	case metricdata.Histogram[int64]:
		for _, dp := range data.DataPoints {
			total += dp.Count
		}
	case metricdata.ExponentialHistogram[float64]:
		for _, dp := range data.DataPoints {
			total += dp.Count
		}
	default:
		return 0, fmt.Errorf("metric %s is not a Histogram type", name)
	}
	return total, nil
}

// HasAttribute reports whether any data point of the named metric carries key=value.
func HasAttribute(rm metricdata.ResourceMetrics, name, key, value string) bool {
	m := FindMetric(rm, name)
	if m == nil {
		return false
	}

	want := attribute.String(key, value)
	match := func(set attribute.Set) bool {
		v, ok := set.Value(want.Key)
		return ok && v == want.Value
	}

	switch data := m.Data.(type) {
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			if match(dp.Attributes) {
				return true
			}
		}
	case metricdata.ExponentialHistogram[float64]:
		for _, dp := range data.DataPoints {
			if match(dp.Attributes) {
				return true
			}
		}
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			if match(dp.Attributes) {
				return true
			}
		}
	}
	return false
}
