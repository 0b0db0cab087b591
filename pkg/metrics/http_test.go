package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequestRecordsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("/api/v1/cart", "GET", "200", 150*time.Millisecond)
	m.ObserveRequest("/api/v1/cart", "GET", "200", 50*time.Millisecond)
	m.ObserveRequest("", "POST", "409", time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	counter := byName["http_requests_total"]
	require.NotNil(t, counter)
	require.Len(t, counter.GetMetric(), 2)

	var cartCount, unknownCount float64
	for _, metric := range counter.GetMetric() {
		labels := map[string]string{}
		for _, pair := range metric.GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
		switch labels["route"] {
		case "/api/v1/cart":
			cartCount = metric.GetCounter().GetValue()
		case "unknown":
			unknownCount = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), cartCount)
	assert.Equal(t, float64(1), unknownCount)

	histogram := byName["http_request_duration_seconds"]
	require.NotNil(t, histogram)
	for _, metric := range histogram.GetMetric() {
		assert.Positive(t, metric.GetHistogram().GetSampleCount())
	}
}

func TestInFlightGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.IncInFlight()
	m.IncInFlight()
	m.DecInFlight()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() == "http_requests_in_flight" {
			require.Len(t, fam.GetMetric(), 1)
			assert.Equal(t, float64(1), fam.GetMetric()[0].GetGauge().GetValue())
			return
		}
	}
	t.Fatal("gauge not found")
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewHTTPMetrics(nil)
	m.ObserveRequest("/x", "GET", "200", time.Second)
	m.IncInFlight()
	m.DecInFlight()
}
