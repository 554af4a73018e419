package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-theater/pkg/performance"
)

// sample returns the value of a counter or gauge, or the sample count of a
// histogram, whose labels include the given pairs.
func sample(t *testing.T, e *Exporter, name string, labels ...string) float64 {
	t.Helper()
	families, err := e.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for i := 0; i+1 < len(labels); i += 2 {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
						found = true
					}
				}
				if !found {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestObserve(t *testing.T) {
	e := New(DefaultConfig())

	e.Observe(performance.Turn{Route: performance.RouteScripted, Duration: time.Second, FailedGestures: []string{"kisses"}})
	e.Observe(performance.Turn{Route: performance.RouteFallback, Reply: "Beep.", FallbackLatency: 800 * time.Millisecond})
	e.Observe(performance.Turn{Route: performance.RouteFallback, FallbackLatency: 20 * time.Second})
	e.Observe(performance.Turn{Route: performance.RouteError})
	e.Observe(performance.Turn{Route: performance.RouteSilence})
	e.Observe(performance.Turn{Route: performance.RouteScripted, Terminal: true})

	assert.Equal(t, 2.0, sample(t, e, "theater_turns_total", "route", "scripted"))
	assert.Equal(t, 2.0, sample(t, e, "theater_turns_total", "route", "fallback"))
	assert.Equal(t, 1.0, sample(t, e, "theater_turns_total", "route", "silence"))
	assert.Equal(t, 1.0, sample(t, e, "theater_gesture_failures_total"))
	assert.Equal(t, 1.0, sample(t, e, "theater_fallback_errors_total"))
	assert.Equal(t, 1.0, sample(t, e, "theater_detect_errors_total"))
	assert.Equal(t, 1.0, sample(t, e, "theater_performance_finished"))
	assert.Equal(t, 2.0, sample(t, e, "theater_fallback_latency_seconds"))
	assert.Equal(t, 6.0, sample(t, e, "theater_turn_duration_seconds"))
}

func TestHandler(t *testing.T) {
	e := New(Config{ProcessCollectors: true})
	e.Observe(performance.Turn{Route: performance.RouteSilence})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `theater_turns_total{route="silence"} 1`)
	assert.Contains(t, text, "theater_turn_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}
