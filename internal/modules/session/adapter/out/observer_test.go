package out_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dialerdomain "queuebreaker/internal/modules/dialer/domain"
	sessionout "queuebreaker/internal/modules/session/adapter/out"
	"queuebreaker/internal/modules/session/domain"
)

func TestMetricsObserverCountsAttempts(t *testing.T) {
	observer := sessionout.NewMetricsObserver(zerolog.Nop(), "test")
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

	observer.Observe(domain.Event{Kind: domain.EventStatus, Status: domain.StatusWaitingForWindow})
	observer.Observe(domain.Event{Kind: domain.EventWaiting, At: now, NextOpening: now.Add(28 * time.Minute)})
	observer.Observe(domain.Event{Kind: domain.EventAttemptFinished, Record: record(1, dialerdomain.ReasonCompleted)})
	observer.Observe(domain.Event{Kind: domain.EventAttemptFinished, Record: record(2, dialerdomain.ReasonAutomationUnavailable)})
	observer.Observe(domain.Event{Kind: domain.EventAttemptFinished, Record: record(3, dialerdomain.ReasonCompleted)})

	families, err := observer.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["test_attempts_total"])
	assert.True(t, names["test_attempt_duration_seconds"])
	assert.True(t, names["test_session_status"])
	assert.True(t, names["test_seconds_until_window"])

	expected := `
# HELP test_attempts_total Call attempts by termination reason and outcome
# TYPE test_attempts_total counter
test_attempts_total{outcome="unknown",termination="automation_unavailable"} 1
test_attempts_total{outcome="unknown",termination="completed"} 2
`
	require.NoError(t, testutil.GatherAndCompare(observer.Registry(), strings.NewReader(expected), "test_attempts_total"))
	assert.Equal(t, float64(28*60), gaugeValue(t, observer, "test_seconds_until_window"))

	observer.Observe(domain.Event{Kind: domain.EventStopped, Cause: domain.CauseAborted})
	stopped := `
# HELP test_session_status 1 for the current session status, 0 otherwise
# TYPE test_session_status gauge
test_session_status{status="attempting"} 0
test_session_status{status="idle"} 0
test_session_status{status="stopped"} 1
test_session_status{status="waiting_for_window"} 0
`
	require.NoError(t, testutil.GatherAndCompare(observer.Registry(), strings.NewReader(stopped), "test_session_status"))
}

func TestMetricsObserverNeverOpens(t *testing.T) {
	observer := sessionout.NewMetricsObserver(zerolog.Nop(), "")
	observer.Observe(domain.Event{Kind: domain.EventWaiting, At: time.Now()})
	assert.Equal(t, float64(-1), gaugeValue(t, observer, "queuebreaker_seconds_until_window"))
}

// gaugeValue reads a single-series gauge by name through the registry.
func gaugeValue(t *testing.T, observer *sessionout.MetricsObserver, name string) float64 {
	t.Helper()
	families, err := observer.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			require.Len(t, family.GetMetric(), 1)
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestLogObserverMarksAbortDistinctly(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	observer := sessionout.NewLogObserver(zerolog.New(&buf))
	rec := record(1, dialerdomain.ReasonAutomationUnavailable)
	rec.Detail = "focus failed"
	observer.Observe(domain.Event{Kind: domain.EventAttemptFinished, SessionID: "s1", Record: rec})
	observer.Observe(domain.Event{Kind: domain.EventStopped, SessionID: "s1", Cause: domain.CauseAborted, Attempts: 1})

	out := buf.String()
	assert.Contains(t, out, `"termination":"automation_unavailable"`)
	assert.Contains(t, out, `"detail":"focus failed"`)
	assert.Contains(t, out, `"message":"session aborted"`)
}
