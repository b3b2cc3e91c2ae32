package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"mongoprov/internal/provision"
	"mongoprov/internal/verify"
)

func TestObserveReport(t *testing.T) {
	r := NewRecorder()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := &provision.Report{
		Actions: []provision.Action{
			{Kind: provision.KindCollection, Status: provision.StatusCreated},
			{Kind: provision.KindIndex, Status: provision.StatusCreated},
			{Kind: provision.KindIndex, Status: provision.StatusCreated},
			{Kind: provision.KindIndex, Status: provision.StatusUnchanged},
		},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}

	r.ObserveReport(report, nil)

	require.Equal(t, 2.0, testutil.ToFloat64(r.actions.WithLabelValues("index", "created")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("collection", "created")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.lastSuccess.WithLabelValues("apply")))
	require.Equal(t, float64(report.FinishedAt.Unix()), testutil.ToFloat64(r.lastRun.WithLabelValues("apply")))
	require.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestObserveFailedRuns(t *testing.T) {
	r := NewRecorder()
	r.ObserveReport(nil, os.ErrInvalid)
	require.Equal(t, 0.0, testutil.ToFloat64(r.lastSuccess.WithLabelValues("apply")))

	result := &verify.Result{Findings: []verify.Finding{{Passed: true}, {Passed: false}}}
	r.ObserveVerification(result, time.Now().Add(-time.Second), nil)
	require.Equal(t, 0.0, testutil.ToFloat64(r.lastSuccess.WithLabelValues("verify")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("check", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.actions.WithLabelValues("check", "passed")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveVerification(&verify.Result{Findings: []verify.Finding{{Passed: true}}}, time.Now(), nil)

	path := filepath.Join(t.TempDir(), "collector", "mongoprov.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.True(t, strings.Contains(text, `mongoprov_last_run_success{command="verify"} 1`), text)
	require.Contains(t, text, `mongoprov_actions_total{kind="check",status="passed"} 1`)
	require.Contains(t, text, "mongoprov_run_duration_seconds_bucket")
}

func TestWriteTextfileDisabled(t *testing.T) {
	require.NoError(t, NewRecorder().WriteTextfile(""))
}
