package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("", "build-styles", 150*time.Millisecond)
	pr.IncStageResult("", "build-styles", ResultWarning)
	pr.IncStageResult("", "build-styles", ResultWarning)
	pr.ObserveBuildDuration("", "build", 500*time.Millisecond)
	pr.IncBuildOutcome("", BuildOutcomeSuccess)
	pr.IncWatchReaction("admin-", "resource")
	pr.AddBytesWritten("", "copy-resources", 42)
	pr.SetWatchActive("", true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.stageResults.WithLabelValues("", "build-styles", "warning")), 0)
	assert.InDelta(t, 42, testutil.ToFloat64(pr.bytesWritten.WithLabelValues("", "copy-resources")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.watchActive.WithLabelValues("")), 0)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncStageResult("", "clean", ResultSuccess)
	pr.SetWatchActive("", false)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBuildOutcome("web", BuildOutcomeFailed)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `quicksip_build_outcomes_total{outcome="failed",prefix="web"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
