package monitor_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-feeder/internal/config"
	"github.com/phrazzld/scry-feeder/internal/monitor"
	"github.com/phrazzld/scry-feeder/internal/platform/logger"
	"github.com/phrazzld/scry-feeder/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, withAnalyzers bool) *httptest.Server {
	t.Helper()
	tr := newTracker(t)
	logRuns(t, tr)

	cfg := testConfig()
	var m *monitor.Monitor
	if withAnalyzers {
		va, ga := analyzers(cfg)
		m = monitor.New(tr, va, ga, cfg, nil)
	} else {
		m = monitor.New(tr, nil, nil, cfg, nil)
	}

	log, _ := logger.NewTestLogger()
	srv := httptest.NewServer(monitor.NewRouter(m, log))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestRouter_Health(t *testing.T) {
	srv := newServer(t, false)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Status(t *testing.T) {
	srv := newServer(t, false)
	var report monitor.StatusReport
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/status", &report))
	assert.Equal(t, 20, report.Vocabulary.Totals.Daily)
	assert.Equal(t, 12, report.Grammar.Totals.Daily)
}

func TestRouter_Gaps(t *testing.T) {
	t.Run("with analyzers", func(t *testing.T) {
		srv := newServer(t, true)
		var report monitor.GapsReport
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/gaps", &report))
		assert.Len(t, report.Vocabulary.Categories, 1)
		assert.Len(t, report.Grammar.Next, 2)
	})

	t.Run("without database", func(t *testing.T) {
		srv := newServer(t, false)
		var body monitor.ErrorResponse
		assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/gaps", &body))
		assert.Equal(t, monitor.ErrNoAnalyzer.Error(), body.Error)
		assert.NotEmpty(t, body.RequestID)
	})
}

func TestRouter_History(t *testing.T) {
	srv := newServer(t, false)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLen    int
	}{
		{"all types", "", http.StatusOK, 3},
		{"vocabulary only", "?type=vocabulary", http.StatusOK, 2},
		{"grammar with limit", "?type=grammar&limit=5", http.StatusOK, 1},
		{"limit", "?limit=2", http.StatusOK, 2},
		{"unknown type", "?type=phrases", http.StatusBadRequest, 0},
		{"non-numeric limit", "?limit=ten", http.StatusBadRequest, 0},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantStatus != http.StatusOK {
				var body monitor.ErrorResponse
				assert.Equal(t, tt.wantStatus, getJSON(t, srv.URL+"/history"+tt.query, &body))
				assert.NotEmpty(t, body.Error)
				return
			}
			var records []tracker.Record
			assert.Equal(t, tt.wantStatus, getJSON(t, srv.URL+"/history"+tt.query, &records))
			assert.Len(t, records, tt.wantLen)
		})
	}
}

func TestRouter_ConfigIsRedacted(t *testing.T) {
	srv := newServer(t, false)
	var cfg config.Config
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/config", &cfg))
	assert.Equal(t, "postgres://feeder:xxxxx@db:5432/corpus", cfg.Database.URL)
	assert.Equal(t, "[REDACTED]", cfg.LLM.GeminiAPIKey)
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv := newServer(t, false)
	resp, err := http.Get(srv.URL + "/cards")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
