package httpadapter_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/sairevanth-zz/signalsloop-sub011/internal/adapters/http"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/adapters/memory"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/ports"
	scansvc "github.com/sairevanth-zz/signalsloop-sub011/internal/services/scans"
	statussvc "github.com/sairevanth-zz/signalsloop-sub011/internal/services/status"
	"github.com/sairevanth-zz/signalsloop-sub011/internal/sources"
)

func newServer(t *testing.T, platforms ...string) *httptest.Server {
	t.Helper()
	store := memory.NewStore(domain.RetryPolicy{})
	registry := sources.NewRegistry()
	for _, p := range platforms {
		registry.Register(p, sources.StubDiscoverer{Platform: p})
	}
	resolver := sources.NewStaticResolver(registry, nil)
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	srv := httpadapter.New(scansvc.New(store, resolver, 3), statussvc.New(store, store), nil, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func postScan(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/scans", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newServer(t, "reddit")
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateScan(t *testing.T) {
	ts := newServer(t, "reddit", "twitter")
	resp := postScan(t, ts, `{"project_id":"p1","requested_by":"user-1"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body struct {
		ScanID    string            `json:"scan_id"`
		Platforms map[string]string `json:"platforms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.ScanID)
	assert.Equal(t, "pending", body.Platforms["reddit"])
	assert.Equal(t, "pending", body.Platforms["twitter"])

	// The id is pollable immediately.
	statusResp, err := http.Get(ts.URL + "/scans/" + body.ScanID + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status struct {
		Scan struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"scan"`
		Platforms []struct {
			Platform string `json:"platform"`
			Status   string `json:"status"`
		} `json:"platforms"`
		ProgressPercent int  `json:"progress_percent"`
		AllComplete     bool `json:"all_complete"`
	}
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, body.ScanID, status.Scan.ID)
	assert.Equal(t, "running", status.Scan.Status)
	assert.False(t, status.AllComplete)
	assert.Equal(t, 0, status.ProgressPercent)
	assert.Len(t, status.Platforms, 2)
}

func TestCreateScan_BadRequests(t *testing.T) {
	ts := newServer(t, "reddit")

	resp := postScan(t, ts, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postScan(t, ts, `{"sources":["reddit"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateScan_NoActiveSources(t *testing.T) {
	ts := newServer(t) // nothing registered
	resp := postScan(t, ts, `{"project_id":"p1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestScanStatus_NotFound(t *testing.T) {
	ts := newServer(t, "reddit")
	resp, err := http.Get(ts.URL + "/scans/00000000-0000-0000-0000-000000000000/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

var _ ports.Scanner = (*scansvc.Service)(nil)
var _ ports.StatusReader = (*statussvc.Service)(nil)
