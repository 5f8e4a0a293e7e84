package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"topolab/internal/collector"
	"topolab/internal/domain"
	"topolab/internal/repository/sqlite"
	"topolab/internal/service"
	"topolab/internal/topology"
)

type fixedClients int

func (f fixedClients) ClientCount() int { return int(f) }

func newTestServer(t *testing.T) (http.Handler, *service.TopologyService) {
	t.Helper()
	repo, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	fx := collector.NewFixture(collector.Inventory{
		SystemStatus: collector.Record{"hostname": "fw-lab", "serial": "FG100"},
		Interfaces:   []collector.Record{{"name": "wan1", "status": "up", "speed": "1000full"}},
		AccessPoints: []collector.Record{{"name": "ap-1", "ip": "10.0.0.20"}},
		UserDevices:  []collector.Record{{"mac": "aa:bb:cc:00:00:01", "hostname": "laptop"}},
	})
	svc := service.NewTopologyService(topology.NewBuilder(fx), repo, nil, nil)

	h := NewTopologyHandler(svc, nil)
	h.SetClientCounter(fixedClients(2))
	mux := http.NewServeMux()
	h.Register(mux)
	return Chain(mux, Recover(zap.NewNop()), CORS, Logger(zap.NewNop())), svc
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetTopologyBuildsOnDemand(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(t, h, "/api/topology")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var g domain.TopologyGraph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	require.NoError(t, g.Validate())
	assert.Len(t, g.Devices, 4)
	assert.Equal(t, "fw-lab", g.Devices[0].Name)
}

func TestGetVisualization(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(t, h, "/api/topology/visualization")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc domain.VisualizationDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc.FormatVersion)
	assert.Len(t, doc.Models, 4)
	assert.Equal(t, "10.0.0.20", doc.Models[2].Properties.IP)
}

func TestRebuildAndHistory(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/topology/rebuild", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RebuildResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Build.DeviceCount)
	assert.Len(t, resp.Diff.Added, 4)

	rec = get(t, h, "/api/builds?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var builds []domain.BuildSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, resp.Build.ID, builds[0].ID)

	rec = get(t, h, "/api/builds/"+resp.Build.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var g domain.TopologyGraph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Len(t, g.Connections, 3)

	rec = get(t, h, "/api/builds/"+resp.Build.ID+"/visualization")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"formatVersion":"2.0"`)
}

func TestBuildNotFound(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(t, h, "/api/builds/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Not found", resp.Error)
}

func TestListBuildsRejectsBadLimit(t *testing.T) {
	h, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/builds?limit=abc").Code)
}

func TestExport(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		target      string
		status      int
		contentType string
		filename    string
		contains    string
	}{
		{"/api/export/json", http.StatusOK, "application/json", "graph.json", `"devices"`},
		{"/api/export/yaml?doc=visualization", http.StatusOK, "application/yaml", "visualization.yml", "formatVersion:"},
		{"/api/export/ansible-inventory", http.StatusOK, "application/yaml", "graph.yml", "access_points:"},
		{"/api/export/ansible-inventory?doc=visualization", http.StatusBadRequest, "", "", ""},
		{"/api/export/xml", http.StatusBadRequest, "", "", ""},
		{"/api/export/json?doc=nodes", http.StatusBadRequest, "", "", ""},
		{"/api/export/json?build=missing", http.StatusNotFound, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, h, tt.target)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, "attachment; filename="+tt.filename, rec.Header().Get("Content-Disposition"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestExportYAMLGraphParses(t *testing.T) {
	h, _ := newTestServer(t)

	rec := get(t, h, "/api/export/yaml")
	require.Equal(t, http.StatusOK, rec.Code)

	var g domain.TopologyGraph
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &g))
	require.NoError(t, g.Validate())
}

func TestHealth(t *testing.T) {
	h, svc := newTestServer(t)

	rec := get(t, h, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 2.0, body["clients"])
	assert.NotContains(t, body, "latest_build")

	b, _, err := svc.Rebuild(context.Background())
	require.NoError(t, err)

	rec = get(t, h, "/api/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, b.ID, body["latest_build"])
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/topology", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := Chain(panicky, Recover(zap.NewNop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Internal server error"))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	final := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") })

	Chain(final, mw("outer"), mw("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
