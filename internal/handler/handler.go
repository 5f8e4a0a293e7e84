package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"topolab/internal/codec"
	"topolab/internal/domain"
	"topolab/internal/service"
)

// ClientCounter reports connected event-stream clients
type ClientCounter interface {
	ClientCount() int
}

// TopologyHandler handles topology API requests
type TopologyHandler struct {
	svc     *service.TopologyService
	clients ClientCounter
	logger  *zap.Logger
}

// NewTopologyHandler creates a new topology handler
func NewTopologyHandler(svc *service.TopologyService, logger *zap.Logger) *TopologyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopologyHandler{svc: svc, logger: logger}
}

// SetClientCounter sets the source of the client count reported by Health
func (h *TopologyHandler) SetClientCounter(c ClientCounter) {
	h.clients = c
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RebuildResponse is returned after a rebuild
type RebuildResponse struct {
	Build domain.BuildSummary `json:"build"`
	Diff  domain.GraphDiff    `json:"diff"`
}

// Register adds every topology route to mux
func (h *TopologyHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/topology", h.GetTopology)
	mux.HandleFunc("GET /api/topology/visualization", h.GetVisualization)
	mux.HandleFunc("POST /api/topology/rebuild", h.Rebuild)

	mux.HandleFunc("GET /api/builds", h.ListBuilds)
	mux.HandleFunc("GET /api/builds/{id}", h.GetBuild)
	mux.HandleFunc("GET /api/builds/{id}/visualization", h.GetBuildVisualization)

	mux.HandleFunc("GET /api/export/{format}", h.Export)
	mux.HandleFunc("GET /api/health", h.Health)
}

// GetTopology returns the latest graph
func (h *TopologyHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Latest(r.Context())
	if err != nil {
		h.logger.Error("Failed to get topology", zap.Error(err))
		h.writeError(w, "Failed to get topology", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, b.Graph, http.StatusOK)
}

// GetVisualization returns the visualization document of the latest build
func (h *TopologyHandler) GetVisualization(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Latest(r.Context())
	if err != nil {
		h.logger.Error("Failed to get visualization", zap.Error(err))
		h.writeError(w, "Failed to get visualization", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, b.Visualization, http.StatusOK)
}

// Rebuild runs a build now
func (h *TopologyHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	b, diff, err := h.svc.Rebuild(r.Context())
	if err != nil {
		h.writeError(w, "Failed to rebuild topology", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, RebuildResponse{Build: b.Summary(), Diff: diff}, http.StatusOK)
}

// ListBuilds returns build summaries, newest first
func (h *TopologyHandler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	builds, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list builds", zap.Error(err))
		h.writeError(w, "Failed to list builds", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, builds, http.StatusOK)
}

// GetBuild returns the graph of one build
func (h *TopologyHandler) GetBuild(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBuild(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	h.writeJSON(w, b.Graph, http.StatusOK)
}

// GetBuildVisualization returns the visualization document of one build
func (h *TopologyHandler) GetBuildVisualization(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookupBuild(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	h.writeJSON(w, b.Visualization, http.StatusOK)
}

// Export downloads a build in the requested format. The doc query parameter
// selects graph (default) or visualization; build selects a build id and
// defaults to the latest.
func (h *TopologyHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	doc := r.URL.Query().Get("doc")
	if doc == "" {
		doc = "graph"
	}
	if doc != "graph" && doc != "visualization" {
		h.writeError(w, "Invalid document", "doc must be graph or visualization", http.StatusBadRequest)
		return
	}

	var b *domain.Build
	if id := r.URL.Query().Get("build"); id != "" {
		var ok bool
		if b, ok = h.lookupBuild(w, r, id); !ok {
			return
		}
	} else {
		var err error
		if b, err = h.svc.Latest(r.Context()); err != nil {
			h.writeError(w, "Failed to get topology", err.Error(), http.StatusInternalServerError)
			return
		}
	}

	var (
		buf         bytes.Buffer
		contentType string
		ext         string
	)
	if doc == "graph" {
		exp, err := codec.ExporterForFormat(format)
		if err != nil {
			h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
			return
		}
		if err := exp.ExportGraph(&buf, b.Graph); err != nil {
			h.logger.Error("Failed to export graph", zap.String("format", format), zap.Error(err))
			h.writeError(w, "Failed to export graph", err.Error(), http.StatusInternalServerError)
			return
		}
		contentType = exp.ContentType()
	} else {
		c, err := codec.ForFormat(format)
		if err != nil {
			h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
			return
		}
		if err := c.Encode(&buf, b.Visualization); err != nil {
			h.logger.Error("Failed to export visualization", zap.String("format", format), zap.Error(err))
			h.writeError(w, "Failed to export visualization", err.Error(), http.StatusInternalServerError)
			return
		}
		contentType = c.ContentType()
	}

	switch format {
	case "json":
		ext = "json"
	default:
		ext = "yml"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", doc, ext))
	w.Write(buf.Bytes())
}

// Health reports liveness and the latest build id, without triggering a build
func (h *TopologyHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.clients != nil {
		resp["clients"] = h.clients.ClientCount()
	}
	if builds, err := h.svc.History(r.Context(), 1); err == nil && len(builds) > 0 {
		resp["latest_build"] = builds[0].ID
		resp["built_at"] = builds[0].BuiltAt
	}
	h.writeJSON(w, resp, http.StatusOK)
}

func (h *TopologyHandler) lookupBuild(w http.ResponseWriter, r *http.Request, id string) (*domain.Build, bool) {
	if id == "" {
		h.writeError(w, "Invalid build ID", "Build ID is required", http.StatusBadRequest)
		return nil, false
	}

	b, err := h.svc.Build(r.Context(), id)
	if errors.Is(err, service.ErrBuildNotFound) {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to get build", zap.String("id", id), zap.Error(err))
		h.writeError(w, "Failed to get build", err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return b, true
}

// Helper methods

func (h *TopologyHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to encode JSON", zap.Error(err))
	}
}

func (h *TopologyHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
