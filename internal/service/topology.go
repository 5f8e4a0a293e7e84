package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"topolab/internal/domain"
	"topolab/internal/repository"
	"topolab/internal/topology"
)

// ErrBuildNotFound is returned for an unknown build id
var ErrBuildNotFound = errors.New("build not found")

// GraphBuilder produces one topology graph per call
type GraphBuilder interface {
	Build(ctx context.Context) (*domain.TopologyGraph, error)
}

// TopologyUpdate is the payload of EventTopologyUpdated
type TopologyUpdate struct {
	BuildID      string              `json:"build_id"`
	BuiltAt      time.Time           `json:"built_at"`
	DeviceCounts domain.DeviceCounts `json:"device_counts"`
	Degraded     []domain.Category   `json:"degraded,omitempty"`
	Diff         domain.GraphDiff    `json:"diff"`
}

// TopologyService owns the build lifecycle
type TopologyService struct {
	builder  GraphBuilder
	repo     repository.Repository
	eventBus *EventBus
	logger   *zap.Logger
	now      func() time.Time
	keep     int

	rebuildMu sync.Mutex

	mu     sync.RWMutex
	latest *domain.Build
}

// ServiceOption configures a TopologyService
type ServiceOption func(*TopologyService)

// WithHistoryLimit prunes persisted history to the newest n builds after
// every rebuild. Zero keeps everything.
func WithHistoryLimit(n int) ServiceOption {
	return func(s *TopologyService) {
		s.keep = n
	}
}

// WithServiceClock sets the clock used for build timestamps
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *TopologyService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTopologyService creates a topology service. repo may be nil, in which
// case only the latest build is kept in memory.
func NewTopologyService(builder GraphBuilder, repo repository.Repository, eventBus *EventBus, logger *zap.Logger, opts ...ServiceOption) *TopologyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eventBus == nil {
		eventBus = NewEventBus()
	}
	s := &TopologyService{
		builder:  builder,
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rebuild runs a build, persists it and makes it the latest. Concurrent
// calls are serialized. The returned diff is against the previous latest
// build.
func (s *TopologyService) Rebuild(ctx context.Context) (*domain.Build, domain.GraphDiff, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	return s.rebuildAndPublish(ctx)
}

// rebuildAndPublish must be called with rebuildMu held
func (s *TopologyService) rebuildAndPublish(ctx context.Context) (*domain.Build, domain.GraphDiff, error) {
	b, diff, err := s.rebuild(ctx)
	if err != nil {
		s.logger.Error("Rebuild failed", zap.Error(err))
		s.eventBus.Publish(Event{
			Type:    EventRebuildFailed,
			Payload: map[string]string{"error": err.Error()},
		})
		return nil, domain.GraphDiff{}, err
	}

	s.eventBus.Publish(Event{
		Type: EventTopologyUpdated,
		Payload: TopologyUpdate{
			BuildID:      b.ID,
			BuiltAt:      b.BuiltAt,
			DeviceCounts: b.Graph.Metadata.DeviceCounts,
			Degraded:     b.Graph.Metadata.Degraded,
			Diff:         diff,
		},
	})
	return b, diff, nil
}

func (s *TopologyService) rebuild(ctx context.Context) (*domain.Build, domain.GraphDiff, error) {
	graph, err := s.builder.Build(ctx)
	if err != nil {
		return nil, domain.GraphDiff{}, fmt.Errorf("build topology: %w", err)
	}

	doc, err := topology.ExportForVisualization(graph)
	if err != nil {
		return nil, domain.GraphDiff{}, fmt.Errorf("export topology: %w", err)
	}

	b := &domain.Build{
		ID:            uuid.NewString(),
		BuiltAt:       s.now().UTC(),
		Graph:         graph,
		Visualization: doc,
	}

	prev, err := s.previous(ctx)
	if err != nil {
		return nil, domain.GraphDiff{}, err
	}

	if s.repo != nil {
		if err := s.repo.SaveBuild(ctx, b); err != nil {
			return nil, domain.GraphDiff{}, fmt.Errorf("persist build: %w", err)
		}
		if s.keep > 0 {
			if _, err := s.repo.PruneBuilds(ctx, s.keep); err != nil {
				s.logger.Warn("Failed to prune build history", zap.Error(err))
			}
		}
	}

	var prevGraph *domain.TopologyGraph
	if prev != nil {
		prevGraph = prev.Graph
	}
	diff := domain.Diff(prevGraph, graph)

	s.mu.Lock()
	s.latest = b
	s.mu.Unlock()

	s.logger.Info("Topology rebuilt",
		zap.String("build_id", b.ID),
		zap.Int("devices", len(graph.Devices)),
		zap.Int("added", len(diff.Added)),
		zap.Int("removed", len(diff.Removed)),
		zap.Int("changed", len(diff.Changed)))
	return b, diff, nil
}

// previous returns the build a new one is compared against
func (s *TopologyService) previous(ctx context.Context) (*domain.Build, error) {
	s.mu.RLock()
	cached := s.latest
	s.mu.RUnlock()
	if cached != nil || s.repo == nil {
		return cached, nil
	}

	b, err := s.repo.LatestBuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous build: %w", err)
	}
	return b, nil
}

// Latest returns the newest build: the cached one, else the newest
// persisted one, else a fresh build
func (s *TopologyService) Latest(ctx context.Context) (*domain.Build, error) {
	s.mu.RLock()
	cached := s.latest
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	if s.repo != nil {
		b, err := s.repo.LatestBuild(ctx)
		if err != nil {
			return nil, fmt.Errorf("load latest build: %w", err)
		}
		if b != nil {
			s.mu.Lock()
			if s.latest == nil {
				s.latest = b
			}
			b = s.latest
			s.mu.Unlock()
			return b, nil
		}
	}

	// Callers that found nothing wait here for the first of them to build
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	s.mu.RLock()
	cached = s.latest
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	b, _, err := s.rebuildAndPublish(ctx)
	return b, err
}

// Build returns a build by id
func (s *TopologyService) Build(ctx context.Context, id string) (*domain.Build, error) {
	s.mu.RLock()
	cached := s.latest
	s.mu.RUnlock()
	if cached != nil && cached.ID == id {
		return cached, nil
	}
	if s.repo == nil {
		return nil, fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}

	b, err := s.repo.GetBuild(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	return b, nil
}

// History lists builds newest first
func (s *TopologyService) History(ctx context.Context, limit int) ([]domain.BuildSummary, error) {
	if s.repo != nil {
		return s.repo.ListBuilds(ctx, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return []domain.BuildSummary{}, nil
	}
	return []domain.BuildSummary{s.latest.Summary()}, nil
}
