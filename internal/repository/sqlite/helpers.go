package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"topolab/internal/domain"
)

// ============================================================================
// Column Conversion Helpers
// ============================================================================

// Times are stored as UTC unix nanoseconds so ordering is numeric.
func timeToColumn(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func columnToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to a nullable JSON string. Nil values and empty
// slices are stored as NULL.
func marshalToNull(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	if c, ok := v.([]domain.Category); ok && len(c) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Build Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between:
// - buildColumns / summaryColumns constants
// - scanArgs() / summaryScanArgs() return slices

// buildRow holds all columns from a build query for scanning
type buildRow struct {
	ID                string
	BuiltAt           int64
	DeviceCount       int
	ConnectionCount   int
	DegradedJSON      sql.NullString
	CountsJSON        sql.NullString
	GraphJSON         sql.NullString
	VisualizationJSON sql.NullString
}

// summaryColumns returns the SELECT column list for build listings
const summaryColumns = `id, built_at, device_count, connection_count, degraded, device_counts`

// buildColumns returns the SELECT column list for full build queries
const buildColumns = summaryColumns + `, graph, visualization`

// summaryScanArgs returns pointers for summaryColumns, in order:
// id, built_at, device_count, connection_count, degraded, device_counts
func (r *buildRow) summaryScanArgs() []any {
	return []any{
		&r.ID,              // 1
		&r.BuiltAt,         // 2
		&r.DeviceCount,     // 3
		&r.ConnectionCount, // 4
		&r.DegradedJSON,    // 5
		&r.CountsJSON,      // 6
	}
}

// scanArgs returns pointers for buildColumns
func (r *buildRow) scanArgs() []any {
	return append(r.summaryScanArgs(),
		&r.GraphJSON,         // 7
		&r.VisualizationJSON, // 8
	)
}

// toSummary converts the scanned row to a domain.BuildSummary
func (r *buildRow) toSummary() (domain.BuildSummary, error) {
	s := domain.BuildSummary{
		ID:              r.ID,
		BuiltAt:         columnToTime(r.BuiltAt),
		DeviceCount:     r.DeviceCount,
		ConnectionCount: r.ConnectionCount,
	}
	if err := unmarshalJSONField(r.DegradedJSON, &s.Degraded); err != nil {
		return s, fmt.Errorf("unmarshal degraded: %w", err)
	}
	if err := unmarshalJSONField(r.CountsJSON, &s.DeviceCounts); err != nil {
		return s, fmt.Errorf("unmarshal device counts: %w", err)
	}
	return s, nil
}

// toDomain converts the scanned row to a domain.Build
func (r *buildRow) toDomain() (*domain.Build, error) {
	b := &domain.Build{
		ID:      r.ID,
		BuiltAt: columnToTime(r.BuiltAt),
		Graph:   &domain.TopologyGraph{},
	}
	if err := unmarshalJSONField(r.GraphJSON, b.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	if err := unmarshalJSONField(r.VisualizationJSON, &b.Visualization); err != nil {
		return nil, fmt.Errorf("unmarshal visualization: %w", err)
	}
	return b, nil
}

// buildInsertArgs returns the INSERT values in buildColumns order
func buildInsertArgs(b *domain.Build) ([]any, error) {
	if b.Graph == nil {
		return nil, fmt.Errorf("build %s has no graph", b.ID)
	}
	summary := b.Summary()

	degraded, err := marshalToNull(summary.Degraded)
	if err != nil {
		return nil, fmt.Errorf("marshal degraded: %w", err)
	}
	counts, err := marshalToNull(summary.DeviceCounts)
	if err != nil {
		return nil, fmt.Errorf("marshal device counts: %w", err)
	}
	graph, err := marshalToNull(b.Graph)
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	vis, err := marshalToNull(b.Visualization)
	if err != nil {
		return nil, fmt.Errorf("marshal visualization: %w", err)
	}

	return []any{
		b.ID,
		timeToColumn(b.BuiltAt),
		summary.DeviceCount,
		summary.ConnectionCount,
		degraded,
		counts,
		graph,
		vis,
	}, nil
}
