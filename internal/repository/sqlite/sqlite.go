package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"topolab/internal/domain"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// New creates a new SQLite repository. dbPath may be ":memory:".
func New(dbPath string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db, logger: logger}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Debug("Opened build store", zap.String("path", dbPath))
	return repo, nil
}

func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return "file:" + dbPath + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		built_at INTEGER NOT NULL,
		device_count INTEGER NOT NULL DEFAULT 0,
		connection_count INTEGER NOT NULL DEFAULT 0,
		degraded JSON,
		device_counts JSON,
		graph JSON NOT NULL,
		visualization JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_builds_built_at ON builds(built_at);
	`
	_, err := r.db.Exec(schema)
	return err
}

// SaveBuild stores a build. Saving an existing id replaces it.
func (r *Repository) SaveBuild(ctx context.Context, b *domain.Build) error {
	args, err := buildInsertArgs(b)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO builds (`+buildColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			built_at = excluded.built_at,
			device_count = excluded.device_count,
			connection_count = excluded.connection_count,
			degraded = excluded.degraded,
			device_counts = excluded.device_counts,
			graph = excluded.graph,
			visualization = excluded.visualization
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to save build: %w", err)
	}
	return nil
}

// GetBuild retrieves a single build by ID
func (r *Repository) GetBuild(ctx context.Context, id string) (*domain.Build, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+`
		FROM builds WHERE id = ?
	`, id)
	return scanBuild(row)
}

// LatestBuild retrieves the most recent build, or nil when none exist
func (r *Repository) LatestBuild(ctx context.Context) (*domain.Build, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+`
		FROM builds ORDER BY built_at DESC, rowid DESC LIMIT 1
	`)
	return scanBuild(row)
}

func scanBuild(row *sql.Row) (*domain.Build, error) {
	var br buildRow
	err := row.Scan(br.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query build: %w", err)
	}
	return br.toDomain()
}

// ListBuilds returns build summaries, newest first. A limit of zero or less
// returns every build.
func (r *Repository) ListBuilds(ctx context.Context, limit int) ([]domain.BuildSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM builds ORDER BY built_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer rows.Close()

	summaries := []domain.BuildSummary{}
	for rows.Next() {
		var br buildRow
		if err := rows.Scan(br.summaryScanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		s, err := br.toSummary()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating builds: %w", err)
	}
	return summaries, nil
}

// PruneBuilds deletes all but the newest keep builds and reports how many
// were removed
func (r *Repository) PruneBuilds(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM builds WHERE id NOT IN (
			SELECT id FROM builds ORDER BY built_at DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune builds: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned builds: %w", err)
	}
	if n > 0 {
		r.logger.Info("Pruned build history", zap.Int64("removed", n), zap.Int("kept", keep))
	}
	return n, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
