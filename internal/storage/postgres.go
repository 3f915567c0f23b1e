package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/Masterminds/semver/v3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// PostgresMigrations contains the Postgres schema in order
var PostgresMigrations = []Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS patterns (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    benefits TEXT[] NOT NULL DEFAULT '{}',
    drawbacks TEXT[] NOT NULL DEFAULT '{}',
    use_cases TEXT[] NOT NULL DEFAULT '{}',
    complexity TEXT NOT NULL DEFAULT '',
    tags TEXT[] NOT NULL DEFAULT '{}',
    languages TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_category ON patterns(category);

CREATE TABLE IF NOT EXISTS pattern_embeddings (
    pattern_id TEXT PRIMARY KEY REFERENCES patterns(id) ON DELETE CASCADE,
    vector REAL[] NOT NULL,
    dimension INTEGER NOT NULL,
    model TEXT NOT NULL,
    strategy TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`,
		Down: `
DROP TABLE IF EXISTS pattern_embeddings;
DROP TABLE IF EXISTS patterns;
DROP TABLE IF EXISTS schema_version;`,
	},
	{
		Version: "1.1.0",
		Up: `
CREATE INDEX IF NOT EXISTS idx_pattern_embeddings_model ON pattern_embeddings(strategy, model);
CREATE INDEX IF NOT EXISTS idx_pattern_embeddings_dimension ON pattern_embeddings(dimension);`,
		Down: `
DROP INDEX IF EXISTS idx_pattern_embeddings_dimension;
DROP INDEX IF EXISTS idx_pattern_embeddings_model;`,
	},
}

// pgQuerier is implemented by both *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage implements Storage on a pgx connection pool
type PostgresStorage struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage connects to dsn, verifies the connection and applies migrations
func NewPostgresStorage(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, wrap("open", fmt.Errorf("failed to parse database config: %w", err))
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrap("open", fmt.Errorf("failed to create connection pool: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrap("open", fmt.Errorf("failed to ping database: %w", err))
	}

	if err := ApplyPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, wrap("migrate", err)
	}

	logger.Info("Database connection established",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
	)

	return &PostgresStorage{db: pool, logger: logger}, nil
}

// ApplyPostgresMigrations runs all pending Postgres migrations, each in its own transaction
func ApplyPostgresMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	current, err := postgresSchemaVersion(ctx, pool)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(current, PostgresMigrations)
	if err != nil {
		return err
	}

	for _, migration := range pending {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migration.Up); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
			}
			if _, err := tx.Exec(ctx, "INSERT INTO schema_version (version) VALUES ($1)", migration.Version); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func postgresSchemaVersion(ctx context.Context, q pgQuerier) (*semver.Version, error) {
	var exists bool
	if err := q.QueryRow(ctx, "SELECT to_regclass('schema_version') IS NOT NULL").Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if !exists {
		return semver.MustParse("0.0.0"), nil
	}

	var version string
	err := q.QueryRow(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	return semver.NewVersion(version)
}

// Close releases every pooled connection
func (s *PostgresStorage) Close() error {
	s.db.Close()
	return nil
}

func scanPgPattern(row pgx.Row) (*types.Pattern, error) {
	var (
		p          types.Pattern
		complexity string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Description,
		&p.Benefits, &p.Drawbacks, &p.UseCases, &complexity, &p.Tags, &p.Languages,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Complexity = types.Complexity(complexity)
	for _, list := range []*[]string{&p.Benefits, &p.Drawbacks, &p.UseCases, &p.Tags, &p.Languages} {
		if len(*list) == 0 {
			*list = nil
		}
	}
	return &p, nil
}

func (s *PostgresStorage) GetPattern(ctx context.Context, id string) (*types.Pattern, error) {
	query, args, err := sq.Select(patternColumnList...).
		From("patterns").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, wrap("get pattern", err)
	}

	p, err := scanPgPattern(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("pattern", id)
	}
	if err != nil {
		return nil, wrap("get pattern", err)
	}
	return p, nil
}

func (s *PostgresStorage) listPatterns(ctx context.Context, builder sq.SelectBuilder) ([]types.Pattern, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patterns := make([]types.Pattern, 0)
	for rows.Next() {
		p, err := scanPgPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *p)
	}
	return patterns, rows.Err()
}

func (s *PostgresStorage) ListPatterns(ctx context.Context) ([]types.Pattern, error) {
	patterns, err := s.listPatterns(ctx, sq.Select(patternColumnList...).
		From("patterns").
		OrderBy("id").
		PlaceholderFormat(sq.Dollar))
	return patterns, wrap("list patterns", err)
}

func (s *PostgresStorage) ListByCategory(ctx context.Context, categories ...string) ([]types.Pattern, error) {
	if len(categories) == 0 {
		return s.ListPatterns(ctx)
	}
	patterns, err := s.listPatterns(ctx, selectByCategory(sq.Dollar, categories))
	return patterns, wrap("list by category", err)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func (s *PostgresStorage) UpsertPattern(ctx context.Context, p *types.Pattern) error {
	if err := validatePattern(p); err != nil {
		return err
	}

	now := time.Now().UTC()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}

	query, args, err := sq.Insert("patterns").
		Columns(patternColumnList...).
		Values(p.ID, p.Name, strings.ToLower(p.Category), p.Description,
			nonNil(p.Benefits), nonNil(p.Drawbacks), nonNil(p.UseCases),
			string(p.Complexity), nonNil(p.Tags), nonNil(p.Languages), created, now).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			benefits = EXCLUDED.benefits,
			drawbacks = EXCLUDED.drawbacks,
			use_cases = EXCLUDED.use_cases,
			complexity = EXCLUDED.complexity,
			tags = EXCLUDED.tags,
			languages = EXCLUDED.languages,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return wrap("upsert pattern", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return wrap("upsert pattern", fmt.Errorf("failed to upsert pattern: %w", err))
	}
	p.CreatedAt = created
	p.UpdatedAt = now
	return nil
}

// upsertEmbeddingQuery builds the atomic replace for one embedding
func upsertEmbeddingQuery(e *types.PatternEmbedding, now time.Time) (string, []interface{}, error) {
	vector := pgtype.FlatArray[float32]{}
	vector = append(vector, e.Vector...)

	return sq.Insert("pattern_embeddings").
		Columns(embeddingColumnList...).
		Values(e.PatternID, vector, e.Dimension, e.Model, e.Strategy, now).
		Suffix(`ON CONFLICT (pattern_id) DO UPDATE SET
			vector = EXCLUDED.vector,
			dimension = EXCLUDED.dimension,
			model = EXCLUDED.model,
			strategy = EXCLUDED.strategy,
			created_at = EXCLUDED.created_at`).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (s *PostgresStorage) upsertEmbeddingWithQuerier(ctx context.Context, q pgQuerier, e *types.PatternEmbedding) error {
	now := time.Now().UTC()
	query, args, err := upsertEmbeddingQuery(e, now)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert embedding for %s: %w", e.PatternID, err)
	}
	e.CreatedAt = now
	return nil
}

func (s *PostgresStorage) UpsertEmbedding(ctx context.Context, embedding *types.PatternEmbedding) error {
	if err := validateEmbedding(embedding); err != nil {
		return err
	}
	return wrap("upsert embedding", s.upsertEmbeddingWithQuerier(ctx, s.db, embedding))
}

func (s *PostgresStorage) UpsertEmbeddings(ctx context.Context, embeddings []types.PatternEmbedding) error {
	for i := range embeddings {
		if err := validateEmbedding(&embeddings[i]); err != nil {
			return err
		}
	}
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for i := range embeddings {
			if err := s.upsertEmbeddingWithQuerier(ctx, tx, &embeddings[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap("upsert embeddings", err)
}

func scanPgEmbedding(row pgx.Row) (*types.PatternEmbedding, error) {
	var (
		e      types.PatternEmbedding
		vector pgtype.FlatArray[float32]
	)
	if err := row.Scan(&e.PatternID, &vector, &e.Dimension, &e.Model, &e.Strategy, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Vector = []float32(vector)
	if len(e.Vector) != e.Dimension {
		return nil, fmt.Errorf("embedding %s: stored dimension %d but vector has %d values", e.PatternID, e.Dimension, len(e.Vector))
	}
	return &e, nil
}

func (s *PostgresStorage) GetEmbedding(ctx context.Context, patternID string) (*types.PatternEmbedding, error) {
	query, args, err := sq.Select(embeddingColumnList...).
		From("pattern_embeddings").
		Where(sq.Eq{"pattern_id": patternID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, wrap("get embedding", err)
	}

	e, err := scanPgEmbedding(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("embedding", patternID)
	}
	if err != nil {
		return nil, wrap("get embedding", err)
	}
	return e, nil
}

func (s *PostgresStorage) ListEmbeddings(ctx context.Context) ([]types.PatternEmbedding, error) {
	query, args, err := sq.Select(embeddingColumnList...).
		From("pattern_embeddings").
		OrderBy("pattern_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, wrap("list embeddings", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list embeddings", err)
	}
	defer rows.Close()

	embeddings := make([]types.PatternEmbedding, 0)
	for rows.Next() {
		e, err := scanPgEmbedding(rows)
		if err != nil {
			return nil, wrap("list embeddings", err)
		}
		embeddings = append(embeddings, *e)
	}
	return embeddings, wrap("list embeddings", rows.Err())
}

func (s *PostgresStorage) DeleteEmbedding(ctx context.Context, patternID string) error {
	query, args, err := sq.Delete("pattern_embeddings").
		Where(sq.Eq{"pattern_id": patternID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return wrap("delete embedding", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return wrap("delete embedding", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("embedding", patternID)
	}
	return nil
}

func (s *PostgresStorage) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Driver:     "pgx",
		BuildMode:  BuildMode,
		Models:     make(map[string]int),
		Dimensions: make(map[int]int),
	}

	version, err := postgresSchemaVersion(ctx, s.db)
	if err != nil {
		return nil, wrap("status", err)
	}
	status.SchemaVersion = version.String()

	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM patterns").Scan(&status.PatternCount); err != nil {
		return nil, wrap("status", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT model, dimension, COUNT(*), MAX(created_at)
		FROM pattern_embeddings
		GROUP BY model, dimension
	`)
	if err != nil {
		return nil, wrap("status", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			model     string
			dimension int
			count     int
			latest    time.Time
		)
		if err := rows.Scan(&model, &dimension, &count, &latest); err != nil {
			return nil, wrap("status", err)
		}
		status.EmbeddingCount += count
		status.Models[model] += count
		status.Dimensions[dimension] += count
		if latest.After(status.LastEmbeddedAt) {
			status.LastEmbeddedAt = latest
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("status", err)
	}

	var size int64
	if err := s.db.QueryRow(ctx, "SELECT pg_total_relation_size('patterns') + pg_total_relation_size('pattern_embeddings')").Scan(&size); err == nil {
		status.SizeMB = float64(size) / (1024 * 1024)
	}

	return status, nil
}
