package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens dbPath and applies pending migrations.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStorage(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, wrap("open", fmt.Errorf("failed to open database: %w", err))
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, wrap("migrate", fmt.Errorf("failed to apply migrations: %w", err))
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, committing only if fn succeeds
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const patternColumns = `id, name, category, description, benefits, drawbacks, use_cases,
	complexity, tags, languages, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPattern(row rowScanner) (*types.Pattern, error) {
	var (
		p                                          types.Pattern
		complexity                                 string
		benefits, drawbacks, useCases, tags, langs string
		createdAt, updatedAt                       string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Description,
		&benefits, &drawbacks, &useCases, &complexity, &tags, &langs,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Complexity = types.Complexity(complexity)

	var err error
	for _, f := range []struct {
		raw  string
		dest *[]string
	}{
		{benefits, &p.Benefits},
		{drawbacks, &p.Drawbacks},
		{useCases, &p.UseCases},
		{tags, &p.Tags},
		{langs, &p.Languages},
	} {
		if *f.dest, err = decodeList(f.raw); err != nil {
			return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
		}
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
	}
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt timestamp %q: %w", s, err)
	}
	return t, nil
}

// Pattern operations

func (s *SQLiteStorage) getPatternWithQuerier(ctx context.Context, q querier, id string) (*types.Pattern, error) {
	query := `SELECT ` + patternColumns + ` FROM patterns WHERE id = ?`
	p, err := scanPattern(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("pattern", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStorage) GetPattern(ctx context.Context, id string) (*types.Pattern, error) {
	p, err := s.getPatternWithQuerier(ctx, s.db, id)
	return p, wrap("get pattern", err)
}

func (s *SQLiteStorage) listPatternsWithQuerier(ctx context.Context, q querier, query string, args ...interface{}) ([]types.Pattern, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	patterns := make([]types.Pattern, 0)
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *p)
	}
	return patterns, rows.Err()
}

func (s *SQLiteStorage) ListPatterns(ctx context.Context) ([]types.Pattern, error) {
	patterns, err := s.listPatternsWithQuerier(ctx, s.db, `SELECT `+patternColumns+` FROM patterns ORDER BY id`)
	return patterns, wrap("list patterns", err)
}

// ListByCategory returns patterns in any of the given categories (case-insensitive).
// No categories returns every pattern.
func (s *SQLiteStorage) ListByCategory(ctx context.Context, categories ...string) ([]types.Pattern, error) {
	if len(categories) == 0 {
		return s.ListPatterns(ctx)
	}
	query, args, err := selectByCategory(sq.Question, categories).ToSql()
	if err != nil {
		return nil, wrap("list by category", err)
	}
	patterns, err := s.listPatternsWithQuerier(ctx, s.db, query, args...)
	return patterns, wrap("list by category", err)
}

func (s *SQLiteStorage) upsertPatternWithQuerier(ctx context.Context, q querier, p *types.Pattern) error {
	query := `
		INSERT INTO patterns (id, name, category, description, benefits, drawbacks, use_cases,
		                      complexity, tags, languages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			description = excluded.description,
			benefits = excluded.benefits,
			drawbacks = excluded.drawbacks,
			use_cases = excluded.use_cases,
			complexity = excluded.complexity,
			tags = excluded.tags,
			languages = excluded.languages,
			updated_at = excluded.updated_at
	`
	lists := make([]interface{}, 0, 5)
	for _, items := range [][]string{p.Benefits, p.Drawbacks, p.UseCases} {
		enc, err := encodeList(items)
		if err != nil {
			return err
		}
		lists = append(lists, enc)
	}
	tags, err := encodeList(p.Tags)
	if err != nil {
		return err
	}
	langs, err := encodeList(p.Languages)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err = q.ExecContext(ctx, query,
		p.ID, p.Name, strings.ToLower(p.Category), p.Description,
		lists[0], lists[1], lists[2], string(p.Complexity), tags, langs,
		formatTime(created), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}
	p.CreatedAt = created
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertPattern(ctx context.Context, pattern *types.Pattern) error {
	if err := validatePattern(pattern); err != nil {
		return err
	}
	return wrap("upsert pattern", s.upsertPatternWithQuerier(ctx, s.db, pattern))
}

// Embedding operations

func scanEmbedding(row rowScanner) (*types.PatternEmbedding, error) {
	var (
		e         types.PatternEmbedding
		blob      []byte
		createdAt string
	)
	if err := row.Scan(&e.PatternID, &blob, &e.Dimension, &e.Model, &e.Strategy, &createdAt); err != nil {
		return nil, err
	}
	vector, err := deserializeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", e.PatternID, err)
	}
	e.Vector = vector
	if len(e.Vector) != e.Dimension {
		return nil, fmt.Errorf("embedding %s: stored dimension %d but vector has %d values", e.PatternID, e.Dimension, len(e.Vector))
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("embedding %s: %w", e.PatternID, err)
	}
	return &e, nil
}

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *types.PatternEmbedding) error {
	query := `
		INSERT INTO pattern_embeddings (pattern_id, vector, dimension, model, strategy, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			model = excluded.model,
			strategy = excluded.strategy,
			created_at = excluded.created_at
	`
	now := time.Now().UTC()
	_, err := q.ExecContext(ctx, query,
		embedding.PatternID, serializeVector(embedding.Vector), embedding.Dimension,
		embedding.Model, embedding.Strategy, formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for %s: %w", embedding.PatternID, err)
	}
	embedding.CreatedAt = now
	return nil
}

// UpsertEmbedding replaces the embedding for a pattern in a single statement
func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *types.PatternEmbedding) error {
	if err := validateEmbedding(embedding); err != nil {
		return err
	}
	return wrap("upsert embedding", s.upsertEmbeddingWithQuerier(ctx, s.db, embedding))
}

// UpsertEmbeddings writes every embedding or none
func (s *SQLiteStorage) UpsertEmbeddings(ctx context.Context, embeddings []types.PatternEmbedding) error {
	for i := range embeddings {
		if err := validateEmbedding(&embeddings[i]); err != nil {
			return err
		}
	}
	err := s.withTx(ctx, func(q querier) error {
		for i := range embeddings {
			if err := s.upsertEmbeddingWithQuerier(ctx, q, &embeddings[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap("upsert embeddings", err)
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, patternID string) (*types.PatternEmbedding, error) {
	query := `
		SELECT pattern_id, vector, dimension, model, strategy, created_at
		FROM pattern_embeddings
		WHERE pattern_id = ?
	`
	e, err := scanEmbedding(s.db.QueryRowContext(ctx, query, patternID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("embedding", patternID)
	}
	if err != nil {
		return nil, wrap("get embedding", err)
	}
	return e, nil
}

func (s *SQLiteStorage) ListEmbeddings(ctx context.Context) ([]types.PatternEmbedding, error) {
	query := `
		SELECT pattern_id, vector, dimension, model, strategy, created_at
		FROM pattern_embeddings
		ORDER BY pattern_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap("list embeddings", err)
	}
	defer func() { _ = rows.Close() }()

	embeddings := make([]types.PatternEmbedding, 0)
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, wrap("list embeddings", err)
		}
		embeddings = append(embeddings, *e)
	}
	return embeddings, wrap("list embeddings", rows.Err())
}

func (s *SQLiteStorage) DeleteEmbedding(ctx context.Context, patternID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pattern_embeddings WHERE pattern_id = ?`, patternID)
	if err != nil {
		return wrap("delete embedding", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return notFound("embedding", patternID)
	}
	return nil
}

// Status operations

func (s *SQLiteStorage) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Driver:     DriverName,
		BuildMode:  BuildMode,
		Models:     make(map[string]int),
		Dimensions: make(map[int]int),
	}

	version, err := SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, wrap("status", err)
	}
	status.SchemaVersion = version.String()

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patterns").Scan(&status.PatternCount); err != nil {
		return nil, wrap("status", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT model, dimension, COUNT(*), MAX(created_at)
		FROM pattern_embeddings
		GROUP BY model, dimension
	`)
	if err != nil {
		return nil, wrap("status", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			model     string
			dimension int
			count     int
			latest    string
		)
		if err := rows.Scan(&model, &dimension, &count, &latest); err != nil {
			return nil, wrap("status", err)
		}
		status.EmbeddingCount += count
		status.Models[model] += count
		status.Dimensions[dimension] += count
		if t, err := parseTime(latest); err == nil && t.After(status.LastEmbeddedAt) {
			status.LastEmbeddedAt = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("status", err)
	}

	if VectorExtensionAvailable {
		var v string
		if err := s.db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&v); err == nil {
			status.VectorExtension = v
		}
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}
