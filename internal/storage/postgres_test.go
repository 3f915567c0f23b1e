package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

func TestSelectByCategoryBuilder(t *testing.T) {
	query, args, err := selectByCategory(sq.Dollar, []string{" Creational ", "", "BEHAVIORAL"}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "FROM patterns WHERE category IN ($1,$2) ORDER BY id")
	assert.Equal(t, []interface{}{"creational", "behavioral"}, args)

	query, _, err = selectByCategory(sq.Question, []string{"x"}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "WHERE category IN (?)")
}

func TestUpsertEmbeddingQuery(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := upsertEmbeddingQuery(&types.PatternEmbedding{
		PatternID: "singleton", Vector: []float32{1, 2}, Dimension: 2, Model: "m", Strategy: "local",
	}, now)
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO pattern_embeddings (pattern_id,vector,dimension,model,strategy,created_at) VALUES ($1,$2,$3,$4,$5,$6)")
	assert.Contains(t, query, "ON CONFLICT (pattern_id) DO UPDATE SET")
	require.Len(t, args, 6)
	assert.Equal(t, "singleton", args[0])
	assert.Equal(t, now, args[5])
}

// TestPostgresStorage runs against a live database when PATTERNFINDER_TEST_POSTGRES_DSN is set
func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("PATTERNFINDER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PATTERNFINDER_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStorage(ctx, dsn, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.db.Exec(ctx, "TRUNCATE patterns CASCADE")
	require.NoError(t, err)

	seed(t, s)

	got, err := s.GetPattern(ctx, "singleton")
	require.NoError(t, err)
	assert.Equal(t, "creational", got.Category)
	assert.Equal(t, []string{"go"}, got.Languages)

	byCategory, err := s.ListByCategory(ctx, "Behavioral")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "observer", byCategory[0].ID)

	require.NoError(t, s.UpsertEmbeddings(ctx, []types.PatternEmbedding{
		{PatternID: "singleton", Vector: []float32{0.5, 0.25}, Dimension: 2, Model: "m", Strategy: "local"},
	}))
	emb, err := s.GetEmbedding(ctx, "singleton")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, emb.Vector)

	err = s.UpsertEmbeddings(ctx, []types.PatternEmbedding{
		{PatternID: "observer", Vector: []float32{1, 0}, Dimension: 2, Model: "m", Strategy: "local"},
		{PatternID: "ghost", Vector: []float32{1, 0}, Dimension: 2, Model: "m", Strategy: "local"},
	})
	require.Error(t, err)
	_, err = s.GetEmbedding(ctx, "observer")
	assert.True(t, errors.Is(err, ErrNotFound))

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.PatternCount)
	assert.Equal(t, 1, status.EmbeddingCount)

	require.NoError(t, s.DeleteEmbedding(ctx, "singleton"))
	assert.True(t, errors.Is(s.DeleteEmbedding(ctx, "singleton"), ErrNotFound))
}
