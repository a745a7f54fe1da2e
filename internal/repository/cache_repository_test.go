package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientIsNoop(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)

	removed, err := repo.DeleteByPattern(ctx, "k*")
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.Ping(ctx))
}
