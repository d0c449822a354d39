package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	assert.Equal(t, "cohort-summit:leaderboard:podium:season-1", repo.key("leaderboard:podium:season-1"))
	assert.Equal(t, "cohort-summit:leaderboard:podium:season-1", repo.key("cohort-summit:leaderboard:podium:season-1"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "podium", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "podium", []string{"stu-1"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "podium", "standings"))
}
