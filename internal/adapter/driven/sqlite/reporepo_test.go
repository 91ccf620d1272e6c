package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

func TestRepoRepo_AddAndGetByPath(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	added, err := repo.Add(ctx, model.Repository{
		Name:    "octocat/hello-world",
		Path:    "octocat/hello-world",
		Tool:    "github",
		AddedAt: testTime,
	})
	require.NoError(t, err)
	assert.NotZero(t, added.ID)

	got, err := repo.GetByPath(ctx, "github", "octocat/hello-world")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, "github", got.Tool)
	assert.True(t, testTime.Equal(got.AddedAt))

	missing, err := repo.GetByPath(ctx, "git", "octocat/hello-world")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepoRepo_AddDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	_, err := repo.Add(ctx, model.Repository{Name: "a", Path: "owner/a", Tool: "github"})
	require.NoError(t, err)

	_, err = repo.Add(ctx, model.Repository{Name: "a", Path: "owner/a", Tool: "github"})
	assert.ErrorIs(t, err, driven.ErrAlreadyExists)
}

func TestRepoRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepoRepo(db)
	ctx := context.Background()

	empty, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = repo.Add(ctx, model.Repository{Name: "zeta", Path: "owner/zeta", Tool: "github"})
	require.NoError(t, err)
	_, err = repo.Add(ctx, model.Repository{Name: "alpha", Path: "owner/alpha", Tool: "github"})
	require.NoError(t, err)

	repos, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "alpha", repos[0].Name)
	assert.Equal(t, "zeta", repos[1].Name)
}
