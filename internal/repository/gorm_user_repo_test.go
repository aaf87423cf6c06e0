package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grekus14/MeChat/internal/domain"
)

func seedUser(t *testing.T, repo *GormUserRepository, email, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestCreateUserAssignsID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)

	user := seedUser(t, repo, "alice@example.com", "alice")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, []string{"user"}, user.Roles)

	got, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "alice", got.Username)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)

	seedUser(t, repo, "alice@example.com", "alice")

	err := repo.Create(context.Background(), &domain.User{
		Email:        "alice@example.com",
		Username:     "alice2",
		PasswordHash: "hash",
	})
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)

	seedUser(t, repo, "alice@example.com", "alice")

	err := repo.Create(context.Background(), &domain.User{
		Email:        "other@example.com",
		Username:     "alice",
		PasswordHash: "hash",
	})
	require.ErrorIs(t, err, ErrUsernameExists)
}

func TestGetByEmailNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSearchByUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	seedUser(t, repo, "alice@example.com", "alice")
	seedUser(t, repo, "alicia@example.com", "alicia")
	seedUser(t, repo, "bob@example.com", "bob")

	results, err := repo.SearchByUsername(ctx, "ali", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alice", results[0].Username)
	assert.Equal(t, "alicia", results[1].Username)

	// Wildcards in the query are treated literally.
	results, err = repo.SearchByUsername(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpdateAvatar(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, repo, "alice@example.com", "alice")

	require.NoError(t, repo.UpdateAvatar(ctx, user.ID, "avatars/x.png"))
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "avatars/x.png", got.AvatarKey)

	require.NoError(t, repo.UpdateAvatar(ctx, user.ID, ""))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AvatarKey)

	require.ErrorIs(t, repo.UpdateAvatar(ctx, "missing", "k"), ErrUserNotFound)
}
