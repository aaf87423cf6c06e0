package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Grekus14/MeChat/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named in-memory database keeps each test isolated while letting the
	// connection pool share one instance.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.UserModel{},
		&domain.FriendshipModel{},
		&domain.MessageModel{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestFriendRequestLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))

	// Duplicate in either orientation is rejected.
	require.ErrorIs(t, repo.CreateRequest(ctx, "alice", "bob"), ErrFriendshipExists)
	require.ErrorIs(t, repo.CreateRequest(ctx, "bob", "alice"), ErrFriendshipExists)

	incoming, err := repo.ListIncomingRequests(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].RequesterID)

	// Nothing incoming for the requester.
	incoming, err = repo.ListIncomingRequests(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, incoming)

	require.NoError(t, repo.Accept(ctx, "alice", "bob", "room-1"))

	pair, err := repo.GetPair(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.FriendStatusAccepted, pair.Status)
	assert.Equal(t, "room-1", pair.RoomID)

	// Accepting twice fails: the edge is no longer pending.
	require.ErrorIs(t, repo.Accept(ctx, "alice", "bob", "room-2"), ErrRequestNotPending)
}

func TestAcceptUnknownPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRepository(db)

	err := repo.Accept(context.Background(), "alice", "bob", "room-1")
	require.ErrorIs(t, err, ErrFriendshipNotFound)
}

func TestRemoveReturnsRoomID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))
	require.NoError(t, repo.Accept(ctx, "alice", "bob", "room-1"))

	// Either endpoint can remove the edge.
	roomID, err := repo.Remove(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)

	_, err = repo.GetPair(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrFriendshipNotFound)

	_, err = repo.Remove(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrFriendshipNotFound)
}

func TestRemovePendingEdgeHasNoRoom(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))

	roomID, err := repo.Remove(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, roomID)
}

func TestRequestAfterUnfriendRestoresEdge(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))
	require.NoError(t, repo.Accept(ctx, "alice", "bob", "room-1"))
	_, err := repo.Remove(ctx, "alice", "bob")
	require.NoError(t, err)

	// Re-request in the opposite orientation reuses the pair's row.
	require.NoError(t, repo.CreateRequest(ctx, "bob", "alice"))

	pair, err := repo.GetPair(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", pair.RequesterID)
	assert.Equal(t, "alice", pair.AddresseeID)
	assert.Equal(t, domain.FriendStatusPending, pair.Status)
	assert.Empty(t, pair.RoomID)

	var count int64
	require.NoError(t, db.Unscoped().Model(&domain.FriendshipModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListFriendsOnlyAccepted(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))
	require.NoError(t, repo.Accept(ctx, "alice", "bob", "room-1"))
	require.NoError(t, repo.CreateRequest(ctx, "carol", "alice"))

	friends, err := repo.ListFriends(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "room-1", friends[0].RoomID)
	assert.Equal(t, "bob", friends[0].Other("alice"))
}

func TestIsRoomMember(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFriendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateRequest(ctx, "alice", "bob"))
	require.NoError(t, repo.Accept(ctx, "alice", "bob", "room-1"))

	for _, user := range []string{"alice", "bob"} {
		member, err := repo.IsRoomMember(ctx, user, "room-1")
		require.NoError(t, err)
		assert.True(t, member, user)
	}

	member, err := repo.IsRoomMember(ctx, "carol", "room-1")
	require.NoError(t, err)
	assert.False(t, member)

	member, err = repo.IsRoomMember(ctx, "alice", "")
	require.NoError(t, err)
	assert.False(t, member)
}
