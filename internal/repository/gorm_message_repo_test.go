package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grekus14/MeChat/internal/domain"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)

	msg := &domain.ChatMessage{
		RoomID:     "room-1",
		AuthorID:   "alice",
		AuthorName: "alice",
		Body:       "hello",
	}
	require.NoError(t, repo.Append(context.Background(), msg))

	assert.NotEmpty(t, msg.MessageID)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestListByRoomOldestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		msg := &domain.ChatMessage{
			RoomID:     "room-1",
			AuthorID:   "alice",
			AuthorName: "alice",
			Body:       fmt.Sprintf("message %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Append(ctx, msg))
	}
	// Message in another room must not appear.
	require.NoError(t, repo.Append(ctx, &domain.ChatMessage{
		RoomID: "room-2", AuthorID: "bob", AuthorName: "bob", Body: "elsewhere",
	}))

	messages, err := repo.ListByRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, messages, 5)
	for i, m := range messages {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Body)
	}

	// Reads do not mutate the log.
	again, err := repo.ListByRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, messages, again)
}

func TestListByRoomEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)

	messages, err := repo.ListByRoom(context.Background(), "no-such-room")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDeleteByRoomRemovesOnlyThatRoom(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormMessageRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, &domain.ChatMessage{
		RoomID: "room-1", AuthorID: "alice", AuthorName: "alice", Body: "one",
	}))
	require.NoError(t, repo.Append(ctx, &domain.ChatMessage{
		RoomID: "room-2", AuthorID: "bob", AuthorName: "bob", Body: "two",
	}))

	require.NoError(t, repo.DeleteByRoom(ctx, "room-1"))

	gone, err := repo.ListByRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := repo.ListByRoom(ctx, "room-2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
