package repository

import (
	"context"
	"errors"

	"github.com/Grekus14/MeChat/internal/domain"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")

	ErrFriendshipExists   = errors.New("friendship or request already exists")
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrRequestNotPending  = errors.New("friend request is not pending")
)

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	SearchByUsername(ctx context.Context, query string, limit int) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// UpdateAvatar persists the avatar object key for a user.
	// Pass an empty key to clear the avatar.
	UpdateAvatar(ctx context.Context, userID, key string) error
}

// FriendRepository defines the interface for the friend graph. A friendship
// row is the single source of truth for room membership: an accepted edge
// carries the room id shared by exactly its two endpoints.
type FriendRepository interface {
	CreateRequest(ctx context.Context, requesterID, addresseeID string) error
	GetPair(ctx context.Context, userA, userB string) (*domain.Friendship, error)
	// Accept marks the pending request from requesterID to addresseeID as
	// accepted and assigns roomID to the edge.
	Accept(ctx context.Context, requesterID, addresseeID, roomID string) error
	// Remove deletes the edge between the two users in either orientation
	// and returns the room id it carried (empty if the edge was pending).
	Remove(ctx context.Context, userA, userB string) (string, error)
	ListFriends(ctx context.Context, userID string) ([]domain.Friendship, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]domain.Friendship, error)
	// IsRoomMember reports whether userID is an endpoint of the accepted
	// edge that owns roomID.
	IsRoomMember(ctx context.Context, userID, roomID string) (bool, error)
}

// MessageRepository defines the interface for the per-room message log.
// The log is append-only; rows are removed only via DeleteByRoom when the
// owning room is destroyed.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	// ListByRoom returns the room's full history, oldest first.
	ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error)
	DeleteByRoom(ctx context.Context, roomID string) error
}
