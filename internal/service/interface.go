package service

import (
	"context"
	"errors"
	"io"

	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/hub"
	"github.com/Grekus14/MeChat/internal/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSelfFriendRequest  = errors.New("cannot send a friend request to yourself")
	ErrNotRoomMember      = errors.New("user is not a member of this room")
	ErrUploadNotFound     = errors.New("uploaded object not found")
	ErrUnsupportedUpload  = errors.New("upload not supported by storage backend")
)

// UserService covers account lifecycle and profile operations.
type UserService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error)
	Logout(ctx context.Context, userID string)
	GetProfile(ctx context.Context, userID string) (*domain.UserResponse, error)
	// GetPublicProfile returns another user's profile without private fields.
	GetPublicProfile(ctx context.Context, userID string) (*domain.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateUserRequest) (*domain.UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) error
	SearchUsers(ctx context.Context, requesterID, query string) ([]domain.UserResponse, error)
	PresignAvatarUpload(ctx context.Context, userID string, req *domain.AvatarPresignRequest) (*domain.AvatarPresignResponse, error)
	ConfirmAvatar(ctx context.Context, userID, key string) (*domain.UserResponse, error)
	// UploadAvatar stores avatar content directly through the server. Used
	// with the local storage backend, which cannot presign uploads.
	UploadAvatar(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (*domain.UserResponse, error)
	DeleteAvatar(ctx context.Context, userID string) error
}

// FriendService manages the friend graph. Accepting a request creates the
// pair's private room; unfriending destroys it along with its history.
type FriendService interface {
	SendRequest(ctx context.Context, requesterID, addresseeID string) error
	AcceptRequest(ctx context.Context, addresseeID, requesterID string) (*domain.FriendResponse, error)
	Unfriend(ctx context.Context, userID, otherID string) error
	ListFriends(ctx context.Context, userID string) ([]domain.FriendResponse, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]domain.FriendRequestResponse, error)
}

// ChatService handles the WebSocket event channel. Every handler replies to
// the originating client on error; successful sends are broadcast to the
// room excluding the sender.
type ChatService interface {
	HandleAuth(ctx context.Context, client *hub.Client, token string)
	HandleJoin(ctx context.Context, client *hub.Client, roomID string)
	HandleSendMessage(ctx context.Context, client *hub.Client, text string)
	HandleLeave(ctx context.Context, client *hub.Client)
	HandleDisconnect(ctx context.Context, client *hub.Client)
}

// HistoryService serves room message history to authorized members.
type HistoryService interface {
	GetRoomHistory(ctx context.Context, userID, roomID string) (*domain.RoomHistoryResponse, error)
}

// roomBroadcaster is the slice of the hub the chat service needs.
type roomBroadcaster interface {
	JoinRoom(client *hub.Client, roomID string)
	LeaveRoom(client *hub.Client, roomID string)
	Broadcast(roomID string, message interface{}, exclude string) error
}

// tokenValidator is the slice of the token manager the chat service needs.
type tokenValidator interface {
	ValidateToken(tokenString string) (*token.Claims, error)
}
