package service

import (
	"context"
	"errors"
	"time"

	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/hub"
	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/policy"
	"github.com/Grekus14/MeChat/internal/repository"
)

// chatService implements ChatService. Message flow is persist first, then
// broadcast: a message that fails to persist is never delivered.
type chatService struct {
	hub       roomBroadcaster
	tokens    tokenValidator
	friends   repository.FriendRepository
	messages  repository.MessageRepository
	validator policy.MessageValidator
}

func NewChatService(
	h roomBroadcaster,
	tokens tokenValidator,
	friends repository.FriendRepository,
	messages repository.MessageRepository,
	validator policy.MessageValidator,
) ChatService {
	return &chatService{
		hub:       h,
		tokens:    tokens,
		friends:   friends,
		messages:  messages,
		validator: validator,
	}
}

func (s *chatService) HandleAuth(ctx context.Context, client *hub.Client, tokenString string) {
	l := log.Ctx(ctx)

	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		l.Warn().Str(log.FieldClientID, client.ID).Err(err).Msg("websocket auth failed")
		client.SendMessage(&domain.AuthResultMessage{
			Type:    domain.MsgTypeAuthResult,
			Success: false,
			Message: "invalid or expired token",
		})
		return
	}
	// Refresh tokens carry no username and must not open a session.
	if claims.Type != "access" {
		l.Warn().Str(log.FieldClientID, client.ID).Msg("websocket auth rejected non-access token")
		client.SendMessage(&domain.AuthResultMessage{
			Type:    domain.MsgTypeAuthResult,
			Success: false,
			Message: "access token required",
		})
		return
	}

	client.Session.Authenticate(claims.UserID, claims.Username)
	l.Info().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldUserID, claims.UserID).
		Msg("websocket authenticated")

	client.SendMessage(&domain.AuthResultMessage{
		Type:     domain.MsgTypeAuthResult,
		Success:  true,
		UserID:   claims.UserID,
		Username: claims.Username,
	})
}

func (s *chatService) HandleJoin(ctx context.Context, client *hub.Client, roomID string) {
	l := log.Ctx(ctx)

	if !client.Session.IsAuthenticated() {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnauthorized, "authenticate before joining a room"))
		return
	}
	if roomID == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "room_id is required"))
		return
	}

	userID := client.Session.GetUserID()
	member, err := s.friends.IsRoomMember(ctx, userID, roomID)
	if err != nil {
		l.Error().Str(log.FieldRoomID, roomID).Err(err).Msg("room membership check failed")
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "failed to join room"))
		return
	}
	if !member {
		l.Warn().
			Str(log.FieldUserID, userID).
			Str(log.FieldRoomID, roomID).
			Msg("join rejected for non-member")
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotAMember, "you are not a member of this room"))
		return
	}

	// A connection is present in at most one room; joining a new room
	// implicitly leaves the previous one.
	if current := client.Session.CurrentRoom(); current != "" && current != roomID {
		s.hub.LeaveRoom(client, current)
	}

	s.hub.JoinRoom(client, roomID)
	client.Session.JoinRoom(roomID)

	client.SendMessage(&domain.RoomJoinedMessage{
		Type:   domain.MsgTypeRoomJoined,
		RoomID: roomID,
	})
}

func (s *chatService) HandleSendMessage(ctx context.Context, client *hub.Client, text string) {
	l := log.Ctx(ctx)

	if !client.Session.IsAuthenticated() {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnauthorized, "authenticate before sending messages"))
		return
	}

	roomID := client.Session.CurrentRoom()
	if roomID == "" {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotInRoom, "join a room before sending messages"))
		return
	}

	if err := s.validator.Validate(text); err != nil {
		var wordErr *policy.WordTooLongError
		switch {
		case errors.Is(err, policy.ErrEmptyMessage):
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeValidation, "message is empty"))
		case errors.As(err, &wordErr):
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeValidation, err.Error()))
		default:
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeValidation, "message rejected"))
		}
		return
	}

	// Author identity comes from the authenticated session, never from the
	// message payload.
	msg := &domain.ChatMessage{
		RoomID:     roomID,
		AuthorID:   client.Session.GetUserID(),
		AuthorName: client.Session.GetUsername(),
		Body:       text,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.messages.Append(ctx, msg); err != nil {
		l.Error().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to persist message")
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "failed to send message"))
		return
	}

	if err := s.hub.Broadcast(roomID, domain.NewMessageOut(msg), client.ID); err != nil {
		l.Error().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to broadcast message")
	}
}

func (s *chatService) HandleLeave(ctx context.Context, client *hub.Client) {
	roomID := client.Session.CurrentRoom()
	if roomID == "" {
		return
	}

	s.hub.LeaveRoom(client, roomID)
	client.Session.LeaveRoom()
}

// HandleDisconnect runs after the connection's read loop exits. The hub has
// already dropped the client's presence; this clears session state and logs
// the implicit leave.
func (s *chatService) HandleDisconnect(ctx context.Context, client *hub.Client) {
	l := log.Ctx(ctx)

	if roomID := client.Session.CurrentRoom(); roomID != "" {
		client.Session.LeaveRoom()
		l.Info().
			Str(log.FieldClientID, client.ID).
			Str(log.FieldRoomID, roomID).
			Msg("client disconnected while in room")
		return
	}

	l.Debug().Str(log.FieldClientID, client.ID).Msg("client disconnected")
}
