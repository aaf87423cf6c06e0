package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Grekus14/MeChat/internal/audit"
	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/repository"
	"github.com/Grekus14/MeChat/internal/storage"
)

type friendService struct {
	friends         repository.FriendRepository
	users           repository.UserRepository
	messages        repository.MessageRepository
	store           storage.Storage
	avatarURLExpiry time.Duration
}

func NewFriendService(
	friends repository.FriendRepository,
	users repository.UserRepository,
	messages repository.MessageRepository,
	store storage.Storage,
	avatarURLExpiry time.Duration,
) FriendService {
	return &friendService{
		friends:         friends,
		users:           users,
		messages:        messages,
		store:           store,
		avatarURLExpiry: avatarURLExpiry,
	}
}

func (s *friendService) SendRequest(ctx context.Context, requesterID, addresseeID string) error {
	if requesterID == addresseeID {
		return ErrSelfFriendRequest
	}

	// The addressee must exist; the unique pair index handles duplicates.
	if _, err := s.users.GetByID(ctx, addresseeID); err != nil {
		return err
	}

	if err := s.friends.CreateRequest(ctx, requesterID, addresseeID); err != nil {
		return err
	}

	audit.LogWithTarget(ctx, audit.ActionFriendRequest, requesterID, addresseeID, "friend request sent")
	return nil
}

// AcceptRequest accepts the pending request from requesterID and creates
// the pair's private room. The room id is minted here and never changes
// for the lifetime of the friendship.
func (s *friendService) AcceptRequest(ctx context.Context, addresseeID, requesterID string) (*domain.FriendResponse, error) {
	roomID := uuid.New().String()

	if err := s.friends.Accept(ctx, requesterID, addresseeID, roomID); err != nil {
		return nil, err
	}

	audit.LogWithTarget(ctx, audit.ActionFriendAccept, addresseeID, requesterID, "friend request accepted")

	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	resp := requester.ToPublicResponse()
	resp.AvatarURL = s.avatarURL(ctx, requester.AvatarKey)
	return &domain.FriendResponse{
		User:   resp,
		RoomID: roomID,
		Since:  time.Now().UTC(),
	}, nil
}

// Unfriend removes the edge in either direction and destroys the pair's
// room, including its full message history.
func (s *friendService) Unfriend(ctx context.Context, userID, otherID string) error {
	roomID, err := s.friends.Remove(ctx, userID, otherID)
	if err != nil {
		return err
	}

	if roomID != "" {
		if err := s.messages.DeleteByRoom(ctx, roomID); err != nil {
			log.Ctx(ctx).Error().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to delete room history")
			return err
		}
	}

	audit.LogWithTarget(ctx, audit.ActionUnfriend, userID, otherID, "unfriended")
	return nil
}

func (s *friendService) ListFriends(ctx context.Context, userID string) ([]domain.FriendResponse, error) {
	edges, err := s.friends.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(edges))
	for i := range edges {
		ids = append(ids, edges[i].Other(userID))
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	results := make([]domain.FriendResponse, 0, len(edges))
	for i := range edges {
		friend, ok := byID[edges[i].Other(userID)]
		if !ok {
			continue
		}
		resp := friend.ToPublicResponse()
		resp.AvatarURL = s.avatarURL(ctx, friend.AvatarKey)
		results = append(results, domain.FriendResponse{
			User:   resp,
			RoomID: edges[i].RoomID,
			Since:  edges[i].UpdatedAt,
		})
	}
	return results, nil
}

func (s *friendService) ListIncomingRequests(ctx context.Context, userID string) ([]domain.FriendRequestResponse, error) {
	edges, err := s.friends.ListIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(edges))
	for i := range edges {
		ids = append(ids, edges[i].RequesterID)
	}

	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	results := make([]domain.FriendRequestResponse, 0, len(edges))
	for i := range edges {
		requester, ok := byID[edges[i].RequesterID]
		if !ok {
			continue
		}
		resp := requester.ToPublicResponse()
		resp.AvatarURL = s.avatarURL(ctx, requester.AvatarKey)
		results = append(results, domain.FriendRequestResponse{
			User:        resp,
			RequestedAt: edges[i].CreatedAt,
		})
	}
	return results, nil
}

func (s *friendService) avatarURL(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := s.store.GetURL(ctx, key, s.avatarURLExpiry)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to resolve avatar url")
		return ""
	}
	return url
}
