package service

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/repository"
)

// historyService implements HistoryService. Concurrent reads of the same
// room collapse into one repository query via singleflight.
type historyService struct {
	friends  repository.FriendRepository
	messages repository.MessageRepository
	group    singleflight.Group
}

func NewHistoryService(friends repository.FriendRepository, messages repository.MessageRepository) HistoryService {
	return &historyService{
		friends:  friends,
		messages: messages,
	}
}

func (s *historyService) GetRoomHistory(ctx context.Context, userID, roomID string) (*domain.RoomHistoryResponse, error) {
	member, err := s.friends.IsRoomMember(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		log.Ctx(ctx).Warn().
			Str(log.FieldUserID, userID).
			Str(log.FieldRoomID, roomID).
			Msg("history read rejected for non-member")
		return nil, ErrNotRoomMember
	}

	v, err, _ := s.group.Do(roomID, func() (interface{}, error) {
		return s.messages.ListByRoom(ctx, roomID)
	})
	if err != nil {
		return nil, err
	}

	return &domain.RoomHistoryResponse{
		RoomID:   roomID,
		Messages: v.([]domain.ChatMessage),
	}, nil
}
