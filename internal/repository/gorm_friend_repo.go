package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Grekus14/MeChat/internal/domain"
)

// GormFriendRepository implements FriendRepository using GORM.
type GormFriendRepository struct {
	db *gorm.DB
}

// NewGormFriendRepository creates a new GORM-backed friend repository.
func NewGormFriendRepository(db *gorm.DB) *GormFriendRepository {
	return &GormFriendRepository{db: db}
}

// pairCondition matches the edge between two users in either orientation.
func pairCondition(tx *gorm.DB, userA, userB string) *gorm.DB {
	return tx.Where(
		"(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
		userA, userB, userB, userA,
	)
}

// CreateRequest creates a pending friend request from requesterID to
// addresseeID. If a soft-deleted edge exists for the pair (a previous
// unfriend), it is restored as a fresh pending request in the new
// orientation rather than inserting a duplicate row.
func (r *GormFriendRepository) CreateRequest(ctx context.Context, requesterID, addresseeID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A live edge in either orientation blocks a new request.
		var count int64
		if err := pairCondition(tx.Model(&domain.FriendshipModel{}), requesterID, addresseeID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrFriendshipExists
		}

		// Restore any soft-deleted edge for the pair.
		result := tx.Unscoped().
			Model(&domain.FriendshipModel{}).
			Where(
				"((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)) AND deleted_at IS NOT NULL",
				requesterID, addresseeID, addresseeID, requesterID,
			).
			Updates(map[string]interface{}{
				"deleted_at":   nil,
				"requester_id": requesterID,
				"addressee_id": addresseeID,
				"status":       domain.FriendStatusPending,
				"room_id":      "",
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		model := domain.FriendshipModel{
			RequesterID: requesterID,
			AddresseeID: addresseeID,
			Status:      domain.FriendStatusPending,
		}
		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrFriendshipExists
			}
			return err
		}
		return nil
	})
}

// GetPair returns the edge between two users in either orientation.
func (r *GormFriendRepository) GetPair(ctx context.Context, userA, userB string) (*domain.Friendship, error) {
	var model domain.FriendshipModel
	result := pairCondition(r.db.WithContext(ctx), userA, userB).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFriendshipNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Accept marks the pending request from requesterID to addresseeID as
// accepted and assigns roomID to the edge. Only the addressee side of a
// pending edge can be accepted; anything else is ErrRequestNotPending.
func (r *GormFriendRepository) Accept(ctx context.Context, requesterID, addresseeID, roomID string) error {
	result := r.db.WithContext(ctx).Model(&domain.FriendshipModel{}).
		Where("requester_id = ? AND addressee_id = ? AND status = ?",
			requesterID, addresseeID, domain.FriendStatusPending).
		Updates(map[string]interface{}{
			"status":  domain.FriendStatusAccepted,
			"room_id": roomID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing edge from a non-pending one.
		var count int64
		if err := pairCondition(r.db.WithContext(ctx).Model(&domain.FriendshipModel{}), requesterID, addresseeID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrFriendshipNotFound
		}
		return ErrRequestNotPending
	}
	return nil
}

// Remove deletes the edge between the two users and returns the room id it
// carried (empty for a pending edge).
func (r *GormFriendRepository) Remove(ctx context.Context, userA, userB string) (string, error) {
	var roomID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.FriendshipModel
		if err := pairCondition(tx, userA, userB).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFriendshipNotFound
			}
			return err
		}
		roomID = model.RoomID

		return tx.Delete(&domain.FriendshipModel{}, "id = ?", model.ID).Error
	})
	if err != nil {
		return "", err
	}
	return roomID, nil
}

// ListFriends returns the accepted edges that include userID.
func (r *GormFriendRepository) ListFriends(ctx context.Context, userID string) ([]domain.Friendship, error) {
	var models []domain.FriendshipModel
	result := r.db.WithContext(ctx).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
			userID, userID, domain.FriendStatusAccepted).
		Order("updated_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	friends := make([]domain.Friendship, 0, len(models))
	for i := range models {
		friends = append(friends, *models[i].ToDomain())
	}
	return friends, nil
}

// ListIncomingRequests returns pending edges addressed to userID.
func (r *GormFriendRepository) ListIncomingRequests(ctx context.Context, userID string) ([]domain.Friendship, error) {
	var models []domain.FriendshipModel
	result := r.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", userID, domain.FriendStatusPending).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	requests := make([]domain.Friendship, 0, len(models))
	for i := range models {
		requests = append(requests, *models[i].ToDomain())
	}
	return requests, nil
}

// IsRoomMember reports whether userID is an endpoint of the accepted edge
// that owns roomID.
func (r *GormFriendRepository) IsRoomMember(ctx context.Context, userID, roomID string) (bool, error) {
	if roomID == "" {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FriendshipModel{}).
		Where("room_id = ? AND status = ? AND (requester_id = ? OR addressee_id = ?)",
			roomID, domain.FriendStatusAccepted, userID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ FriendRepository = (*GormFriendRepository)(nil)
