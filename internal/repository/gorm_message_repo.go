package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Grekus14/MeChat/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-backed message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append persists a new message at the tail of the room's log.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	model := domain.MessageModel{
		ID:         msg.MessageID,
		RoomID:     msg.RoomID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}

	msg.CreatedAt = model.CreatedAt
	return nil
}

// ListByRoom returns the room's full history, oldest first. The id
// tie-break keeps the order stable for messages sharing a timestamp.
func (r *GormMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	var models []domain.MessageModel
	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	messages := make([]domain.ChatMessage, 0, len(models))
	for i := range models {
		messages = append(messages, *models[i].ToDomain())
	}
	return messages, nil
}

// DeleteByRoom removes the room's entire log. Called only when the room
// itself is destroyed (unfriending).
func (r *GormMessageRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&domain.MessageModel{}).Error
}

var _ MessageRepository = (*GormMessageRepository)(nil)
