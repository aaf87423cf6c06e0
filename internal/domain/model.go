package domain

import (
	"time"

	"gorm.io/gorm"

	"github.com/Grekus14/MeChat/internal/database"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           string               `gorm:"type:varchar(36);primaryKey"`
	Email        string               `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string               `gorm:"type:varchar(50);uniqueIndex;not null"`
	DisplayName  string               `gorm:"type:varchar(100)"`
	PasswordHash string               `gorm:"type:varchar(255);not null"`
	Roles        database.StringArray `gorm:"type:text"`
	AvatarKey    string               `gorm:"type:varchar(255)"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt       `gorm:"index"`
}

func (UserModel) TableName() string { return "users" }

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		Roles:        []string(m.Roles),
		AvatarKey:    m.AvatarKey,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Roles:        database.StringArray(u.Roles),
		AvatarKey:    u.AvatarKey,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// FriendshipModel is the GORM model for the friendships table. Exactly one
// row exists per user pair; the requester/addressee orientation is fixed at
// request time. RoomID is assigned when the request is accepted and names
// the private chat room shared by the pair.
type FriendshipModel struct {
	ID          uint           `gorm:"primaryKey;autoIncrement"`
	RequesterID string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_friend_pair"`
	AddresseeID string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_friend_pair"`
	Status      string         `gorm:"type:varchar(16);not null;index"`
	RoomID      string         `gorm:"type:varchar(36);index"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (FriendshipModel) TableName() string { return "friendships" }

// ToDomain converts FriendshipModel to domain Friendship.
func (m *FriendshipModel) ToDomain() *Friendship {
	return &Friendship{
		RequesterID: m.RequesterID,
		AddresseeID: m.AddresseeID,
		Status:      m.Status,
		RoomID:      m.RoomID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// MessageModel is the GORM model for the messages table. Rows are append
// only; they are removed only when the owning room is destroyed.
type MessageModel struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	RoomID     string    `gorm:"type:varchar(36);not null;index:idx_messages_room_created,priority:1"`
	AuthorID   string    `gorm:"type:varchar(36);not null"`
	AuthorName string    `gorm:"type:varchar(50);not null"`
	Body       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_messages_room_created,priority:2"`
}

func (MessageModel) TableName() string { return "messages" }

// ToDomain converts MessageModel to domain ChatMessage.
func (m *MessageModel) ToDomain() *ChatMessage {
	return &ChatMessage{
		MessageID:  m.ID,
		RoomID:     m.RoomID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
	}
}
