package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Grekus14/MeChat/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// UserCache is a read-through cache for user profiles.
type UserCache interface {
	BuildKeyByID(userID string) string
	Get(ctx context.Context, key string) (*domain.User, error)
	Set(ctx context.Context, key string, user *domain.User, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
