package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Grekus14/MeChat/internal/audit"
	"github.com/Grekus14/MeChat/internal/cache"
	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/log"
	"github.com/Grekus14/MeChat/internal/repository"
	"github.com/Grekus14/MeChat/internal/storage"
	"github.com/Grekus14/MeChat/internal/token"
)

// Allowed avatar content types and their object key extensions.
var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// UserConfig carries the tunables the user service needs.
type UserConfig struct {
	CacheTTL        time.Duration
	AvatarPrefix    string
	PresignExpiry   time.Duration
	AvatarURLExpiry time.Duration
}

type userService struct {
	users  repository.UserRepository
	cache  cache.UserCache
	tokens *token.Manager
	store  storage.Storage
	cfg    UserConfig
}

func NewUserService(
	users repository.UserRepository,
	userCache cache.UserCache,
	tokens *token.Manager,
	store storage.Storage,
	cfg UserConfig,
) UserService {
	return &userService{
		users:  users,
		cache:  userCache,
		tokens: tokens,
		store:  store,
		cfg:    cfg,
	}
}

func (s *userService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
		Roles:        []string{"user"},
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")
	return s.buildAuthResponse(ctx, user)
}

func (s *userService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			// Same error for unknown email and wrong password.
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.Log(ctx, audit.ActionLoginFailed, user.ID, "login failed")
		return nil, ErrInvalidCredentials
	}

	s.tokens.UnrevokeUserTokens(user.ID)
	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return s.buildAuthResponse(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, newRefresh, accessExp, _, err := s.tokens.RefreshTokens(refreshToken)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionRefreshToken, user.ID, "tokens refreshed")

	resp := user.ToResponse()
	resp.AvatarURL = s.avatarURL(ctx, user.AvatarKey)
	return &domain.AuthResponse{
		User:         resp,
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExp,
	}, nil
}

func (s *userService) Logout(ctx context.Context, userID string) {
	s.tokens.RevokeUserTokens(userID)
	s.invalidateCache(ctx, userID)
	audit.Log(ctx, audit.ActionLogout, userID, "user logged out")
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.UserResponse, error) {
	user, err := s.getUserCached(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := user.ToResponse()
	resp.AvatarURL = s.avatarURL(ctx, user.AvatarKey)
	return &resp, nil
}

func (s *userService) GetPublicProfile(ctx context.Context, userID string) (*domain.UserResponse, error) {
	user, err := s.getUserCached(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := user.ToPublicResponse()
	resp.AvatarURL = s.avatarURL(ctx, user.AvatarKey)
	return &resp, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateUserRequest) (*domain.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, userID)
	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")

	resp := user.ToResponse()
	resp.AvatarURL = s.avatarURL(ctx, user.AvatarKey)
	return &resp, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	// All outstanding tokens die with the old password.
	s.tokens.RevokeUserTokens(userID)
	audit.Log(ctx, audit.ActionChangePassword, userID, "password changed")
	return nil
}

func (s *userService) SearchUsers(ctx context.Context, requesterID, query string) ([]domain.UserResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.UserResponse{}, nil
	}

	users, err := s.users.SearchByUsername(ctx, query, 20)
	if err != nil {
		return nil, err
	}

	results := make([]domain.UserResponse, 0, len(users))
	for i := range users {
		if users[i].ID == requesterID {
			continue
		}
		resp := users[i].ToPublicResponse()
		resp.AvatarURL = s.avatarURL(ctx, users[i].AvatarKey)
		results = append(results, resp)
	}
	return results, nil
}

func (s *userService) PresignAvatarUpload(ctx context.Context, userID string, req *domain.AvatarPresignRequest) (*domain.AvatarPresignResponse, error) {
	ext, ok := avatarExtensions[req.ContentType]
	if !ok {
		return nil, fmt.Errorf("unsupported avatar content type %q", req.ContentType)
	}

	key := fmt.Sprintf("%s/%s/%s%s", s.cfg.AvatarPrefix, userID, uuid.New().String(), ext)

	url, err := s.store.GetUploadURL(ctx, key, req.ContentType, s.cfg.PresignExpiry)
	if err != nil {
		return nil, ErrUnsupportedUpload
	}

	return &domain.AvatarPresignResponse{
		UploadURL: url,
		Key:       key,
		ExpiresIn: int(s.cfg.PresignExpiry.Seconds()),
	}, nil
}

func (s *userService) ConfirmAvatar(ctx context.Context, userID, key string) (*domain.UserResponse, error) {
	// The key must belong to this user's avatar namespace.
	if !strings.HasPrefix(key, fmt.Sprintf("%s/%s/", s.cfg.AvatarPrefix, userID)) {
		return nil, fmt.Errorf("avatar key does not belong to user")
	}

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUploadNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	oldKey := user.AvatarKey

	if err := s.users.UpdateAvatar(ctx, userID, key); err != nil {
		return nil, err
	}
	user.AvatarKey = key

	if oldKey != "" && oldKey != key {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			log.Ctx(ctx).Warn().Str(log.FieldUserID, userID).Err(err).Msg("failed to delete previous avatar")
		}
	}

	s.invalidateCache(ctx, userID)
	audit.Log(ctx, audit.ActionUpdateAvatar, userID, "avatar updated")

	resp := user.ToResponse()
	resp.AvatarURL = s.avatarURL(ctx, key)
	return &resp, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (*domain.UserResponse, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported avatar content type %q", contentType)
	}

	key := fmt.Sprintf("%s/%s/%s%s", s.cfg.AvatarPrefix, userID, uuid.New().String(), ext)
	if err := s.store.Write(ctx, key, r, size, contentType); err != nil {
		return nil, err
	}

	return s.ConfirmAvatar(ctx, userID, key)
}

func (s *userService) DeleteAvatar(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.AvatarKey == "" {
		return nil
	}

	if err := s.users.UpdateAvatar(ctx, userID, ""); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, user.AvatarKey); err != nil {
		log.Ctx(ctx).Warn().Str(log.FieldUserID, userID).Err(err).Msg("failed to delete avatar object")
	}

	s.invalidateCache(ctx, userID)
	audit.Log(ctx, audit.ActionDeleteAvatar, userID, "avatar removed")
	return nil
}

// getUserCached reads through the profile cache.
func (s *userService) getUserCached(ctx context.Context, userID string) (*domain.User, error) {
	if s.cache != nil {
		key := s.cache.BuildKeyByID(userID)
		if user, err := s.cache.Get(ctx, key); err == nil {
			return user, nil
		} else if err != cache.ErrCacheMiss {
			log.Ctx(ctx).Warn().Err(err).Msg("profile cache read failed")
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		key := s.cache.BuildKeyByID(userID)
		if err := s.cache.Set(ctx, key, user, s.cfg.CacheTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("profile cache write failed")
		}
	}
	return user, nil
}

func (s *userService) invalidateCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cache.BuildKeyByID(userID)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("profile cache invalidation failed")
	}
}

func (s *userService) avatarURL(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := s.store.GetURL(ctx, key, s.cfg.AvatarURLExpiry)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to resolve avatar url")
		return ""
	}
	return url
}

func (s *userService) buildAuthResponse(ctx context.Context, user *domain.User) (*domain.AuthResponse, error) {
	accessToken, refreshToken, accessExp, _, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	resp := user.ToResponse()
	resp.AvatarURL = s.avatarURL(ctx, user.AvatarKey)
	return &domain.AuthResponse{
		User:         resp,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
	}, nil
}
