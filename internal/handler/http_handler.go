package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Grekus14/MeChat/internal/domain"
	"github.com/Grekus14/MeChat/internal/middleware"
	"github.com/Grekus14/MeChat/internal/repository"
	"github.com/Grekus14/MeChat/internal/response"
	"github.com/Grekus14/MeChat/internal/service"
	"github.com/Grekus14/MeChat/internal/token"
)

// HTTPHandler serves the REST API.
type HTTPHandler struct {
	users   service.UserService
	friends service.FriendService
	history service.HistoryService
	tokens  *token.Manager
}

func NewHTTPHandler(
	users service.UserService,
	friends service.FriendService,
	history service.HistoryService,
	tokens *token.Manager,
) *HTTPHandler {
	return &HTTPHandler{
		users:   users,
		friends: friends,
		history: history,
		tokens:  tokens,
	}
}

// RegisterRoutes mounts all REST routes on the engine.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/refresh", h.refresh)
		auth.POST("/logout", middleware.RequireAuth(h.tokens), h.logout)
	}

	users := v1.Group("/users", middleware.RequireAuth(h.tokens))
	{
		users.GET("/me", h.me)
		users.PUT("/me", h.updateMe)
		users.PUT("/me/password", h.changePassword)
		users.GET("/search", h.searchUsers)
		users.GET("/:user_id", h.publicProfile)
		users.POST("/me/avatar/presign", h.presignAvatar)
		users.POST("/me/avatar/confirm", h.confirmAvatar)
		users.POST("/me/avatar", h.uploadAvatar)
		users.DELETE("/me/avatar", h.deleteAvatar)
	}

	friends := v1.Group("/friends", middleware.RequireAuth(h.tokens))
	{
		friends.GET("", h.listFriends)
		friends.POST("/requests", h.sendFriendRequest)
		friends.GET("/requests", h.listFriendRequests)
		friends.POST("/requests/:user_id/accept", h.acceptFriendRequest)
		friends.DELETE("/:user_id", h.unfriend)
	}

	rooms := v1.Group("/rooms", middleware.RequireAuth(h.tokens))
	{
		rooms.GET("/:room_id/messages", h.roomHistory)
	}
}

func (h *HTTPHandler) register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, resp)
}

func (h *HTTPHandler) login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) refresh(c *gin.Context) {
	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) logout(c *gin.Context) {
	h.users.Logout(c.Request.Context(), middleware.GetUserID(c))
	response.Success(c, gin.H{"message": "logged out"})
}

func (h *HTTPHandler) me(c *gin.Context) {
	resp, err := h.users.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) publicProfile(c *gin.Context) {
	resp, err := h.users.GetPublicProfile(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) updateMe(c *gin.Context) {
	var req domain.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) changePassword(c *gin.Context) {
	var req domain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}

func (h *HTTPHandler) searchUsers(c *gin.Context) {
	query := c.Query("q")
	results, err := h.users.SearchUsers(c.Request.Context(), middleware.GetUserID(c), query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, results)
}

func (h *HTTPHandler) presignAvatar(c *gin.Context) {
	var req domain.AvatarPresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.PresignAvatarUpload(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) confirmAvatar(c *gin.Context) {
	var req domain.ConfirmAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.users.ConfirmAvatar(c.Request.Context(), middleware.GetUserID(c), req.Key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// uploadAvatar accepts a multipart "avatar" file and stores it through the
// server. This is the upload path for the local storage backend.
func (h *HTTPHandler) uploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		response.BadRequest(c, "avatar file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	resp, err := h.users.UploadAvatar(c.Request.Context(), middleware.GetUserID(c), src, file.Size, contentType)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) deleteAvatar(c *gin.Context) {
	if err := h.users.DeleteAvatar(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "avatar removed"})
}

func (h *HTTPHandler) listFriends(c *gin.Context) {
	list, err := h.friends.ListFriends(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, list)
}

type friendRequestBody struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *HTTPHandler) sendFriendRequest(c *gin.Context) {
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.friends.SendRequest(c.Request.Context(), middleware.GetUserID(c), req.UserID); err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, gin.H{"message": "friend request sent"})
}

func (h *HTTPHandler) listFriendRequests(c *gin.Context) {
	list, err := h.friends.ListIncomingRequests(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, list)
}

func (h *HTTPHandler) acceptFriendRequest(c *gin.Context) {
	requesterID := c.Param("user_id")
	resp, err := h.friends.AcceptRequest(c.Request.Context(), middleware.GetUserID(c), requesterID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, resp)
}

func (h *HTTPHandler) unfriend(c *gin.Context) {
	otherID := c.Param("user_id")
	if err := h.friends.Unfriend(c.Request.Context(), middleware.GetUserID(c), otherID); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "unfriended"})
}

func (h *HTTPHandler) roomHistory(c *gin.Context) {
	roomID := c.Param("room_id")
	history, err := h.history.GetRoomHistory(c.Request.Context(), middleware.GetUserID(c), roomID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, history)
}

// writeError maps service and repository errors to HTTP responses.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, "invalid credentials")
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrExpiredToken),
		errors.Is(err, token.ErrRevokedToken):
		response.Unauthorized(c, "invalid or expired token")
	case errors.Is(err, service.ErrNotRoomMember):
		response.Forbidden(c, "you are not a member of this room")
	case errors.Is(err, service.ErrSelfFriendRequest):
		response.BadRequest(c, "cannot befriend yourself")
	case errors.Is(err, service.ErrUploadNotFound):
		response.BadRequest(c, "uploaded object not found")
	case errors.Is(err, service.ErrUnsupportedUpload):
		response.BadRequest(c, "direct upload required for this storage backend")
	case errors.Is(err, repository.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, repository.ErrFriendshipNotFound):
		response.NotFound(c, "friendship not found")
	case errors.Is(err, repository.ErrEmailExists):
		response.Conflict(c, "email already in use")
	case errors.Is(err, repository.ErrUsernameExists):
		response.Conflict(c, "username already in use")
	case errors.Is(err, repository.ErrFriendshipExists):
		response.Conflict(c, "friend request already exists")
	case errors.Is(err, repository.ErrRequestNotPending):
		response.Conflict(c, "friend request is not pending")
	default:
		response.InternalError(c, "internal server error")
	}
}
