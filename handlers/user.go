package handlers

import (
	"friendchat/middleware"
	"friendchat/store"
	"friendchat/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpdateUserRequest fields are optional; empty values keep what is stored.
type UpdateUserRequest struct {
	FullName        string `json:"fullName"`
	Username        string `json:"username"`
	Email           string `json:"email" binding:"omitempty,email"`
	ProfileImage    string `json:"profileImage"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UserHandler struct {
	users *store.UserStore
	log   *zap.Logger
}

func NewUserHandler(users *store.UserStore, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		fail(c, h.log, "get user", err, zap.Int64("user_id", userID))
		return
	}

	utils.Success(c, user.ToResponse())
}

func (h *UserHandler) UpdateCurrentUser(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	username := req.FullName
	if username == "" {
		username = req.Username
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, store.ProfileUpdate{
		Username:        username,
		Email:           req.Email,
		ProfileImage:    req.ProfileImage,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		fail(c, h.log, "update user", err, zap.Int64("user_id", userID))
		return
	}

	utils.Success(c, user.ToResponse())
}
