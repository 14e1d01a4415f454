package handlers

import (
	"friendchat/config"
	"friendchat/middleware"
	"friendchat/models"
	"friendchat/store"
	"friendchat/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RegisterRequest takes the display name as fullName; username is accepted
// as an alias.
type RegisterRequest struct {
	FullName     string `json:"fullName"`
	Username     string `json:"username"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	ProfileImage string `json:"profileImage"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

type AuthHandler struct {
	users    *store.UserStore
	security config.SecurityConfig
	log      *zap.Logger
}

func NewAuthHandler(users *store.UserStore, security config.SecurityConfig, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, security: security, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	username := req.FullName
	if username == "" {
		username = req.Username
	}

	user, err := h.users.Register(c.Request.Context(), username, req.Email, req.Password, req.ProfileImage)
	if err != nil {
		fail(c, h.log, "register", err, zap.String("email", req.Email))
		return
	}

	utils.Created(c, gin.H{
		"message": "user registered successfully",
		"user":    user.ToResponse(),
	})
}

// Login answers 400 for both an unknown email and a wrong password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidCredential) {
		utils.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		fail(c, h.log, "login", err, zap.String("email", req.Email))
		return
	}

	token, err := utils.GenerateToken(user.ID, h.security.JWTSecret, h.security.JWTTTL)
	if err != nil {
		fail(c, h.log, "login: sign token", err, zap.Int64("user_id", user.ID))
		return
	}

	utils.Success(c, AuthResponse{
		Token: token,
		User:  *user.ToResponse(),
	})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if _, err := h.users.Get(c.Request.Context(), userID); err != nil {
		fail(c, h.log, "refresh token", err, zap.Int64("user_id", userID))
		return
	}

	token, err := utils.GenerateToken(userID, h.security.JWTSecret, h.security.JWTTTL)
	if err != nil {
		fail(c, h.log, "refresh token: sign", err, zap.Int64("user_id", userID))
		return
	}

	utils.Success(c, gin.H{"token": token})
}
