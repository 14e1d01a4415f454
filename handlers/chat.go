package handlers

import (
	"friendchat/middleware"
	"friendchat/store"
	"friendchat/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type MarkDeliveredRequest struct {
	SenderID int64 `json:"senderId" binding:"required,gt=0"`
}

type ChatHandler struct {
	messages *store.MessageStore
	log      *zap.Logger
}

func NewChatHandler(messages *store.MessageStore, log *zap.Logger) *ChatHandler {
	return &ChatHandler{messages: messages, log: log}
}

// GetLastMessage answers 200 with a message payload when the pair has not
// talked yet.
func (h *ChatHandler) GetLastMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	friendID, ok := parseID(c.Query("friendId"))
	if !ok {
		utils.BadRequest(c, "friendId is required")
		return
	}

	msg, err := h.messages.Last(c.Request.Context(), userID, friendID)
	if errors.Is(err, store.ErrNotFound) {
		utils.Success(c, gin.H{"message": "no messages between these users"})
		return
	}
	if err != nil {
		fail(c, h.log, "last message", err, zap.Int64("user_id", userID), zap.Int64("friend_id", friendID))
		return
	}

	utils.Success(c, msg)
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	friendID, ok := parseID(c.Query("friend_id"))
	if !ok {
		utils.BadRequest(c, "friend_id is required")
		return
	}

	messages, err := h.messages.History(c.Request.Context(), userID, friendID)
	if err != nil {
		fail(c, h.log, "conversation", err, zap.Int64("user_id", userID), zap.Int64("friend_id", friendID))
		return
	}

	utils.Success(c, messages)
}

func (h *ChatHandler) MarkDelivered(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req MarkDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "senderId is required")
		return
	}

	n, err := h.messages.MarkDelivered(c.Request.Context(), userID, req.SenderID)
	if err != nil {
		fail(c, h.log, "mark delivered", err, zap.Int64("user_id", userID), zap.Int64("sender_id", req.SenderID))
		return
	}

	utils.Success(c, gin.H{
		"message":      "messages marked as delivered",
		"affectedRows": n,
	})
}
