package handlers

import (
	"context"

	"friendchat/middleware"
	"friendchat/models"
	"friendchat/store"
	"friendchat/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FriendRequest names the target in friend_id. user_id is optional and, when
// given, must be the caller.
type FriendRequest struct {
	UserID   int64 `json:"user_id"`
	FriendID int64 `json:"friend_id"`
}

type FriendHandler struct {
	friends  *store.FriendshipStore
	users    *store.UserStore
	presence Presence
	notifier PendingNotifier
	// emptyAsMiss reports empty search and pending results as errors.
	emptyAsMiss bool
	log         *zap.Logger
}

func NewFriendHandler(friends *store.FriendshipStore, users *store.UserStore, presence Presence,
	notifier PendingNotifier, emptyAsMiss bool, log *zap.Logger) *FriendHandler {
	return &FriendHandler{
		friends:     friends,
		users:       users,
		presence:    presence,
		notifier:    notifier,
		emptyAsMiss: emptyAsMiss,
		log:         log,
	}
}

func (h *FriendHandler) SendFriendRequest(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req FriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if req.UserID != 0 && req.UserID != userID {
		utils.Forbidden(c, "user_id does not match the authenticated user")
		return
	}
	if req.FriendID <= 0 {
		utils.BadRequest(c, "user_id and friend_id are required")
		return
	}

	ctx := c.Request.Context()
	f, outcome, err := h.friends.Send(ctx, userID, req.FriendID)
	if err != nil {
		fail(c, h.log, "send friend request", err,
			zap.Int64("user_id", userID), zap.Int64("friend_id", req.FriendID))
		return
	}

	if err := h.notifier.NotifyPendingRequests(ctx, req.FriendID); err != nil {
		h.log.Warn("push pending requests", zap.Int64("user_id", req.FriendID), zap.Error(err))
	}

	if outcome == store.OutcomeResent {
		utils.Success(c, gin.H{"message": "friend request resent", "request": f})
		return
	}
	utils.Created(c, gin.H{"message": "friend request sent successfully", "request": f})
}

func (h *FriendHandler) AcceptFriendRequest(c *gin.Context) {
	h.answer(c, "accept", h.friends.Accept, "friend request accepted successfully")
}

func (h *FriendHandler) RejectFriendRequest(c *gin.Context) {
	h.answer(c, "reject", h.friends.Reject, "friend request rejected successfully")
}

func (h *FriendHandler) answer(c *gin.Context, op string,
	apply func(ctx context.Context, requestID, recipientID int64) (*models.Friendship, error), done string) {
	userID := middleware.GetUserID(c)
	requestID, ok := parseID(c.Param("id"))
	if !ok {
		utils.BadRequest(c, "invalid request id")
		return
	}

	f, err := apply(c.Request.Context(), requestID, userID)
	if err != nil {
		fail(c, h.log, op+" friend request", err,
			zap.Int64("user_id", userID), zap.Int64("request_id", requestID))
		return
	}

	utils.Success(c, gin.H{"message": done, "request": f})
}

func (h *FriendHandler) GetFriends(c *gin.Context) {
	userID, ok := h.ownPath(c)
	if !ok {
		return
	}

	friends, err := h.friends.ListFriends(c.Request.Context(), userID)
	if err != nil {
		fail(c, h.log, "list friends", err, zap.Int64("user_id", userID))
		return
	}
	for i := range friends {
		friends[i].Online = h.presence.IsPresent(friends[i].FriendID)
	}

	utils.Success(c, friends)
}

func (h *FriendHandler) GetPendingRequests(c *gin.Context) {
	userID, ok := h.ownPath(c)
	if !ok {
		return
	}

	pending, err := h.friends.ListPending(c.Request.Context(), userID)
	if err != nil {
		fail(c, h.log, "list pending requests", err, zap.Int64("user_id", userID))
		return
	}
	if len(pending) == 0 && h.emptyAsMiss {
		utils.BadRequest(c, "no pending requests")
		return
	}

	utils.Success(c, pending)
}

func (h *FriendHandler) SearchUsers(c *gin.Context) {
	query := c.Query("query")

	users, err := h.users.Search(c.Request.Context(), query)
	if err != nil {
		fail(c, h.log, "search users", err, zap.String("query", query))
		return
	}
	if len(users) == 0 && h.emptyAsMiss {
		utils.NotFound(c, "no users found")
		return
	}

	utils.Success(c, models.ToResponses(users))
}

// ownPath reads :user_id and requires it to be the caller.
func (h *FriendHandler) ownPath(c *gin.Context) (int64, bool) {
	userID := middleware.GetUserID(c)
	pathID, ok := parseID(c.Param("user_id"))
	if !ok {
		utils.BadRequest(c, "invalid user_id")
		return 0, false
	}
	if pathID != userID {
		utils.Forbidden(c, "user_id does not match the authenticated user")
		return 0, false
	}
	return userID, true
}
