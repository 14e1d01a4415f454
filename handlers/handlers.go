package handlers

import (
	"context"
	"net/http"
	"strconv"

	"friendchat/middleware"
	"friendchat/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Presence answers whether a user has a live real-time connection.
type Presence interface {
	IsPresent(userID int64) bool
}

// PendingNotifier pushes a user's pending friend requests to their live
// connections.
type PendingNotifier interface {
	NotifyPendingRequests(ctx context.Context, userID int64) error
}

// fail writes err to the client. Server-side failures are logged first.
func fail(c *gin.Context, log *zap.Logger, op string, err error, fields ...zap.Field) {
	if utils.StatusFor(err) >= http.StatusInternalServerError {
		fields = append(fields,
			zap.Error(err),
			zap.Int64("caller", middleware.GetUserID(c)),
			zap.String("trace_id", middleware.GetTraceID(c)),
		)
		log.Error(op, fields...)
	}
	utils.Fail(c, err)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Health reports liveness.
func Health(c *gin.Context) {
	utils.Success(c, gin.H{"status": "ok"})
}
