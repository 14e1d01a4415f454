package websocket

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"friendchat/middleware"
	"friendchat/store"
	"friendchat/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const eventTimeout = 10 * time.Second

type eventHandler func(ctx context.Context, c *Client, data jsoniter.RawMessage) error

// Gateway accepts authenticated connections and runs their events against
// the stores.
type Gateway struct {
	hub      *Hub
	friends  *store.FriendshipStore
	messages *store.MessageStore
	secret   string
	log      *zap.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader
	routes   map[string]eventHandler
}

func NewGateway(hub *Hub, friends *store.FriendshipStore, messages *store.MessageStore,
	secret string, allowedOrigins []string, log *zap.Logger) *Gateway {
	g := &Gateway{
		hub:      hub,
		friends:  friends,
		messages: messages,
		secret:   secret,
		log:      log,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
	g.routes = map[string]eventHandler{
		EventSendMessage:         g.handleSendMessage,
		EventSendFriendRequest:   g.handleSendFriendRequest,
		EventCheckUserConnection: g.handleCheckUserConnection,
		EventPing:                g.handlePing,
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSpace(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(set) == 0 || set["*"] || origin == "" || set[origin]
	}
}

// HandleWebSocket authenticates the caller from ?token= or a Bearer header
// and upgrades the connection. A bad token is refused before the upgrade.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		utils.Unauthorized(c, "missing token")
		return
	}

	claims, err := utils.ParseToken(token, g.secret)
	if err != nil {
		utils.Unauthorized(c, "invalid token")
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := newClient(g.hub, claims.UserID, conn)
	if err := g.hub.Join(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		conn.Close()
		return
	}
	g.log.Info("websocket connected", zap.Int64("user_id", client.UserID), zap.String("conn_id", client.ID))

	go client.writePump()
	go func() {
		client.readPump(g.log, g.dispatch)
		g.log.Info("websocket disconnected", zap.Int64("user_id", client.UserID), zap.String("conn_id", client.ID))
	}()
}

// dispatch runs one inbound frame. Failures become an error event on the
// same connection and never close it.
func (g *Gateway) dispatch(c *Client, raw []byte) {
	var in ClientMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		c.SendEvent(EventError, "malformed frame")
		return
	}

	handler, ok := g.routes[in.Event]
	if !ok {
		c.SendEvent(EventError, "unknown event: "+in.Event)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := g.handle(ctx, handler, c, in.Data); err != nil {
		g.log.Warn("websocket event failed",
			zap.String("event", in.Event),
			zap.Int64("user_id", c.UserID),
			zap.Error(err),
		)
		c.SendEvent(EventError, err.Error())
	}
}

func (g *Gateway) handle(ctx context.Context, h eventHandler, c *Client, data jsoniter.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("websocket handler panic", zap.Any("error", r), zap.Stack("stack"))
			err = errors.New("internal error")
		}
	}()
	return h(ctx, c, data)
}

func (g *Gateway) handleSendMessage(ctx context.Context, c *Client, data jsoniter.RawMessage) error {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrap(store.ErrInvalidArgument, "invalid sendMessage payload")
	}
	if err := g.validate.Struct(&p); err != nil {
		return errors.Wrap(store.ErrInvalidArgument, "receiverId and content are required")
	}

	msg, err := g.messages.Insert(ctx, c.UserID, p.ReceiverID, p.Content)
	if err != nil {
		return err
	}

	c.SendEvent(EventMessageSent, msg)
	g.hub.SendToUser(p.ReceiverID, &Message{Event: EventReceiveMessage, Data: msg})
	return nil
}

func (g *Gateway) handleSendFriendRequest(ctx context.Context, c *Client, data jsoniter.RawMessage) error {
	friendID, err := decodeUserID(data, "friendId")
	if err != nil {
		return err
	}

	f, outcome, err := g.friends.Send(ctx, c.UserID, friendID)
	if err != nil {
		return err
	}

	text := "friend request sent"
	if outcome == store.OutcomeResent {
		text = "friend request resent"
	}
	c.SendEvent(EventSuccess, FriendRequestAck{
		Message:   text,
		Outcome:   string(outcome),
		RequestID: f.ID,
		Request:   f,
	})

	if err := g.NotifyPendingRequests(ctx, friendID); err != nil {
		g.log.Warn("push pending requests", zap.Int64("user_id", friendID), zap.Error(err))
	}
	return nil
}

func (g *Gateway) handleCheckUserConnection(_ context.Context, c *Client, data jsoniter.RawMessage) error {
	target, err := decodeUserID(data, "targetUserId")
	if err != nil {
		return err
	}
	c.SendEvent(EventUserConnectionStatus, ConnectionStatus{
		UserID:      target,
		IsConnected: g.hub.IsPresent(target),
	})
	return nil
}

func (g *Gateway) handlePing(_ context.Context, c *Client, _ jsoniter.RawMessage) error {
	c.SendEvent(EventPong, nil)
	return nil
}

// NotifyPendingRequests pushes userID's current pending list to each of
// their connections. Offline users are skipped.
func (g *Gateway) NotifyPendingRequests(ctx context.Context, userID int64) error {
	if !g.hub.IsPresent(userID) {
		return nil
	}
	pending, err := g.friends.ListPending(ctx, userID)
	if err != nil {
		return err
	}
	g.hub.SendToUser(userID, &Message{Event: EventPendingRequests, Data: pending})
	return nil
}

// decodeUserID accepts a bare number, a numeric string, or an object holding
// either under field.
func decodeUserID(data jsoniter.RawMessage, field string) (int64, error) {
	invalid := errors.Wrapf(store.ErrInvalidArgument, "%s is required", field)
	if len(data) == 0 {
		return 0, invalid
	}

	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		if id <= 0 {
			return 0, invalid
		}
		return id, nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || id <= 0 {
			return 0, invalid
		}
		return id, nil
	}

	var obj map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		if inner, ok := obj[field]; ok && len(inner) > 0 && inner[0] != '{' {
			return decodeUserID(inner, field)
		}
	}
	return 0, invalid
}
