package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"friendchat/config"
	"friendchat/handlers"
	"friendchat/middleware"
	"friendchat/store"
	"friendchat/testutil"
	"friendchat/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresence struct {
	mu     sync.Mutex
	online map[int64]bool
}

func (p *fakePresence) IsPresent(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[id]
}

func (p *fakePresence) set(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[id] = true
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) NotifyPendingRequests(_ context.Context, id int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	return nil
}

func (n *recordingNotifier) notified() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

type env struct {
	cfg      *config.Config
	router   *gin.Engine
	users    *store.UserStore
	friends  *store.FriendshipStore
	messages *store.MessageStore
	presence *fakePresence
	notifier *recordingNotifier
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testutil.TestConfig()
	for _, m := range mutate {
		m(cfg)
	}
	db := testutil.SetupTestDB(t)
	log := testutil.Logger()

	e := &env{
		cfg:      cfg,
		users:    store.NewUserStore(db, cfg.Security.BcryptCost),
		friends:  store.NewFriendshipStore(db),
		presence: &fakePresence{online: map[int64]bool{}},
		notifier: &recordingNotifier{},
	}
	e.messages = store.NewMessageStore(db, e.friends)

	authH := handlers.NewAuthHandler(e.users, cfg.Security, log)
	userH := handlers.NewUserHandler(e.users, log)
	friendH := handlers.NewFriendHandler(e.friends, e.users, e.presence, e.notifier, cfg.API.EmptyResultAsMiss, log)
	chatH := handlers.NewChatHandler(e.messages, log)
	auth := middleware.AuthMiddleware(cfg.Security.JWTSecret)

	r := gin.New()
	r.POST("/api/auth/register", authH.Register)
	r.POST("/api/auth/login", authH.Login)
	r.POST("/api/auth/refresh", auth, authH.RefreshToken)
	r.GET("/api/auth/user", auth, userH.GetCurrentUser)
	r.PUT("/api/auth/user", auth, userH.UpdateCurrentUser)
	f := r.Group("/api/friends", auth)
	f.POST("/send", friendH.SendFriendRequest)
	f.PUT("/accept/:id", friendH.AcceptFriendRequest)
	f.PUT("/reject/:id", friendH.RejectFriendRequest)
	f.GET("/list/:user_id", friendH.GetFriends)
	f.GET("/pending/:user_id", friendH.GetPendingRequests)
	f.GET("/search", friendH.SearchUsers)
	c := r.Group("/api/chat", auth)
	c.GET("/last-message", chatH.GetLastMessage)
	c.GET("/conversation", chatH.GetConversation)
	c.PUT("/mark-delivered", chatH.MarkDelivered)
	e.router = r
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type account struct {
	ID    int64
	Token string
}

// signup registers name and logs in over HTTP.
func (e *env) signup(t *testing.T, name string) account {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": name, "email": name + "@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": name + "@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp handlers.AuthResponse
	decode(t, w, &resp)
	return account{ID: resp.User.ID, Token: resp.Token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func TestRegister(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": "ana", "email": "ana@example.com", "password": "pw123456", "profileImage": "a.png",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), `"profileImage":"a.png"`)

	cases := map[string]gin.H{
		"same email":    {"fullName": "other", "email": "ana@example.com", "password": "x"},
		"same username": {"fullName": "ana", "email": "other@example.com", "password": "x"},
		"no email":      {"fullName": "bob", "password": "x"},
		"no name":       {"email": "bob@example.com", "password": "x"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	a := e.signup(t, "ana")

	claims, err := utils.ParseToken(a.Token, e.cfg.Security.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, id(a.ID), claims.Subject)

	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@example.com", "password": "secret123"})
	assert.NotContains(t, w.Body.String(), "password")

	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshToken(t *testing.T) {
	e := newEnv(t)
	a := e.signup(t, "ana")

	w := e.do(t, http.MethodPost, "/api/auth/refresh", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct{ Token string }
	decode(t, w, &body)
	claims, err := utils.ParseToken(body.Token, e.cfg.Security.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.UserID)

	w = e.do(t, http.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetAndUpdateUser(t *testing.T) {
	e := newEnv(t)
	a := e.signup(t, "ana")
	e.signup(t, "bob")

	w := e.do(t, http.MethodGet, "/api/auth/user", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"ana"`)

	w = e.do(t, http.MethodGet, "/api/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPut, "/api/auth/user", a.Token, gin.H{"fullName": "anna", "email": ""})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"anna"`)
	assert.Contains(t, w.Body.String(), `"email":"ana@example.com"`)

	w = e.do(t, http.MethodPut, "/api/auth/user", a.Token, gin.H{"currentPassword": "nope", "newPassword": "n3w"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPut, "/api/auth/user", a.Token, gin.H{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/auth/user", a.Token, gin.H{"currentPassword": "secret123", "newPassword": "n3w"})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@example.com", "password": "n3w"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFriendRequestFlow(t *testing.T) {
	e := newEnv(t)
	a, b := e.signup(t, "ana"), e.signup(t, "bob")

	w := e.do(t, http.MethodPost, "/api/friends/send", a.Token, gin.H{"user_id": a.ID, "friend_id": b.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sent struct {
		Request struct{ ID int64 }
	}
	decode(t, w, &sent)
	assert.Equal(t, []int64{b.ID}, e.notifier.notified())

	w = e.do(t, http.MethodPost, "/api/friends/send", a.Token, gin.H{"friend_id": b.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPost, "/api/friends/send", b.Token, gin.H{"friend_id": a.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reqID := id(sent.Request.ID)
	w = e.do(t, http.MethodPut, "/api/friends/accept/"+reqID, a.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "the requester cannot accept")

	w = e.do(t, http.MethodPut, "/api/friends/accept/"+reqID, b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPut, "/api/friends/accept/"+reqID, b.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodPut, "/api/friends/reject/"+reqID, b.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/friends/send", b.Token, gin.H{"friend_id": a.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), store.ErrAlreadyFriends.Error())

	e.presence.set(b.ID)
	w = e.do(t, http.MethodGet, "/api/friends/list/"+id(a.ID), a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []struct {
		FriendID int64 `json:"friend_id"`
		Username string
		Online   bool
	}
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].FriendID)
	assert.Equal(t, "bob", list[0].Username)
	assert.True(t, list[0].Online)

	w = e.do(t, http.MethodGet, "/api/friends/list/"+id(b.ID), b.Token, nil)
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].FriendID)
	assert.False(t, list[0].Online)
}

func TestSendFriendRequest_Rejects(t *testing.T) {
	e := newEnv(t)
	a, b := e.signup(t, "ana"), e.signup(t, "bob")

	cases := []struct {
		name string
		body gin.H
		want int
	}{
		{"other user_id", gin.H{"user_id": b.ID, "friend_id": a.ID}, http.StatusForbidden},
		{"self", gin.H{"friend_id": a.ID}, http.StatusBadRequest},
		{"missing friend", gin.H{}, http.StatusBadRequest},
		{"unknown target", gin.H{"friend_id": 9999}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/friends/send", a.Token, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	w := e.do(t, http.MethodPost, "/api/friends/send", "", gin.H{"friend_id": b.ID})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, e.notifier.notified())
}

func TestRejectThenResend(t *testing.T) {
	e := newEnv(t)
	a, b := e.signup(t, "ana"), e.signup(t, "bob")

	w := e.do(t, http.MethodPost, "/api/friends/send", a.Token, gin.H{"friend_id": b.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var sent struct {
		Request struct{ ID int64 }
	}
	decode(t, w, &sent)

	w = e.do(t, http.MethodPut, "/api/friends/reject/"+id(sent.Request.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/friends/send", b.Token, gin.H{"friend_id": a.ID})
	require.Equal(t, http.StatusOK, w.Code)
	var resent struct {
		Message string
		Request struct {
			ID     int64
			UserID int64 `json:"user_id"`
			Status string
		}
	}
	decode(t, w, &resent)
	assert.Equal(t, "friend request resent", resent.Message)
	assert.Equal(t, sent.Request.ID, resent.Request.ID)
	assert.Equal(t, a.ID, resent.Request.UserID)
	assert.Equal(t, "pending", resent.Request.Status)

	// Still addressed to bob.
	w = e.do(t, http.MethodGet, "/api/friends/pending/"+id(b.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"ana"`)
}

func TestPendingAndSearch_EmptyResults(t *testing.T) {
	e := newEnv(t)
	a := e.signup(t, "ana")

	w := e.do(t, http.MethodGet, "/api/friends/pending/"+id(a.ID), a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodGet, "/api/friends/search?query=zzz", a.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodGet, "/api/friends/search", a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodGet, "/api/friends/pending/"+id(a.ID+1), a.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/friends/search?query=an", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"ana"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestPendingAndSearch_EmptyAsCollection(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.API.EmptyResultAsMiss = false })
	a := e.signup(t, "ana")

	w := e.do(t, http.MethodGet, "/api/friends/pending/"+id(a.ID), a.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/friends/search?query=zzz", a.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestChat(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.signup(t, "ana"), e.signup(t, "bob")

	w := e.do(t, http.MethodGet, "/api/chat/conversation?friend_id="+id(b.ID), a.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/chat/last-message?friendId="+id(b.ID), a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"no messages between these users"}`, w.Body.String())

	f, _, err := e.friends.Send(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = e.friends.Accept(ctx, f.ID, b.ID)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := e.messages.Insert(ctx, a.ID, b.ID, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	w = e.do(t, http.MethodGet, "/api/chat/conversation?friend_id="+id(a.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conv []struct{ Content string }
	decode(t, w, &conv)
	require.Len(t, conv, 3)
	assert.Equal(t, "m1", conv[0].Content)
	assert.Equal(t, "m3", conv[2].Content)

	w = e.do(t, http.MethodGet, "/api/chat/last-message?friendId="+id(a.ID), b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"m3"`)

	w = e.do(t, http.MethodGet, "/api/chat/last-message", b.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/chat/mark-delivered", b.Token, gin.H{"senderId": a.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"messages marked as delivered","affectedRows":3}`, w.Body.String())

	w = e.do(t, http.MethodPut, "/api/chat/mark-delivered", b.Token, gin.H{"senderId": a.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"messages marked as delivered","affectedRows":0}`, w.Body.String())

	w = e.do(t, http.MethodPut, "/api/chat/mark-delivered", b.Token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
