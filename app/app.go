package app

import (
	"friendchat/config"
	"friendchat/handlers"
	"friendchat/middleware"
	"friendchat/store"
	"friendchat/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the assembled server: the HTTP engine and the presence hub it pushes
// through. Close the hub at shutdown.
type App struct {
	Engine *gin.Engine
	Hub    *websocket.Hub
}

func New(cfg *config.Config, db *gorm.DB, log *zap.Logger) *App {
	users := store.NewUserStore(db, cfg.Security.BcryptCost)
	friends := store.NewFriendshipStore(db)
	messages := store.NewMessageStore(db, friends)

	hub := websocket.NewHub(log)
	gateway := websocket.NewGateway(hub, friends, messages,
		cfg.Security.JWTSecret, cfg.Server.AllowedOrigins, log)

	authHandler := handlers.NewAuthHandler(users, cfg.Security, log)
	userHandler := handlers.NewUserHandler(users, log)
	friendHandler := handlers.NewFriendHandler(friends, users, hub, gateway, cfg.API.EmptyResultAsMiss, log)
	chatHandler := handlers.NewChatHandler(messages, log)

	r := gin.New()
	r.Use(middleware.TraceID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	r.GET("/health", handlers.Health)
	r.GET("/ws", gateway.HandleWebSocket)

	auth := middleware.AuthMiddleware(cfg.Security.JWTSecret)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", auth, authHandler.RefreshToken)
		authGroup.GET("/user", auth, userHandler.GetCurrentUser)
		authGroup.PUT("/user", auth, userHandler.UpdateCurrentUser)

		friendsGroup := api.Group("/friends", auth)
		friendsGroup.POST("/send", friendHandler.SendFriendRequest)
		friendsGroup.PUT("/accept/:id", friendHandler.AcceptFriendRequest)
		friendsGroup.PUT("/reject/:id", friendHandler.RejectFriendRequest)
		friendsGroup.GET("/list/:user_id", friendHandler.GetFriends)
		friendsGroup.GET("/pending/:user_id", friendHandler.GetPendingRequests)
		friendsGroup.GET("/search", friendHandler.SearchUsers)

		chat := api.Group("/chat", auth)
		chat.GET("/last-message", chatHandler.GetLastMessage)
		chat.GET("/conversation", chatHandler.GetConversation)
		chat.PUT("/mark-delivered", chatHandler.MarkDelivered)
	}

	return &App{Engine: r, Hub: hub}
}
