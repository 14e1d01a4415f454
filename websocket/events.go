package websocket

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Inbound events.
const (
	EventSendMessage         = "sendMessage"
	EventSendFriendRequest   = "sendFriendRequest"
	EventCheckUserConnection = "checkUserConnection"
	EventPing                = "ping"
)

// Outbound events.
const (
	EventReceiveMessage       = "receiveMessage"
	EventMessageSent          = "messageSent"
	EventPendingRequests      = "pendingRequests"
	EventUserConnectionStatus = "userConnectionStatus"
	EventSuccess              = "success"
	EventError                = "error"
	EventPong                 = "pong"
)

// Message is an outbound frame.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ClientMessage is an inbound frame; Data is decoded by the event's handler.
type ClientMessage struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
}

type SendMessagePayload struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required"`
}

type ConnectionStatus struct {
	UserID      int64 `json:"userId"`
	IsConnected bool  `json:"isConnected"`
}

type FriendRequestAck struct {
	Message   string      `json:"message"`
	Outcome   string      `json:"outcome"`
	RequestID int64       `json:"requestId"`
	Request   interface{} `json:"request"`
}
