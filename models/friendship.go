package models

import (
	"fmt"
	"time"
)

const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

// Friendship is the single row describing the relationship between two users.
// UserID is always the user who first asked; PairKey is the same for (a,b)
// and (b,a) and is unique, so a pair never has two rows.
type Friendship struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	FriendID  int64     `gorm:"not null;index" json:"friend_id"`
	PairKey   string    `gorm:"size:41;not null;uniqueIndex" json:"-"`
	Status    string    `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// FriendEntry is one line of a friend list.
type FriendEntry struct {
	ID           int64  `json:"id"`
	FriendID     int64  `json:"friend_id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
	Online       bool   `gorm:"-" json:"online"`
}

// PendingRequest is an incoming friend request awaiting an answer.
type PendingRequest struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"created_at"`
}
