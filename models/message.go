package models

import "time"

type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"not null;index:idx_messages_pair,priority:1" json:"sender_id"`
	ReceiverID int64     `gorm:"not null;index:idx_messages_pair,priority:2" json:"receiver_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	Delivered  bool      `gorm:"not null;default:false" json:"delivered"`
}
