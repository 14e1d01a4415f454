package store

import (
	"context"
	"strings"

	"friendchat/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MessageStore keeps direct messages between friends.
type MessageStore struct {
	db      *gorm.DB
	friends *FriendshipStore
}

func NewMessageStore(db *gorm.DB, friends *FriendshipStore) *MessageStore {
	return &MessageStore{db: db, friends: friends}
}

// Insert stores a new undelivered message. Sender and receiver must be
// accepted friends.
func (s *MessageStore) Insert(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "message content is required")
	}
	if err := s.requireFriends(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Delivered:  false,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	return msg, nil
}

// Last returns the newest message exchanged between a and b.
func (s *MessageStore) Last(ctx context.Context, a, b int64) (*models.Message, error) {
	var msg models.Message
	err := betweenPair(s.db.WithContext(ctx), a, b).
		Order("created_at DESC").Order("id DESC").
		First(&msg).Error
	if isNotFound(err) {
		return nil, errors.Wrap(ErrNotFound, "no messages between these users")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load last message")
	}
	return &msg, nil
}

// History returns the whole conversation between two friends, oldest first.
func (s *MessageStore) History(ctx context.Context, a, b int64) ([]models.Message, error) {
	if err := s.requireFriends(ctx, a, b); err != nil {
		return nil, err
	}

	messages := []models.Message{}
	err := betweenPair(s.db.WithContext(ctx), a, b).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "load conversation")
	}
	return messages, nil
}

// MarkDelivered flags every undelivered message from senderID to receiverID
// and returns how many rows changed. Running it again changes nothing.
func (s *MessageStore) MarkDelivered(ctx context.Context, receiverID, senderID int64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND delivered = ?", receiverID, senderID, false).
		Update("delivered", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark delivered")
	}
	return res.RowsAffected, nil
}

func (s *MessageStore) requireFriends(ctx context.Context, a, b int64) error {
	ok, err := s.friends.AreFriends(ctx, a, b)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func betweenPair(db *gorm.DB, a, b int64) *gorm.DB {
	return db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
}
