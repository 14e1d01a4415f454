package store

import (
	"context"

	"friendchat/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SendOutcome says what a successful Send did to the pair's row.
type SendOutcome string

const (
	OutcomeCreated SendOutcome = "created"
	OutcomeResent  SendOutcome = "resent"
)

// FriendshipStore runs the friend-request state machine:
//
//	(none) --send--> pending --accept--> accepted
//	                 pending --reject--> rejected --send--> pending
type FriendshipStore struct {
	db *gorm.DB
}

func NewFriendshipStore(db *gorm.DB) *FriendshipStore {
	return &FriendshipStore{db: db}
}

// Find returns the row for the unordered pair (a,b).
func (s *FriendshipStore) Find(ctx context.Context, a, b int64) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.WithContext(ctx).Where("pair_key = ?", models.PairKey(a, b)).First(&f).Error
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load friendship")
	}
	return &f, nil
}

func (s *FriendshipStore) Get(ctx context.Context, id int64) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.WithContext(ctx).First(&f, id).Error
	if isNotFound(err) {
		return nil, errors.Wrap(ErrNotFound, "friend request not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load friendship")
	}
	return &f, nil
}

// Send asks targetID to become requesterID's friend. A new pair gets a
// pending row owned by the requester; a rejected pair is reopened in place,
// keeping its original owner.
func (s *FriendshipStore) Send(ctx context.Context, requesterID, targetID int64) (*models.Friendship, SendOutcome, error) {
	if requesterID <= 0 || targetID <= 0 {
		return nil, "", errors.Wrap(ErrInvalidArgument, "user_id and friend_id are required")
	}
	if requesterID == targetID {
		return nil, "", errors.Wrap(ErrInvalidArgument, "cannot send a friend request to yourself")
	}

	existing, err := s.Find(ctx, requesterID, targetID)
	if errors.Is(err, ErrNotFound) {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", targetID).Count(&n).Error; err != nil {
			return nil, "", errors.Wrap(err, "check target user")
		}
		if n == 0 {
			return nil, "", errors.Wrap(ErrNotFound, "user not found")
		}

		f := &models.Friendship{
			UserID:   requesterID,
			FriendID: targetID,
			PairKey:  models.PairKey(requesterID, targetID),
			Status:   models.FriendshipPending,
		}
		err = s.db.WithContext(ctx).Create(f).Error
		if err == nil {
			return f, OutcomeCreated, nil
		}
		if !isDuplicate(err) {
			return nil, "", errors.Wrap(err, "create friend request")
		}
		// A concurrent send won the insert; judge against its row.
		existing, err = s.Find(ctx, requesterID, targetID)
	}
	if err != nil {
		return nil, "", err
	}

	return s.resend(ctx, existing)
}

func (s *FriendshipStore) resend(ctx context.Context, f *models.Friendship) (*models.Friendship, SendOutcome, error) {
	switch f.Status {
	case models.FriendshipAccepted:
		return nil, "", ErrAlreadyFriends
	case models.FriendshipPending:
		return nil, "", ErrAlreadyPending
	}

	res := s.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("id = ? AND status = ?", f.ID, models.FriendshipRejected).
		Update("status", models.FriendshipPending)
	if res.Error != nil {
		return nil, "", errors.Wrap(res.Error, "resend friend request")
	}
	if res.RowsAffected == 0 {
		// Someone else moved the row first.
		cur, err := s.Get(ctx, f.ID)
		if err != nil {
			return nil, "", err
		}
		if cur.Status == models.FriendshipAccepted {
			return nil, "", ErrAlreadyFriends
		}
		return nil, "", ErrAlreadyPending
	}

	f.Status = models.FriendshipPending
	return f, OutcomeResent, nil
}

// Accept moves a pending request addressed to recipientID to accepted.
func (s *FriendshipStore) Accept(ctx context.Context, requestID, recipientID int64) (*models.Friendship, error) {
	return s.answer(ctx, requestID, recipientID, models.FriendshipAccepted)
}

// Reject moves a pending request addressed to recipientID to rejected.
func (s *FriendshipStore) Reject(ctx context.Context, requestID, recipientID int64) (*models.Friendship, error) {
	return s.answer(ctx, requestID, recipientID, models.FriendshipRejected)
}

func (s *FriendshipStore) answer(ctx context.Context, requestID, recipientID int64, status string) (*models.Friendship, error) {
	res := s.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("id = ? AND friend_id = ? AND status = ?", requestID, recipientID, models.FriendshipPending).
		Update("status", status)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "set friendship %d to %s", requestID, status)
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrap(ErrNotFound, "friend request not found or already handled")
	}
	return s.Get(ctx, requestID)
}

// AreFriends reports whether an accepted row exists for the unordered pair.
func (s *FriendshipStore) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("pair_key = ? AND status = ?", models.PairKey(a, b), models.FriendshipAccepted).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "check friendship")
	}
	return n > 0, nil
}

// ListFriends returns every accepted friend of userID, whichever side asked.
func (s *FriendshipStore) ListFriends(ctx context.Context, userID int64) ([]models.FriendEntry, error) {
	friends := []models.FriendEntry{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT f.id, f.friend_id, u.username, u.profile_image
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ? AND f.status = ?
		UNION
		SELECT f.id, f.user_id AS friend_id, u.username, u.profile_image
		FROM friendships f
		JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = ? AND f.status = ?
	`, userID, models.FriendshipAccepted, userID, models.FriendshipAccepted).Scan(&friends).Error
	if err != nil {
		return nil, errors.Wrap(err, "list friends")
	}
	return friends, nil
}

// ListPending returns the requests waiting on userID's answer, newest first.
func (s *FriendshipStore) ListPending(ctx context.Context, userID int64) ([]models.PendingRequest, error) {
	pending := []models.PendingRequest{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT f.id, f.user_id, u.username, u.profile_image, f.created_at
		FROM friendships f
		JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = ? AND f.status = ?
		ORDER BY f.created_at DESC, f.id DESC
	`, userID, models.FriendshipPending).Scan(&pending).Error
	if err != nil {
		return nil, errors.Wrap(err, "list pending requests")
	}
	return pending, nil
}
