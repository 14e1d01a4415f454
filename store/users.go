package store

import (
	"context"

	"friendchat/models"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserStore owns user records: registration, credential checks and profiles.
type UserStore struct {
	db   *gorm.DB
	cost int
}

func NewUserStore(db *gorm.DB, bcryptCost int) *UserStore {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, cost: bcryptCost}
}

// ProfileUpdate carries the optional fields of a profile change. Empty
// strings leave the stored value untouched.
type ProfileUpdate struct {
	Username        string
	Email           string
	ProfileImage    string
	CurrentPassword string
	NewPassword     string
}

// Register creates a user. The username and email must both be unused.
func (s *UserStore) Register(ctx context.Context, username, email, password, profileImage string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "username, email and password are required")
	}

	var exists int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&exists).Error
	if err != nil {
		return nil, errors.Wrap(err, "check existing user")
	}
	if exists > 0 {
		return nil, errors.Wrap(ErrConflict, "username or email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Password:     string(hash),
		ProfileImage: profileImage,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return nil, errors.Wrap(ErrConflict, "username or email is already registered")
		}
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}

// Authenticate returns the user owning email when password matches its hash.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if isNotFound(err) {
		return nil, errors.Wrap(ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errors.Wrap(ErrInvalidCredential, "incorrect password")
	}
	return &user, nil
}

func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if isNotFound(err) {
		return nil, errors.Wrap(ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	return &user, nil
}

func (s *UserStore) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "check user")
	}
	return n > 0, nil
}

// UpdateProfile applies the non-empty fields of upd. Changing the password
// requires the current one.
func (s *UserStore) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}

	if upd.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(upd.CurrentPassword)) != nil {
			return nil, errors.Wrap(ErrInvalidCredential, "current password is incorrect")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(upd.NewPassword), s.cost)
		if err != nil {
			return nil, errors.Wrap(err, "hash password")
		}
		changes["password"] = string(hash)
	}
	if upd.Username != "" && upd.Username != user.Username {
		changes["username"] = upd.Username
	}
	if upd.Email != "" && upd.Email != user.Email {
		changes["email"] = upd.Email
	}
	if upd.ProfileImage != "" {
		changes["profile_image"] = upd.ProfileImage
	}

	if len(changes) == 0 {
		return user, nil
	}

	_, nameChanged := changes["username"]
	_, emailChanged := changes["email"]
	if nameChanged || emailChanged {
		var taken int64
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id <> ? AND (username = ? OR email = ?)", id, upd.Username, upd.Email).
			Count(&taken).Error
		if err != nil {
			return nil, errors.Wrap(err, "check existing user")
		}
		if taken > 0 {
			return nil, errors.Wrap(ErrConflict, "username or email is already in use")
		}
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(changes).Error; err != nil {
		if isDuplicate(err) {
			return nil, errors.Wrap(ErrConflict, "username or email is already in use")
		}
		return nil, errors.Wrap(err, "update user")
	}
	return s.Get(ctx, id)
}

// Search matches text as a substring of username or email. The result is
// empty, not an error, when nothing matches.
func (s *UserStore) Search(ctx context.Context, text string) ([]models.User, error) {
	if text == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "search query is required")
	}
	pattern := "%" + escapeLike(text) + "%"

	var users []models.User
	err := s.db.WithContext(ctx).
		Where("username LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!'", pattern, pattern).
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	return users, nil
}
