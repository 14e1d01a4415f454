package store_test

import (
	"context"
	"testing"

	"friendchat/models"
	"friendchat/store"
	"friendchat/testutil"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stores struct {
	users    *store.UserStore
	friends  *store.FriendshipStore
	messages *store.MessageStore
}

func newStores(t *testing.T) stores {
	t.Helper()
	db := testutil.SetupTestDB(t)
	friends := store.NewFriendshipStore(db)
	return stores{
		users:    store.NewUserStore(db, bcrypt.MinCost),
		friends:  friends,
		messages: store.NewMessageStore(db, friends),
	}
}

func mustRegister(t *testing.T, s *store.UserStore, name string) *models.User {
	t.Helper()
	u, err := s.Register(context.Background(), name, name+"@example.com", "secret123", "")
	require.NoError(t, err)
	return u
}

func requireIs(t *testing.T, err, target error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, target), "got %v, want %v", err, target)
}
