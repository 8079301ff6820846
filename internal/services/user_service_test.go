// internal/services/user_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUser(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.st)

	created, err := users.EnsureUser(f.ctx, alice, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.True(t, created.DefaultPercentage.Equal(dec("100")))
	assert.True(t, created.PushEnabled)

	again, err := users.EnsureUser(f.ctx, alice, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)

	anonymous, err := users.EnsureUser(f.ctx, bob, "")
	require.NoError(t, err)
	assert.Equal(t, bob.String(), anonymous.Username)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.st)

	_, err := users.GetProfile(f.ctx, alice)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := users.UpdateProfile(f.ctx, alice, &UpdateUserProfileRequest{
		DisplayName: "Alice A.",
		Email:       "alice@example.com",
		PushEnabled: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", updated.DisplayName)
	assert.False(t, updated.PushEnabled)

	got, err := users.GetProfile(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Alice A.", got.Name())

	_, err = users.UpdateProfile(f.ctx, alice, &UpdateUserProfileRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)
}
