package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/profile"
)

// fakeResolver returns a fixed identity for any clerk ID.
type fakeResolver struct {
	identity Identity
}

func (r fakeResolver) Resolve(_ context.Context, _ string) (*Identity, error) {
	id := r.identity
	return &id, nil
}

func newTestResolver(email string) fakeResolver {
	return fakeResolver{identity: Identity{Email: email, FirstName: "Test", LastName: "User"}}
}

func TestClaimUsername(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := NewUserService(ms, newTestResolver("test@example.com"))
	ctx := context.Background()

	p, err := svc.ClaimUsername(ctx, "user_123", "Shubham9")
	require.NoError(t, err)

	assert.Equal(t, "shubham9", p.Username)
	assert.Equal(t, "test@example.com", p.Email)
	assert.Equal(t, "Test", p.FirstName)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Zero(t, p.CanvasVersion)
	assert.False(t, p.CreatedAt.IsZero())

	stored, err := svc.GetByUsername(ctx, "shubham9")
	require.NoError(t, err)
	assert.Equal(t, "shubham9", stored.Username)
}

func TestClaimUsername_InvalidCharset(t *testing.T) {
	svc := NewUserService(store.NewMemoryStore(), newTestResolver("test@example.com"))

	for _, bad := range []string{"", "with space", "semi;colon", "dash-name", "под"} {
		_, err := svc.ClaimUsername(context.Background(), "user_123", bad)
		assert.ErrorIs(t, err, profile.ErrInvalidUsername, "username %q", bad)
	}
}

func TestClaimUsername_Taken(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	first := NewUserService(ms, newTestResolver("first@example.com"))
	_, err := first.ClaimUsername(ctx, "user_1", "taken")
	require.NoError(t, err)

	second := NewUserService(ms, newTestResolver("second@example.com"))
	_, err = second.ClaimUsername(ctx, "user_2", "taken")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	// Case variants collide with the lowercase owner.
	_, err = second.ClaimUsername(ctx, "user_2", "TAKEN")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGetSession(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := NewUserService(ms, newTestResolver("test@example.com"))
	ctx := context.Background()

	// No profile yet: the claim step is still pending.
	_, err := svc.GetSession(ctx, "user_123")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.ClaimUsername(ctx, "user_123", "testuser")
	require.NoError(t, err)

	p, err := svc.GetSession(ctx, "user_123")
	require.NoError(t, err)
	assert.Equal(t, "testuser", p.Username)
	assert.Equal(t, "test@example.com", p.Email)
}

func TestUpdateProfile(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := NewUserService(ms, newTestResolver("test@example.com"))
	ctx := context.Background()

	_, err := svc.ClaimUsername(ctx, "user_123", "testuser")
	require.NoError(t, err)

	bio := "Trying to find the flow"
	updated, err := svc.UpdateProfile(ctx, "testuser", &profile.UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	// Untouched fields survive the partial update.
	assert.Equal(t, "test@example.com", updated.Email)

	caption := "welcome"
	updated, err = svc.UpdateProfile(ctx, "testuser", &profile.UpdateProfileRequest{Caption: &caption})
	require.NoError(t, err)
	assert.Equal(t, caption, updated.Caption)
	assert.Equal(t, bio, updated.Bio)
}

func TestSetPhotoURL(t *testing.T) {
	ms := store.NewMemoryStore()
	svc := NewUserService(ms, newTestResolver("test@example.com"))
	ctx := context.Background()

	_, err := svc.ClaimUsername(ctx, "user_123", "testuser")
	require.NoError(t, err)

	require.NoError(t, svc.SetPhotoURL(ctx, "testuser", "https://cdn.example.com/p.jpg"))

	p, err := svc.GetByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p.jpg", p.PhotoURL)
}
