package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/profile"
	"linkFlowAPI/services"
)

func newUserHandler() (*UserHandler, *services.UserService) {
	ms := store.NewMemoryStore()
	userService := services.NewUserService(ms, fakeResolver{email: "test@example.com"})
	return NewUserHandler(userService, nil), userService
}

func TestGetSession_NeedsUsername(t *testing.T) {
	h, _ := newUserHandler()

	rr := httptest.NewRecorder()
	h.GetSession(rr, authedRequest(http.MethodGet, "/api/v1/auth/session", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp["needsUsername"])
}

func TestGetSession_Unauthenticated(t *testing.T) {
	h, _ := newUserHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	rr := httptest.NewRecorder()
	h.GetSession(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClaimUsername(t *testing.T) {
	h, userService := newUserHandler()

	rr := httptest.NewRecorder()
	h.ClaimUsername(rr, authedRequest(http.MethodPost, "/api/v1/auth/claim", []byte(`{"username":"Alice42"}`)))

	require.Equal(t, http.StatusCreated, rr.Code)

	var created profile.UserProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "alice42", created.Username)
	assert.Equal(t, "test@example.com", created.Email)
	assert.NotNil(t, created.Items)

	// The session now resolves to the new profile.
	p, err := userService.GetSession(context.Background(), "user_test")
	require.NoError(t, err)
	assert.Equal(t, "alice42", p.Username)
}

func TestClaimUsername_InvalidCharset(t *testing.T) {
	h, _ := newUserHandler()

	for _, username := range []string{"has space", "dash-ed", "über", ""} {
		body, err := json.Marshal(profile.ClaimUsernameRequest{Username: username})
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		h.ClaimUsername(rr, authedRequest(http.MethodPost, "/api/v1/auth/claim", body))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "username %q", username)
	}
}

func TestClaimUsername_Taken(t *testing.T) {
	h, _ := newUserHandler()

	claim := func(username string) int {
		rr := httptest.NewRecorder()
		h.ClaimUsername(rr, authedRequest(http.MethodPost, "/api/v1/auth/claim", []byte(`{"username":"`+username+`"}`)))
		return rr.Code
	}

	require.Equal(t, http.StatusCreated, claim("taken"))
	assert.Equal(t, http.StatusConflict, claim("taken"))
	// Normalization makes case variants collide too.
	assert.Equal(t, http.StatusConflict, claim("TAKEN"))
}

func TestUpdateProfile_Partial(t *testing.T) {
	h, userService := newUserHandler()

	_, err := userService.ClaimUsername(context.Background(), "user_test", "alice")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.UpdateProfile(rr, authedRequest(http.MethodPut, "/api/v1/profile", []byte(`{"bio":"hello"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var updated profile.UserProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "hello", updated.Bio)
	assert.Empty(t, updated.Caption)
}

func TestUploadPhoto_NotConfigured(t *testing.T) {
	h, _ := newUserHandler()

	rr := httptest.NewRecorder()
	h.UploadPhoto(rr, authedRequest(http.MethodPost, "/api/v1/profile/photo", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGetPublicProfile(t *testing.T) {
	h, userService := newUserHandler()

	_, err := userService.ClaimUsername(context.Background(), "user_test", "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/alice", nil)
	req = mux.SetURLVars(req, map[string]string{"username": "alice"})
	rr := httptest.NewRecorder()
	h.GetPublicProfile(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var public profile.PublicProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &public))
	assert.Equal(t, "alice", public.Username)
	assert.NotNil(t, public.Items)

	// The public view never leaks the account email.
	assert.NotContains(t, strings.ToLower(rr.Body.String()), "test@example.com")
}

func TestGetPublicProfile_NotFound(t *testing.T) {
	h, _ := newUserHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/nobody", nil)
	req = mux.SetURLVars(req, map[string]string{"username": "nobody"})
	rr := httptest.NewRecorder()
	h.GetPublicProfile(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
