package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/profile"
	"linkFlowAPI/middleware"
	"linkFlowAPI/services"
)

const maxPhotoUploadBytes = 10 << 20

type UserHandler struct {
	userService   *services.UserService
	uploadService *services.UploadService
}

func NewUserHandler(userService *services.UserService, uploadService *services.UploadService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		uploadService: uploadService,
	}
}

// GetSession resolves the signed-in user to their profile. A signed-in
// user without a profile gets a 404 with needsUsername set, which the
// client turns into the claim-a-username step.
func (h *UserHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	p, err := h.userService.GetSession(ctx, clerkID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithJSON(w, http.StatusNotFound, map[string]any{"needsUsername": true})
		return
	}
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to resolve session")
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// ClaimUsername creates the profile for a first-time user.
func (h *UserHandler) ClaimUsername(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req profile.ClaimUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.userService.ClaimUsername(ctx, clerkID, req.Username)
	switch {
	case errors.Is(err, profile.ErrInvalidUsername):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		respondWithError(w, http.StatusConflict, "Username already taken")
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Failed to create profile")
	default:
		respondWithJSON(w, http.StatusCreated, p)
	}
}

// UpdateProfile applies a partial bio/caption edit to the caller's
// own profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, ok := h.ownProfile(ctx, w)
	if !ok {
		return
	}

	var req profile.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(ctx, p.Username, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// UploadPhoto uploads a new profile photo to the CDN and stores its
// URL. If the upload fails the stored URL is left untouched.
func (h *UserHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if h.uploadService == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Photo uploads are not configured")
		return
	}

	p, ok := h.ownProfile(ctx, w)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	photoURL, err := h.uploadService.UploadProfilePhoto(ctx, file, p.Username)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to upload profile photo")
		return
	}

	if err := h.userService.SetPhotoURL(ctx, p.Username, photoURL); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to save profile photo")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"photoURL": photoURL})
}

// GetPublicProfile serves the public view of any claimed username.
func (h *UserHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username := mux.Vars(r)["username"]

	p, err := h.userService.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Profile not found")
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, p.Public())
}

// ownProfile resolves the authenticated caller to their profile,
// writing the error response itself when that fails.
func (h *UserHandler) ownProfile(ctx context.Context, w http.ResponseWriter) (*profile.UserProfile, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return nil, false
	}

	p, err := h.userService.GetSession(ctx, clerkID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "No profile claimed for this account")
		return nil, false
	}
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to resolve session")
		return nil, false
	}

	return p, true
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
