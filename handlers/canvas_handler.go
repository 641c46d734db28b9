package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/item"
	"linkFlowAPI/internal/types/profile"
	"linkFlowAPI/middleware"
	"linkFlowAPI/services"
)

// CanvasHandler is the interaction surface of the editor: it turns
// add/drag/resize/edit/delete requests into canvas store mutations on
// the caller's own canvas.
type CanvasHandler struct {
	canvasService *services.CanvasService
	userService   *services.UserService
}

func NewCanvasHandler(canvasService *services.CanvasService, userService *services.UserService) *CanvasHandler {
	return &CanvasHandler{
		canvasService: canvasService,
		userService:   userService,
	}
}

func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username, ok := h.ownUsername(ctx, w)
	if !ok {
		return
	}

	items, version, err := h.canvasService.Load(ctx, username)
	if err != nil {
		h.respondCanvasError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile.CanvasResponse{Items: items, Version: version})
}

// AddTextItem appends a text item built from the text editor's draft.
func (h *CanvasHandler) AddTextItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username, ok := h.ownUsername(ctx, w)
	if !ok {
		return
	}

	var req profile.AddTextItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FontSize <= 0 {
		req.FontSize = 16
	}

	it, err := item.NewTextItem(req.Content, req.Font, req.Color, req.Background(), req.FontSize)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, version, err := h.canvasService.AppendItem(ctx, username, it, baseVersion(req.BaseVersion))
	if err != nil {
		h.respondCanvasError(w, err)
		return
	}

	middleware.ObserveCanvasMutation("append_text")
	respondWithJSON(w, http.StatusCreated, map[string]any{"item": added, "version": version})
}

// AddLinkItem appends a link card. Metadata must already be resolved
// (possibly hand-edited client-side); without it the request fails and
// nothing is persisted.
func (h *CanvasHandler) AddLinkItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username, ok := h.ownUsername(ctx, w)
	if !ok {
		return
	}

	var req profile.AddLinkItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	it, err := item.NewLinkItem(req.URL, req.BackgroundColor, req.Metadata)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, version, err := h.canvasService.AppendItem(ctx, username, it, baseVersion(req.BaseVersion))
	if err != nil {
		h.respondCanvasError(w, err)
		return
	}

	middleware.ObserveCanvasMutation("append_link")
	respondWithJSON(w, http.StatusCreated, map[string]any{"item": added, "version": version})
}

// MoveItem records a drag-stop at an absolute position.
func (h *CanvasHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username, ok := h.ownUsername(ctx, w)
	if !ok {
		return
	}

	var req profile.MoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	moved, version, err := h.canvasService.MoveItem(ctx, username, mux.Vars(r)["itemID"], req.X, req.Y, baseVersion(req.BaseVersion))
	if err != nil {
		h.respondCanvasError(w, err)
		return
	}

	middleware.ObserveCanvasMutation("move")
	respondWithJSON(w, http.StatusOK, map[string]any{"item": moved, "version": version})
}

// ResizeItem records a resize-stop as a delta against the stored size.
func (h *CanvasHandler) ResizeItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username, ok := h.ownUsername(ctx, w)
	if !ok {
		return
	}

	var req profile.ResizeItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resized, version, err := h.canvasService.ResizeItem(ctx, username, mux.Vars(r)["itemID"], req.DeltaWidth, req.DeltaHeight, baseVersion(req.BaseVersion))
	if err != nil {
		h.respondCanvasError(w, err)
		return
	}

	middleware.ObserveCanvasMutation("resize")
	respondWithJSON(w, http.StatusOK, map[string]any{"item": resized, "version": version})
}

// UpdateTextItem applies an edit-in-place to a text item.
func (h *CanvasHandler) UpdateTextItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username, ok := h.ownUsername(ctx, w)
	if !ok {
		return
	}

	var req profile.UpdateTextItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, version, err := h.canvasService.UpdateTextItem(ctx, username, mux.Vars(r)["itemID"], &req)
	if err != nil {
		h.respondCanvasError(w, err)
		return
	}

	middleware.ObserveCanvasMutation("edit_text")
	respondWithJSON(w, http.StatusOK, map[string]any{"item": updated, "version": version})
}

// DeleteItem removes an item. Deleting an ID that is already gone is
// a no-op success.
func (h *CanvasHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	username, ok := h.ownUsername(ctx, w)
	if !ok {
		return
	}

	version, err := h.canvasService.RemoveItem(ctx, username, mux.Vars(r)["itemID"], versionFromQuery(r))
	if err != nil {
		h.respondCanvasError(w, err)
		return
	}

	middleware.ObserveCanvasMutation("remove")
	respondWithJSON(w, http.StatusOK, map[string]any{"version": version})
}

func (h *CanvasHandler) ownUsername(ctx context.Context, w http.ResponseWriter) (string, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return "", false
	}

	p, err := h.userService.GetSession(ctx, clerkID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "No profile claimed for this account")
		return "", false
	}
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to resolve session")
		return "", false
	}

	return p.Username, true
}

func (h *CanvasHandler) respondCanvasError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrVersionMismatch):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrItemNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotTextItem),
		errors.Is(err, item.ErrEmptyContent),
		errors.Is(err, item.ErrMissingMetadata),
		errors.Is(err, item.ErrUnknownType):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Profile not found")
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to update canvas")
	}
}

func baseVersion(v *int64) int64 {
	if v == nil {
		return services.NoBaseVersion
	}
	return *v
}

// versionFromQuery reads the optional ?version= parameter used by
// requests without a body.
func versionFromQuery(r *http.Request) int64 {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return services.NoBaseVersion
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return services.NoBaseVersion
	}
	return v
}
