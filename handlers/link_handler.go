package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"linkFlowAPI/middleware"
	"linkFlowAPI/services"
)

// LinkHandler serves the first phase of the add-link flow: resolving
// open-graph metadata for a URL before the client commits the item.
type LinkHandler struct {
	linkService *services.LinkService
}

func NewLinkHandler(linkService *services.LinkService) *LinkHandler {
	return &LinkHandler{linkService: linkService}
}

// ResolveMetadata fetches title/description/preview image for the
// given url query parameter. Failures leave the client without
// metadata, which keeps add-link disabled.
func (h *LinkHandler) ResolveMetadata(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if _, ok := middleware.GetClerkID(ctx); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	rawURL := r.URL.Query().Get("url")

	start := time.Now()
	meta, err := h.linkService.ResolveMetadata(ctx, rawURL)
	switch {
	case errors.Is(err, services.ErrEmptyURL), errors.Is(err, services.ErrInvalidURL):
		middleware.ObserveMetadataFetch("invalid", time.Since(start))
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrMetadataUnavailable):
		middleware.ObserveMetadataFetch("failure", time.Since(start))
		respondWithError(w, http.StatusBadGateway, "Failed to resolve metadata for URL")
	case err != nil:
		middleware.ObserveMetadataFetch("failure", time.Since(start))
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve metadata")
	default:
		middleware.ObserveMetadataFetch("success", time.Since(start))
		respondWithJSON(w, http.StatusOK, meta)
	}
}
