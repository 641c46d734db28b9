package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"linkFlowAPI/internal/metacache"
	"linkFlowAPI/internal/types/item"
)

var (
	ErrEmptyURL            = errors.New("url is required")
	ErrInvalidURL          = errors.New("url is not a valid absolute URL")
	ErrMetadataUnavailable = errors.New("metadata could not be resolved")
)

// microlinkResponse mirrors the scraping service's envelope:
// {"data": {"title": ..., "description": ..., "image": {"url": ...}}}
type microlinkResponse struct {
	Data struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Image       struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"data"`
}

// LinkService resolves open-graph metadata for link items against an
// external scraping endpoint, with a best-effort on-disk cache in
// front of it. Resolution is one-shot: failures are reported to the
// caller, never retried here.
type LinkService struct {
	client   *http.Client
	endpoint string
	cache    *metacache.Cache
}

// NewLinkService builds a resolver against endpoint (microlink-style:
// GET ?url=<encoded>). cache may be nil to disable caching.
func NewLinkService(endpoint string, cache *metacache.Cache) *LinkService {
	return &LinkService{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		cache:    cache,
	}
}

// ResolveMetadata fetches title/description/preview image for rawURL.
// The returned metadata is what gates the add-link flow: no metadata,
// no link item.
func (s *LinkService) ResolveMetadata(ctx context.Context, rawURL string) (*item.LinkMetadata, error) {
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, ErrInvalidURL
	}

	if s.cache != nil {
		if meta, ok := s.cache.Get(rawURL); ok {
			return meta, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("LinkService: metadata fetch failed for %s: %v", rawURL, err)
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("LinkService: metadata endpoint returned %d for %s", resp.StatusCode, rawURL)
		return nil, fmt.Errorf("%w: status %d", ErrMetadataUnavailable, resp.StatusCode)
	}

	var body microlinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("LinkService: failed to parse metadata response for %s: %v", rawURL, err)
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}

	meta := &item.LinkMetadata{
		Title:       body.Data.Title,
		Description: body.Data.Description,
		Image:       body.Data.Image.URL,
	}

	if s.cache != nil {
		if err := s.cache.Put(rawURL, meta); err != nil {
			log.Printf("LinkService: failed to cache metadata for %s: %v", rawURL, err)
		}
	}

	return meta, nil
}
