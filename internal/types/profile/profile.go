package profile

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"linkFlowAPI/internal/types/item"
)

// Usernames are chosen exactly once at signup and double as the
// document key, so the charset is deliberately narrow.
var usernamePattern = regexp.MustCompile(`^[a-z0-9]+$`)

var ErrInvalidUsername = errors.New("username must contain only lowercase letters and numbers")

// UserProfile is the document stored per username. The canvas items
// are embedded; CanvasVersion increments on every canvas mutation and
// lets stale writers be rejected instead of silently overwritten.
type UserProfile struct {
	Username      string      `json:"username" firestore:"username"`
	Email         string      `json:"email" firestore:"email"`
	FirstName     string      `json:"firstName" firestore:"firstName"`
	LastName      string      `json:"lastName" firestore:"lastName"`
	CreatedAt     time.Time   `json:"createdAt" firestore:"createdAt"`
	Bio           string      `json:"bio,omitempty" firestore:"bio,omitempty"`
	Caption       string      `json:"caption,omitempty" firestore:"caption,omitempty"`
	PhotoURL      string      `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	Items         []item.Item `json:"items" firestore:"items"`
	CanvasVersion int64       `json:"canvasVersion" firestore:"canvasVersion"`
}

// NormalizeUsername lowercases and validates a requested username.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if !usernamePattern.MatchString(username) {
		return "", ErrInvalidUsername
	}
	return username, nil
}

type ClaimUsernameRequest struct {
	Username string `json:"username"`
}

type UpdateProfileRequest struct {
	Bio     *string `json:"bio,omitempty"`
	Caption *string `json:"caption,omitempty"`
}

type AddTextItemRequest struct {
	Content         string `json:"content"`
	Font            string `json:"font,omitempty"`
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	GradientStart   string `json:"gradientStart,omitempty"`
	GradientEnd     string `json:"gradientEnd,omitempty"`
	FontSize        int    `json:"fontSize"`
	BaseVersion     *int64 `json:"baseVersion,omitempty"`
}

// Background resolves the solid-vs-gradient choice the text editor
// offers. Gradient wins when both stops are present.
func (r *AddTextItemRequest) Background() string {
	if r.GradientStart != "" && r.GradientEnd != "" {
		return item.Gradient(r.GradientStart, r.GradientEnd)
	}
	return r.BackgroundColor
}

type AddLinkItemRequest struct {
	URL             string             `json:"url"`
	BackgroundColor string             `json:"backgroundColor,omitempty"`
	Metadata        *item.LinkMetadata `json:"metadata"`
	BaseVersion     *int64             `json:"baseVersion,omitempty"`
}

type MoveItemRequest struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	BaseVersion *int64  `json:"baseVersion,omitempty"`
}

type ResizeItemRequest struct {
	DeltaWidth  float64 `json:"deltaWidth"`
	DeltaHeight float64 `json:"deltaHeight"`
	BaseVersion *int64  `json:"baseVersion,omitempty"`
}

type UpdateTextItemRequest struct {
	Content         string `json:"content"`
	Font            string `json:"font,omitempty"`
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	FontSize        int    `json:"fontSize,omitempty"`
	BaseVersion     *int64 `json:"baseVersion,omitempty"`
}

// CanvasResponse is what the editor loads before rendering: the items
// plus the version subsequent mutations should be based on.
type CanvasResponse struct {
	Items   []item.Item `json:"items"`
	Version int64       `json:"version"`
}

// PublicProfile is the subset of a profile exposed on the public page
// and the unauthenticated profile endpoint.
type PublicProfile struct {
	Username  string      `json:"username"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Bio       string      `json:"bio,omitempty"`
	Caption   string      `json:"caption,omitempty"`
	PhotoURL  string      `json:"photoURL,omitempty"`
	Items     []item.Item `json:"items"`
}

// Public strips the private fields from a profile.
func (p *UserProfile) Public() PublicProfile {
	items := p.Items
	if items == nil {
		items = []item.Item{}
	}
	return PublicProfile{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Bio:       p.Bio,
		Caption:   p.Caption,
		PhotoURL:  p.PhotoURL,
		Items:     items,
	}
}
