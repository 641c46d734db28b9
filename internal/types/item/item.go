package item

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type ItemType string

const (
	ItemTypeText ItemType = "text"
	ItemTypeLink ItemType = "link"
)

// Minimum dimensions enforced on every resize, matching the editor's
// resize handles.
const (
	MinWidth  = 100.0
	MinHeight = 50.0
)

// Default geometry for freshly created items.
const (
	initialX       = 20.0
	initialY       = 20.0
	textInitWidth  = 200.0
	linkInitWidth  = 320.0
	linkInitHeight = 180.0
)

var (
	ErrEmptyContent    = errors.New("item content is empty")
	ErrMissingMetadata = errors.New("link item requires resolved metadata")
	ErrUnknownType     = errors.New("unknown item type")
)

type Position struct {
	X float64 `json:"x" firestore:"x"`
	Y float64 `json:"y" firestore:"y"`
}

type Size struct {
	Width  float64 `json:"width" firestore:"width"`
	Height float64 `json:"height" firestore:"height"`
}

// LinkMetadata holds the open-graph data resolved for a link item's URL.
// A link item is never persisted without it.
type LinkMetadata struct {
	Title       string `json:"title" firestore:"title"`
	Description string `json:"description" firestore:"description"`
	Image       string `json:"image" firestore:"image"`
}

// Item is one positioned, sized, styled element on a profile canvas.
// ID and Type are immutable after creation; geometry and (for text
// items) styling are mutable.
type Item struct {
	ID              string        `json:"id" firestore:"id"`
	Type            ItemType      `json:"type" firestore:"type"`
	Content         string        `json:"content" firestore:"content"`
	Font            string        `json:"font,omitempty" firestore:"font,omitempty"`
	Color           string        `json:"color,omitempty" firestore:"color,omitempty"`
	BackgroundColor string        `json:"backgroundColor,omitempty" firestore:"backgroundColor,omitempty"`
	FontSize        int           `json:"fontSize,omitempty" firestore:"fontSize,omitempty"`
	Position        Position      `json:"position" firestore:"position"`
	Size            Size          `json:"size" firestore:"size"`
	Metadata        *LinkMetadata `json:"metadata,omitempty" firestore:"metadata,omitempty"`
}

// Gradient builds the two-stop linear-gradient descriptor the editors
// offer as an alternative to a solid background color.
func Gradient(start, end string) string {
	return fmt.Sprintf("linear-gradient(to right, %s, %s)", start, end)
}

// NewTextItem builds a text item from the text editor's draft fields.
// Initial size is derived from the chosen font size.
func NewTextItem(content, font, color, backgroundColor string, fontSizePx int) (Item, error) {
	if content == "" {
		return Item{}, ErrEmptyContent
	}

	return Item{
		ID:              uuid.New().String(),
		Type:            ItemTypeText,
		Content:         content,
		Font:            font,
		Color:           color,
		BackgroundColor: backgroundColor,
		FontSize:        fontSizePx,
		Position:        Position{X: initialX, Y: initialY},
		Size:            Size{Width: textInitWidth, Height: float64(fontSizePx * 2)},
	}, nil
}

// NewLinkItem builds a link card. Metadata must already be resolved;
// the add-link flow is gated on it.
func NewLinkItem(url, backgroundColor string, meta *LinkMetadata) (Item, error) {
	if url == "" {
		return Item{}, ErrEmptyContent
	}
	if meta == nil {
		return Item{}, ErrMissingMetadata
	}

	return Item{
		ID:              uuid.New().String(),
		Type:            ItemTypeLink,
		Content:         url,
		BackgroundColor: backgroundColor,
		Position:        Position{X: initialX, Y: initialY},
		Size:            Size{Width: linkInitWidth, Height: linkInitHeight},
		Metadata:        meta,
	}, nil
}

// MoveTo returns a copy of the item at the given absolute position.
// Positions are not clamped: items may be dragged off-canvas.
func (it Item) MoveTo(x, y float64) Item {
	it.Position = Position{X: x, Y: y}
	return it
}

// Resize applies a resize gesture's delta to the item's stored size,
// clamped to the minimum dimensions.
func (it Item) Resize(deltaWidth, deltaHeight float64) Item {
	it.Size = Size{
		Width:  max(MinWidth, it.Size.Width+deltaWidth),
		Height: max(MinHeight, it.Size.Height+deltaHeight),
	}
	return it
}

// Validate reports whether the item satisfies the persistence
// invariants. Called before any item reaches the canvas store.
func (it Item) Validate() error {
	switch it.Type {
	case ItemTypeText:
	case ItemTypeLink:
		if it.Metadata == nil {
			return ErrMissingMetadata
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, it.Type)
	}

	if it.Content == "" {
		return ErrEmptyContent
	}

	// Size minimums bound resize gestures, not creation: a fresh text
	// item's height is fontSize*2 and may legitimately sit below them.
	return nil
}
