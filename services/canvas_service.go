package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"linkFlowAPI/internal/store"
	"linkFlowAPI/internal/types/item"
	"linkFlowAPI/internal/types/profile"
)

// NoBaseVersion opts a mutation out of the stale-write check. Any
// negative base version is treated the same way; real versions start
// at zero.
const NoBaseVersion = int64(-1)

var (
	ErrVersionMismatch = errors.New("canvas was modified by another session")
	ErrItemNotFound    = errors.New("canvas item not found")
	ErrNotTextItem     = errors.New("only text items can be edited in place")
)

// CanvasService owns the items sequence of each profile and keeps it
// synchronized with the document store. Every mutation runs under a
// per-username lock: load, apply keyed by item ID, persist the entire
// items array together with an incremented canvasVersion. Callers may
// pass the version their read was based on to get stale writes
// rejected instead of silently overwritten.
type CanvasService struct {
	db store.DocumentStore

	mu sync.Mutex
	// One entry per mutated username, kept for the process lifetime.
	// Bounded by the number of claimed usernames.
	locks map[string]*sync.Mutex
}

func NewCanvasService(db store.DocumentStore) *CanvasService {
	return &CanvasService{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *CanvasService) profileLock(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.locks[username]
	if !exists {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	return l
}

// Load returns the profile's items and current canvas version. A
// profile whose document lacks an items field yields an empty slice,
// never an error. A missing profile is store.ErrNotFound: a canvas
// only exists under a claimed username, and every handler resolves
// the claimed profile before touching its canvas.
func (s *CanvasService) Load(ctx context.Context, username string) ([]item.Item, int64, error) {
	var p profile.UserProfile
	if err := s.db.Get(ctx, UsernamesCollection, username, &p); err != nil {
		return nil, 0, err
	}

	if p.Items == nil {
		p.Items = []item.Item{}
	}
	return p.Items, p.CanvasVersion, nil
}

// mutate serializes one canvas mutation: load, version check, apply,
// persist the full items array.
func (s *CanvasService) mutate(ctx context.Context, username string, baseVersion int64, apply func([]item.Item) ([]item.Item, error)) ([]item.Item, int64, error) {
	lock := s.profileLock(username)
	lock.Lock()
	defer lock.Unlock()

	items, version, err := s.Load(ctx, username)
	if err != nil {
		return nil, 0, err
	}

	if baseVersion >= 0 && baseVersion != version {
		return nil, 0, fmt.Errorf("%w: have %d, want %d", ErrVersionMismatch, baseVersion, version)
	}

	next, err := apply(items)
	if err != nil {
		return nil, 0, err
	}

	newVersion := version + 1
	err = s.db.Update(ctx, UsernamesCollection, username, map[string]any{
		"items":         next,
		"canvasVersion": newVersion,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to persist canvas for %s: %w", username, err)
	}

	return next, newVersion, nil
}

// AppendItem validates and appends a freshly created item.
func (s *CanvasService) AppendItem(ctx context.Context, username string, it item.Item, baseVersion int64) (item.Item, int64, error) {
	if err := it.Validate(); err != nil {
		return item.Item{}, 0, err
	}

	_, version, err := s.mutate(ctx, username, baseVersion, func(items []item.Item) ([]item.Item, error) {
		return append(items, it), nil
	})
	if err != nil {
		return item.Item{}, 0, err
	}
	return it, version, nil
}

func replaceByID(items []item.Item, itemID string, transform func(item.Item) (item.Item, error)) ([]item.Item, *item.Item, error) {
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		updated, err := transform(items[i])
		if err != nil {
			return nil, nil, err
		}
		items[i] = updated
		return items, &updated, nil
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
}

// MoveItem records a drag-stop: absolute replacement of the item's
// position. No clamping against canvas edges.
func (s *CanvasService) MoveItem(ctx context.Context, username, itemID string, x, y float64, baseVersion int64) (item.Item, int64, error) {
	return s.transformItem(ctx, username, itemID, baseVersion, func(it item.Item) (item.Item, error) {
		return it.MoveTo(x, y), nil
	})
}

// ResizeItem records a resize-stop: the gesture's delta applied to the
// item's stored size, clamped to minimum dimensions.
func (s *CanvasService) ResizeItem(ctx context.Context, username, itemID string, deltaWidth, deltaHeight float64, baseVersion int64) (item.Item, int64, error) {
	return s.transformItem(ctx, username, itemID, baseVersion, func(it item.Item) (item.Item, error) {
		return it.Resize(deltaWidth, deltaHeight), nil
	})
}

// UpdateTextItem applies an edit-in-place to a text item.
func (s *CanvasService) UpdateTextItem(ctx context.Context, username, itemID string, req *profile.UpdateTextItemRequest) (item.Item, int64, error) {
	baseVersion := NoBaseVersion
	if req.BaseVersion != nil {
		baseVersion = *req.BaseVersion
	}

	return s.transformItem(ctx, username, itemID, baseVersion, func(it item.Item) (item.Item, error) {
		if it.Type != item.ItemTypeText {
			return item.Item{}, ErrNotTextItem
		}
		if req.Content == "" {
			return item.Item{}, item.ErrEmptyContent
		}

		it.Content = req.Content
		if req.Font != "" {
			it.Font = req.Font
		}
		if req.Color != "" {
			it.Color = req.Color
		}
		if req.BackgroundColor != "" {
			it.BackgroundColor = req.BackgroundColor
		}
		if req.FontSize > 0 {
			it.FontSize = req.FontSize
		}
		return it, nil
	})
}

func (s *CanvasService) transformItem(ctx context.Context, username, itemID string, baseVersion int64, transform func(item.Item) (item.Item, error)) (item.Item, int64, error) {
	var updated *item.Item

	_, version, err := s.mutate(ctx, username, baseVersion, func(items []item.Item) ([]item.Item, error) {
		next, it, err := replaceByID(items, itemID, transform)
		if err != nil {
			return nil, err
		}
		updated = it
		return next, nil
	})
	if err != nil {
		return item.Item{}, 0, err
	}
	return *updated, version, nil
}

// RemoveItem deletes the item with the given ID. Removing an ID that
// is already gone succeeds as a no-op, so a stale delete can never
// take out a different item.
func (s *CanvasService) RemoveItem(ctx context.Context, username, itemID string, baseVersion int64) (int64, error) {
	_, version, err := s.mutate(ctx, username, baseVersion, func(items []item.Item) ([]item.Item, error) {
		filtered := items[:0:0]
		for _, it := range items {
			if it.ID != itemID {
				filtered = append(filtered, it)
			}
		}
		return filtered, nil
	})
	return version, err
}
