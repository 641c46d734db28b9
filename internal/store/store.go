package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// DocumentStore is the narrow surface this service needs from the
// hosted document database: key-value documents grouped in named
// collections, plus a single-field equality lookup. Update merges the
// given fields into an existing document; Set overwrites the whole
// document.
type DocumentStore interface {
	// Get decodes the document at key into dest. Returns ErrNotFound
	// when the document does not exist.
	Get(ctx context.Context, collection, key string, dest any) error

	// FindByField decodes the first document whose field equals value
	// into dest. Returns ErrNotFound when no document matches.
	FindByField(ctx context.Context, collection, field, value string, dest any) error

	Set(ctx context.Context, collection, key string, doc any) error
	Update(ctx context.Context, collection, key string, fields map[string]any) error

	Close() error
}
