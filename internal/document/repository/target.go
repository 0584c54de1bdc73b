// Package repository holds the durable targets the site document is persisted to.
package repository

import (
	"context"
	"errors"

	"github.com/folio/folio/backend/go-services/internal/document"
)

var (
	// ErrNotFound is returned by Fetch when the target holds no document yet.
	ErrNotFound = errors.New("document not found")
	// ErrDisabled is returned when the target lacks the credential it needs.
	ErrDisabled = errors.New("durable target disabled")
	// ErrConflict is returned when a conditional update loses to a newer revision.
	ErrConflict = errors.New("revision conflict")
)

// Target is one durable destination for the site document.
type Target interface {
	Name() string
	Fetch(ctx context.Context) (*document.Document, error)
	Persist(ctx context.Context, doc *document.Document) error
}
