package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/internal/storage"
	"github.com/folio/folio/backend/go-services/pkg/logger"
)

// ObjectStore is the subset of storage.MinIOStorage used by ObjectTarget.
type ObjectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Put writes only if the object still has revision ifMatch; an empty
	// ifMatch requires the object to be absent.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType, ifMatch string) error
	Revision(ctx context.Context, key string) (string, error)
}

// ObjectTarget keeps the document as a single object in an S3-compatible
// bucket. Writes are conditioned on the ETag read just before them.
type ObjectTarget struct {
	store ObjectStore
	key   string
	log   *logger.Component
}

func NewObjectTarget(store ObjectStore, key string) *ObjectTarget {
	if key == "" {
		key = "db.json"
	}
	return &ObjectTarget{store: store, key: key, log: logger.Named("object-target")}
}

func (o *ObjectTarget) Name() string { return "object" }

func (o *ObjectTarget) Fetch(ctx context.Context) (*document.Document, error) {
	if o.store == nil {
		return nil, ErrDisabled
	}
	rc, err := o.store.Get(ctx, o.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("object get: %w", err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("object read: %w", err)
	}
	return document.Decode(b)
}

func (o *ObjectTarget) Persist(ctx context.Context, doc *document.Document) error {
	if o.store == nil {
		return ErrDisabled
	}
	rev, err := o.store.Revision(ctx, o.key)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("object revision: %w", err)
	}
	b, err := document.Encode(doc)
	if err != nil {
		return err
	}
	err = o.store.Put(ctx, o.key, bytes.NewReader(b), int64(len(b)), "application/json", rev)
	if errors.Is(err, storage.ErrPreconditionFailed) {
		return fmt.Errorf("%w: %s changed after revision %q", ErrConflict, o.key, rev)
	}
	if err != nil {
		return fmt.Errorf("object put: %w", err)
	}
	o.log.Debugf("replaced %s (previous etag %q, %d bytes)", o.key, rev, len(b))
	return nil
}
