package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/internal/storage"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	puts    int
	failPut bool

	// beforePut runs between the revision read and the conditional check
	beforePut func()
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType, ifMatch string) error {
	if f.failPut {
		return errors.New("bucket unavailable")
	}
	if f.beforePut != nil {
		f.beforePut()
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return fmt.Errorf("size mismatch: %d != %d", len(b), size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.objects[key]
	if (ifMatch == "" && exists) || (ifMatch != "" && ifMatch != f.etagLocked(key)) {
		return storage.ErrPreconditionFailed
	}
	f.objects[key] = b
	f.types[key] = contentType
	f.puts++
	return nil
}

func (f *fakeObjectStore) Revision(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", storage.ErrObjectNotFound
	}
	return f.etagLocked(key), nil
}

func (f *fakeObjectStore) etagLocked(key string) string {
	if _, ok := f.objects[key]; !ok {
		return ""
	}
	return fmt.Sprintf("etag-%d", f.puts)
}

func TestObjectTargetRoundTrip(t *testing.T) {
	store := newFakeObjectStore()
	ot := NewObjectTarget(store, "")
	ctx := context.Background()

	_, err := ot.Fetch(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	doc := document.Default()
	doc.Certificates = append(doc.Certificates, document.Item{"id": float64(5), "title": "cert"})
	require.NoError(t, ot.Persist(ctx, doc))
	require.NoError(t, ot.Persist(ctx, doc))
	require.Equal(t, 2, store.puts)
	require.Equal(t, "application/json", store.types["db.json"])

	got, err := ot.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, got.Certificates, 1)
}

func TestObjectTargetErrors(t *testing.T) {
	require.ErrorIs(t, NewObjectTarget(nil, "x.json").Persist(context.Background(), document.Default()), ErrDisabled)

	store := newFakeObjectStore()
	store.failPut = true
	err := NewObjectTarget(store, "x.json").Persist(context.Background(), document.Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bucket unavailable")
}

func TestObjectTargetConflictWhenObjectChanges(t *testing.T) {
	store := newFakeObjectStore()
	ot := NewObjectTarget(store, "db.json")
	ctx := context.Background()
	require.NoError(t, ot.Persist(ctx, document.Default()))

	// another writer replaces the object between the revision read and the put
	store.beforePut = func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		store.objects["db.json"] = []byte(`{"settings":{"title":"theirs"}}`)
		store.puts++
	}
	mine := document.Default()
	mine.Settings["title"] = "mine"
	err := ot.Persist(ctx, mine)
	require.ErrorIs(t, err, ErrConflict)

	store.beforePut = nil
	got, err := ot.Fetch(ctx)
	require.NoError(t, err)
	require.Equal(t, "theirs", got.Settings["title"])
}

func TestObjectTargetCreateOnlyWhenAbsent(t *testing.T) {
	store := newFakeObjectStore()
	ot := NewObjectTarget(store, "db.json")

	// the object appears after the revision read reported it missing
	store.beforePut = func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		store.objects["db.json"] = []byte(`{}`)
	}
	require.ErrorIs(t, ot.Persist(context.Background(), document.Default()), ErrConflict)
}
