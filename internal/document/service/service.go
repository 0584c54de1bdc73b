// Package service owns the in-memory site document and its write-behind
// persistence to a durable target.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/internal/document/repository"
	"github.com/folio/folio/backend/go-services/pkg/logger"
	"github.com/folio/folio/backend/go-services/pkg/metrics"
)

// Options tunes a Store. Zero values select the defaults.
type Options struct {
	// PersistTimeout bounds one durable write. Default 15s.
	PersistTimeout time.Duration
	// Now is the clock used for item ids.
	Now func() time.Time
}

// Store holds the single authoritative copy of the document for this process.
// Reads are served from memory once loaded; every mutation replaces the
// in-memory value synchronously and spawns one asynchronous persist of a
// snapshot. Persist failures are logged and counted, never returned, and are
// not retried: the next mutation writes the whole document again.
type Store struct {
	target  repository.Target
	timeout time.Duration
	now     func() time.Time
	log     *logger.Component

	mu     sync.RWMutex
	doc    *document.Document
	lastID int64
	gen    uint64

	persistMu sync.Mutex
	attempted uint64
	inflight  sync.WaitGroup
}

func NewStore(target repository.Target, opts Options) *Store {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		target:  target,
		timeout: opts.PersistTimeout,
		now:     opts.Now,
		log:     logger.Named("store"),
	}
}

// TargetName reports which durable target backs the store.
func (s *Store) TargetName() string { return s.target.Name() }

// Loaded reports whether the document has been read into memory.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc != nil
}

// Load returns a snapshot of the current document. The first call reads the
// durable target; when it is empty or unreadable the default document is
// used and persisted.
func (s *Store) Load(ctx context.Context) *document.Document {
	s.mu.RLock()
	if s.doc != nil {
		out := s.doc.Clone()
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(ctx)
	return s.doc.Clone()
}

// ensureLocked populates s.doc. Caller holds s.mu for writing.
func (s *Store) ensureLocked(ctx context.Context) {
	if s.doc != nil {
		return
	}
	// a client disconnect must not turn into "storage empty"
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	doc, err := s.target.Fetch(fctx)
	if err == nil {
		s.doc = doc
		s.log.Infof("loaded document from %s target", s.target.Name())
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Infof("%s target holds no document, starting from defaults", s.target.Name())
	} else {
		s.log.Warnf("read from %s target failed, starting from defaults: %v", s.target.Name(), err)
	}
	s.doc = document.Default()
	s.persistLocked()
}

// Save replaces the whole document. Concurrent saves are last-write-wins.
func (s *Store) Save(doc *document.Document) {
	if doc == nil {
		return
	}
	next := doc.Clone()
	next.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = next
	s.persistLocked()
}

// UpdateSettings merges patch into the settings: keys in patch overwrite,
// other keys keep their value. It returns the merged settings.
func (s *Store) UpdateSettings(ctx context.Context, patch map[string]any) document.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(ctx)
	for k, v := range patch {
		s.doc.Settings[k] = v
	}
	s.persistLocked()
	return s.doc.Clone().Settings
}

// SetSetting overwrites a single settings key.
func (s *Store) SetSetting(ctx context.Context, key string, value any) {
	s.UpdateSettings(ctx, map[string]any{key: value})
}

// AddItem appends a copy of fields to collection c with a freshly assigned
// id and returns the stored item.
func (s *Store) AddItem(ctx context.Context, c document.Collection, fields map[string]any) document.Item {
	item := document.Item{}
	for k, v := range fields {
		item[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(ctx)
	item["id"] = float64(s.nextIDLocked())
	items := s.doc.Items(c)
	*items = append(*items, item)
	s.persistLocked()
	return item.Clone()
}

// DeleteItem removes the first item of c whose id matches. A missing id is
// not an error; the return value reports whether anything was removed.
func (s *Store) DeleteItem(ctx context.Context, c document.Collection, id string) bool {
	want := document.IDString(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(ctx)
	items := s.doc.Items(c)
	for i, it := range *items {
		if it.ID() == want {
			*items = append((*items)[:i:i], (*items)[i+1:]...)
			s.persistLocked()
			return true
		}
	}
	return false
}

// Wait blocks until every persist spawned so far has finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}

// nextIDLocked returns a millisecond timestamp, bumped past the last id
// handed out so that rapid creations never collide within this process.
func (s *Store) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// persistLocked snapshots the document and writes it in the background.
// Caller holds s.mu for writing.
func (s *Store) persistLocked() {
	metrics.DocumentSaves.Inc()
	s.gen++
	gen := s.gen
	snap := s.doc.Clone()
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.persist(gen, snap)
	}()
}

func (s *Store) persist(gen uint64, snap *document.Document) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	// a newer snapshot was already sent, whatever its outcome
	if gen <= s.attempted {
		s.log.Debugf("skipping stale revision %d (attempted %d)", gen, s.attempted)
		return
	}
	s.attempted = gen
	name := s.target.Name()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	err := s.target.Persist(ctx, snap)
	metrics.PersistDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.PersistResults.WithLabelValues(name, "ok").Inc()
		s.log.Debugf("persisted revision %d to %s", gen, name)
	case errors.Is(err, repository.ErrDisabled):
		metrics.PersistResults.WithLabelValues(name, "disabled").Inc()
		s.log.Warnf("%s target disabled, keeping changes in memory only", name)
	case errors.Is(err, repository.ErrConflict):
		metrics.PersistResults.WithLabelValues(name, "conflict").Inc()
		s.log.Warnf("persist to %s lost a revision race: %v", name, err)
	default:
		metrics.PersistResults.WithLabelValues(name, "error").Inc()
		s.log.Errorf("persist to %s failed: %v", name, err)
	}
}
