package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/folio/folio/backend/go-services/internal/document"
)

// FileTarget stores the document as a JSON file. Writes go to a temporary
// file that is renamed into place; the previous revision is kept as <path>.bak.
type FileTarget struct {
	path string
	mu   sync.Mutex
}

func NewFileTarget(path string) *FileTarget {
	return &FileTarget{path: path}
}

func (f *FileTarget) Name() string { return "file" }

func (f *FileTarget) Path() string { return f.path }

func (f *FileTarget) BackupPath() string { return f.path + ".bak" }

// Fetch reads the primary file, falling back to the backup when the primary
// is missing or cannot be decoded.
func (f *FileTarget) Fetch(ctx context.Context) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := readDocument(f.path)
	if err == nil {
		return doc, nil
	}
	bak, bakErr := readDocument(f.BackupPath())
	if bakErr == nil {
		return bak, nil
	}
	if errors.Is(err, os.ErrNotExist) && errors.Is(bakErr, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return nil, err
}

func (f *FileTarget) Persist(ctx context.Context, doc *document.Document) error {
	b, err := document.Encode(doc)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := writeSynced(tmp, b); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// keep the last decodable revision as the backup
	if _, err := readDocument(f.path); err == nil {
		if err := os.Rename(f.path, f.BackupPath()); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rotate backup: %w", err)
		}
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename data file: %w", err)
	}
	return nil
}

// CheckReport describes the state of the data file and its backup.
type CheckReport struct {
	Path         string `json:"path"`
	PrimaryOK    bool   `json:"primaryOk"`
	PrimaryError string `json:"primaryError,omitempty"`
	BackupOK     bool   `json:"backupOk"`
	BackupError  string `json:"backupError,omitempty"`
	Items        int    `json:"items"`
}

// Check decodes both files without modifying anything.
func (f *FileTarget) Check() CheckReport {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := CheckReport{Path: f.path}
	if doc, err := readDocument(f.path); err != nil {
		r.PrimaryError = err.Error()
	} else {
		r.PrimaryOK = true
		for _, c := range document.Collections {
			r.Items += len(*doc.Items(c))
		}
	}
	if _, err := readDocument(f.BackupPath()); err != nil {
		r.BackupError = err.Error()
	} else {
		r.BackupOK = true
	}
	return r
}

// Restore replaces the primary file with the backup revision.
func (f *FileTarget) Restore() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.BackupPath())
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if _, err := document.Decode(b); err != nil {
		return fmt.Errorf("backup unusable: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := writeSynced(tmp, b); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, f.path)
}

func readDocument(path string) (*document.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return document.Decode(b)
}

func writeSynced(path string, b []byte) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := fh.Write(b); err != nil {
		fh.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	return fh.Close()
}
