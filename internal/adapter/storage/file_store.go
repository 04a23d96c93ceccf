package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

// availabilityDocument is the single-document persisted layout: the whole
// map for a kind plus its last update metadata.
type availabilityDocument struct {
	Type        string                 `json:"type"`
	Data        domain.AvailabilityMap `json:"data"`
	LastUpdated time.Time              `json:"last_updated"`
	UpdatedBy   string                 `json:"updated_by,omitempty"`
}

// FileStore persists each kind as one JSON document under a directory.
// Writes go through a temp file plus rename, so readers never observe a
// torn document.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(kind domain.Kind) string {
	return filepath.Join(f.dir, string(kind)+".json")
}

func (f *FileStore) LoadAll(ctx context.Context, kind domain.Kind) (domain.AvailabilityMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(kind)
	if err != nil {
		return nil, err
	}
	return doc.Data.Clone(), nil
}

func (f *FileStore) SaveBulk(ctx context.Context, kind domain.Kind, patch domain.AvailabilityMap, actor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.read(kind)
	if err != nil {
		return err
	}
	for k, v := range patch {
		doc.Data[k] = v
	}
	doc.LastUpdated = time.Now().UTC()
	doc.UpdatedBy = actor
	return f.write(kind, doc)
}

func (f *FileStore) Clear(ctx context.Context, kind domain.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(kind, availabilityDocument{
		Type:        "availability",
		Data:        domain.AvailabilityMap{},
		LastUpdated: time.Now().UTC(),
	})
}

func (f *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *FileStore) read(kind domain.Kind) (availabilityDocument, error) {
	doc := availabilityDocument{Type: "availability", Data: domain.AvailabilityMap{}}
	b, err := os.ReadFile(f.path(kind))
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", kind, err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", kind, err)
	}
	if doc.Data == nil {
		doc.Data = domain.AvailabilityMap{}
	}
	return doc, nil
}

func (f *FileStore) write(kind domain.Kind, doc availabilityDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	tmp := f.path(kind) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := os.Rename(tmp, f.path(kind)); err != nil {
		return fmt.Errorf("rename %s: %w", kind, err)
	}
	return nil
}
