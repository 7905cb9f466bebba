package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// ForeignEntity is an entity as the foreign repository describes it.
type ForeignEntity struct {
	GUID       string         `json:"guid"`
	TypeName   string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Version    int64          `json:"version,omitempty"`
	Modified   time.Time      `json:"modified,omitzero"`
}

// ForeignRepository resolves entities referenced by change records. Calls
// may block; they are made synchronously, one record at a time.
type ForeignRepository interface {
	// GetEntity returns ErrNotFound (possibly wrapped) for an unknown GUID.
	GetEntity(ctx context.Context, guid string) (*ForeignEntity, error)
}

// MapRepository is an in-memory ForeignRepository.
//
// Thread-safety: safe for concurrent use.
type MapRepository struct {
	mu       sync.RWMutex
	entities map[string]*ForeignEntity
}

// NewMapRepository returns a repository holding entities.
func NewMapRepository(entities ...*ForeignEntity) *MapRepository {
	m := &MapRepository{entities: make(map[string]*ForeignEntity, len(entities))}
	for _, e := range entities {
		m.Put(e)
	}
	return m
}

// Put adds or replaces an entity.
func (m *MapRepository) Put(e *ForeignEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.GUID] = e
}

// Remove forgets guid.
func (m *MapRepository) Remove(guid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, guid)
}

// GetEntity implements ForeignRepository.
func (m *MapRepository) GetEntity(ctx context.Context, guid string) (*ForeignEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[guid]
	if !ok {
		return nil, fmt.Errorf("%s: %w", guid, ErrNotFound)
	}
	out := *e
	return &out, nil
}

// Len returns the number of entities held.
func (m *MapRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

type snapshotFile struct {
	Entities []*ForeignEntity `json:"entities"`
}

// LoadSnapshot reads a JSON snapshot of the form {"entities": [...]}.
func LoadSnapshot(path string) (*MapRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	for i, e := range snap.Entities {
		if e == nil || e.GUID == "" {
			return nil, fmt.Errorf("snapshot %s: entities[%d] has no guid", path, i)
		}
	}
	return NewMapRepository(snap.Entities...), nil
}
