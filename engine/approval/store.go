package approval

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
)

// Store persists Approval Tickets keyed by workflow_uid.
type Store interface {
	Put(t Ticket) error
	Get(workflowUID string) (Ticket, bool, error)
	All() ([]Ticket, error)
}

// MemoryStore is the default in-process Store: a mutex-guarded map, correct
// for a single engine instance and the common case.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]Ticket
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]Ticket)}
}

func (m *MemoryStore) Put(t Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.WorkflowUID] = t
	return nil
}

func (m *MemoryStore) Get(workflowUID string) (Ticket, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[workflowUID]
	return t, ok, nil
}

func (m *MemoryStore) All() ([]Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, t)
	}
	return out, nil
}

// FileStore persists tickets as a single JSON file guarded by an flock file
// lock, so multiple engine processes sharing a mount can correlate
// submissions safely — the alternate backend named in the Domain Stack for
// `github.com/gofrs/flock`.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a FileStore backed by path, creating an empty ticket
// file if one does not already exist.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, lock: flock.New(path + ".lock")}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if writeErr := fs.writeAll(map[string]Ticket{}); writeErr != nil {
			return nil, writeErr
		}
	}
	return fs, nil
}

func (fs *FileStore) readAll() (map[string]Ticket, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, fmt.Errorf("approval file store: failed to read %s: %w", fs.path, err)
	}
	tickets := make(map[string]Ticket)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &tickets); err != nil {
			return nil, fmt.Errorf("approval file store: failed to decode %s: %w", fs.path, err)
		}
	}
	return tickets, nil
}

func (fs *FileStore) writeAll(tickets map[string]Ticket) error {
	data, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return fmt.Errorf("approval file store: failed to encode tickets: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0o644); err != nil {
		return fmt.Errorf("approval file store: failed to write %s: %w", fs.path, err)
	}
	return nil
}

func (fs *FileStore) Put(t Ticket) error {
	if err := fs.lock.Lock(); err != nil {
		return fmt.Errorf("approval file store: failed to acquire lock: %w", err)
	}
	defer fs.lock.Unlock()

	tickets, err := fs.readAll()
	if err != nil {
		return err
	}
	tickets[t.WorkflowUID] = t
	return fs.writeAll(tickets)
}

func (fs *FileStore) Get(workflowUID string) (Ticket, bool, error) {
	if err := fs.lock.RLock(); err != nil {
		return Ticket{}, false, fmt.Errorf("approval file store: failed to acquire read lock: %w", err)
	}
	defer fs.lock.Unlock()

	tickets, err := fs.readAll()
	if err != nil {
		return Ticket{}, false, err
	}
	t, ok := tickets[workflowUID]
	return t, ok, nil
}

func (fs *FileStore) All() ([]Ticket, error) {
	if err := fs.lock.RLock(); err != nil {
		return nil, fmt.Errorf("approval file store: failed to acquire read lock: %w", err)
	}
	defer fs.lock.Unlock()

	tickets, err := fs.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t)
	}
	return out, nil
}
