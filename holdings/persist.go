package holdings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"crypto-portfolio/models"
)

// StateVersion is stamped on every persisted blob
const StateVersion = 1

// ErrNoState is returned by a Persister that has nothing stored under a name
var ErrNoState = errors.New("no persisted state")

// Persister loads and saves a named state blob. Implementations must be
// safe for concurrent use.
type Persister interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// PersistedState is the persisted subset of the store. Volatile UI fields
// are deliberately absent.
type PersistedState struct {
	Version           int                 `json:"version"`
	Holdings          []models.Holding    `json:"holdings"`
	TableSorting      []models.SortColumn `json:"tableSorting"`
	TableGlobalFilter string              `json:"tableGlobalFilter"`
}

func encodeState(st PersistedState) ([]byte, error) {
	st.Version = StateVersion
	if st.Holdings == nil {
		st.Holdings = []models.Holding{}
	}
	if st.TableSorting == nil {
		st.TableSorting = []models.SortColumn{}
	}
	return json.Marshal(st)
}

// decodeState parses a blob. Unknown fields are ignored and missing ones
// keep their zero value.
func decodeState(data []byte) (PersistedState, error) {
	var st PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return PersistedState{}, fmt.Errorf("failed to decode state: %w", err)
	}
	return st, nil
}

// FilePersister stores the blob in a single file, optionally sealed. The
// file holds one blob, so the name is only used in errors.
type FilePersister struct {
	mu     sync.Mutex
	path   string
	sealer *Sealer
}

// NewFilePersister creates a FilePersister at path. A non-empty passphrase
// seals the file with AES-256-GCM.
func NewFilePersister(path, passphrase string) (*FilePersister, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	p := &FilePersister{path: path}
	if passphrase != "" {
		sealer, err := NewSealer(passphrase)
		if err != nil {
			return nil, err
		}
		p.sealer = sealer
	}
	return p, nil
}

// Load implements Persister
func (p *FilePersister) Load(ctx context.Context, name string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state %s: %w", name, err)
	}

	if p.sealer != nil {
		return p.sealer.Open(data)
	}
	return data, nil
}

// Save implements Persister. The file is replaced atomically.
func (p *FilePersister) Save(ctx context.Context, name string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sealer != nil {
		sealed, err := p.sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to seal state %s: %w", name, err)
		}
		data = sealed
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state %s: %w", name, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace state %s: %w", name, err)
	}
	return nil
}

// MemoryPersister keeps blobs in process memory
type MemoryPersister struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// SaveErr, when set, fails every Save
	SaveErr error
}

// NewMemoryPersister creates an empty MemoryPersister
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{blobs: make(map[string][]byte)}
}

// Load implements Persister
func (p *MemoryPersister) Load(ctx context.Context, name string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok := p.blobs[name]
	if !ok {
		return nil, ErrNoState
	}
	return append([]byte(nil), data...), nil
}

// Save implements Persister
func (p *MemoryPersister) Save(ctx context.Context, name string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SaveErr != nil {
		return p.SaveErr
	}
	p.blobs[name] = append([]byte(nil), data...)
	return nil
}
