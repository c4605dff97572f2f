package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/sjson"
	"golang.org/x/crypto/blake2b"
)

// Store is durable storage for a single snapshot.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	// Load returns nil and no error when nothing is stored.
	Load(ctx context.Context) (*Snapshot, error)
	Clear(ctx context.Context) error
}

// digest hashes the snapshot without its timestamp so that saving the same
// state twice is recognized.
func digest(data []byte) ([32]byte, error) {
	body, err := sjson.DeleteBytes(data, "timestamp")
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(body), nil
}

// FileStore keeps the snapshot in one JSON file, replaced atomically on
// every write.
type FileStore struct {
	path string

	mu   sync.Mutex
	last [32]byte
	// Skipped counts writes avoided because the content was unchanged.
	skipped int
}

// NewFileStore stores the snapshot at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (f *FileStore) Path() string { return f.path }

// Skipped returns how many saves were elided as duplicates.
func (f *FileStore) Skipped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.skipped
}

func (f *FileStore) Save(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	sum, err := digest(data)
	if err != nil {
		return fmt.Errorf("digest snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if sum == f.last {
		f.skipped++
		return nil
	}
	if err := writeAtomic(f.path, data); err != nil {
		return err
	}
	f.last = sum
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Unmarshal(data)
}

// Peek reads the header of the stored snapshot.
func (f *FileStore) Peek() (Header, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Header{}, ErrNoSnapshot
	}
	if err != nil {
		return Header{}, fmt.Errorf("read snapshot: %w", err)
	}
	h, ok := Peek(data)
	if !ok {
		return Header{}, ErrCorrupt
	}
	return h, nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = [32]byte{}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// MemoryStore keeps the encoded snapshot in memory.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func (m *MemoryStore) Save(ctx context.Context, s Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	data := bytes.Clone(m.data)
	m.mu.Unlock()
	if data == nil {
		return nil, nil
	}
	return Unmarshal(data)
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Saves returns the number of writes so far.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Bytes returns the last encoded snapshot.
func (m *MemoryStore) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.data)
}
