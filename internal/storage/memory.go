package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryStore keeps objects in memory. It backs development runs and tests
// and is safe for concurrent use.
type MemoryStore struct {
	publicURLs
	mu      sync.RWMutex
	objects map[string]memoryObject
	// failOn makes Upload fail for keys with the given prefix.
	failOn map[string]error
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty store whose public URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &MemoryStore{
		publicURLs: publicURLs{base: baseURL},
		objects:    make(map[string]memoryObject),
		failOn:     make(map[string]error),
	}
}

// FailUploads makes subsequent uploads under prefix return err.
func (m *MemoryStore) FailUploads(prefix string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[prefix] = err
}

func (m *MemoryStore) Upload(ctx context.Context, key string, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	for prefix, err := range m.failOn {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			m.mu.RUnlock()
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	m.mu.RUnlock()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", obj.Name, err)
	}
	if obj.Size >= 0 && int64(len(data)) != obj.Size {
		return fmt.Errorf("size mismatch for %s: expected %d bytes, got %d", obj.Name, obj.Size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentTypeOf(obj)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	delete(m.objects, key)
	return nil
}

// Get returns a copy of the stored bytes and content type.
func (m *MemoryStore) Get(key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return bytes.Clone(obj.data), obj.contentType, nil
}

// Keys lists the stored keys in lexical order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
