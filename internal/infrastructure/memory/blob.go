package memory

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/immunopass-go/internal/domain"
)

// BlobStore keeps uploaded objects in memory under mem://<key> references.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// FailPuts makes every Put fail; used to exercise upload failure paths.
	FailPuts bool
}

func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string][]byte)}
}

func (b *BlobStore) Put(_ context.Context, data []byte, _ string, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailPuts {
		return "", fmt.Errorf("memory blob store: put %s refused", key)
	}
	b.objects[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (b *BlobStore) GetLines(_ context.Context, ref string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	const prefix = "mem://"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return nil, fmt.Errorf("invalid blob reference %q: %w", ref, domain.ErrBadRequest)
	}
	data, ok := b.objects[ref[len(prefix):]]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", ref, domain.ErrNotFound)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func (b *BlobStore) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	const prefix = "mem://"
	if !strings.HasPrefix(ref, prefix) {
		return fmt.Errorf("invalid blob reference %q: %w", ref, domain.ErrBadRequest)
	}
	delete(b.objects, strings.TrimPrefix(ref, prefix))
	return nil
}

// Len returns the number of stored objects.
func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
