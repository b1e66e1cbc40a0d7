// Package receipt stores shipping receipt images attached to outbound records.
package receipt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectName string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Extension returns the object extension for an accepted image content type.
func Extension(contentType string) (string, bool) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// ObjectName lays receipts out by upload day, e.g.
// receipts/2026/03/01/out-1234-3f0c9a1b.jpg. The extension comes from the
// content type; the client's file name is never used.
func ObjectName(outboundID string, contentType string, at time.Time) (string, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported receipt content type %q", contentType)
	}
	return fmt.Sprintf("receipts/%s/%s-%s%s", at.Format("2006/01/02"), outboundID, uuid.New().String()[:8], ext), nil
}

// MemoryStore keeps objects in process. Used when no object storage is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, objectName string, r io.Reader, _ int64, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = buf.Bytes()
	return nil
}

func (m *MemoryStore) Object(objectName string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[objectName]
	return b, ok
}

func (m *MemoryStore) Remove(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}
