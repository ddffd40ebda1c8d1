package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryClient keeps objects in process. Used in local mode and tests.
type MemoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func objectPath(bucket, key string) string {
	return bucket + "/" + key
}

func (c *MemoryClient) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read upload body: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[objectPath(bucket, key)] = data
	c.types[objectPath(bucket, key)] = contentType
	return nil
}

func (c *MemoryClient) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.objects[objectPath(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *MemoryClient) Delete(ctx context.Context, bucket, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, objectPath(bucket, key))
	delete(c.types, objectPath(bucket, key))
	return nil
}

// GetPresignedURL returns a memory:// URL; it is only meaningful to tests.
func (c *MemoryClient) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.objects[objectPath(bucket, key)]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory://%s/%s?expires=%d", bucket, key, int(expiration.Seconds())), nil
}

// ContentType reports the type an object was stored with.
func (c *MemoryClient) ContentType(bucket, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.types[objectPath(bucket, key)]
}

// Len reports the number of stored objects.
func (c *MemoryClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
