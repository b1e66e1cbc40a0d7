package cache

import (
	"context"
	"time"
)

const (
	InboundListKey  = "inventra:inbound:list"
	OutboundListKey = "inventra:outbound:list"
)

func AdjustmentListKey(productID string) string {
	return "inventra:adjustments:" + productID
}

// ListCache stores JSON snapshots of list responses. Misses are reported
// with found=false and a nil error.
type ListCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type NoopListCache struct{}

func (NoopListCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopListCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopListCache) Delete(_ context.Context, _ ...string) error {
	return nil
}
