package nats

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"freegle/internal/core"
)

var _ core.PageCache = (*PageCache)(nil)

// PageCache keeps rendered pages in a JetStream KV bucket, shared by every site instance.
type PageCache struct {
	Logger *slog.Logger
	NATS   core.NATS

	now func() time.Time
}

func (c *PageCache) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "nats.PageCache")
	if c.now == nil {
		c.now = time.Now
	}
	return nil
}

// Paths may contain characters KV keys do not allow.
func pageKey(path string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(path))
}

func (c *PageCache) Get(ctx context.Context, path string) (*core.Page, bool, error) {
	entry, err := c.NATS.KV().Get(ctx, pageKey(path))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	page := &core.Page{}
	if err := json.Unmarshal(entry.Value(), page); err != nil {
		return nil, false, fmt.Errorf("failed to decode page %s: %w", path, err)
	}

	if page.Expired(c.now()) {
		if err := c.NATS.KV().Delete(ctx, pageKey(path)); err != nil {
			c.Logger.Warn("failed to delete expired page", "path", path, "error", err)
		}
		return nil, false, nil
	}

	return page, true, nil
}

func (c *PageCache) Put(ctx context.Context, path string, page *core.Page) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}

	if _, err := c.NATS.KV().Put(ctx, pageKey(path), raw); err != nil {
		return fmt.Errorf("failed to store page %s: %w", path, err)
	}
	return nil
}

func (c *PageCache) Purge(ctx context.Context) error {
	keys, err := c.NATS.KV().Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}
		return err
	}

	for _, key := range keys {
		if err := c.NATS.KV().Delete(ctx, key); err != nil {
			return err
		}
	}

	c.Logger.Info("Page cache purged", "pages", len(keys))
	return nil
}
