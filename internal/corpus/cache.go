package corpus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/mailsearch/internal/embedder"
	"github.com/dshills/mailsearch/internal/storage"
)

const loadKey = "corpus"

// Snapshot is an immutable view of the loaded corpus.
// All four slices have equal length and position i describes one email.
type Snapshot struct {
	IDs      []int64
	Subjects []string
	Bodies   []string
	Vectors  [][]float32
}

// Len returns the number of emails in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.IDs)
}

// Cache lazily loads and embeds the corpus
type Cache struct {
	storage  storage.Storage
	embedder embedder.Embedder
	logger   *zap.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
	group    singleflight.Group
}

// NewCache creates an empty cache. Nothing is read until EnsureLoaded.
func NewCache(store storage.Storage, emb embedder.Embedder, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		storage:  store,
		embedder: emb,
		logger:   logger,
	}
}

// Loaded reports whether a snapshot is currently held
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot != nil
}

// EnsureLoaded returns the current snapshot, loading it first if needed.
// Subsequent calls are cheap until Invalidate is called. Concurrent callers
// share one load; a caller whose ctx ends stops waiting but the load goes on
// for the others.
func (c *Cache) EnsureLoaded(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	return c.shared(ctx, func(loadCtx context.Context) (*Snapshot, error) {
		// Another caller may have published while we waited on the group
		c.mu.RLock()
		existing := c.snapshot
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		return c.load(loadCtx)
	})
}

// Refresh reloads the corpus immediately and replaces the snapshot
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	return c.shared(ctx, c.load)
}

// shared runs fn once for all concurrent callers. fn gets a context that
// keeps the first caller's values but not its cancellation.
func (c *Cache) shared(ctx context.Context, fn func(context.Context) (*Snapshot, error)) (*Snapshot, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(loadKey, func() (interface{}, error) {
		return fn(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Invalidate drops the snapshot; the next EnsureLoaded reloads from storage
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
	c.logger.Debug("corpus cache invalidated")
}

// Snapshot returns the loaded snapshot, or nil if nothing is loaded
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Cache) load(ctx context.Context) (*Snapshot, error) {
	emails, err := c.storage.ListEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	snap := &Snapshot{
		IDs:      make([]int64, len(emails)),
		Subjects: make([]string, len(emails)),
		Bodies:   make([]string, len(emails)),
		Vectors:  [][]float32{},
	}
	for i, email := range emails {
		snap.IDs[i] = email.ID
		snap.Subjects[i] = email.Subject
		snap.Bodies[i] = email.Body
	}

	// Empty corpus: never hand an empty batch to the model
	if len(emails) > 0 {
		vectors, err := embedder.EmbedTexts(ctx, c.embedder, snap.Bodies)
		if err != nil {
			return nil, fmt.Errorf("failed to embed corpus: %w", err)
		}
		snap.Vectors = vectors
	}

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	c.logger.Info("corpus loaded",
		zap.Int("emails", snap.Len()),
		zap.String("provider", c.embedder.Provider()),
	)
	return snap, nil
}
