// Package fetch turns hierarchy data needs into cancelable network calls
// de-duplicated against the hierarchy cache.
package fetch

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pkarlsen/vaultview/pkg/api"
	"github.com/pkarlsen/vaultview/pkg/hierarchy"
	"github.com/pkarlsen/vaultview/pkg/model"
)

// Coordinator issues network requests through the backend, fills the
// cache, and tracks every in-flight call so a filter generation bump can
// abort the lot. Transport failures are logged and degrade to empty
// results; callers never see an error. An aborted call is the same as a
// failed one except the cache is never marked loaded, so a retry after
// the abort still fetches.
type Coordinator struct {
	backend api.Backend
	cache   *hierarchy.Cache

	generation atomic.Int64

	mu       sync.Mutex
	inflight map[int64]context.CancelFunc
	nextID   int64
}

// NewCoordinator creates a coordinator over a backend and cache.
func NewCoordinator(backend api.Backend, cache *hierarchy.Cache) *Coordinator {
	return &Coordinator{
		backend:  backend,
		cache:    cache,
		inflight: make(map[int64]context.CancelFunc),
	}
}

// Cache exposes the hierarchy cache for loaded-state queries.
func (c *Coordinator) Cache() *hierarchy.Cache {
	return c.cache
}

// Backend exposes the service client for write operations, which bypass
// the cache.
func (c *Coordinator) Backend() api.Backend {
	return c.backend
}

// Generation returns the current filter generation. Async work captures
// this before starting and compares before applying results.
func (c *Coordinator) Generation() int64 {
	return c.generation.Load()
}

// Bump cancels every in-flight call from the previous generation and
// advances the counter, returning the new generation.
func (c *Coordinator) Bump() int64 {
	c.CancelAll()
	return c.generation.Add(1)
}

// CancelAll aborts every registered in-flight operation.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.inflight))
	for _, cancel := range c.inflight {
		cancels = append(cancels, cancel)
	}
	c.inflight = make(map[int64]context.CancelFunc)
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// register wraps ctx so the call can be aborted by CancelAll.
func (c *Coordinator) register(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.inflight[id] = cancel
	c.mu.Unlock()

	return ctx, func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		cancel()
	}
}

// ChildFolders returns the immediate child folders of folderKey (volume
// roots for the empty key), fetching and caching on first use.
func (c *Coordinator) ChildFolders(ctx context.Context, folderKey string) []model.TreeNode {
	if c.cache.IsLoaded(folderKey, hierarchy.ChildFolders) {
		nodes, _ := c.cache.Children(folderKey)
		return nodes
	}

	ctx, done := c.register(ctx)
	defer done()

	summaries, err := c.backend.ChildFolders(ctx, folderKey)
	if err != nil {
		logFetchError("child folders", folderKey, err)
		return nil
	}

	nodes := make([]model.TreeNode, 0, len(summaries))
	for _, s := range summaries {
		nodes = append(nodes, s.Node(folderKey))
	}
	c.cache.SetChildren(folderKey, nodes)
	return nodes
}

// ChildAssets returns the asset page for folderKey, fetching and caching
// on first use.
func (c *Coordinator) ChildAssets(ctx context.Context, folderKey string) []model.TreeNode {
	if c.cache.IsLoaded(folderKey, hierarchy.ChildAssets) {
		nodes, _ := c.cache.Assets(folderKey)
		return nodes
	}

	ctx, done := c.register(ctx)
	defer done()

	summaries, err := c.backend.ChildAssets(ctx, folderKey)
	if err != nil {
		logFetchError("child assets", folderKey, err)
		return nil
	}

	nodes := make([]model.TreeNode, 0, len(summaries))
	for _, s := range summaries {
		nodes = append(nodes, s.Node())
	}
	c.cache.SetAssets(folderKey, nodes)
	return nodes
}

// Search runs the folder and asset searches concurrently and returns the
// combined hits. A failure on either leg degrades to an empty list for
// that leg.
func (c *Coordinator) Search(ctx context.Context, query string, filters map[model.ColumnID]string) (folders, assets []model.SearchHit) {
	ctx, done := c.register(ctx)
	defer done()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := c.backend.SearchFolders(gctx, query, filters)
		if err != nil {
			logFetchError("folder search", query, err)
			return nil
		}
		folders = make([]model.SearchHit, 0, len(hits))
		for _, h := range hits {
			folders = append(folders, h.Hit())
		}
		return nil
	})

	g.Go(func() error {
		hits, err := c.backend.SearchAssets(gctx, query, filters)
		if err != nil {
			logFetchError("asset search", query, err)
			return nil
		}
		assets = make([]model.SearchHit, 0, len(hits))
		for _, h := range hits {
			assets = append(assets, h.Hit())
		}
		return nil
	})

	// Legs swallow their own errors, so Wait only reflects ctx teardown.
	_ = g.Wait()
	return folders, assets
}

func logFetchError(op, key string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("fetch: %s %q failed: %v", op, key, err)
}
