package sketchpad

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCatalogTTL is how long a fetched asset list stays fresh.
const DefaultCatalogTTL = 5 * time.Minute

// AssetUpload is a new catalog image.
type AssetUpload struct {
	Name        string
	Category    Category
	Description string
	Tags        []string
	Filename    string
	Data        []byte
}

// AssetService is the remote asset catalog.
type AssetService interface {
	ListAssets(ctx context.Context) ([]FeatureAsset, error)
	UploadAsset(ctx context.Context, up AssetUpload) (FeatureAsset, error)
	DeleteAsset(ctx context.Context, id string) error
	RenameAsset(ctx context.Context, id, name string) error
	RecordUsage(ctx context.Context, id string) error
}

// Catalog caches the asset list of an AssetService for the life of the
// process. The list is refetched once it is older than the TTL or after any
// mutation through the catalog. Concurrent refreshes share one request.
// Catalog is safe for concurrent use.
type Catalog struct {
	service AssetService
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	assets    []FeatureAsset
	counts    map[Category]int
	expiresAt time.Time

	group singleflight.Group
}

// NewCatalog creates a catalog over service. A non-positive ttl uses
// DefaultCatalogTTL.
func NewCatalog(service AssetService, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &Catalog{service: service, ttl: ttl, now: time.Now}
}

// Invalidate expires the cached list so the next read fetches. Cached keeps
// returning the stale list until then.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// fresh returns the cached list if it has not expired.
func (c *Catalog) fresh() ([]FeatureAsset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.assets == nil || !c.now().Before(c.expiresAt) {
		return nil, false
	}
	return c.assets, true
}

// Assets returns every asset, fetching when the cache is empty or stale.
// force bypasses the cache.
func (c *Catalog) Assets(ctx context.Context, force bool) ([]FeatureAsset, error) {
	if !force {
		if assets, ok := c.fresh(); ok {
			return cloneAssets(assets), nil
		}
	}
	v, err, _ := c.group.Do("assets", func() (any, error) {
		assets, err := c.service.ListAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}
		if assets == nil {
			assets = []FeatureAsset{}
		}
		counts := make(map[Category]int)
		for _, a := range assets {
			counts[a.Category]++
		}
		c.mu.Lock()
		c.assets = assets
		c.counts = counts
		c.expiresAt = c.now().Add(c.ttl)
		c.mu.Unlock()
		return assets, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneAssets(v.([]FeatureAsset)), nil
}

// Cached returns the cached list without fetching, possibly stale or empty.
func (c *Catalog) Cached() []FeatureAsset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAssets(c.assets)
}

// ByCategory returns the assets of one category in catalog order.
func (c *Catalog) ByCategory(ctx context.Context, cat Category) ([]FeatureAsset, error) {
	assets, err := c.Assets(ctx, false)
	if err != nil {
		return nil, err
	}
	out := assets[:0]
	for _, a := range assets {
		if a.Category == cat {
			out = append(out, a)
		}
	}
	return out, nil
}

// Find returns the asset with the given id.
func (c *Catalog) Find(ctx context.Context, id string) (FeatureAsset, bool, error) {
	assets, err := c.Assets(ctx, false)
	if err != nil {
		return FeatureAsset{}, false, err
	}
	for _, a := range assets {
		if a.ID == id {
			return a, true, nil
		}
	}
	return FeatureAsset{}, false, nil
}

// CategoryCounts returns the number of cached assets per category without
// fetching. Empty until the first successful fetch.
func (c *Catalog) CategoryCounts() map[Category]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Category]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Upload adds an asset and invalidates the cache.
func (c *Catalog) Upload(ctx context.Context, up AssetUpload) (FeatureAsset, error) {
	a, err := c.service.UploadAsset(ctx, up)
	if err != nil {
		return FeatureAsset{}, fmt.Errorf("upload asset %q: %w", up.Name, err)
	}
	c.Invalidate()
	return a, nil
}

// Delete removes an asset and invalidates the cache.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.service.DeleteAsset(ctx, id); err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	c.Invalidate()
	return nil
}

// Rename changes an asset's display name and invalidates the cache.
func (c *Catalog) Rename(ctx context.Context, id, name string) error {
	if err := c.service.RenameAsset(ctx, id, name); err != nil {
		return fmt.Errorf("rename asset %s: %w", id, err)
	}
	c.Invalidate()
	return nil
}

// RecordUsage bumps an asset's usage counter and invalidates the cache.
func (c *Catalog) RecordUsage(ctx context.Context, id string) error {
	if err := c.service.RecordUsage(ctx, id); err != nil {
		return fmt.Errorf("record usage %s: %w", id, err)
	}
	c.Invalidate()
	return nil
}

func cloneAssets(src []FeatureAsset) []FeatureAsset {
	if src == nil {
		return nil
	}
	out := make([]FeatureAsset, len(src))
	copy(out, src)
	return out
}
