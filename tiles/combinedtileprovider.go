package tiles

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/olablt/gio-nanomaps/tiles/worker"
)

// CombinedTileProvider never blocks on the primary provider. A tile that is
// not in the cache yet is answered from the fallback while the primary load
// runs on the pool; onLoad fires when it lands. A tile whose primary load
// failed keeps showing the fallback.
type CombinedTileProvider struct {
	primary    TileProvider
	fallback   TileProvider
	pool       *worker.Pool
	loading    map[string]bool
	failed     map[string]bool
	loadingMu  sync.Mutex
	onLoadFunc func()
	cache      *ImageCache
}

func NewCombinedTileProvider(primary, fallback TileProvider, pool *worker.Pool) *CombinedTileProvider {
	return &CombinedTileProvider{
		primary:  primary,
		fallback: fallback,
		pool:     pool,
		loading:  make(map[string]bool),
		failed:   make(map[string]bool),
		cache:    NewImageCache(),
	}
}

func (p *CombinedTileProvider) SetOnLoadCallback(callback func()) {
	p.onLoadFunc = callback
}

// Ready reports whether the primary tile is cached.
func (p *CombinedTileProvider) Ready(tile Tile) bool {
	_, ok := p.cache.Get(GetTileKey(tile))
	return ok
}

func (p *CombinedTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	key := GetTileKey(tile)

	if cachedImg, exists := p.cache.Get(key); exists {
		return cachedImg, nil
	}

	p.schedule(ctx, tile, key)

	fallbackImg, err := p.fallback.GetTile(ctx, tile)
	if err != nil {
		return nil, fmt.Errorf("fallback provider failed for %s: %w", key, err)
	}
	return fallbackImg, nil
}

func (p *CombinedTileProvider) schedule(ctx context.Context, tile Tile, key string) {
	p.loadingMu.Lock()
	if p.loading[key] || p.failed[key] {
		p.loadingMu.Unlock()
		return
	}
	p.loading[key] = true
	p.loadingMu.Unlock()

	p.pool.Submit(worker.Task{
		Ctx:  ctx,
		Name: key,
		Work: func(ctx context.Context) error {
			img, err := p.primary.GetTile(ctx, tile)

			p.loadingMu.Lock()
			delete(p.loading, key)
			if err != nil {
				p.failed[key] = true
			}
			p.loadingMu.Unlock()

			if err != nil {
				return err
			}
			p.cache.Set(key, img)
			if p.onLoadFunc != nil {
				p.onLoadFunc()
			}
			return nil
		},
	})
}
