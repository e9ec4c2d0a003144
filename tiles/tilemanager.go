package tiles

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

type TileProvider interface {
	GetTile(ctx context.Context, tile Tile) (image.Image, error)
}

// TileManager puts a cache in front of a provider.
type TileManager struct {
	cache    *ImageCache
	provider TileProvider
	onLoad   func()
}

func NewTileManager(provider TileProvider) *TileManager {
	return &TileManager{
		cache:    NewImageCache(),
		provider: provider,
	}
}

// WithCacheLimit bounds the cache to the most recent limit tiles.
// Tiles already cached are dropped.
func (tm *TileManager) WithCacheLimit(limit int) *TileManager {
	tm.cache = NewBoundedCache[image.Image](limit)
	return tm
}

func (tm *TileManager) GetCache() *ImageCache {
	return tm.cache
}

// SetOnLoadCallback registers fn to run after every tile fetched from the provider.
func (tm *TileManager) SetOnLoadCallback(callback func()) {
	tm.onLoad = callback
}

// GetTileKey returns a unique string key for a tile
func GetTileKey(tile Tile) string {
	return fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)
}

func (tm *TileManager) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	key := GetTileKey(tile)

	if img, exists := tm.cache.Get(key); exists {
		return img, nil
	}

	img, err := tm.provider.GetTile(ctx, tile)
	if err != nil {
		return nil, err
	}
	tm.cache.Set(key, img)

	if tm.onLoad != nil {
		tm.onLoad()
	}
	return img, nil
}
