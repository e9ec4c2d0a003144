package tiles

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	TileSize           = 256
	earthCircumference = 40075016.686 // meters at equator
	maxLatitude        = 85.05112878
)

// Tile represents a map tile coordinates
type Tile struct {
	X, Y, Zoom int
}

// LatLng represents a geographical point
type LatLng struct {
	Lat, Lng float64
}

// Point returns the orb point (lng, lat) for ll.
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

// FromPoint converts an orb point to a LatLng.
func FromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// MapTile returns the orb maptile for t.
func (t Tile) MapTile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Zoom))
}

// Valid reports whether the tile coordinates exist at its zoom level.
func (t Tile) Valid() bool {
	if t.Zoom < 0 || t.Zoom > 30 || t.X < 0 || t.Y < 0 {
		return false
	}
	n := 1 << uint(t.Zoom)
	return t.X < n && t.Y < n
}

// LatLngToTile converts geographical coordinates to tile coordinates
func LatLngToTile(ll LatLng, zoom int) Tile {
	mt := maptile.At(clampLatLng(ll).Point(), maptile.Zoom(zoom))
	return Tile{X: int(mt.X), Y: int(mt.Y), Zoom: zoom}
}

// TileToLatLng converts tile coordinates to geographical coordinates (returns center of tile)
func TileToLatLng(tile Tile) LatLng {
	return FromPoint(tile.MapTile().Center())
}

// CalculateWorldCoordinates converts geographical coordinates to world pixel coordinates at given zoom level
func CalculateWorldCoordinates(ll LatLng, zoom int) (float64, float64) {
	ll = clampLatLng(ll)
	n := math.Pow(2, float64(zoom))
	latRad := ll.Lat * math.Pi / 180.0
	worldX := float64(TileSize) * n * (ll.Lng + 180) / 360
	worldY := float64(TileSize) * n * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return worldX, worldY
}

// WorldToLatLng converts world pixel coordinates back to geographical coordinates
func WorldToLatLng(worldX, worldY float64, zoom int) LatLng {
	n := math.Pow(2, float64(zoom))
	lng := (worldX/(float64(TileSize)*n))*360 - 180
	latRad := math.Pi * (1 - 2*worldY/(float64(TileSize)*n))
	lat := 180 / math.Pi * math.Atan(math.Sinh(latRad))
	return LatLng{Lat: lat, Lng: lng}
}

// CalculateMetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func CalculateMetersPerPixel(latitude float64, zoom int) float64 {
	return earthCircumference * math.Cos(latitude*math.Pi/180) / (math.Pow(2, float64(zoom)) * TileSize)
}

// CalculateVisibleTiles calculates which tiles are visible given a center point and screen size.
// Tiles that fall outside the world at this zoom are skipped.
func CalculateVisibleTiles(center LatLng, zoom int, screenSize image.Point) []Tile {
	centerTile := LatLngToTile(center, zoom)
	tilesX := (screenSize.X / TileSize) + 2 // Add buffer tiles
	tilesY := (screenSize.Y / TileSize) + 2

	startX := centerTile.X - tilesX/2
	startY := centerTile.Y - tilesY/2

	visibleTiles := make([]Tile, 0, tilesX*tilesY)
	for x := startX; x < startX+tilesX; x++ {
		for y := startY; y < startY+tilesY; y++ {
			tile := Tile{X: x, Y: y, Zoom: zoom}
			if !tile.Valid() {
				continue
			}
			visibleTiles = append(visibleTiles, tile)
		}
	}
	return visibleTiles
}

func clampLatLng(ll LatLng) LatLng {
	ll.Lat = max(-maxLatitude, min(ll.Lat, maxLatitude))
	return ll
}
