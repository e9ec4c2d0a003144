package tiles

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LocalTileProvider renders placeholder tiles labeled with their z/x/y.
// The viewer uses it as the fallback while real tiles load; the map server
// serves it for maps without an upstream.
type LocalTileProvider struct {
	Label      string
	Background color.RGBA
	Scale      int
}

func NewLocalTileProvider() *LocalTileProvider {
	return &LocalTileProvider{
		Background: color.RGBA{200, 220, 255, 255},
		Scale:      1,
	}
}

func (p *LocalTileProvider) GetTile(_ context.Context, tile Tile) (image.Image, error) {
	scale := max(p.Scale, 1)
	size := TileSize * scale
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	draw.Draw(img, img.Bounds(), &image.Uniform{p.Background}, image.Point{}, draw.Src)

	lines := []string{fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)}
	if p.Label != "" {
		lines = append(lines, p.Label)
	}
	drawText(img, lines)

	borderColor := color.RGBA{100, 100, 100, 255}
	borders := []image.Rectangle{
		image.Rect(0, 0, size, 1),
		image.Rect(0, size-1, size, size),
		image.Rect(0, 0, 1, size),
		image.Rect(size-1, 0, size, size),
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{borderColor}, image.Point{}, draw.Src)
	}

	return img, nil
}

func drawText(img *image.RGBA, lines []string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	size := img.Bounds().Dx()
	lineHeight := face.Metrics().Height.Round()
	textWidth := 0
	for _, line := range lines {
		textWidth = max(textWidth, d.MeasureString(line).Round())
	}
	textHeight := lineHeight * len(lines)

	padding := 10
	top := size/2 - textHeight/2
	textBgRect := image.Rect(
		(size-textWidth)/2-padding,
		top-padding,
		(size+textWidth)/2+padding,
		top+textHeight+padding,
	)
	draw.Draw(img, textBgRect, &image.Uniform{color.RGBA{255, 255, 255, 220}}, image.Point{}, draw.Over)

	for i, line := range lines {
		w := d.MeasureString(line).Round()
		d.Dot = fixed.Point26_6{
			X: fixed.I((size - w) / 2),
			Y: fixed.I(top + (i+1)*lineHeight - face.Metrics().Descent.Round()),
		}
		d.DrawString(line)
	}
}
