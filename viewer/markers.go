package viewer

import (
	"image"
	"image/color"

	"github.com/olablt/gio-nanomaps/mapview"
)

var (
	locationColor = color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0xff}
	pinColor      = color.NRGBA{R: 0xe9, G: 0x1e, B: 0x63, A: 0xff}
)

// Markers are the long-lived overlays of a session.
type Markers struct {
	// Location marks the current position fix.
	Location *mapview.ImgMarker
	// Halo shows the accuracy of the current fix.
	Halo *mapview.EllipseMarker
	// Pin marks the place of the open tap popup.
	Pin *mapview.ImgMarker
}

func NewMarkers() Markers {
	pin := mapview.PinImage(20, pinColor)
	m := Markers{
		Location: mapview.NewImgMarker(mapview.OrbImage(18, locationColor)),
		Halo:     mapview.NewErrorHalo(),
		Pin:      mapview.NewImgMarker(pin),
	}
	m.Pin.Anchor = mapview.PinAnchor(pin)
	return m
}

// LocationPopupOffset lifts a popup over the location marker by half its height.
func (m Markers) LocationPopupOffset() image.Point {
	return image.Pt(0, m.Location.Size().Y/2)
}
