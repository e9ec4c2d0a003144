// Package catalog holds the table of contents of map layers published by a
// nanomaps server and the client that fetches it.
package catalog

import (
	"strings"

	"golang.org/x/net/html"
)

// Properties are the free-form map properties published with a layer.
// attribution and attributionHtml are the ones the viewer understands.
type Properties map[string]string

func (p Properties) Attribution() string     { return p["attribution"] }
func (p Properties) AttributionHTML() string { return p["attributionHtml"] }

// LayerDescriptor is one entry of the catalog.
type LayerDescriptor struct {
	Name       string     `json:"name" yaml:"name"`
	URI        string     `json:"uri,omitempty" yaml:"uri,omitempty"`
	TileSpec   string     `json:"tileSpec,omitempty" yaml:"tileSpec,omitempty"`
	Properties Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// HasTiles reports whether the descriptor names a tile source.
func (d LayerDescriptor) HasTiles() bool {
	return d.TileSpec != ""
}

// AttributionText returns the attribution to display, preferring the HTML
// form rendered down to plain text.
func (d LayerDescriptor) AttributionText() string {
	if h := d.Properties.AttributionHTML(); h != "" {
		if text := HTMLText(h); text != "" {
			return text
		}
	}
	return d.Properties.Attribution()
}

// Catalog is an immutable list of layer descriptors as received from the server.
type Catalog struct {
	Maps []LayerDescriptor `json:"maps"`
}

func (c Catalog) Len() int { return len(c.Maps) }

// Names returns the descriptor names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c.Maps))
	for i, d := range c.Maps {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the descriptor named name. When a name appears more than
// once the last entry wins.
func (c Catalog) Lookup(name string) (LayerDescriptor, bool) {
	for i := len(c.Maps) - 1; i >= 0; i-- {
		if c.Maps[i].Name == name {
			return c.Maps[i], true
		}
	}
	return LayerDescriptor{}, false
}

// HTMLText extracts the text content of an HTML fragment, collapsing whitespace.
func HTMLText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte(' ')
			}
		}
	}
}
