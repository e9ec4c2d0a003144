package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultURL is where a local nanomaps server publishes its catalog.
const DefaultURL = "http://localhost:8086/map/"

var (
	ErrUnexpectedStatus = errors.New("unexpected catalog response status")
	ErrMalformed        = errors.New("malformed catalog response")
)

// maxBody caps how much of a catalog response is read.
const maxBody = 4 << 20

// Client fetches the catalog from a server endpoint.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch issues one GET to the catalog endpoint. It does not retry.
func (c *Client) Fetch(ctx context.Context) (Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Catalog{}, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Catalog{}, fmt.Errorf("fetch catalog %s: %w", c.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Catalog{}, fmt.Errorf("%w: %s from %s", ErrUnexpectedStatus, resp.Status, c.URL)
	}

	var cat Catalog
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&cat); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if cat.Maps == nil {
		cat.Maps = []LayerDescriptor{}
	}
	return cat, nil
}
