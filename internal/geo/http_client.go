package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient is an HTTP implementation of the Client interface, speaking
// JSON to the geospatial sidecar.
type HTTPClient struct {
	url    string
	client *http.Client
}

// NewHTTPClient creates a new HTTPClient with the given request timeout.
func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

var _ Client = (*HTTPClient)(nil)

// FetchAOI returns the administrative boundary for a named region.
func (c *HTTPClient) FetchAOI(ctx context.Context, regionName string) (json.RawMessage, error) {
	var out struct {
		AOIGeoJSON json.RawMessage `json:"aoi_geojson"`
	}
	if err := c.post(ctx, "/aoi", regionName, &out); err != nil {
		return nil, err
	}
	if len(out.AOIGeoJSON) == 0 {
		return nil, fmt.Errorf("sidecar returned no AOI for %q", regionName)
	}
	return out.AOIGeoJSON, nil
}

// FetchStats runs the post-event geospatial analysis for a region.
func (c *HTTPClient) FetchStats(ctx context.Context, regionName string) (*Facts, error) {
	var facts Facts
	if err := c.post(ctx, "/stats", regionName, &facts); err != nil {
		return nil, err
	}
	return &facts, nil
}

func (c *HTTPClient) post(ctx context.Context, path, regionName string, out any) error {
	requestBody, err := json.Marshal(map[string]string{"region_name": regionName})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call geo sidecar %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geo sidecar %s: status code %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode geo sidecar response: %w", err)
	}
	return nil
}
