package areas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/02loveslollipop/Shizuku-biodiversity-viewer/services/dashboard/internal/models"
)

// ErrFetch wraps every failure to retrieve the remote area collection.
var ErrFetch = errors.New("fetch protected areas")

// ErrTooLarge is returned when the collection exceeds the configured size limit.
var ErrTooLarge = errors.New("response exceeds AREAS_MAX_BYTES")

// Source yields the protected areas for one pipeline run.
type Source interface {
	Fetch(ctx context.Context) ([]models.ProtectedArea, error)
}

// Client downloads and decodes a GeoJSON FeatureCollection of protected areas.
type Client struct {
	httpClient *http.Client
	url        string
	maxBytes   int64
	props      Properties
}

// NewClient creates a client for url.
func NewClient(url string, timeout time.Duration, maxBytes int64, props Properties) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		url:      url,
		maxBytes: maxBytes,
		props:    props,
	}
}

// URL returns the collection location.
func (c *Client) URL() string {
	return c.url
}

// Fetch retrieves and decodes the collection. It hits the network on every call.
func (c *Client) Fetch(ctx context.Context) ([]models.ProtectedArea, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %w (%d bytes)", ErrFetch, ErrTooLarge, c.maxBytes)
	}

	areas, err := Decode(body, c.props)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return areas, nil
}
