// Package storage fetches signed view URLs from the service fronting the
// image buckets. URLs are display-only; callers tolerate failures by showing
// a placeholder instead.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kvistad/renderloop/internal/config"
)

// Client talks to the signed-URL service.
type Client struct {
	baseURL string
	bucket  string
	httpc   *http.Client
}

// NewClient builds a storage client from configuration.
func NewClient(cfg config.StorageConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		bucket:  cfg.Bucket,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// signResponse is the service's response body.
type signResponse struct {
	SignedURL string `json:"signed_url"`
}

// SignedViewURL fetches a short-lived view URL for an uploaded object.
func (c *Client) SignedViewURL(ctx context.Context, uploadID string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("storage: no base URL configured")
	}
	if uploadID == "" {
		return "", fmt.Errorf("storage: upload ID is required")
	}

	u := fmt.Sprintf("%s/v1/sign?bucket=%s&object=%s",
		c.baseURL, url.QueryEscape(c.bucket), url.QueryEscape(uploadID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("storage: build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: sign %s: %w", uploadID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage: sign %s: status %d", uploadID, resp.StatusCode)
	}

	var body signResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("storage: decode sign response: %w", err)
	}
	if body.SignedURL == "" {
		return "", fmt.Errorf("storage: empty signed URL for %s", uploadID)
	}
	return body.SignedURL, nil
}

// ThumbURL is the best-effort variant: any failure yields an empty string
// and the caller renders a placeholder.
func (c *Client) ThumbURL(ctx context.Context, uploadID string) string {
	u, err := c.SignedViewURL(ctx, uploadID)
	if err != nil {
		return ""
	}
	return u
}
