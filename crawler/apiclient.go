package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIClient is the secondary data-fetch collaborator: the portal's JSON
// endpoint for a single listing, used only when page extraction left
// required fields unset.
type APIClient struct {
	http    *resty.Client
	baseURL string
}

func NewAPIClient(baseURL, userAgent string, client *http.Client) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	r := resty.NewWithClient(client).
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &APIClient{http: r, baseURL: baseURL}
}

// ListingPayload fetches the structured payload for a listing id on the
// given channel ("RES_BUY" for sales). The shape matches an embedded
// app-state node, so the same field extraction applies.
func (c *APIClient) ListingPayload(ctx context.Context, listingID, channel string) (map[string]interface{}, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", listingID).
		SetQueryParam("channel", channel).
		Get("/api/propertyDetails/{id}")
	if err != nil {
		return nil, fmt.Errorf("api fetch %s: %w", listingID, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("api fetch %s: status %d", listingID, res.StatusCode())
	}

	var node map[string]interface{}
	if err := json.Unmarshal(res.Body(), &node); err != nil {
		return nil, fmt.Errorf("api decode %s: %w", listingID, err)
	}
	return node, nil
}
