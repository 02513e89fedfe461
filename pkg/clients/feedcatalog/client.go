package feedcatalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/feedengine/internal/config"
)

// Client exposes the Feed Type catalog cost lookup.
type Client interface {
	// CostPerKg returns ok=false when the catalog has no cost for the feed type.
	CostPerKg(ctx context.Context, farmID, feedTypeID string) (cost decimal.Decimal, ok bool, err error)
}

type costResponse struct {
	FeedTypeID string           `json:"feed_type_id"`
	CostPerKg  *decimal.Decimal `json:"cost_per_kg"`
	Currency   string           `json:"currency"`
}

type apiError struct {
	Message string `json:"message"`
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a catalog client from the collaborator configuration.
func NewClient(cfg config.ClientConfig) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &APIClient{httpClient: restyClient}
}

// CostPerKg fetches the current cost of one kilogram of the feed type.
func (c *APIClient) CostPerKg(ctx context.Context, farmID, feedTypeID string) (decimal.Decimal, bool, error) {
	result := new(costResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"farmId": farmID, "feedTypeId": feedTypeID}).
		SetResult(result).
		SetError(apiErr).
		Get("/farms/{farmId}/feed-types/{feedTypeId}/cost")
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get feed cost: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return decimal.Zero, false, nil
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return decimal.Zero, false, fmt.Errorf("feed catalog api error: code=%d, message=%s", resp.StatusCode(), apiErr.Message)
	}
	if result.CostPerKg == nil {
		return decimal.Zero, false, nil
	}

	return *result.CostPerKg, true, nil
}
