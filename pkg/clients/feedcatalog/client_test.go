package feedcatalog

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/feedengine/internal/config"
)

const costURL = "http://catalog.test/farms/farm-1/feed-types/maize/cost"

func newMockedClient(t *testing.T, status int, body string) *APIClient {
	t.Helper()
	client := NewClient(config.ClientConfig{BaseURL: "http://catalog.test", Token: "tok"})
	httpmock.ActivateNonDefault(client.httpClient.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, costURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		return httpmock.NewJsonResponse(status, json.RawMessage(body))
	})
	return client
}

func TestCostPerKg(t *testing.T) {
	client := newMockedClient(t, http.StatusOK, `{"feed_type_id":"maize","cost_per_kg":"0.35","currency":"GNF"}`)

	cost, ok, err := client.CostPerKg(context.Background(), "farm-1", "maize")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.35", cost.String())
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestCostPerKgUnknown(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
	}{
		"not found":  {http.StatusNotFound, `{"message":"unknown feed type"}`},
		"null value": {http.StatusOK, `{"feed_type_id":"maize","cost_per_kg":null}`},
	} {
		t.Run(name, func(t *testing.T) {
			client := newMockedClient(t, tc.status, tc.body)

			_, ok, err := client.CostPerKg(context.Background(), "farm-1", "maize")

			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCostPerKgServerError(t *testing.T) {
	client := newMockedClient(t, http.StatusInternalServerError, `{"message":"db down"}`)

	_, ok, err := client.CostPerKg(context.Background(), "farm-1", "maize")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.False(t, ok)
}
