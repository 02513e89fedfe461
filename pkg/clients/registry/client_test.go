package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/feedengine/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ClientConfig{BaseURL: srv.URL + "/", Token: "secret", Timeout: time.Second})
}

func TestListAnimals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/farms/farm-1/animals", r.URL.Path)
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"animals":[{"id":"a1","tag":"T1","gender":"female","birth_date":"2024-01-02","production_status":"lactating","is_active":true}]}`))
	})

	animals, err := client.ListAnimals(context.Background(), "farm-1")

	require.NoError(t, err)
	require.Len(t, animals, 1)
	assert.Equal(t, "a1", animals[0].ID)
	assert.Equal(t, "2024-01-02", animals[0].BirthDate)
	assert.True(t, animals[0].IsActive)
}

func TestGetAnimalNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	})

	_, err := client.GetAnimal(context.Background(), "farm-1", "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorIsReported(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	})

	_, err := client.ListAnimals(context.Background(), "farm-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=503")
	assert.Contains(t, err.Error(), "maintenance")
}
