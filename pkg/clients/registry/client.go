package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/feedengine/internal/config"
)

// ErrNotFound is returned when the registry does not know the requested animal.
var ErrNotFound = errors.New("animal not found in registry")

// Client exposes the Animal Registry operations used by the feed engine.
type Client interface {
	ListAnimals(ctx context.Context, farmID string) ([]AnimalRecord, error)
	GetAnimal(ctx context.Context, farmID, animalID string) (*AnimalRecord, error)
}

// AnimalRecord mirrors the registry's animal payload.
type AnimalRecord struct {
	ID               string   `json:"id"`
	Tag              string   `json:"tag"`
	Gender           string   `json:"gender"`
	BirthDate        string   `json:"birth_date"`
	ProductionStatus string   `json:"production_status"`
	WeightKg         *float64 `json:"weight_kg"`
	IsActive         bool     `json:"is_active"`
	Pregnant         *bool    `json:"pregnant"`
	BreedingMale     *bool    `json:"breeding_male"`
}

type listResponse struct {
	Animals []AnimalRecord `json:"animals"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a registry client from the collaborator configuration.
func NewClient(cfg config.ClientConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeoutOrDefault(cfg.Timeout))
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &APIClient{httpClient: restyClient}
}

// ListAnimals returns every active animal of the farm.
func (c *APIClient) ListAnimals(ctx context.Context, farmID string) ([]AnimalRecord, error) {
	result := new(listResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("farmId", farmID).
		SetQueryParam("status", "active").
		SetResult(result).
		SetError(apiErr).
		Get("/farms/{farmId}/animals")
	if err != nil {
		return nil, fmt.Errorf("list registry animals: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, statusError(resp.StatusCode(), apiErr)
	}

	return result.Animals, nil
}

// GetAnimal fetches one animal; ErrNotFound when the registry answers 404.
func (c *APIClient) GetAnimal(ctx context.Context, farmID, animalID string) (*AnimalRecord, error) {
	result := new(AnimalRecord)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"farmId": farmID, "animalId": animalID}).
		SetResult(result).
		SetError(apiErr).
		Get("/farms/{farmId}/animals/{animalId}")
	if err != nil {
		return nil, fmt.Errorf("get registry animal: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, statusError(resp.StatusCode(), apiErr)
	}

	return result, nil
}

func statusError(code int, apiErr *apiError) error {
	message := ""
	if apiErr != nil {
		message = apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
	}
	return fmt.Errorf("registry api error: code=%d, message=%s", code, message)
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
