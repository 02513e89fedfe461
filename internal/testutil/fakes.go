// Package testutil holds in-process collaborators shared by the service tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/feedengine/pkg/clients/registry"
)

// Today is the fixed date service tests run at.
var Today = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

// Clock returns Today.
func Clock() time.Time { return Today }

// BirthDateForAge returns the registry birth date of an animal aged days at Today.
func BirthDateForAge(days int) string {
	return Today.AddDate(0, 0, -days).Format("2006-01-02")
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// FakeRegistry is an in-memory registry.Client.
type FakeRegistry struct {
	mu      sync.Mutex
	animals map[string][]registry.AnimalRecord
	// Err, when set, is returned by every call.
	Err       error
	ListCalls int
}

var _ registry.Client = (*FakeRegistry)(nil)

// NewFakeRegistry returns an empty registry.
func NewFakeRegistry() *FakeRegistry {
	return &FakeRegistry{animals: make(map[string][]registry.AnimalRecord)}
}

// Put adds or replaces an animal of the farm.
func (f *FakeRegistry) Put(farmID string, rec registry.AnimalRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.animals[farmID]
	for i := range list {
		if list[i].ID == rec.ID {
			list[i] = rec
			return
		}
	}
	f.animals[farmID] = append(list, rec)
}

// ListAnimals implements registry.Client.
func (f *FakeRegistry) ListAnimals(_ context.Context, farmID string) ([]registry.AnimalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]registry.AnimalRecord(nil), f.animals[farmID]...), nil
}

// GetAnimal implements registry.Client. Ids match ignoring case, as UUIDs do
// in the registry.
func (f *FakeRegistry) GetAnimal(_ context.Context, farmID, animalID string) (*registry.AnimalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, rec := range f.animals[farmID] {
		if strings.EqualFold(rec.ID, animalID) {
			out := rec
			return &out, nil
		}
	}
	return nil, registry.ErrNotFound
}

// FakeCostProvider is an in-memory feedcatalog.Client.
type FakeCostProvider struct {
	Costs map[string]decimal.Decimal
	Err   error
	Calls int
}

// CostPerKg implements feedcatalog.Client.
func (f *FakeCostProvider) CostPerKg(_ context.Context, _ string, feedTypeID string) (decimal.Decimal, bool, error) {
	f.Calls++
	if f.Err != nil {
		return decimal.Zero, false, f.Err
	}
	cost, ok := f.Costs[feedTypeID]
	return cost, ok, nil
}
