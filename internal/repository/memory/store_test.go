package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mamadbah2/feedengine/internal/domain/models"
)

func TestBatchesAreFarmScoped(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.InsertBatch(ctx, models.ConsumptionBatch{ID: "b1", FarmID: "farm-1", BatchName: "Milkers", IsActive: true}))

	_, err := s.GetBatch(ctx, "farm-2", "b1")
	assert.ErrorIs(t, err, models.ErrBatchNotFound)

	err = s.UpdateBatch(ctx, models.ConsumptionBatch{ID: "b1", FarmID: "farm-2"})
	assert.ErrorIs(t, err, models.ErrBatchNotFound)

	farms, err := s.ListActiveFarmIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"farm-1"}, farms)
}

func TestLinksAreIdempotentAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	created, err := s.AddLink(ctx, models.BatchAnimalLink{FarmID: "f", BatchID: "b", AnimalID: "z", CreatedAt: t0})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddLink(ctx, models.BatchAnimalLink{FarmID: "f", BatchID: "b", AnimalID: "z", CreatedAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = s.AddLink(ctx, models.BatchAnimalLink{FarmID: "f", BatchID: "b", AnimalID: "a", CreatedAt: t0.Add(time.Minute)})
	require.NoError(t, err)

	links, err := s.ListLinks(ctx, "f", "b")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "z", links[0].AnimalID)
	assert.Equal(t, t0, links[0].CreatedAt)
	assert.Equal(t, "a", links[1].AnimalID)

	assert.ErrorIs(t, s.RemoveLink(ctx, "f", "b", "missing"), models.ErrAnimalNotLinked)
}

func TestConcurrentAddLinkCreatesOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	s := NewStore()
	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.AddLink(ctx, models.BatchAnimalLink{FarmID: "f", BatchID: "b", AnimalID: "a"})
			assert.NoError(t, err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestDeleteBatchCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.InsertBatch(ctx, models.ConsumptionBatch{ID: "b", FarmID: "f"}))
	_, err := s.AddLink(ctx, models.BatchAnimalLink{FarmID: "f", BatchID: "b", AnimalID: "a"})
	require.NoError(t, err)
	require.NoError(t, s.UpsertAnimalBatchFactors(ctx, "f", "b", []models.AnimalBatchFactor{
		{FarmID: "f", BatchID: "b", AnimalID: "a", FactorID: "x", FactorValue: "1.2"},
	}))

	require.NoError(t, s.DeleteBatch(ctx, "f", "b"))

	links, err := s.ListLinks(ctx, "f", "b")
	require.NoError(t, err)
	assert.Empty(t, links)
	values, err := s.ListAnimalBatchFactors(ctx, "f", "b", "")
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestUpsertFailureLeavesValuesUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.UpsertAnimalBatchFactors(ctx, "f", "b", []models.AnimalBatchFactor{
		{FarmID: "f", BatchID: "b", AnimalID: "a", FactorID: "x", FactorValue: "1.1"},
	}))

	s.FailUpsertAfter = 1
	err := s.UpsertAnimalBatchFactors(ctx, "f", "b", []models.AnimalBatchFactor{
		{FarmID: "f", BatchID: "b", AnimalID: "a", FactorID: "x", FactorValue: "2"},
		{FarmID: "f", BatchID: "b", AnimalID: "a", FactorID: "y", FactorValue: "3"},
	})
	assert.Equal(t, models.KindDependency, models.KindOf(err))

	values, err := s.ListAnimalBatchFactors(ctx, "f", "b", "a")
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "1.1", values[0].FactorValue)
}

func TestConversionSymbolsAreUniquePerFarm(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.InsertConversions(ctx,
		models.WeightConversion{ID: "c1", FarmID: "f", UnitSymbol: "kg", SymbolKey: "kg"},
		models.WeightConversion{ID: "c2", FarmID: "g", UnitSymbol: "kg", SymbolKey: "kg"},
	))

	err := s.InsertConversions(ctx, models.WeightConversion{ID: "c3", FarmID: "f", UnitSymbol: "KG", SymbolKey: "kg"})
	assert.ErrorIs(t, err, models.ErrDuplicateUnit)

	found, err := s.FindConversionBySymbol(ctx, "g", "kg")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c2", found.ID)
}
