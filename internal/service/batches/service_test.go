package batches

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/feedengine/internal/cache"
	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/repository"
	"github.com/mamadbah2/feedengine/internal/repository/memory"
	"github.com/mamadbah2/feedengine/internal/service/categories"
	"github.com/mamadbah2/feedengine/internal/service/conversions"
	"github.com/mamadbah2/feedengine/internal/service/snapshot"
	"github.com/mamadbah2/feedengine/internal/testutil"
	"github.com/mamadbah2/feedengine/pkg/clients/registry"
)

const (
	farmID = "farm-1"

	cowA  = "0b9d1c4e-0000-4000-8000-000000000001"
	cowB  = "0b9d1c4e-0000-4000-8000-000000000002"
	bullX = "0b9d1c4e-0000-4000-8000-000000000003"
	calfY = "0b9d1c4e-0000-4000-8000-000000000004"
)

type fixture struct {
	svc   *Service
	store *memory.Store
	reg   *testutil.FakeRegistry
	cache *cache.BatchCache
	deps  Deps
	milk  models.AnimalCategory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	reg := testutil.NewFakeRegistry()
	reader := snapshot.NewReader(reg, nil, nil).WithClock(testutil.Clock)
	bc := cache.New(time.Minute, nil, nil)

	reg.Put(farmID, registry.AnimalRecord{ID: cowA, Tag: "A", Gender: "female", ProductionStatus: "lactating", BirthDate: testutil.BirthDateForAge(900), IsActive: true})
	reg.Put(farmID, registry.AnimalRecord{ID: cowB, Tag: "B", Gender: "female", ProductionStatus: "dry", BirthDate: testutil.BirthDateForAge(1200), IsActive: true})
	reg.Put(farmID, registry.AnimalRecord{ID: bullX, Tag: "X", Gender: "male", ProductionStatus: "breeding", BirthDate: testutil.BirthDateForAge(1500), IsActive: true})

	yes := true
	milk := models.AnimalCategory{
		ID:              "cat-milk",
		FarmID:          farmID,
		Name:            "Lactating",
		NameKey:         "lactating",
		Characteristics: models.Characteristics{Lactating: &yes},
	}
	require.NoError(t, store.InsertCategories(context.Background(), milk))

	deps := Deps{
		Batches:    store,
		Links:      store,
		Categories: store,
		Animals:    reader,
		Converter:  conversions.NewService(store, nil),
		Cache:      bc,
	}

	return &fixture{svc: NewService(deps, nil), store: store, reg: reg, cache: bc, deps: deps, milk: milk}
}

func (f *fixture) createBatch(t *testing.T, mode models.TargetMode, categoryIDs ...string) *models.ConsumptionBatch {
	t.Helper()
	b, err := f.svc.CreateBatch(context.Background(), farmID, models.BatchInput{
		BatchName:              "Batch " + string(mode),
		TargetMode:             mode,
		AnimalCategoryIDs:      categoryIDs,
		DefaultQuantity:        10,
		FeedingFrequencyPerDay: 2,
		FeedingTimes:           []string{"06:00", "18:00"},
	})
	require.NoError(t, err)
	return b
}

func ids(targets []models.TargetedAnimal) map[string]models.MembershipSource {
	out := make(map[string]models.MembershipSource, len(targets))
	for _, t := range targets {
		out[t.AnimalID] = t.Source
	}
	return out
}

func TestCategoryModeIsLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetCategory, f.milk.ID)

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.MembershipSource{cowA: models.SourceCategory}, ids(targets))

	// A new lactating animal appears once the registry change is signalled.
	f.reg.Put(farmID, registry.AnimalRecord{ID: calfY, Tag: "Y", Gender: "female", ProductionStatus: "lactating", IsActive: true})
	f.cache.InvalidateFarm(farmID)

	targets, err = f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.MembershipSource{
		cowA:  models.SourceCategory,
		calfY: models.SourceCategory,
	}, ids(targets))
}

func TestCategoryModeDeduplicatesAcrossCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	female := models.GenderFemale
	require.NoError(t, f.store.InsertCategories(ctx, models.AnimalCategory{
		ID: "cat-female", FarmID: farmID, Name: "Females", NameKey: "females", Gender: &female,
	}))
	b := f.createBatch(t, models.TargetCategory, f.milk.ID, "cat-female")

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, map[string]models.MembershipSource{
		cowA: models.SourceCategory,
		cowB: models.SourceCategory,
	}, ids(targets))
}

func TestMixedModeUnionPrefersCategorySource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetMixed, f.milk.ID)

	_, err := f.svc.AddAnimalToBatch(ctx, farmID, b.ID, bullX)
	require.NoError(t, err)
	_, err = f.svc.AddAnimalToBatch(ctx, farmID, b.ID, cowA)
	require.NoError(t, err)

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, map[string]models.MembershipSource{
		cowA:  models.SourceCategory,
		bullX: models.SourceSpecific,
	}, ids(targets))
}

func TestAddAnimalIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetSpecific)

	created, err := f.svc.AddAnimalToBatch(ctx, farmID, b.ID, cowB)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.AddAnimalToBatch(ctx, farmID, b.ID, cowB)
	require.NoError(t, err)
	assert.False(t, created)

	links, err := f.store.ListLinks(ctx, farmID, b.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestAddAnimalRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	categoryBatch := f.createBatch(t, models.TargetCategory, f.milk.ID)
	specific := f.createBatch(t, models.TargetSpecific)

	_, err := f.svc.AddAnimalToBatch(ctx, farmID, categoryBatch.ID, cowA)
	assert.ErrorIs(t, err, models.ErrInvalidTargetMode)

	_, err = f.svc.AddAnimalToBatch(ctx, farmID, specific.ID, "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrInvalidAnimalID)

	_, err = f.svc.AddAnimalToBatch(ctx, farmID, specific.ID, calfY)
	assert.ErrorIs(t, err, models.ErrAnimalNotFound)

	_, err = f.svc.AddAnimalToBatch(ctx, "farm-2", specific.ID, cowA)
	assert.ErrorIs(t, err, models.ErrBatchNotFound)
}

func TestRemoveAnimalFromMixedKeepsCategoryMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetMixed, f.milk.ID)

	_, err := f.svc.AddAnimalToBatch(ctx, farmID, b.ID, cowA)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveAnimalFromBatch(ctx, farmID, b.ID, cowA))

	links, err := f.store.ListLinks(ctx, farmID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.MembershipSource{cowA: models.SourceCategory}, ids(targets))
}

func TestRemoveAnimalNotLinked(t *testing.T) {
	f := newFixture(t)
	b := f.createBatch(t, models.TargetSpecific)

	err := f.svc.RemoveAnimalFromBatch(context.Background(), farmID, b.ID, cowA)

	assert.ErrorIs(t, err, models.ErrAnimalNotLinked)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestMembershipChangeInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetSpecific)

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Empty(t, targets)

	_, err = f.svc.AddAnimalToBatch(ctx, farmID, b.ID, cowB)
	require.NoError(t, err)

	targets, err = f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Len(t, targets, 1)
	require.NotNil(t, targets[0].Animal)
	assert.Equal(t, "B", targets[0].Animal.Tag)
}

func TestResolveUsesCacheUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetCategory, f.milk.ID)

	_, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	_, err = f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, 1, f.reg.ListCalls)

	f.cache.InvalidateBatch(farmID, b.ID)
	_, err = f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, 2, f.reg.ListCalls)
}

func TestGetBatchTargetsIncludesAvailable(t *testing.T) {
	f := newFixture(t)
	b := f.createBatch(t, models.TargetCategory, f.milk.ID)

	out, err := f.svc.GetBatchTargets(context.Background(), farmID, b.ID, true)
	require.NoError(t, err)

	assert.Len(t, out.Targeted, 1)
	var available []string
	for _, a := range out.Available {
		available = append(available, a.ID)
	}
	assert.ElementsMatch(t, []string{cowB, bullX}, available)
}

func TestCreateBatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := models.BatchInput{BatchName: "x", TargetMode: models.TargetSpecific, DefaultQuantity: 1, FeedingFrequencyPerDay: 1}

	tests := []struct {
		name   string
		mutate func(in *models.BatchInput)
		want   error
	}{
		{"missing name", func(in *models.BatchInput) { in.BatchName = "" }, models.ErrValidation},
		{"bad mode", func(in *models.BatchInput) { in.TargetMode = "herd" }, models.ErrInvalidTargetMode},
		{"frequency zero", func(in *models.BatchInput) { in.FeedingFrequencyPerDay = 0 }, models.ErrValidation},
		{"frequency too high", func(in *models.BatchInput) { in.FeedingFrequencyPerDay = 7 }, models.ErrValidation},
		{"negative quantity", func(in *models.BatchInput) { in.DefaultQuantity = -1 }, models.ErrValidation},
		{"too many feeding times", func(in *models.BatchInput) { in.FeedingTimes = []string{"06:00", "12:00"} }, models.ErrValidation},
		{"malformed feeding time", func(in *models.BatchInput) { in.FeedingTimes = []string{"6am"} }, models.ErrValidation},
		{"category mode without categories", func(in *models.BatchInput) { in.TargetMode = models.TargetCategory }, models.ErrValidation},
		{"unknown category", func(in *models.BatchInput) {
			in.TargetMode = models.TargetCategory
			in.AnimalCategoryIDs = []string{"missing"}
		}, models.ErrCategoryNotFound},
		{"unknown unit", func(in *models.BatchInput) { in.QuantityUnit = "bushel" }, models.ErrUnknownUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := f.svc.CreateBatch(ctx, farmID, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateBatchConvertsQuantityUnit(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.CreateBatch(context.Background(), farmID, models.BatchInput{
		BatchName:              "Grams",
		TargetMode:             models.TargetSpecific,
		DefaultQuantity:        2500,
		QuantityUnit:           "g",
		FeedingFrequencyPerDay: 3,
	})

	require.NoError(t, err)
	assert.InDelta(t, 2.5, b.DefaultQuantityKg, 1e-9)
	assert.True(t, b.IsActive)
}

func TestDeleteBatchCascadesLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetSpecific)

	_, err := f.svc.AddAnimalToBatch(ctx, farmID, b.ID, cowA)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteBatch(ctx, farmID, b.ID))

	_, err = f.svc.GetBatch(ctx, farmID, b.ID)
	assert.ErrorIs(t, err, models.ErrBatchNotFound)
	links, err := f.store.ListLinks(ctx, farmID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDeletePresetBatchIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.InsertBatch(ctx, models.ConsumptionBatch{
		ID: "preset", FarmID: farmID, BatchName: "Preset", TargetMode: models.TargetSpecific,
		FeedingFrequencyPerDay: 1, IsActive: true, IsPreset: true,
	}))

	err := f.svc.DeleteBatch(ctx, farmID, "preset")

	assert.ErrorIs(t, err, models.ErrProtectedDefault)
}

func TestMixedModeMatchesRegistryIDsIgnoringCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	upper := "0B9D1C4E-0000-4000-8000-0000000000AA"
	f.reg.Put(farmID, registry.AnimalRecord{ID: upper, Tag: "U", Gender: "female", ProductionStatus: "lactating", IsActive: true})
	b := f.createBatch(t, models.TargetMixed, f.milk.ID)

	created, err := f.svc.AddAnimalToBatch(ctx, farmID, b.ID, upper)
	require.NoError(t, err)
	assert.True(t, created)

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, map[string]models.MembershipSource{
		cowA:                   models.SourceCategory,
		strings.ToLower(upper): models.SourceCategory,
	}, ids(targets))
}

// pausingLinks holds the first ListLinks call after reading the store until
// release is closed.
type pausingLinks struct {
	repository.LinkStore
	armed   atomic.Bool
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingLinks) ListLinks(ctx context.Context, farmID, batchID string) ([]models.BatchAnimalLink, error) {
	links, err := p.LinkStore.ListLinks(ctx, farmID, batchID)
	if p.armed.CompareAndSwap(true, false) {
		close(p.paused)
		<-p.release
	}
	return links, err
}

func TestResolveDoesNotCacheResultOverlappingAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	links := &pausingLinks{LinkStore: f.store, paused: make(chan struct{}), release: make(chan struct{})}
	deps := f.deps
	deps.Links = links
	svc := NewService(deps, nil)

	b := f.createBatch(t, models.TargetSpecific)
	_, err := svc.AddAnimalToBatch(ctx, farmID, b.ID, cowA)
	require.NoError(t, err)

	links.armed.Store(true)
	type result struct {
		targets []models.TargetedAnimal
		err     error
	}
	done := make(chan result, 1)
	go func() {
		targets, err := svc.ResolveTargets(ctx, *b)
		done <- result{targets, err}
	}()

	<-links.paused
	_, err = svc.AddAnimalToBatch(ctx, farmID, b.ID, cowB)
	require.NoError(t, err)
	close(links.release)

	first := <-done
	require.NoError(t, first.err)
	assert.Len(t, first.targets, 1)

	targets, err := svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestUpdateBatch(t *testing.T) {
	base := models.BatchInput{
		BatchName: "Milkers", TargetMode: models.TargetMixed, DefaultQuantity: 10, FeedingFrequencyPerDay: 2,
	}

	tests := []struct {
		name   string
		mutate func(in *models.BatchInput)
		want   error
	}{
		{"invalid mode", func(in *models.BatchInput) { in.TargetMode = "herd" }, models.ErrInvalidTargetMode},
		{"frequency out of range", func(in *models.BatchInput) { in.FeedingFrequencyPerDay = 9 }, models.ErrValidation},
		{"category mode without categories", func(in *models.BatchInput) {
			in.TargetMode = models.TargetCategory
			in.AnimalCategoryIDs = nil
		}, models.ErrValidation},
		{"unknown category", func(in *models.BatchInput) { in.AnimalCategoryIDs = []string{"missing"} }, models.ErrCategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := base
			in.AnimalCategoryIDs = []string{f.milk.ID}
			b, err := f.svc.CreateBatch(context.Background(), farmID, in)
			require.NoError(t, err)

			tt.mutate(&in)
			_, err = f.svc.UpdateBatch(context.Background(), farmID, b.ID, in)
			assert.ErrorIs(t, err, tt.want)

			stored, err := f.svc.GetBatch(context.Background(), farmID, b.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TargetMixed, stored.TargetMode)
		})
	}
}

func TestUpdateBatchModeChangeInvalidatesTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetMixed, f.milk.ID)
	_, err := f.svc.AddAnimalToBatch(ctx, farmID, b.ID, bullX)
	require.NoError(t, err)

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	updated, err := f.svc.UpdateBatch(ctx, farmID, b.ID, models.BatchInput{
		BatchName:              b.BatchName,
		TargetMode:             models.TargetSpecific,
		DefaultQuantity:        b.DefaultQuantityKg,
		FeedingFrequencyPerDay: b.FeedingFrequencyPerDay,
	})
	require.NoError(t, err)
	_, cached := f.cache.Targets(farmID, b.ID)
	assert.False(t, cached)

	targets, err = f.svc.ResolveTargets(ctx, *updated)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.MembershipSource{bullX: models.SourceSpecific}, ids(targets))

	_, err = f.svc.UpdateBatch(ctx, "farm-2", b.ID, models.BatchInput{
		BatchName: "x", TargetMode: models.TargetSpecific, FeedingFrequencyPerDay: 1,
	})
	assert.ErrorIs(t, err, models.ErrBatchNotFound)
}

func TestCategoryEditInvalidatesCategoryTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createBatch(t, models.TargetCategory, f.milk.ID)
	catSvc := categories.NewService(f.store, snapshot.NewReader(f.reg, nil, nil).WithClock(testutil.Clock), f.cache, nil)

	targets, err := f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.MembershipSource{cowA: models.SourceCategory}, ids(targets))

	male := models.GenderMale
	_, err = catSvc.UpdateCategory(ctx, farmID, f.milk.ID, models.CategoryInput{Name: "Males", Gender: &male})
	require.NoError(t, err)
	_, cached := f.cache.Targets(farmID, b.ID)
	assert.False(t, cached)

	targets, err = f.svc.ResolveTargets(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.MembershipSource{bullX: models.SourceCategory}, ids(targets))
}
