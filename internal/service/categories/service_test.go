package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/feedengine/internal/domain/models"
	"github.com/mamadbah2/feedengine/internal/repository/memory"
	"github.com/mamadbah2/feedengine/internal/service/snapshot"
	"github.com/mamadbah2/feedengine/internal/testutil"
	"github.com/mamadbah2/feedengine/pkg/clients/registry"
)

const farmID = "farm-1"

type recordingInvalidator struct {
	farms []string
}

func (r *recordingInvalidator) InvalidateBatch(string, string) {}
func (r *recordingInvalidator) InvalidateFarm(farmID string)    { r.farms = append(r.farms, farmID) }

func newService(t *testing.T) (*Service, *testutil.FakeRegistry, *recordingInvalidator) {
	t.Helper()
	reg := testutil.NewFakeRegistry()
	reader := snapshot.NewReader(reg, nil, nil).WithClock(testutil.Clock)
	inv := &recordingInvalidator{}
	return NewService(memory.NewStore(), reader, inv, nil), reg, inv
}

func TestGetCategoriesSeedsDefaults(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	list, err := svc.GetCategories(ctx, farmID)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, "Calves", list[0].Name)
	for _, c := range list {
		assert.True(t, c.IsDefault)
	}

	again, err := svc.GetCategories(ctx, farmID)
	require.NoError(t, err)
	assert.Len(t, again, 5)
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   models.CategoryInput
	}{
		{"missing name", models.CategoryInput{Name: "  "}},
		{"negative age", models.CategoryInput{Name: "x", MinAgeDays: intPtr(-1)}},
		{"min above max", models.CategoryInput{Name: "x", MinAgeDays: intPtr(10), MaxAgeDays: intPtr(5)}},
		{"unknown gender", models.CategoryInput{Name: "x", Gender: strPtr("other")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCategory(ctx, farmID, tt.in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	svc, _, inv := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, farmID, models.CategoryInput{Name: "Dry Cows"})
	require.NoError(t, err)
	assert.Equal(t, []string{farmID}, inv.farms)

	_, err = svc.CreateCategory(ctx, farmID, models.CategoryInput{Name: "dry cows"})
	assert.ErrorIs(t, err, models.ErrDuplicateCategory)

	_, err = svc.CreateCategory(ctx, "farm-2", models.CategoryInput{Name: "Dry Cows"})
	assert.NoError(t, err)
}

func TestDeleteDefaultCategoryIsProtected(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	list, err := svc.GetCategories(ctx, farmID)
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, farmID, list[0].ID)
	assert.ErrorIs(t, err, models.ErrProtectedDefault)

	_, err = svc.GetCategory(ctx, farmID, list[0].ID)
	assert.NoError(t, err)
}

func TestCategoryLookupIsFarmScoped(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, farmID, models.CategoryInput{Name: "Steers"})
	require.NoError(t, err)

	_, err = svc.GetCategory(ctx, "farm-2", c.ID)
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestMatchingAnimalsTotalIgnoresLimit(t *testing.T) {
	svc, reg, _ := newService(t)
	ctx := context.Background()

	for i, tag := range []string{"C", "A", "B"} {
		reg.Put(farmID, registry.AnimalRecord{
			ID:               []string{"1", "2", "3"}[i],
			Tag:              tag,
			Gender:           "female",
			ProductionStatus: "lactating",
			IsActive:         true,
		})
	}
	reg.Put(farmID, registry.AnimalRecord{ID: "4", Tag: "D", Gender: "male", IsActive: true})

	c, err := svc.CreateCategory(ctx, farmID, models.CategoryInput{
		Name:            "Milkers",
		Characteristics: models.Characteristics{Lactating: boolPtr(true)},
	})
	require.NoError(t, err)

	page, total, err := svc.GetMatchingAnimals(ctx, farmID, c.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "A", page[0].Tag)
	assert.Equal(t, "B", page[1].Tag)

	all, total, err := svc.GetMatchingAnimals(ctx, farmID, c.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)
}

func TestMatchingAnimalsEmptyHerd(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, farmID, models.CategoryInput{Name: "Anything"})
	require.NoError(t, err)

	page, total, err := svc.GetMatchingAnimals(ctx, farmID, c.ID, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestCreateCategorySeedsDefaultsFirst(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, farmID, models.CategoryInput{Name: "Steers", SortOrder: 99})
	require.NoError(t, err)

	list, err := svc.GetCategories(ctx, farmID)
	require.NoError(t, err)
	assert.Len(t, list, 6)
	assert.Equal(t, "Steers", list[len(list)-1].Name)

	_, err = svc.CreateCategory(ctx, "farm-2", models.CategoryInput{Name: "calves"})
	assert.ErrorIs(t, err, models.ErrDuplicateCategory)
}

func TestUpdateCategory(t *testing.T) {
	tests := []struct {
		name    string
		farm    string
		target  string
		in      models.CategoryInput
		want    error
		renamed string
	}{
		{name: "rename keeps own name ignoring case", farm: farmID, target: "steers", in: models.CategoryInput{Name: "STEERS"}, renamed: "STEERS"},
		{name: "rename to another category", farm: farmID, target: "steers", in: models.CategoryInput{Name: "heifers"}, want: models.ErrDuplicateCategory},
		{name: "min above max", farm: farmID, target: "steers", in: models.CategoryInput{Name: "Steers", MinAgeDays: intPtr(30), MaxAgeDays: intPtr(10)}, want: models.ErrValidation},
		{name: "unknown id", farm: farmID, target: "missing", in: models.CategoryInput{Name: "x"}, want: models.ErrCategoryNotFound},
		{name: "foreign farm", farm: "farm-2", target: "steers", in: models.CategoryInput{Name: "x"}, want: models.ErrCategoryNotFound},
		{name: "default stays default", farm: farmID, target: "calves", in: models.CategoryInput{Name: "Young Calves", MaxAgeDays: intPtr(120)}, renamed: "Young Calves"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, inv := newService(t)
			ctx := context.Background()
			steers, err := svc.CreateCategory(ctx, farmID, models.CategoryInput{Name: "Steers"})
			require.NoError(t, err)
			list, err := svc.GetCategories(ctx, farmID)
			require.NoError(t, err)
			ids := map[string]string{"steers": steers.ID, "missing": "missing"}
			for _, c := range list {
				if c.Name == "Calves" {
					ids["calves"] = c.ID
				}
			}
			inv.farms = nil

			got, err := svc.UpdateCategory(ctx, tt.farm, ids[tt.target], tt.in)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.Empty(t, inv.farms)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.renamed, got.Name)
			assert.Equal(t, []string{farmID}, inv.farms)

			stored, err := svc.GetCategory(ctx, farmID, ids[tt.target])
			require.NoError(t, err)
			assert.Equal(t, tt.renamed, stored.Name)
			assert.Equal(t, tt.target == "calves", stored.IsDefault)
		})
	}
}
