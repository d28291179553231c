package services

import (
	"testing"

	"lifeline/models"
	"lifeline/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := testCatalog(t)
	categories := catalog.List()

	require.Len(t, categories, 12)
	for _, category := range categories {
		assert.True(t, category.ID.Valid(), category.ID)
		assert.NotEmpty(t, category.FirstAidSteps, category.ID)
		assert.NotEmpty(t, category.Actions, category.ID)
		for i, step := range category.FirstAidSteps {
			assert.Equal(t, i+1, step.Number)
		}
	}

	road, ok := catalog.Get(models.CategoryRoadAccident)
	require.True(t, ok)
	assert.Equal(t, models.FacilityTraumaCenter, road.TargetFacility)

	_, ok = catalog.Get(models.CategoryID("alien_abduction"))
	assert.False(t, ok)
}

func TestDefaultCatalog_ListIsACopy(t *testing.T) {
	catalog := testCatalog(t)
	list := catalog.List()
	list[0].Title = "changed"

	first, ok := catalog.Get(list[0].ID)
	require.True(t, ok)
	assert.NotEqual(t, "changed", first.Title)
}

func TestNewCatalogService_RejectsBadCategories(t *testing.T) {
	validator := utils.NewValidationService()
	good := DefaultCategories()[0]

	_, err := NewCatalogService([]models.EmergencyCategory{good, good}, validator)
	assert.Error(t, err)

	misnumbered := DefaultCategories()[1]
	misnumbered.FirstAidSteps = append([]models.FirstAidStep(nil), misnumbered.FirstAidSteps...)
	misnumbered.FirstAidSteps[0].Number = 7
	_, err = NewCatalogService([]models.EmergencyCategory{misnumbered}, validator)
	assert.Error(t, err)

	untitled := DefaultCategories()[2]
	untitled.Title = ""
	_, err = NewCatalogService([]models.EmergencyCategory{untitled}, validator)
	assert.Error(t, err)
}
