package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/models"
)

var t0 = time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)

func openCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := OpenCatalog(dir)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, dir
}

func openDataset(t *testing.T) *DatasetStore {
	t.Helper()
	c, _ := openCatalog(t)
	ds, err := c.CreateDataset("test", "")
	require.NoError(t, err)
	store, err := OpenDataset(c.DatasetDBPath(ds))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sample() *models.ContactGraph {
	confirmed := t0.Add(2 * time.Hour)
	return &models.ContactGraph{
		Persons: []models.Person{
			{Name: "Alice Martin", HealthStatus: models.Sick, ConfirmedTime: &confirmed},
			{Name: "Bob Keller", HealthStatus: models.Healthy},
		},
		Places: []models.Place{
			{Name: "Blue Lagoon", Type: "Bar"},
			{Name: "City Gym", Type: "Sport"},
		},
		Visits: []models.Visit{
			{Person: "Alice Martin", Place: "Blue Lagoon", StartTime: t0.Add(3 * time.Hour), EndTime: t0.Add(5 * time.Hour)},
			{Person: "Bob Keller", Place: "Blue Lagoon", StartTime: t0.Add(4 * time.Hour), EndTime: t0.Add(6 * time.Hour)},
			{Person: "Bob Keller", Place: "City Gym", StartTime: t0, EndTime: t0.Add(time.Hour + 500*time.Millisecond)},
		},
	}
}

func TestOpenCatalog(t *testing.T) {
	_, dir := openCatalog(t)

	_, err := os.Stat(filepath.Join(dir, "datasets"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "_meta.db"))
	assert.NoError(t, err)
}

func TestCreateAndGetDataset(t *testing.T) {
	c, dir := openCatalog(t)

	ds, err := c.CreateDataset("lab", "contact data")
	require.NoError(t, err)
	assert.Equal(t, "lab", ds.Name)
	assert.Equal(t, "contact data", ds.Description)
	assert.NotEmpty(t, ds.ID)

	_, err = os.Stat(filepath.Join(dir, ds.DBPath))
	assert.NoError(t, err, "dataset db file is created")

	byName, err := c.GetDataset("lab")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, byName.ID)

	byID, err := c.GetDatasetByID(ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "lab", byID.Name)
}

func TestCreateDatasetErrors(t *testing.T) {
	c, _ := openCatalog(t)

	_, err := c.CreateDataset("dup", "")
	require.NoError(t, err)
	_, err = c.CreateDataset("dup", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = c.CreateDataset("", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = c.GetDataset("missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAndDeleteDatasets(t *testing.T) {
	c, dir := openCatalog(t)

	_, err := c.CreateDataset("beta", "")
	require.NoError(t, err)
	alpha, err := c.CreateDataset("alpha", "")
	require.NoError(t, err)

	list, err := c.ListDatasets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)

	require.NoError(t, c.Touch("alpha"))
	assert.ErrorIs(t, c.Touch("gamma"), apperr.ErrNotFound)

	require.NoError(t, c.DeleteDataset("alpha"))
	_, err = os.Stat(filepath.Join(dir, alpha.DBPath))
	assert.True(t, os.IsNotExist(err), "dataset db file is removed")

	list, err = c.ListDatasets()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, c.DeleteDataset("alpha"), apperr.ErrNotFound)
}

func TestImportAndReadGraph(t *testing.T) {
	store := openDataset(t)

	stats, err := store.Import(sample())
	require.NoError(t, err)
	assert.Equal(t, models.GraphStats{Persons: 2, Sick: 1, Healthy: 1, Places: 2, Visits: 3}, stats)

	g, err := store.ReadGraph()
	require.NoError(t, err)
	require.Len(t, g.Persons, 2)
	assert.Equal(t, "Alice Martin", g.Persons[0].Name)
	require.NotNil(t, g.Persons[0].ConfirmedTime)
	assert.True(t, g.Persons[0].ConfirmedTime.Equal(t0.Add(2*time.Hour)))
	assert.Nil(t, g.Persons[1].ConfirmedTime)

	require.Len(t, g.Visits, 3)
	// Visits come back in start order, with sub-second precision intact.
	assert.Equal(t, "City Gym", g.Visits[0].Place)
	assert.True(t, g.Visits[0].EndTime.Equal(t0.Add(time.Hour+500*time.Millisecond)))
	for _, v := range g.Visits {
		assert.NotEmpty(t, v.ID)
	}
}

func TestImportRejectsInvalidGraph(t *testing.T) {
	store := openDataset(t)

	g := sample()
	g.Visits[0].EndTime = g.Visits[0].StartTime.Add(-time.Minute)
	_, err := store.Import(g)
	assert.ErrorIs(t, err, apperr.ErrInvalidInterval)

	read, err := store.ReadGraph()
	require.NoError(t, err)
	assert.Empty(t, read.Persons, "nothing is written on failure")
}

func TestCreateRecords(t *testing.T) {
	store := openDataset(t)

	_, err := store.CreatePersons([]models.Person{{Name: "Carol", HealthStatus: models.Healthy}})
	require.NoError(t, err)
	_, err = store.CreatePlaces([]models.Place{{Name: "Market", Type: "Shop"}})
	require.NoError(t, err)

	visits, err := store.CreateVisits([]models.Visit{
		{Person: "Carol", Place: "Market", StartTime: t0, EndTime: t0.Add(time.Hour)},
	})
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.NotEmpty(t, visits[0].ID)

	g, err := store.ReadGraph()
	require.NoError(t, err)
	assert.Len(t, g.Visits, 1)
}

func TestCreateRecordsErrors(t *testing.T) {
	store := openDataset(t)
	_, err := store.Import(sample())
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "duplicate person",
			run: func() error {
				_, err := store.CreatePersons([]models.Person{{Name: "Bob Keller", HealthStatus: models.Healthy}})
				return err
			},
			want: apperr.ErrConflict,
		},
		{
			name: "sick without confirmation",
			run: func() error {
				_, err := store.CreatePersons([]models.Person{{Name: "Dan", HealthStatus: models.Sick}})
				return err
			},
			want: apperr.ErrInconsistentState,
		},
		{
			name: "unknown status",
			run: func() error {
				_, err := store.CreatePersons([]models.Person{{Name: "Dan", HealthStatus: "Zombie"}})
				return err
			},
			want: apperr.ErrValidation,
		},
		{
			name: "duplicate place",
			run: func() error {
				_, err := store.CreatePlaces([]models.Place{{Name: "City Gym", Type: "Sport"}})
				return err
			},
			want: apperr.ErrConflict,
		},
		{
			name: "visit to unknown place",
			run: func() error {
				_, err := store.CreateVisits([]models.Visit{
					{Person: "Bob Keller", Place: "Nowhere", StartTime: t0, EndTime: t0.Add(time.Hour)},
				})
				return err
			},
			want: apperr.ErrNotFound,
		},
		{
			name: "visit ending before start",
			run: func() error {
				_, err := store.CreateVisits([]models.Visit{
					{Person: "Bob Keller", Place: "City Gym", StartTime: t0.Add(time.Hour), EndTime: t0},
				})
				return err
			},
			want: apperr.ErrInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}
}

func TestUpdateHealthStatus(t *testing.T) {
	store := openDataset(t)
	_, err := store.Import(sample())
	require.NoError(t, err)

	n, err := store.UpdateHealthStatus([]string{"Alice Martin"}, models.HighRisk, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	g, err := store.ReadGraph()
	require.NoError(t, err)
	assert.Equal(t, models.HighRisk, g.Persons[0].HealthStatus)
	assert.Nil(t, g.Persons[0].ConfirmedTime)

	confirmed := t0.Add(10 * time.Hour)
	_, err = store.UpdateHealthStatus([]string{"Bob Keller"}, models.Sick, &confirmed)
	require.NoError(t, err)

	_, err = store.UpdateHealthStatus([]string{"Bob Keller"}, models.Sick, nil)
	assert.ErrorIs(t, err, apperr.ErrInconsistentState)

	_, err = store.UpdateHealthStatus([]string{"Bob Keller", "Ghost"}, models.Healthy, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	g, err = store.ReadGraph()
	require.NoError(t, err)
	assert.Equal(t, models.Sick, g.Persons[1].HealthStatus, "failed update is rolled back")
}

func TestDeleteCascadesToVisits(t *testing.T) {
	store := openDataset(t)
	_, err := store.Import(sample())
	require.NoError(t, err)

	n, err := store.DeletePersons([]string{"Bob Keller", "Ghost"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	g, err := store.ReadGraph()
	require.NoError(t, err)
	assert.Len(t, g.Persons, 1)
	assert.Len(t, g.Visits, 1)

	n, err = store.DeletePlaces([]string{"Blue Lagoon"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	g, err = store.ReadGraph()
	require.NoError(t, err)
	assert.Empty(t, g.Visits)
}

func TestSearchFTS(t *testing.T) {
	store := openDataset(t)
	_, err := store.Import(sample())
	require.NoError(t, err)

	res, err := store.Search("alice")
	require.NoError(t, err)
	require.Len(t, res.Persons, 1)
	assert.Equal(t, "Alice Martin", res.Persons[0].Name)
	assert.Empty(t, res.Places)

	res, err = store.Search("bar")
	require.NoError(t, err)
	assert.Empty(t, res.Persons)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "Blue Lagoon", res.Places[0].Name)

	_, err = store.DeletePlaces([]string{"Blue Lagoon"})
	require.NoError(t, err)
	res, err = store.Search("lagoon")
	require.NoError(t, err)
	assert.Empty(t, res.Places, "deleted places leave the index")
}
