package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/models"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

func newCatalog(t *testing.T) *storage.Catalog {
	t.Helper()
	cat, err := storage.OpenCatalog(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestEngineRequiresDataset(t *testing.T) {
	s := New(nil, 2*time.Hour)
	_, err := s.Engine()
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, ok := s.GetCurrent()
	assert.False(t, ok)
	assert.Nil(t, s.DatasetStore())
}

func TestSwitchAndReload(t *testing.T) {
	cat := newCatalog(t)
	_, err := cat.CreateDataset("lab", "")
	require.NoError(t, err)

	s := New(nil, 2*time.Hour)
	t.Cleanup(s.Close)

	ds, err := s.SwitchDataset(cat, "lab")
	require.NoError(t, err)
	_, name, ok := s.GetCurrent()
	require.True(t, ok)
	assert.Equal(t, ds.Name, name)

	eng, err := s.Engine()
	require.NoError(t, err)
	assert.Equal(t, models.GraphStats{}, eng.Stats())

	again, err := s.Engine()
	require.NoError(t, err)
	assert.Same(t, eng, again, "engine is cached until invalidated")

	_, err = s.DatasetStore().CreatePersons([]models.Person{{Name: "Bob", HealthStatus: models.Healthy}})
	require.NoError(t, err)
	s.Invalidate()

	eng, err = s.Engine()
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Stats().Persons)
}

func TestSwitchUnknownDatasetKeepsCurrent(t *testing.T) {
	cat := newCatalog(t)
	_, err := cat.CreateDataset("lab", "")
	require.NoError(t, err)

	s := New(nil, 2*time.Hour)
	t.Cleanup(s.Close)
	_, err = s.SwitchDataset(cat, "lab")
	require.NoError(t, err)

	_, err = s.SwitchDataset(cat, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, name, ok := s.GetCurrent()
	assert.True(t, ok)
	assert.Equal(t, "lab", name)

	s.Clear()
	_, _, ok = s.GetCurrent()
	assert.False(t, ok)
}
