package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/graph"
	"github.com/wagnerlima/contact-graph/internal/models"
)

const fixture = `
persons:
  - name: Alice
    health_status: Sick
    confirmed_time: 2021-03-01T10:00:00Z
  - name: Bob
    health_status: Healthy
places:
  - name: Pub
    type: Bar
visits:
  - person: Alice
    place: Pub
    start_time: 2021-03-01T12:00:00Z
    end_time: 2021-03-01T14:00:00Z
  - person: Bob
    place: Pub
    start_time: 2021-03-01T12:30:00Z
    end_time: 2021-03-01T15:00:00Z
`

func TestReadYAML(t *testing.T) {
	g, err := ReadYAML(strings.NewReader(fixture))
	require.NoError(t, err)

	require.Len(t, g.Persons, 2)
	require.NotNil(t, g.Persons[0].ConfirmedTime)
	assert.Equal(t, time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC), g.Persons[0].ConfirmedTime.UTC())
	assert.Nil(t, g.Persons[1].ConfirmedTime)
	assert.Equal(t, models.Place{Name: "Pub", Type: "Bar"}, g.Places[0])
	require.Len(t, g.Visits, 2)
	assert.Equal(t, 2*time.Hour, g.Visits[0].Duration())

	_, err = graph.Build(g)
	assert.NoError(t, err)
}

func TestReadYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("persons:\n  - name: A\n    mood: grumpy\n"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestReadYAMLEmpty(t *testing.T) {
	g, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, g.Persons)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	g, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, g.Visits, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type fakeRecord map[string]any

func (r fakeRecord) Get(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

func TestPersonFromRecord(t *testing.T) {
	confirmed := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)

	p, err := personFromRecord(fakeRecord{"name": "Alice", "healthstatus": "Sick", "confirmedtime": confirmed})
	require.NoError(t, err)
	assert.Equal(t, models.Sick, p.HealthStatus)
	require.NotNil(t, p.ConfirmedTime)
	assert.True(t, p.ConfirmedTime.Equal(confirmed))

	p, err = personFromRecord(fakeRecord{"name": "Bob", "healthstatus": "Healthy", "confirmedtime": nil})
	require.NoError(t, err)
	assert.Nil(t, p.ConfirmedTime)

	_, err = personFromRecord(fakeRecord{"healthstatus": "Healthy"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestVisitFromRecord(t *testing.T) {
	start := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

	v, err := visitFromRecord(fakeRecord{
		"person":    "Alice",
		"place":     "Pub",
		"starttime": dbtype.LocalDateTime(start),
		"endtime":   "2021-03-01T14:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, v.StartTime.Equal(start))
	assert.Equal(t, 2*time.Hour, v.Duration())

	_, err = visitFromRecord(fakeRecord{"person": "Alice", "place": "Pub", "starttime": 42, "endtime": start})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPlaceFromRecord(t *testing.T) {
	pl, err := placeFromRecord(fakeRecord{"name": "Pub", "type": "Bar"})
	require.NoError(t, err)
	assert.Equal(t, models.Place{Name: "Pub", Type: "Bar"}, pl)

	_, err = placeFromRecord(fakeRecord{"name": "Pub", "type": 3})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestToTime(t *testing.T) {
	day := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := toTime(dbtype.Date(day))
	require.NoError(t, err)
	assert.True(t, got.Equal(day))

	_, err = toTime("yesterday")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
