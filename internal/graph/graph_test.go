package graph

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/models"
)

var t0 = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return t0.Add(time.Duration(h) * time.Hour) }

func sick(name string, confirmedH int) models.Person {
	c := at(confirmedH)
	return models.Person{Name: name, HealthStatus: models.Sick, ConfirmedTime: &c}
}

func healthy(name string) models.Person {
	return models.Person{Name: name, HealthStatus: models.Healthy}
}

func sampleGraph() *models.ContactGraph {
	return &models.ContactGraph{
		Persons: []models.Person{healthy("Bob"), sick("Alice", 10), healthy("Carol")},
		Places:  []models.Place{{Name: "Pub", Type: "Bar"}, {Name: "Gym", Type: "Sport"}},
		Visits: []models.Visit{
			{Person: "Alice", Place: "Pub", StartTime: at(12), EndTime: at(14)},
			{Person: "Alice", Place: "Pub", StartTime: at(20), EndTime: at(21)},
			{Person: "Bob", Place: "Pub", StartTime: at(13), EndTime: at(15)},
			{Person: "Carol", Place: "Gym", StartTime: at(1), EndTime: at(2)},
		},
	}
}

func TestBuildIndexesRecords(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)

	var names []string
	for p := range snap.Persons() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names, "persons iterate in name order")

	var places []string
	for pl := range snap.Places() {
		places = append(places, pl.Name)
	}
	assert.Equal(t, []string{"Gym", "Pub"}, places)

	p, err := snap.FindPerson("Alice")
	require.NoError(t, err)
	assert.True(t, p.IsSick())

	assert.Equal(t, []string{"Person", "Place"}, snap.Labels())
	assert.Equal(t, models.GraphStats{Persons: 3, Sick: 1, Healthy: 2, Places: 2, Visits: 4}, snap.Stats())
}

func TestBuildAssignsVisitIDs(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, v := range snap.Graph().Visits {
		require.NotEmpty(t, v.ID)
		assert.False(t, seen[v.ID], "visit IDs are unique")
		seen[v.ID] = true
	}
}

func TestNeighborsAreSymmetric(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)

	var fromAlice []NodeRef
	for e := range snap.Neighbors(PersonRef("Alice")) {
		fromAlice = append(fromAlice, e.Other)
	}
	assert.Equal(t, []NodeRef{PlaceRef("Pub"), PlaceRef("Pub")}, fromAlice, "multigraph keeps both visits")

	var fromPub []string
	for e := range snap.Neighbors(PlaceRef("Pub")) {
		assert.Equal(t, models.LabelPerson, e.Other.Kind)
		fromPub = append(fromPub, e.Other.Name)
	}
	assert.Equal(t, []string{"Alice", "Alice", "Bob"}, fromPub)
}

func TestNeighborsStopEarly(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)

	count := 0
	for range snap.Neighbors(PlaceRef("Pub")) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestBuildRejectsBrokenInvariants(t *testing.T) {
	confirmed := at(3)
	tests := []struct {
		name   string
		mutate func(g *models.ContactGraph)
		kind   apperr.Kind
	}{
		{
			name: "sick without confirmed time",
			mutate: func(g *models.ContactGraph) {
				g.Persons = append(g.Persons, models.Person{Name: "Dan", HealthStatus: models.Sick})
			},
			kind: apperr.KindInconsistentState,
		},
		{
			name: "healthy with confirmed time",
			mutate: func(g *models.ContactGraph) {
				g.Persons = append(g.Persons, models.Person{Name: "Dan", HealthStatus: models.Healthy, ConfirmedTime: &confirmed})
			},
			kind: apperr.KindInconsistentState,
		},
		{
			name: "visit ends before it starts",
			mutate: func(g *models.ContactGraph) {
				g.Visits = append(g.Visits, models.Visit{Person: "Bob", Place: "Gym", StartTime: at(5), EndTime: at(4)})
			},
			kind: apperr.KindInvalidInterval,
		},
		{
			name: "visit to unknown place",
			mutate: func(g *models.ContactGraph) {
				g.Visits = append(g.Visits, models.Visit{Person: "Bob", Place: "Nowhere", StartTime: at(5), EndTime: at(6)})
			},
			kind: apperr.KindNotFound,
		},
		{
			name: "duplicate person",
			mutate: func(g *models.ContactGraph) {
				g.Persons = append(g.Persons, healthy("Bob"))
			},
			kind: apperr.KindConflict,
		},
		{
			name: "unknown status",
			mutate: func(g *models.ContactGraph) {
				g.Persons = append(g.Persons, models.Person{Name: "Eve", HealthStatus: "Zombie"})
			},
			kind: apperr.KindValidation,
		},
		{
			name: "place without type",
			mutate: func(g *models.ContactGraph) {
				g.Places = append(g.Places, models.Place{Name: "Park"})
			},
			kind: apperr.KindValidation,
		},
		{
			name: "visit without times",
			mutate: func(g *models.ContactGraph) {
				g.Visits = append(g.Visits, models.Visit{Person: "Bob", Place: "Gym"})
			},
			kind: apperr.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sampleGraph()
			tt.mutate(g)
			_, err := Build(g)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
		})
	}
}

func TestWithHealthStatusIsCopyOnWrite(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)

	next, err := snap.WithHealthStatus([]string{"Alice"}, models.HighRisk)
	require.NoError(t, err)

	before, _ := snap.Person("Alice")
	after, _ := next.Person("Alice")
	assert.Equal(t, models.Sick, before.HealthStatus, "original snapshot is untouched")
	assert.NotNil(t, before.ConfirmedTime)
	assert.Equal(t, models.HighRisk, after.HealthStatus)
	assert.Nil(t, after.ConfirmedTime)

	_, err = snap.WithHealthStatus([]string{"Bob"}, models.Sick)
	assert.True(t, apperr.IsKind(err, apperr.KindInconsistentState))

	_, err = snap.WithHealthStatus([]string{"Nobody"}, models.HighRisk)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestStoreUpdateIsExclusive(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)
	store := NewStore(snap)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.View(func(s *Snapshot) error {
				p, _ := s.Person("Alice")
				// a reader sees a consistent person, before or after the write
				if p.HealthStatus == models.Sick {
					assert.NotNil(t, p.ConfirmedTime)
				} else {
					assert.Nil(t, p.ConfirmedTime)
				}
				return nil
			})
		}()
	}
	require.NoError(t, store.Update(func(s *Snapshot) (*Snapshot, error) {
		return s.WithHealthStatus([]string{"Alice"}, models.HighRisk)
	}))
	wg.Wait()

	p, _ := store.Current().Person("Alice")
	assert.Equal(t, models.HighRisk, p.HealthStatus)
}

func TestStoreUpdateKeepsSnapshotOnError(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)
	store := NewStore(snap)

	err = store.Update(func(s *Snapshot) (*Snapshot, error) {
		return s.WithHealthStatus([]string{"Ghost"}, models.HighRisk)
	})
	require.Error(t, err)
	assert.Same(t, snap, store.Current())
}

func TestGraphRoundTripsRecords(t *testing.T) {
	snap, err := Build(sampleGraph())
	require.NoError(t, err)

	again, err := Build(snap.Graph())
	require.NoError(t, err)
	assert.Equal(t, snap.Stats(), again.Stats())
	assert.True(t, slices.Equal(snap.Labels(), again.Labels()))
}
