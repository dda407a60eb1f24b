// Package graph holds the contact multigraph: a validated, immutable
// Snapshot of persons, places and visits, and a Store that hands snapshots
// to concurrent readers and serializes the single writer.
package graph

import (
	"iter"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/models"
)

// NodeRef identifies a node by kind and name.
type NodeRef struct {
	Kind string
	Name string
}

// PersonRef returns a reference to the person with the given name.
func PersonRef(name string) NodeRef { return NodeRef{Kind: models.LabelPerson, Name: name} }

// PlaceRef returns a reference to the place with the given name.
func PlaceRef(name string) NodeRef { return NodeRef{Kind: models.LabelPlace, Name: name} }

// Edge is one visit seen from one of its endpoints.
type Edge struct {
	Visit models.Visit
	Other NodeRef
}

// Snapshot is an immutable view of the contact graph. All methods are safe
// for concurrent use.
type Snapshot struct {
	persons map[string]*models.Person
	places  map[string]*models.Place

	// name-ordered indexes, for deterministic iteration
	personNames *btree.BTreeG[string]
	placeNames  *btree.BTreeG[string]

	visits   []models.Visit
	byPerson map[string][]int
	byPlace  map[string][]int
}

// newNameIndex returns an ordered set of names. The index is never written
// after Build, so it skips the tree's internal locking.
func newNameIndex() *btree.BTreeG[string] {
	return btree.NewBTreeGOptions(func(a, b string) bool { return a < b }, btree.Options{NoLocks: true})
}

// Build validates the records of g and indexes them into a Snapshot.
// Visits without an ID get a generated one.
func Build(g *models.ContactGraph) (*Snapshot, error) {
	s := &Snapshot{
		persons:     make(map[string]*models.Person, len(g.Persons)),
		places:      make(map[string]*models.Place, len(g.Places)),
		personNames: newNameIndex(),
		placeNames:  newNameIndex(),
		visits:      make([]models.Visit, 0, len(g.Visits)),
		byPerson:    make(map[string][]int),
		byPlace:     make(map[string][]int),
	}

	for _, p := range g.Persons {
		if err := ValidatePerson(p); err != nil {
			return nil, err
		}
		if _, dup := s.persons[p.Name]; dup {
			return nil, apperr.Conflict("duplicate person %q", p.Name)
		}
		s.persons[p.Name] = &p
		s.personNames.Set(p.Name)
	}

	for _, pl := range g.Places {
		if err := ValidatePlace(pl); err != nil {
			return nil, err
		}
		if _, dup := s.places[pl.Name]; dup {
			return nil, apperr.Conflict("duplicate place %q", pl.Name)
		}
		s.places[pl.Name] = &pl
		s.placeNames.Set(pl.Name)
	}

	for _, v := range g.Visits {
		if err := ValidateVisit(v); err != nil {
			return nil, err
		}
		if _, ok := s.persons[v.Person]; !ok {
			return nil, apperr.NotFound("person", v.Person).WithDetails(map[string]any{"visit_place": v.Place})
		}
		if _, ok := s.places[v.Place]; !ok {
			return nil, apperr.NotFound("place", v.Place).WithDetails(map[string]any{"visit_person": v.Person})
		}
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		idx := len(s.visits)
		s.visits = append(s.visits, v)
		s.byPerson[v.Person] = append(s.byPerson[v.Person], idx)
		s.byPlace[v.Place] = append(s.byPlace[v.Place], idx)
	}

	return s, nil
}

// Person returns the person with the given name.
func (s *Snapshot) Person(name string) (models.Person, bool) {
	p, ok := s.persons[name]
	if !ok {
		return models.Person{}, false
	}
	return *p, true
}

// FindPerson is like Person but fails with a NotFound error.
func (s *Snapshot) FindPerson(name string) (models.Person, error) {
	p, ok := s.Person(name)
	if !ok {
		return models.Person{}, apperr.NotFound("person", name)
	}
	return p, nil
}

// Place returns the place with the given name.
func (s *Snapshot) Place(name string) (models.Place, bool) {
	pl, ok := s.places[name]
	if !ok {
		return models.Place{}, false
	}
	return *pl, true
}

// Persons yields every person in name order.
func (s *Snapshot) Persons() iter.Seq[models.Person] {
	return func(yield func(models.Person) bool) {
		s.personNames.Scan(func(name string) bool {
			return yield(*s.persons[name])
		})
	}
}

// SickPersons yields every Sick person in name order.
func (s *Snapshot) SickPersons() iter.Seq[models.Person] {
	return func(yield func(models.Person) bool) {
		for p := range s.Persons() {
			if p.IsSick() && !yield(p) {
				return
			}
		}
	}
}

// Places yields every place in name order.
func (s *Snapshot) Places() iter.Seq[models.Place] {
	return func(yield func(models.Place) bool) {
		s.placeNames.Scan(func(name string) bool {
			return yield(*s.places[name])
		})
	}
}

// VisitsOf yields the visits made by a person, in load order.
func (s *Snapshot) VisitsOf(person string) iter.Seq[models.Visit] {
	return s.visitSeq(s.byPerson[person])
}

// VisitsAt yields the visits made to a place, in load order.
func (s *Snapshot) VisitsAt(place string) iter.Seq[models.Visit] {
	return s.visitSeq(s.byPlace[place])
}

func (s *Snapshot) visitSeq(idx []int) iter.Seq[models.Visit] {
	return func(yield func(models.Visit) bool) {
		for _, i := range idx {
			if !yield(s.visits[i]) {
				return
			}
		}
	}
}

// Neighbors yields the visits incident to a node together with the node on
// the other side. Visits are traversed the same way from either endpoint.
func (s *Snapshot) Neighbors(n NodeRef) iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		switch n.Kind {
		case models.LabelPerson:
			for v := range s.VisitsOf(n.Name) {
				if !yield(Edge{Visit: v, Other: PlaceRef(v.Place)}) {
					return
				}
			}
		case models.LabelPlace:
			for v := range s.VisitsAt(n.Name) {
				if !yield(Edge{Visit: v, Other: PersonRef(v.Person)}) {
					return
				}
			}
		}
	}
}

// Labels returns the node kinds present in the snapshot, sorted.
func (s *Snapshot) Labels() []string {
	labels := []string{}
	if len(s.persons) > 0 {
		labels = append(labels, models.LabelPerson)
	}
	if len(s.places) > 0 {
		labels = append(labels, models.LabelPlace)
	}
	return labels
}

// Stats counts the nodes and edges of the snapshot.
func (s *Snapshot) Stats() models.GraphStats {
	st := models.GraphStats{
		Persons: len(s.persons),
		Places:  len(s.places),
		Visits:  len(s.visits),
	}
	for _, p := range s.persons {
		switch p.HealthStatus {
		case models.Sick:
			st.Sick++
		case models.Healthy:
			st.Healthy++
		}
	}
	return st
}

// Graph returns the records of the snapshot, persons and places in name order.
func (s *Snapshot) Graph() *models.ContactGraph {
	g := &models.ContactGraph{
		Persons: make([]models.Person, 0, len(s.persons)),
		Places:  make([]models.Place, 0, len(s.places)),
		Visits:  append([]models.Visit(nil), s.visits...),
	}
	for p := range s.Persons() {
		g.Persons = append(g.Persons, p)
	}
	for pl := range s.Places() {
		g.Places = append(g.Places, pl)
	}
	return g
}

// WithHealthStatus returns a copy of s where the named persons have the given
// status. Only the person index is copied; visits and adjacency are shared.
// Leaving the Sick status clears the confirmed time. Moving a person into
// Sick is rejected since no confirmation time is known.
func (s *Snapshot) WithHealthStatus(names []string, status models.HealthStatus) (*Snapshot, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown health status %q", status)
	}
	if status == models.Sick {
		return nil, apperr.InconsistentState("cannot mark persons Sick without a confirmed time")
	}
	for _, name := range names {
		if _, ok := s.persons[name]; !ok {
			return nil, apperr.NotFound("person", name)
		}
	}

	next := *s
	next.persons = make(map[string]*models.Person, len(s.persons))
	for name, p := range s.persons {
		next.persons[name] = p
	}
	for _, name := range names {
		p := *s.persons[name]
		p.HealthStatus = status
		p.ConfirmedTime = nil
		next.persons[name] = &p
	}
	return &next, nil
}
