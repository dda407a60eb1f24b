package query

import (
	"cmp"
	"slices"
	"time"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/graph"
	"github.com/wagnerlima/contact-graph/internal/models"
	"github.com/wagnerlima/contact-graph/internal/temporal"
)

// Traversal window for companions, counted in visit edges.
const (
	companionMinHops = 2
	companionMaxHops = 6
)

// BarPlaceType is the place type checked by sociallyCareful.
const BarPlaceType = "Bar"

// sortedKeys returns the keys of a set in order.
func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// isHealthy reports whether the visit was made by a Healthy person.
func isHealthy(s *graph.Snapshot, v models.Visit) bool {
	p, ok := s.Person(v.Person)
	return ok && p.IsHealthy()
}

// healthyVisitAfter reports whether some Healthy person started a visit to
// place strictly after instant. It stops at the first match.
func healthyVisitAfter(s *graph.Snapshot, place string, instant time.Time) bool {
	for v := range s.VisitsAt(place) {
		if temporal.HappensAfter(instant, v) && isHealthy(s, v) {
			return true
		}
	}
	return false
}

func possibleSpreaders(s *graph.Snapshot) []string {
	out := []string{}
	for sp := range s.SickPersons() {
		confirmed := *sp.ConfirmedTime
		checked := map[string]bool{}
		for v1 := range s.VisitsOf(sp.Name) {
			if !temporal.HappensAfter(confirmed, v1) || checked[v1.Place] {
				continue
			}
			checked[v1.Place] = true
			if healthyVisitAfter(s, v1.Place, confirmed) {
				out = append(out, sp.Name)
				break
			}
		}
	}
	return out
}

// possibleSpreadCounts counts (sick visit, healthy visit) pairs per sick
// person. Pairs are not deduplicated by healthy person: one healthy person
// met twice counts twice.
func possibleSpreadCounts(s *graph.Snapshot) map[string]int {
	counts := map[string]int{}
	for sp := range s.SickPersons() {
		confirmed := *sp.ConfirmedTime
		for v1 := range s.VisitsOf(sp.Name) {
			if !temporal.HappensAfter(confirmed, v1) {
				continue
			}
			for v2 := range s.VisitsAt(v1.Place) {
				if temporal.HappensAfter(confirmed, v2) && isHealthy(s, v2) {
					counts[sp.Name]++
				}
			}
		}
	}
	return counts
}

// carelessPeople ranks sick persons by the number of distinct places they
// visited, most first, ties by name. Sick persons without visits are left
// out.
func carelessPeople(s *graph.Snapshot) []models.CarelessPerson {
	out := []models.CarelessPerson{}
	for sp := range s.SickPersons() {
		places := map[string]struct{}{}
		for v := range s.VisitsOf(sp.Name) {
			places[v.Place] = struct{}{}
		}
		if len(places) == 0 {
			continue
		}
		out = append(out, models.CarelessPerson{SickName: sp.Name, NbPlaces: len(places)})
	}
	slices.SortStableFunc(out, func(a, b models.CarelessPerson) int {
		if c := cmp.Compare(b.NbPlaces, a.NbPlaces); c != 0 {
			return c
		}
		return cmp.Compare(a.SickName, b.SickName)
	})
	return out
}

// sociallyCareful keeps the sick persons with no bar visit that started
// before their confirmation (confirmedTime > startTime). Bar visits after
// confirmation do not count against them, which reads backwards for the name.
func sociallyCareful(s *graph.Snapshot) []string {
	out := []string{}
	for sp := range s.SickPersons() {
		confirmed := *sp.ConfirmedTime
		careful := true
		for v := range s.VisitsOf(sp.Name) {
			pl, ok := s.Place(v.Place)
			if ok && pl.Type == BarPlaceType && confirmed.After(v.StartTime) {
				careful = false
				break
			}
		}
		if careful {
			out = append(out, sp.Name)
		}
	}
	return out
}

func peopleToInform(s *graph.Snapshot, minOverlap time.Duration) map[string][]string {
	out := map[string][]string{}
	for sp := range s.SickPersons() {
		toInform := map[string]struct{}{}
		for vsp := range s.VisitsOf(sp.Name) {
			for vhp := range s.VisitsAt(vsp.Place) {
				if isHealthy(s, vhp) && temporal.Overlaps(vsp, vhp, minOverlap) {
					toInform[vhp.Person] = struct{}{}
				}
			}
		}
		if len(toInform) > 0 {
			out[sp.Name] = sortedKeys(toInform)
		}
	}
	return out
}

// healthyCompanionsOf runs a breadth-first search from the named person and
// collects the Healthy persons first reached 2 to 6 visit edges away. Each
// node is expanded once, so the cycles of the multigraph are never re-walked.
func healthyCompanionsOf(s *graph.Snapshot, name string) ([]string, error) {
	if _, err := s.FindPerson(name); err != nil {
		return nil, err
	}

	start := graph.PersonRef(name)
	seen := map[graph.NodeRef]struct{}{start: {}}
	frontier := []graph.NodeRef{start}
	companions := map[string]struct{}{}

	for hops := 1; hops <= companionMaxHops && len(frontier) > 0; hops++ {
		var next []graph.NodeRef
		for _, n := range frontier {
			for e := range s.Neighbors(n) {
				if _, ok := seen[e.Other]; ok {
					continue
				}
				seen[e.Other] = struct{}{}
				next = append(next, e.Other)

				if e.Other.Kind != models.LabelPerson || hops < companionMinHops {
					continue
				}
				if p, ok := s.Person(e.Other.Name); ok && p.IsHealthy() {
					companions[p.Name] = struct{}{}
				}
			}
		}
		frontier = next
	}
	return sortedKeys(companions), nil
}

// topSickSite picks the place type most visited by sick persons after their
// confirmation. Ties go to the lexicographically smallest type.
func topSickSite(s *graph.Snapshot) (models.SiteCount, error) {
	counts := map[string]int{}
	for sp := range s.SickPersons() {
		confirmed := *sp.ConfirmedTime
		for v := range s.VisitsOf(sp.Name) {
			if !temporal.HappensAfter(confirmed, v) {
				continue
			}
			if pl, ok := s.Place(v.Place); ok {
				counts[pl.Type]++
			}
		}
	}
	if len(counts) == 0 {
		return models.SiteCount{}, apperr.New(apperr.KindNotFound, "no visit by a sick person after confirmation")
	}

	var best models.SiteCount
	for placeType, n := range counts {
		if n > best.NbOfSickVisits || (n == best.NbOfSickVisits && placeType < best.PlaceType) {
			best = models.SiteCount{PlaceType: placeType, NbOfSickVisits: n}
		}
	}
	return best, nil
}

// sickFrom keeps the candidate names that belong to a Sick person, in
// candidate order, without repeats. Unknown names are ignored.
func sickFrom(s *graph.Snapshot, names []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if p, ok := s.Person(name); ok && p.IsSick() {
			out = append(out, name)
		}
	}
	return out
}
