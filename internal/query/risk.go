package query

import "github.com/wagnerlima/contact-graph/internal/models"

// RiskCriterion decides which sick persons become HighRisk. The engine has
// no built-in rule; the caller supplies one.
type RiskCriterion interface {
	AtRisk(p models.Person) bool
}

// RiskFunc adapts a plain function to RiskCriterion.
type RiskFunc func(p models.Person) bool

// AtRisk implements RiskCriterion.
func (f RiskFunc) AtRisk(p models.Person) bool { return f(p) }

// NamedRisk flags exactly the listed persons.
func NamedRisk(names ...string) RiskCriterion {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return RiskFunc(func(p models.Person) bool {
		_, ok := set[p.Name]
		return ok
	})
}
