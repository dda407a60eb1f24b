// Package query answers the contact-tracing questions over a graph.Store.
//
// Every read operation runs against one immutable snapshot and may be called
// concurrently with any other. SetHighRisk is the only writer; it is
// serialized by the store and installs a new snapshot.
//
// Basic usage:
//
//	snap, err := graph.Build(records)
//	if err != nil {
//	    return err
//	}
//	eng := query.New(graph.NewStore(snap), query.WithLogger(logger))
//	spreaders := eng.PossibleSpreaders()
package query

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/graph"
	"github.com/wagnerlima/contact-graph/internal/metrics"
	"github.com/wagnerlima/contact-graph/internal/models"
)

// DefaultMinOverlap is how long a healthy person must share a place with a
// sick one before they have to be informed.
const DefaultMinOverlap = 2 * time.Hour

// Engine runs the contact queries.
type Engine struct {
	store      *graph.Store
	logger     *zap.Logger
	minOverlap time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMinOverlap overrides DefaultMinOverlap.
func WithMinOverlap(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.minOverlap = d
		}
	}
}

// New creates an engine over store.
func New(store *graph.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		logger:     zap.NewNop(),
		minOverlap: DefaultMinOverlap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// track starts timing op and returns the function that records its outcome.
func (e *Engine) track(op string) func(err error, fields ...zap.Field) {
	start := time.Now()
	return func(err error, fields ...zap.Field) {
		elapsed := time.Since(start)
		status := "ok"
		if err != nil {
			status = string(apperr.KindOf(err))
			if status == "" {
				status = "error"
			}
		}
		metrics.QueriesTotal.WithLabelValues(op, status).Inc()
		metrics.QueryDuration.WithLabelValues(op).Observe(elapsed.Seconds())

		fields = append(fields, zap.String("op", op), zap.Duration("duration", elapsed))
		if err != nil {
			e.logger.Debug("query failed", append(fields, zap.Error(err))...)
			return
		}
		e.logger.Debug("query done", fields...)
	}
}

// view runs fn against the current snapshot.
func (e *Engine) view(fn func(s *graph.Snapshot)) {
	_ = e.store.View(func(s *graph.Snapshot) error {
		fn(s)
		return nil
	})
}

// Labels returns the node kinds present in the graph.
func (e *Engine) Labels() []string {
	done := e.track("labels")
	var out []string
	e.view(func(s *graph.Snapshot) { out = s.Labels() })
	done(nil, zap.Int("results", len(out)))
	return out
}

// Stats summarizes the current snapshot.
func (e *Engine) Stats() models.GraphStats {
	var st models.GraphStats
	e.view(func(s *graph.Snapshot) { st = s.Stats() })
	return st
}

// PossibleSpreaders returns the sick persons who, after their confirmation,
// visited a place that a healthy person also visited after that instant.
func (e *Engine) PossibleSpreaders() []string {
	done := e.track("possible_spreaders")
	var out []string
	e.view(func(s *graph.Snapshot) { out = possibleSpreaders(s) })
	done(nil, zap.Int("results", len(out)))
	return out
}

// PossibleSpreadCounts counts, per sick person, the pairs of their
// post-confirmation visits with healthy visits to the same place that
// started after the confirmation.
func (e *Engine) PossibleSpreadCounts() map[string]int {
	done := e.track("possible_spread_counts")
	var out map[string]int
	e.view(func(s *graph.Snapshot) { out = possibleSpreadCounts(s) })
	done(nil, zap.Int("results", len(out)))
	return out
}

// CarelessPeople ranks sick persons by number of distinct places visited.
func (e *Engine) CarelessPeople() []models.CarelessPerson {
	done := e.track("careless_people")
	var out []models.CarelessPerson
	e.view(func(s *graph.Snapshot) { out = carelessPeople(s) })
	done(nil, zap.Int("results", len(out)))
	return out
}

// SociallyCareful returns the sick persons with no bar visit started before
// their confirmation.
func (e *Engine) SociallyCareful() []string {
	done := e.track("socially_careful")
	var out []string
	e.view(func(s *graph.Snapshot) { out = sociallyCareful(s) })
	done(nil, zap.Int("results", len(out)))
	return out
}

// PeopleToInform maps each sick person to the healthy persons whose visits
// overlapped one of theirs at the same place for at least the minimum
// overlap.
func (e *Engine) PeopleToInform() map[string][]string {
	done := e.track("people_to_inform")
	var out map[string][]string
	e.view(func(s *graph.Snapshot) { out = peopleToInform(s, e.minOverlap) })
	done(nil, zap.Int("results", len(out)))
	return out
}

// HealthyCompanionsOf returns the healthy persons reachable from name through
// 2 to 6 visit edges.
func (e *Engine) HealthyCompanionsOf(name string) ([]string, error) {
	done := e.track("healthy_companions_of")
	var (
		out []string
		err error
	)
	e.view(func(s *graph.Snapshot) { out, err = healthyCompanionsOf(s, name) })
	done(err, zap.String("name", name), zap.Int("results", len(out)))
	return out, err
}

// TopSickSite returns the place type most visited by sick persons after their
// confirmation.
func (e *Engine) TopSickSite() (models.SiteCount, error) {
	done := e.track("top_sick_site")
	var (
		out models.SiteCount
		err error
	)
	e.view(func(s *graph.Snapshot) { out, err = topSickSite(s) })
	done(err, zap.String("place_type", out.PlaceType))
	return out, err
}

// SickFrom keeps the names that belong to a sick person.
func (e *Engine) SickFrom(names []string) []string {
	done := e.track("sick_from")
	var out []string
	e.view(func(s *graph.Snapshot) { out = sickFrom(s, names) })
	done(nil, zap.Int("candidates", len(names)), zap.Int("results", len(out)))
	return out
}

// SetHighRisk moves every sick person matched by c to HighRisk and returns
// their names. The change is applied atomically: concurrent readers see the
// graph entirely before or entirely after it.
func (e *Engine) SetHighRisk(c RiskCriterion) ([]string, error) {
	done := e.track("set_high_risk")
	if c == nil {
		err := apperr.Validation("a risk criterion is required")
		done(err)
		return nil, err
	}

	changed := []string{}
	err := e.store.Update(func(s *graph.Snapshot) (*graph.Snapshot, error) {
		for p := range s.SickPersons() {
			if c.AtRisk(p) {
				changed = append(changed, p.Name)
			}
		}
		if len(changed) == 0 {
			return nil, nil
		}
		return s.WithHealthStatus(changed, models.HighRisk)
	})
	if err != nil {
		done(err)
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(models.HighRisk)).Add(float64(len(changed)))
	if len(changed) > 0 {
		e.logger.Info("persons flagged high risk", zap.Strings("names", changed))
	}
	done(nil, zap.Int("results", len(changed)))
	return changed, nil
}

// Report runs every read query concurrently against one snapshot.
func (e *Engine) Report(ctx context.Context) (*models.Report, error) {
	done := e.track("report")
	r := &models.Report{}

	err := e.store.View(func(s *graph.Snapshot) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			r.Stats = s.Stats()
			return ctx.Err()
		})
		g.Go(func() error {
			r.PossibleSpreaders = possibleSpreaders(s)
			return ctx.Err()
		})
		g.Go(func() error {
			r.PossibleSpreadCounts = possibleSpreadCounts(s)
			return ctx.Err()
		})
		g.Go(func() error {
			r.CarelessPeople = carelessPeople(s)
			return ctx.Err()
		})
		g.Go(func() error {
			r.SociallyCareful = sociallyCareful(s)
			return ctx.Err()
		})
		g.Go(func() error {
			r.PeopleToInform = peopleToInform(s, e.minOverlap)
			return ctx.Err()
		})
		g.Go(func() error {
			site, err := topSickSite(s)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return ctx.Err()
				}
				return err
			}
			r.TopSickSite = &site
			return ctx.Err()
		})
		return g.Wait()
	})
	if err != nil {
		done(err)
		return nil, err
	}
	done(nil)
	return r, nil
}
