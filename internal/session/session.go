package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/graph"
	"github.com/wagnerlima/contact-graph/internal/metrics"
	"github.com/wagnerlima/contact-graph/internal/models"
	"github.com/wagnerlima/contact-graph/internal/query"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

// ErrNoDataset is returned when an operation needs an active dataset.
var ErrNoDataset = apperr.New(apperr.KindNotFound, "no active dataset, use switch_dataset to select one")

// Session holds the current dataset of an MCP session and the query engine
// built from it.
type Session struct {
	mu          sync.Mutex
	logger      *zap.Logger
	minOverlap  time.Duration
	currentID   string
	currentName string
	datasetDB   *storage.DatasetStore
	engine      *query.Engine
}

// New creates a new empty session with no active dataset.
func New(logger *zap.Logger, minOverlap time.Duration) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{logger: logger, minOverlap: minOverlap}
}

// SwitchDataset closes the current dataset (if any) and opens the given one.
func (s *Session) SwitchDataset(cat *storage.Catalog, name string) (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := cat.GetDataset(name)
	if err != nil {
		return nil, err
	}

	s.closeLocked()

	db, err := storage.OpenDataset(cat.DatasetDBPath(ds))
	if err != nil {
		return nil, fmt.Errorf("open dataset db: %w", err)
	}

	s.currentID = ds.ID
	s.currentName = ds.Name
	s.datasetDB = db
	s.logger.Info("switched dataset", zap.String("dataset", ds.Name))

	return ds, nil
}

// GetCurrent returns info about the current dataset, or ok=false if none is active.
func (s *Session) GetCurrent() (id, name string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.datasetDB == nil {
		return "", "", false
	}
	return s.currentID, s.currentName, true
}

// DatasetStore returns the current dataset's storage, or nil if no dataset is active.
func (s *Session) DatasetStore() *storage.DatasetStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasetDB
}

// Engine returns the query engine of the current dataset. The graph is read
// from the database on first use and after Invalidate.
func (s *Session) Engine() (*query.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.datasetDB == nil {
		return nil, ErrNoDataset
	}
	if s.engine != nil {
		return s.engine, nil
	}

	start := time.Now()
	g, err := s.datasetDB.ReadGraph()
	if err != nil {
		return nil, fmt.Errorf("read dataset graph: %w", err)
	}
	snap, err := graph.Build(g)
	if err != nil {
		return nil, fmt.Errorf("build dataset graph: %w", err)
	}

	stats := snap.Stats()
	metrics.ObserveSnapshot(stats)
	s.logger.Info("loaded contact graph",
		zap.String("dataset", s.currentName),
		zap.Int("persons", stats.Persons),
		zap.Int("places", stats.Places),
		zap.Int("visits", stats.Visits),
		zap.Duration("duration", time.Since(start)),
	)

	s.engine = query.New(graph.NewStore(snap),
		query.WithLogger(s.logger.With(zap.String("dataset", s.currentName))),
		query.WithMinOverlap(s.minOverlap),
	)
	return s.engine, nil
}

// Invalidate drops the cached engine after the dataset's records changed.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = nil
}

// Clear closes the current dataset and resets session state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Close is an alias for Clear, used during server shutdown.
func (s *Session) Close() {
	s.Clear()
}

func (s *Session) closeLocked() {
	if s.datasetDB != nil {
		s.datasetDB.Close()
		s.datasetDB = nil
	}
	s.engine = nil
	s.currentID = ""
	s.currentName = ""
}
