package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/config"
	"github.com/wagnerlima/contact-graph/internal/models"
)

// Cypher reading the graph. Property names follow the source database,
// which stores them in lower case.
const (
	labelsCypher = `CALL db.labels() YIELD label RETURN label ORDER BY label`

	personsCypher = `MATCH (p:Person)
RETURN p.name AS name, p.healthstatus AS healthstatus, p.confirmedtime AS confirmedtime`

	placesCypher = `MATCH (pl:Place)
RETURN pl.name AS name, pl.type AS type`

	visitsCypher = `MATCH (p:Person)-[v:VISITS]->(pl:Place)
RETURN p.name AS person, pl.name AS place, v.starttime AS starttime, v.endtime AS endtime`
)

// Neo4j reads contact records from a Neo4j database.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// OpenNeo4j connects to the database described by cfg and verifies that it
// is reachable.
func OpenNeo4j(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*Neo4j, error) {
	if cfg.URI == "" {
		return nil, apperr.Validation("neo4j.uri is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j at %s: %w", cfg.URI, err)
	}

	logger.Info("connected to neo4j", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return &Neo4j{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Close releases the driver.
func (n *Neo4j) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}

// Labels returns the node labels known to the database.
func (n *Neo4j) Labels(ctx context.Context) ([]string, error) {
	records, err := n.read(ctx, labelsCypher)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(records))
	for _, rec := range records {
		l, err := stringField(rec, "label")
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// Fetch reads every person, place and visit.
func (n *Neo4j) Fetch(ctx context.Context) (*models.ContactGraph, error) {
	start := time.Now()
	g := &models.ContactGraph{}

	records, err := n.read(ctx, personsCypher)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		p, err := personFromRecord(rec)
		if err != nil {
			return nil, err
		}
		g.Persons = append(g.Persons, p)
	}

	if records, err = n.read(ctx, placesCypher); err != nil {
		return nil, err
	}
	for _, rec := range records {
		pl, err := placeFromRecord(rec)
		if err != nil {
			return nil, err
		}
		g.Places = append(g.Places, pl)
	}

	if records, err = n.read(ctx, visitsCypher); err != nil {
		return nil, err
	}
	for _, rec := range records {
		v, err := visitFromRecord(rec)
		if err != nil {
			return nil, err
		}
		g.Visits = append(g.Visits, v)
	}

	n.logger.Info("fetched contact graph from neo4j",
		zap.Int("persons", len(g.Persons)),
		zap.Int("places", len(g.Places)),
		zap.Int("visits", len(g.Visits)),
		zap.Duration("duration", time.Since(start)),
	)
	return g, nil
}

// record is the part of neo4j.Record the converters need.
type record interface {
	Get(key string) (any, bool)
}

func (n *Neo4j) read(ctx context.Context, cypher string) ([]*neo4j.Record, error) {
	session := n.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: n.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j query failed: %w", err)
	}
	return result.([]*neo4j.Record), nil
}

func personFromRecord(rec record) (models.Person, error) {
	name, err := stringField(rec, "name")
	if err != nil {
		return models.Person{}, err
	}
	status, err := stringField(rec, "healthstatus")
	if err != nil {
		return models.Person{}, err
	}
	p := models.Person{Name: name, HealthStatus: models.HealthStatus(status)}

	if raw, ok := rec.Get("confirmedtime"); ok && raw != nil {
		t, err := toTime(raw)
		if err != nil {
			return models.Person{}, fmt.Errorf("person %q confirmedtime: %w", name, err)
		}
		p.ConfirmedTime = &t
	}
	return p, nil
}

func placeFromRecord(rec record) (models.Place, error) {
	name, err := stringField(rec, "name")
	if err != nil {
		return models.Place{}, err
	}
	typ, err := stringField(rec, "type")
	if err != nil {
		return models.Place{}, err
	}
	return models.Place{Name: name, Type: typ}, nil
}

func visitFromRecord(rec record) (models.Visit, error) {
	var v models.Visit
	var err error
	if v.Person, err = stringField(rec, "person"); err != nil {
		return v, err
	}
	if v.Place, err = stringField(rec, "place"); err != nil {
		return v, err
	}
	if v.StartTime, err = timeField(rec, "starttime"); err != nil {
		return v, fmt.Errorf("visit %s->%s: %w", v.Person, v.Place, err)
	}
	if v.EndTime, err = timeField(rec, "endtime"); err != nil {
		return v, fmt.Errorf("visit %s->%s: %w", v.Person, v.Place, err)
	}
	return v, nil
}

func stringField(rec record, key string) (string, error) {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return "", apperr.Validation("missing property %s", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", apperr.Validation("property %s is %T, want string", key, raw)
	}
	return s, nil
}

func timeField(rec record, key string) (time.Time, error) {
	raw, ok := rec.Get(key)
	if !ok || raw == nil {
		return time.Time{}, apperr.Validation("missing property %s", key)
	}
	return toTime(raw)
}

// toTime accepts the temporal values the driver returns, plus RFC 3339
// strings. Local date-times carry no zone and are read as UTC.
func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case dbtype.LocalDateTime:
		t := v.Time()
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	case dbtype.Date:
		t := v.Time()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, apperr.Validation("invalid time %q", v).WithCause(err)
		}
		return t, nil
	default:
		return time.Time{}, apperr.Validation("unsupported time value of type %T", raw)
	}
}
