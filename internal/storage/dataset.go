package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/graph"
	"github.com/wagnerlima/contact-graph/internal/models"
)

// timeLayout has a fixed width so that stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// DatasetStore manages a single dataset's contact database.
type DatasetStore struct {
	db *sql.DB
}

// OpenDataset opens an existing dataset database and configures it.
func OpenDataset(dbPath string) (*DatasetStore, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath)+"&_pragma=cache_size(-64000)")
	if err != nil {
		return nil, fmt.Errorf("open dataset db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping dataset db: %w", err)
	}
	return &DatasetStore{db: db}, nil
}

// Close closes the dataset database connection.
func (d *DatasetStore) Close() error {
	return d.db.Close()
}

// CreatePersons inserts new persons. The batch is rejected as a whole if any
// record is invalid or its name is already taken.
func (d *DatasetStore) CreatePersons(persons []models.Person) ([]models.Person, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.Person, 0, len(persons))
	for _, p := range persons {
		if err := insertPerson(tx, p); err != nil {
			return nil, err
		}
		created = append(created, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// CreatePlaces inserts new places, all or nothing.
func (d *DatasetStore) CreatePlaces(places []models.Place) ([]models.Place, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.Place, 0, len(places))
	for _, pl := range places {
		if err := insertPlace(tx, pl); err != nil {
			return nil, err
		}
		created = append(created, pl)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// CreateVisits inserts visits between existing persons and places, all or
// nothing. Visits without an ID get a generated one.
func (d *DatasetStore) CreateVisits(visits []models.Visit) ([]models.Visit, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created := make([]models.Visit, 0, len(visits))
	for _, v := range visits {
		v, err := insertVisit(tx, v)
		if err != nil {
			return nil, err
		}
		created = append(created, v)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// UpdateHealthStatus sets the status of the named persons. confirmed must be
// set exactly when status is Sick. Unknown names fail the whole update.
func (d *DatasetStore) UpdateHealthStatus(names []string, status models.HealthStatus, confirmed *time.Time) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	probe := models.Person{Name: names[0], HealthStatus: status, ConfirmedTime: confirmed}
	if err := graph.ValidatePerson(probe); err != nil {
		return 0, err
	}

	var confirmedArg any
	if confirmed != nil {
		confirmedArg = formatTime(*confirmed)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, name := range names {
		result, err := tx.Exec(
			`UPDATE persons SET health_status = ?, confirmed_time = ?, updated_at = datetime('now') WHERE name = ?`,
			string(status), confirmedArg, name,
		)
		if err != nil {
			return 0, fmt.Errorf("update person %q: %w", name, err)
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			return 0, apperr.NotFound("person", name)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// DeletePersons removes persons and, through the foreign keys, their visits.
// Unknown names are skipped.
func (d *DatasetStore) DeletePersons(names []string) (int64, error) {
	return d.deleteByName("persons", names)
}

// DeletePlaces removes places and their visits. Unknown names are skipped.
func (d *DatasetStore) DeletePlaces(names []string) (int64, error) {
	return d.deleteByName("places", names)
}

func (d *DatasetStore) deleteByName(table string, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		args[i] = name
	}

	result, err := d.db.Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE name IN (%s)`, table, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Import writes a complete graph in one transaction. The graph is checked as
// a whole first, so visits may only reference records of the same graph.
func (d *DatasetStore) Import(g *models.ContactGraph) (models.GraphStats, error) {
	snap, err := graph.Build(g)
	if err != nil {
		return models.GraphStats{}, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return models.GraphStats{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	full := snap.Graph()
	for _, p := range full.Persons {
		if err := insertPerson(tx, p); err != nil {
			return models.GraphStats{}, err
		}
	}
	for _, pl := range full.Places {
		if err := insertPlace(tx, pl); err != nil {
			return models.GraphStats{}, err
		}
	}
	for _, v := range full.Visits {
		if _, err := insertVisit(tx, v); err != nil {
			return models.GraphStats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.GraphStats{}, fmt.Errorf("commit: %w", err)
	}
	return snap.Stats(), nil
}

// ReadGraph returns every record of the dataset.
func (d *DatasetStore) ReadGraph() (*models.ContactGraph, error) {
	g := &models.ContactGraph{
		Persons: []models.Person{},
		Places:  []models.Place{},
		Visits:  []models.Visit{},
	}

	rows, err := d.db.Query(`SELECT name, health_status, confirmed_time FROM persons ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		g.Persons = append(g.Persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	placeRows, err := d.db.Query(`SELECT name, place_type FROM places ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer placeRows.Close()
	for placeRows.Next() {
		var pl models.Place
		if err := placeRows.Scan(&pl.Name, &pl.Type); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		g.Places = append(g.Places, pl)
	}
	if err := placeRows.Err(); err != nil {
		return nil, err
	}

	visitRows, err := d.db.Query(
		`SELECT v.id, p.name, pl.name, v.start_time, v.end_time
		 FROM visits v
		 JOIN persons p ON p.id = v.person_id
		 JOIN places pl ON pl.id = v.place_id
		 ORDER BY v.start_time, v.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer visitRows.Close()
	for visitRows.Next() {
		var (
			v          models.Visit
			start, end string
		)
		if err := visitRows.Scan(&v.ID, &v.Person, &v.Place, &start, &end); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		if v.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if v.EndTime, err = parseTime(end); err != nil {
			return nil, err
		}
		g.Visits = append(g.Visits, v)
	}
	return g, visitRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (models.Person, error) {
	var (
		p         models.Person
		status    string
		confirmed sql.NullString
	)
	if err := row.Scan(&p.Name, &status, &confirmed); err != nil {
		return models.Person{}, fmt.Errorf("scan person: %w", err)
	}
	p.HealthStatus = models.HealthStatus(status)
	if confirmed.Valid {
		t, err := parseTime(confirmed.String)
		if err != nil {
			return models.Person{}, err
		}
		p.ConfirmedTime = &t
	}
	return p, nil
}

func insertPerson(tx *sql.Tx, p models.Person) error {
	if err := graph.ValidatePerson(p); err != nil {
		return err
	}
	if exists(tx, `SELECT 1 FROM persons WHERE name = ?`, p.Name) {
		return apperr.Conflict("person %q already exists", p.Name)
	}

	var confirmed any
	if p.ConfirmedTime != nil {
		confirmed = formatTime(*p.ConfirmedTime)
	}
	_, err := tx.Exec(
		`INSERT INTO persons (id, name, health_status, confirmed_time) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), p.Name, string(p.HealthStatus), confirmed,
	)
	if err != nil {
		return fmt.Errorf("insert person %q: %w", p.Name, err)
	}
	return nil
}

func insertPlace(tx *sql.Tx, pl models.Place) error {
	if err := graph.ValidatePlace(pl); err != nil {
		return err
	}
	if exists(tx, `SELECT 1 FROM places WHERE name = ?`, pl.Name) {
		return apperr.Conflict("place %q already exists", pl.Name)
	}

	_, err := tx.Exec(
		`INSERT INTO places (id, name, place_type) VALUES (?, ?, ?)`,
		uuid.New().String(), pl.Name, pl.Type,
	)
	if err != nil {
		return fmt.Errorf("insert place %q: %w", pl.Name, err)
	}
	return nil
}

func insertVisit(tx *sql.Tx, v models.Visit) (models.Visit, error) {
	if err := graph.ValidateVisit(v); err != nil {
		return v, err
	}

	var personID, placeID string
	err := tx.QueryRow(`SELECT id FROM persons WHERE name = ?`, v.Person).Scan(&personID)
	if errors.Is(err, sql.ErrNoRows) {
		return v, apperr.NotFound("person", v.Person)
	}
	if err != nil {
		return v, fmt.Errorf("lookup person %q: %w", v.Person, err)
	}
	err = tx.QueryRow(`SELECT id FROM places WHERE name = ?`, v.Place).Scan(&placeID)
	if errors.Is(err, sql.ErrNoRows) {
		return v, apperr.NotFound("place", v.Place)
	}
	if err != nil {
		return v, fmt.Errorf("lookup place %q: %w", v.Place, err)
	}

	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	_, err = tx.Exec(
		`INSERT INTO visits (id, person_id, place_id, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
		v.ID, personID, placeID, formatTime(v.StartTime), formatTime(v.EndTime),
	)
	if err != nil {
		return v, fmt.Errorf("insert visit %s->%s: %w", v.Person, v.Place, err)
	}
	return v, nil
}

func exists(tx *sql.Tx, query string, args ...any) bool {
	var one int
	return tx.QueryRow(query, args...).Scan(&one) == nil
}
