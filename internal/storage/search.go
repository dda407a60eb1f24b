package storage

import (
	"fmt"

	"github.com/wagnerlima/contact-graph/internal/models"
)

// Search performs an FTS5 full-text search over person names and over place
// names and types.
func (d *DatasetStore) Search(query string) (*models.SearchResult, error) {
	res := &models.SearchResult{Persons: []models.Person{}, Places: []models.Place{}}

	rows, err := d.db.Query(
		`SELECT p.name, p.health_status, p.confirmed_time FROM persons p
		 JOIN persons_fts ON persons_fts.rowid = p.rowid
		 WHERE persons_fts MATCH ?
		 ORDER BY p.name`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("search persons fts: %w", err)
	}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		res.Persons = append(res.Persons, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	placeRows, err := d.db.Query(
		`SELECT pl.name, pl.place_type FROM places pl
		 JOIN places_fts ON places_fts.rowid = pl.rowid
		 WHERE places_fts MATCH ?
		 ORDER BY pl.name`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("search places fts: %w", err)
	}
	defer placeRows.Close()
	for placeRows.Next() {
		var pl models.Place
		if err := placeRows.Scan(&pl.Name, &pl.Type); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		res.Places = append(res.Places, pl)
	}
	return res, placeRows.Err()
}
