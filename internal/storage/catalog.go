package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/models"
)

// Catalog manages the central _meta.db database that tracks all datasets.
type Catalog struct {
	db      *sql.DB
	dataDir string
}

// OpenCatalog opens (or creates) the _meta.db database and runs migrations.
func OpenCatalog(dataDir string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, "datasets"), 0o755); err != nil {
		return nil, fmt.Errorf("create datasets dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(filepath.Join(dataDir, "_meta.db")))
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	if _, err := db.Exec(CatalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}

	return &Catalog{db: db, dataDir: dataDir}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DataDir returns the base data directory.
func (c *Catalog) DataDir() string {
	return c.dataDir
}

// CreateDataset registers a new dataset and creates its database file.
func (c *Catalog) CreateDataset(name, description string) (*models.Dataset, error) {
	if name == "" {
		return nil, apperr.Validation("dataset name is required")
	}
	if _, err := c.GetDataset(name); err == nil {
		return nil, apperr.Conflict("dataset %q already exists", name)
	}

	id := uuid.New().String()
	dbPath := filepath.Join("datasets", id+".db")

	_, err := c.db.Exec(
		`INSERT INTO datasets (id, name, description, db_path) VALUES (?, ?, ?, ?)`,
		id, name, description, dbPath,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dataset: %w", err)
	}

	if err := initDatasetDB(filepath.Join(c.dataDir, dbPath)); err != nil {
		c.db.Exec(`DELETE FROM datasets WHERE id = ?`, id)
		return nil, fmt.Errorf("init dataset db: %w", err)
	}

	return c.GetDataset(name)
}

// GetDataset looks up a dataset by its unique name.
func (c *Catalog) GetDataset(name string) (*models.Dataset, error) {
	row := c.db.QueryRow(
		`SELECT id, name, description, db_path, created_at, updated_at FROM datasets WHERE name = ?`,
		name,
	)
	return scanDataset(row, name)
}

// GetDatasetByID looks up a dataset by its UUID.
func (c *Catalog) GetDatasetByID(id string) (*models.Dataset, error) {
	row := c.db.QueryRow(
		`SELECT id, name, description, db_path, created_at, updated_at FROM datasets WHERE id = ?`,
		id,
	)
	return scanDataset(row, id)
}

// ListDatasets returns every dataset ordered by name.
func (c *Catalog) ListDatasets() ([]models.Dataset, error) {
	rows, err := c.db.Query(
		`SELECT id, name, description, db_path, created_at, updated_at FROM datasets ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	datasets := []models.Dataset{}
	for rows.Next() {
		var d models.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.DBPath, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// Touch bumps updated_at after a write to the dataset's records.
func (c *Catalog) Touch(name string) error {
	result, err := c.db.Exec(`UPDATE datasets SET updated_at = datetime('now') WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("touch dataset: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.NotFound("dataset", name)
	}
	return nil
}

// DeleteDataset permanently removes a dataset record and its database file.
func (c *Catalog) DeleteDataset(name string) error {
	ds, err := c.GetDataset(name)
	if err != nil {
		return err
	}

	absDBPath := c.DatasetDBPath(ds)
	// Missing files are fine; the WAL and SHM files may not exist.
	os.Remove(absDBPath)
	os.Remove(absDBPath + "-wal")
	os.Remove(absDBPath + "-shm")

	if _, err := c.db.Exec(`DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete dataset record: %w", err)
	}
	return nil
}

// DatasetDBPath returns the absolute path to a dataset's database file.
func (c *Catalog) DatasetDBPath(ds *models.Dataset) string {
	return filepath.Join(c.dataDir, ds.DBPath)
}

func scanDataset(row *sql.Row, key string) (*models.Dataset, error) {
	var d models.Dataset
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.DBPath, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("dataset", key)
	}
	if err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	return &d, nil
}

// initDatasetDB creates a new dataset database with the full schema.
func initDatasetDB(dbPath string) error {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(DatasetSchema); err != nil {
		return fmt.Errorf("create dataset schema: %w", err)
	}
	if _, err := db.Exec(DatasetTriggers); err != nil {
		return fmt.Errorf("create dataset triggers: %w", err)
	}
	return nil
}
