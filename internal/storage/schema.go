package storage

// CatalogSchema is the SQL schema for the central _meta.db database.
const CatalogSchema = `
CREATE TABLE IF NOT EXISTS datasets (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT DEFAULT '',
    db_path     TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(name);
`

// DatasetSchema is the SQL schema for each per-dataset contact database.
// Times are RFC 3339 strings in UTC, so text order is time order.
const DatasetSchema = `
CREATE TABLE IF NOT EXISTS persons (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    health_status  TEXT NOT NULL
                   CHECK(health_status IN ('Healthy', 'Sick', 'HighRisk')),
    confirmed_time TEXT NULL,
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now')),
    CHECK((health_status = 'Sick') = (confirmed_time IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS places (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    place_type  TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS visits (
    id          TEXT PRIMARY KEY,
    person_id   TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
    place_id    TEXT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
    start_time  TEXT NOT NULL,
    end_time    TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    CHECK(start_time <= end_time)
);

CREATE VIRTUAL TABLE IF NOT EXISTS persons_fts USING fts5(
    name,
    content='persons',
    content_rowid='rowid'
);

CREATE VIRTUAL TABLE IF NOT EXISTS places_fts USING fts5(
    name,
    place_type,
    content='places',
    content_rowid='rowid'
);

CREATE INDEX IF NOT EXISTS idx_persons_status ON persons(health_status);
CREATE INDEX IF NOT EXISTS idx_places_type ON places(place_type);
CREATE INDEX IF NOT EXISTS idx_visits_person ON visits(person_id);
CREATE INDEX IF NOT EXISTS idx_visits_place ON visits(place_id);
CREATE INDEX IF NOT EXISTS idx_visits_start ON visits(start_time);
`

// DatasetTriggers keep the FTS tables in sync with their content tables.
const DatasetTriggers = `
CREATE TRIGGER IF NOT EXISTS persons_ai AFTER INSERT ON persons BEGIN
    INSERT INTO persons_fts(rowid, name) VALUES (new.rowid, new.name);
END;
CREATE TRIGGER IF NOT EXISTS persons_ad AFTER DELETE ON persons BEGIN
    INSERT INTO persons_fts(persons_fts, rowid, name) VALUES('delete', old.rowid, old.name);
END;

CREATE TRIGGER IF NOT EXISTS places_ai AFTER INSERT ON places BEGIN
    INSERT INTO places_fts(rowid, name, place_type) VALUES (new.rowid, new.name, new.place_type);
END;
CREATE TRIGGER IF NOT EXISTS places_ad AFTER DELETE ON places BEGIN
    INSERT INTO places_fts(places_fts, rowid, name, place_type) VALUES('delete', old.rowid, old.name, old.place_type);
END;
`

// dsnPragmas configures every connection: WAL, a busy timeout and enforced
// foreign keys.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"

func dsn(dbPath string) string {
	return "file:" + dbPath + dsnPragmas
}
