package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS admins (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
  id TEXT PRIMARY KEY,
  user_id TEXT UNIQUE NOT NULL,
  email TEXT NOT NULL,
  status TEXT NOT NULL CHECK(status IN ('draft','submitted','accepted','rejected','waitlisted')) DEFAULT 'draft',
  first_name TEXT,
  last_name TEXT,
  phone_e164 TEXT,
  age INTEGER,
  country_of_residence TEXT,
  gender TEXT,
  university TEXT,
  major TEXT,
  level_of_study TEXT,
  short_answer_responses TEXT NOT NULL DEFAULT '{}',
  hackathons_attended_count INTEGER,
  software_experience_level TEXT,
  heard_about TEXT,
  shirt_size TEXT,
  dietary_restrictions TEXT NOT NULL DEFAULT '[]',
  github TEXT,
  linkedin TEXT,
  website TEXT,
  submitted_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS application_reviews (
  id TEXT PRIMARY KEY,
  application_id TEXT NOT NULL REFERENCES applications(id),
  admin_id TEXT NOT NULL,
  vote TEXT CHECK(vote IN ('accept','waitlist','reject')),
  notes TEXT,
  assigned_at TEXT NOT NULL,
  reviewed_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  UNIQUE(application_id, admin_id)
);

CREATE INDEX IF NOT EXISTS idx_applications_created ON applications(created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status);
CREATE INDEX IF NOT EXISTS idx_reviews_admin_vote ON application_reviews(admin_id, vote);
CREATE INDEX IF NOT EXISTS idx_reviews_application ON application_reviews(application_id);
`

// sqliteTimeLayout is fixed-width UTC so that TEXT comparison orders the
// same way as time comparison; keyset pagination relies on this.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// DB is the SQLite-backed Store.
type DB struct {
	*sql.DB
}

// Open opens or creates the database at dbPath and initializes the schema.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	wrapped := &DB{db}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	if err := wrapped.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return wrapped, nil
}

// migrate adds columns introduced after the first release.
func (db *DB) migrate() error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('applications') WHERE name = 'website'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check website column: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE applications ADD COLUMN website TEXT`); err != nil {
			return fmt.Errorf("add website column: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	// datetime('now') format
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseSQLiteTime(ns.String)
	return &t
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullIntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}
