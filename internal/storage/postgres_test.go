package storage

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultPgPoolConfig(t *testing.T) {
	cfg := DefaultPgPoolConfig()

	if cfg.ConnectTimeout != 5*time.Second {
		t.Errorf("Expected ConnectTimeout 5s, got %v", cfg.ConnectTimeout)
	}
	if cfg.MaxConns != 4 {
		t.Errorf("Expected MaxConns 4, got %d", cfg.MaxConns)
	}
	if cfg.MaxConnLifetime != time.Hour {
		t.Errorf("Expected MaxConnLifetime 1h, got %v", cfg.MaxConnLifetime)
	}
}

func TestPgSchemaStatements(t *testing.T) {
	stmts := pgSchemaStatements()
	all := strings.Join(stmts, "\n")
	for _, required := range []string{
		"CREATE SCHEMA IF NOT EXISTS harp",
		"CREATE TABLE IF NOT EXISTS harp.schema_version",
		"CREATE TABLE IF NOT EXISTS harp.admins",
		"CREATE TABLE IF NOT EXISTS harp.applications",
		"CREATE TABLE IF NOT EXISTS harp.application_reviews",
		"CREATE INDEX IF NOT EXISTS idx_applications_created",
	} {
		if !strings.Contains(all, required) {
			t.Errorf("Schema missing: %s", required)
		}
	}
	for _, s := range stmts {
		if strings.HasPrefix(s, "--") || strings.Contains(s, ";") {
			t.Errorf("statement not split cleanly: %q", s)
		}
	}
}
