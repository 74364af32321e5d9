package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// templateDB holds a pre-migrated SQLite database file. Tests copy this
// file instead of re-running schema creation on every openTestDB call.
var (
	templateOnce sync.Once
	templatePath string
	templateErr  error
)

func getTemplatePath() (string, error) {
	templateOnce.Do(func() {
		dir, err := os.MkdirTemp("", "harp-test-template-*")
		if err != nil {
			templateErr = err
			return
		}
		p := filepath.Join(dir, "template.db")
		db, err := Open(p)
		if err != nil {
			templateErr = err
			return
		}
		// Fold the WAL into the main file before copying it.
		_, _ = db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`)
		db.Close()
		templatePath = p
	})
	return templatePath, templateErr
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	tmpl, err := getTemplatePath()
	if err != nil {
		t.Fatalf("Failed to create template DB: %v", err)
	}

	data, err := os.ReadFile(tmpl)
	if err != nil {
		t.Fatalf("Failed to read template DB: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "test.db")
	if err := os.WriteFile(dbPath, data, 0644); err != nil {
		t.Fatalf("Failed to write test DB: %v", err)
	}

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var testBase = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func createApplication(t *testing.T, st Store, i int, status ApplicationStatus) *Application {
	t.Helper()
	first := fmt.Sprintf("First%02d", i)
	app := &Application{
		Email:     fmt.Sprintf("applicant%02d@example.edu", i),
		Status:    status,
		FirstName: &first,
		LastName:  strPtr("Tester"),
		CreatedAt: testBase.Add(time.Duration(i) * time.Minute),
	}
	if status != StatusDraft {
		sub := app.CreatedAt.Add(time.Hour)
		app.SubmittedAt = &sub
	}
	if err := st.CreateApplication(context.Background(), app); err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	return app
}

func createReview(t *testing.T, st Store, appID, adminID string, offset time.Duration) *Review {
	t.Helper()
	r, err := st.CreateReview(context.Background(), appID, adminID, testBase.Add(offset))
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	return r
}

func reviewIDs(rs []Review) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
