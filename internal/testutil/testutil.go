// Package testutil provides shared test utilities for harp tests.
package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/hackutd/harp-sub000/internal/storage"
)

// OpenTestDB creates a test database in a temporary directory.
// The database is automatically closed when the test completes.
func OpenTestDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// AssertStatusCode checks that the response has the expected HTTP status code.
// On failure, it reports the response body for debugging.
func AssertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()

	if w.Code != expected {
		t.Errorf("Expected status %d, got %d: %s", expected, w.Code, w.Body.String())
	}
}

// CreateTestApplications creates count submitted applications with
// increasing created_at, so the newest is index count-1.
func CreateTestApplications(t *testing.T, st storage.Store, count int) []*storage.Application {
	t.Helper()

	base := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)
	apps := make([]*storage.Application, 0, count)
	for i := 0; i < count; i++ {
		first := fmt.Sprintf("Applicant%02d", i)
		submitted := base.Add(time.Duration(i)*time.Minute + time.Hour)
		app := &storage.Application{
			Email:       fmt.Sprintf("applicant%02d@example.edu", i),
			Status:      storage.StatusSubmitted,
			FirstName:   &first,
			SubmittedAt: &submitted,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.CreateApplication(context.Background(), app); err != nil {
			t.Fatalf("CreateApplication failed: %v", err)
		}
		apps = append(apps, app)
	}
	return apps
}

// AssignTestReviews assigns each application to adminID, in order, one
// minute apart. The returned reviews are in pending-queue order.
func AssignTestReviews(t *testing.T, st storage.Store, adminID string, apps []*storage.Application) []*storage.Review {
	t.Helper()

	base := time.Date(2025, 9, 2, 9, 0, 0, 0, time.UTC)
	reviews := make([]*storage.Review, 0, len(apps))
	for i, app := range apps {
		r, err := st.CreateReview(context.Background(), app.ID, adminID, base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("CreateReview failed: %v", err)
		}
		reviews = append(reviews, r)
	}
	return reviews
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
