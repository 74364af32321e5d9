package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hackutd/harp-sub000/internal/pagination"
)

func itemIDs(p pagination.Page[ApplicationListItem]) []string {
	out := make([]string, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.ID
	}
	return out
}

func TestGetApplication(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	age := 20
	app := &Application{
		Email:                "ada@example.edu",
		Status:               StatusSubmitted,
		FirstName:            strPtr("Ada"),
		Age:                  &age,
		ShortAnswerResponses: json.RawMessage(`{"Why?":"Because."}`),
		DietaryRestrictions:  []string{"vegan", "nuts"},
		Github:               strPtr("https://github.com/ada"),
	}
	if err := db.CreateApplication(ctx, app); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if got.FullName() != "Ada" || got.Age == nil || *got.Age != 20 {
		t.Errorf("unexpected application: %+v", got)
	}
	if diff := cmp.Diff([]string{"vegan", "nuts"}, got.DietaryRestrictions); diff != "" {
		t.Errorf("dietary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ShortAnswer{{Question: "Why?", Answer: "Because."}}, got.ShortAnswers()); diff != "" {
		t.Errorf("short answers mismatch (-want +got):\n%s", diff)
	}
	if !got.CreatedAt.Equal(app.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, app.CreatedAt)
	}

	if _, err := db.GetApplication(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateApplicationDuplicateUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.CreateApplication(ctx, &Application{UserID: "u1", Email: "a@b.c"}); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateApplication(ctx, &Application{UserID: "u1", Email: "a@b.c"}); !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestListApplicationsCursorRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	for i := 0; i < 11; i++ {
		createApplication(t, db, i, StatusSubmitted)
	}

	var pages []pagination.Page[ApplicationListItem]
	page, err := db.ListApplications(ctx, pagination.Request{Limit: 4})
	if err != nil {
		t.Fatal(err)
	}
	pages = append(pages, page)
	for page.NextCursor != nil {
		page, err = db.ListApplications(ctx, pagination.Request{Cursor: *page.NextCursor, Direction: pagination.Forward, Limit: 4})
		if err != nil {
			t.Fatal(err)
		}
		pages = append(pages, page)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[0].PrevCursor != nil {
		t.Error("first page must not have a prev cursor")
	}
	if first := pages[0].Items[0]; first.FirstName == nil || *first.FirstName != "First10" {
		t.Errorf("newest application must come first, got %+v", first)
	}

	for n := 1; n < len(pages); n++ {
		back, err := db.ListApplications(ctx, pagination.Request{Cursor: *pages[n].PrevCursor, Direction: pagination.Backward, Limit: 4})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(itemIDs(pages[n-1]), itemIDs(back)); diff != "" {
			t.Errorf("page %d via prev cursor mismatch (-want +got):\n%s", n-1, diff)
		}
	}
}

func TestListApplicationsStatusFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	statuses := []ApplicationStatus{StatusSubmitted, StatusAccepted, StatusDraft}
	for i := 0; i < 9; i++ {
		createApplication(t, db, i, statuses[i%3])
	}

	page, err := db.ListApplications(ctx, pagination.Request{Status: string(StatusAccepted)})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 3 || page.HasMore {
		t.Fatalf("expected 3 accepted applications, got %d (has_more=%v)", len(page.Items), page.HasMore)
	}
	for _, it := range page.Items {
		if it.Status != StatusAccepted {
			t.Errorf("item %s has status %s", it.ID, it.Status)
		}
	}

	if _, err := db.ListApplications(ctx, pagination.Request{Status: "bogus"}); err == nil {
		t.Error("expected error for invalid status")
	}
	if _, err := db.ListApplications(ctx, pagination.Request{Cursor: "garbage"}); !errors.Is(err, pagination.ErrInvalidCursor) {
		t.Errorf("err = %v, want ErrInvalidCursor", err)
	}
}

func TestApplicationStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	empty, err := db.ApplicationStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&ApplicationStats{}, empty); diff != "" {
		t.Errorf("empty stats mismatch (-want +got):\n%s", diff)
	}

	statuses := []ApplicationStatus{
		StatusSubmitted, StatusSubmitted, StatusSubmitted,
		StatusAccepted, StatusRejected, StatusWaitlisted,
		StatusDraft, StatusDraft,
	}
	for i, st := range statuses {
		createApplication(t, db, i, st)
	}

	got, err := db.ApplicationStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := &ApplicationStats{
		TotalApplications: 8,
		Draft:             2,
		Submitted:         3,
		Accepted:          1,
		Rejected:          1,
		Waitlisted:        1,
		AcceptanceRate:    12.5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if got.Count(StatusSubmitted) != 3 {
		t.Errorf("Count(submitted) = %d, want 3", got.Count(StatusSubmitted))
	}
}
