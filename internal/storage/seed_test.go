package storage

import (
	"context"
	"testing"
)

func TestSeed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	admins := []Admin{{ID: "a1", Email: "a1@harp.dev"}, {ID: "a2", Email: "a2@harp.dev"}}

	res, err := Seed(ctx, db, admins, SeedOptions{Applications: 20, ReviewsPerApp: 2, CompletedPerUser: 2, Seed: 7})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Applications != 20 {
		t.Errorf("applications = %d", res.Applications)
	}
	// 10 submitted applications, each reviewed by both admins.
	if res.Reviews != 20 || res.Votes != 4 {
		t.Errorf("reviews = %d, votes = %d", res.Reviews, res.Votes)
	}

	for _, a := range admins {
		pending, err := db.ListPendingReviews(ctx, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		completed, err := db.ListCompletedReviews(ctx, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 8 || len(completed) != 2 {
			t.Errorf("%s: pending=%d completed=%d", a.ID, len(pending), len(completed))
		}
	}
}
