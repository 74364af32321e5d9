package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// SeedOptions controls demo data generation.
type SeedOptions struct {
	Applications     int
	ReviewsPerApp    int
	CompletedPerUser int
	Seed             int64
	Now              time.Time
}

// SeedResult summarizes what Seed created.
type SeedResult struct {
	Applications int
	Reviews      int
	Votes        int
}

var (
	seedFirstNames = []string{"Ada", "Grace", "Alan", "Linus", "Margaret", "Dennis", "Barbara", "Ken", "Radia", "Guido", "Frances", "Bjarne"}
	seedLastNames  = []string{"Lovelace", "Hopper", "Turing", "Torvalds", "Hamilton", "Ritchie", "Liskov", "Thompson", "Perlman", "van Rossum", "Allen", "Stroustrup"}
	seedSchools    = []string{"UT Dallas", "UT Austin", "Texas A&M", "Rice University", "SMU", "UT Arlington"}
	seedMajors     = []string{"Computer Science", "Software Engineering", "Mathematics", "Electrical Engineering", "Data Science"}
	seedCountries  = []string{"United States", "Canada", "Mexico", "India"}
	seedQuestions  = []string{"Why do you want to attend?", "Tell us about a project you are proud of."}
	seedAnswers    = []string{
		"I want to build something *ambitious* with people I have never met.",
		"I wrote a **compiler** for a toy language and learned how parsers really work.",
		"Last year I shipped a campus bus tracker used by 2,000 students.",
		"I love the energy of hackathons and want to mentor first-timers.",
	}
	seedNotes = []string{"Strong project history.", "Great short answers.", "Limited experience but very motivated.", ""}
)

// Seed fills an empty store with deterministic demo data: applications in
// every status and, for each admin, a mix of pending and decided reviews.
func Seed(ctx context.Context, st Store, admins []Admin, opts SeedOptions) (SeedResult, error) {
	if opts.Applications <= 0 {
		opts.Applications = 40
	}
	if opts.ReviewsPerApp <= 0 {
		opts.ReviewsPerApp = 2
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	var res SeedResult

	for _, a := range admins {
		if err := st.UpsertAdmin(ctx, a); err != nil {
			return res, fmt.Errorf("seed admin %s: %w", a.ID, err)
		}
	}

	var submitted []*Application
	for i := 0; i < opts.Applications; i++ {
		app := seedApplication(rng, i, opts.Now)
		if err := st.CreateApplication(ctx, app); err != nil {
			return res, fmt.Errorf("seed application %d: %w", i, err)
		}
		res.Applications++
		if app.Status == StatusSubmitted {
			submitted = append(submitted, app)
		}
	}
	if len(admins) == 0 {
		return res, nil
	}

	// Round-robin assignment, up to ReviewsPerApp distinct admins per app.
	perApp := min(opts.ReviewsPerApp, len(admins))
	next := 0
	assigned := make(map[string][]*Review)
	for i, app := range submitted {
		for k := 0; k < perApp; k++ {
			admin := admins[(next+k)%len(admins)]
			at := opts.Now.Add(-time.Duration(len(submitted)-i) * time.Hour)
			r, err := st.CreateReview(ctx, app.ID, admin.ID, at)
			if err != nil {
				return res, fmt.Errorf("seed review: %w", err)
			}
			res.Reviews++
			assigned[admin.ID] = append(assigned[admin.ID], r)
		}
		next++
	}

	votes := []Vote{VoteAccept, VoteWaitlist, VoteReject}
	for _, admin := range admins {
		reviews := assigned[admin.ID]
		for i := 0; i < opts.CompletedPerUser && i < len(reviews); i++ {
			note := seedNotes[rng.Intn(len(seedNotes))]
			payload := VotePayload{Vote: votes[rng.Intn(len(votes))], Notes: &note}
			if _, err := st.SubmitVote(ctx, reviews[i].ID, admin.ID, payload); err != nil {
				return res, fmt.Errorf("seed vote: %w", err)
			}
			res.Votes++
		}
	}
	return res, nil
}

func seedApplication(rng *rand.Rand, i int, now time.Time) *Application {
	first := seedFirstNames[i%len(seedFirstNames)]
	last := seedLastNames[(i/len(seedFirstNames)+i)%len(seedLastNames)]
	school := seedSchools[rng.Intn(len(seedSchools))]
	major := seedMajors[rng.Intn(len(seedMajors))]
	country := seedCountries[rng.Intn(len(seedCountries))]
	age := 18 + rng.Intn(8)
	hackathons := rng.Intn(6)
	github := fmt.Sprintf("https://github.com/%s%s", strings.ToLower(first), strings.ToLower(strings.ReplaceAll(last, " ", "")))

	answers := make([]ShortAnswer, len(seedQuestions))
	for q := range seedQuestions {
		answers[q] = ShortAnswer{Question: seedQuestions[q], Answer: seedAnswers[rng.Intn(len(seedAnswers))]}
	}
	raw, _ := json.Marshal(answers)

	// Half submitted; the rest spread over the other statuses.
	status := StatusSubmitted
	if i%2 == 1 {
		others := []ApplicationStatus{StatusDraft, StatusAccepted, StatusRejected, StatusWaitlisted}
		status = others[(i/2)%len(others)]
	}
	created := now.Add(-time.Duration(i+1) * 3 * time.Hour)
	var submittedAt *time.Time
	if status != StatusDraft {
		t := created.Add(time.Hour)
		submittedAt = &t
	}

	return &Application{
		Email:                   fmt.Sprintf("%s.%s.%d@example.edu", strings.ToLower(first), strings.ToLower(strings.ReplaceAll(last, " ", "")), i),
		Status:                  status,
		FirstName:               &first,
		LastName:                &last,
		Age:                     &age,
		CountryOfResidence:      &country,
		University:              &school,
		Major:                   &major,
		HackathonsAttendedCount: &hackathons,
		ShortAnswerResponses:    raw,
		DietaryRestrictions:     []string{},
		Github:                  &github,
		SubmittedAt:             submittedAt,
		CreatedAt:               created,
	}
}
