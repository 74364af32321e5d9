package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hackutd/harp-sub000/internal/pagination"
)

// Vote is a reviewer's decision on an application.
type Vote string

const (
	VoteAccept   Vote = "accept"
	VoteWaitlist Vote = "waitlist"
	VoteReject   Vote = "reject"
)

// Valid reports whether v is one of the three decisions.
func (v Vote) Valid() bool {
	switch v {
	case VoteAccept, VoteWaitlist, VoteReject:
		return true
	}
	return false
}

// ParseVote validates s as a Vote.
func ParseVote(s string) (Vote, error) {
	v := Vote(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid vote %q (want accept, waitlist or reject)", s)
	}
	return v, nil
}

type ApplicationStatus string

const (
	StatusDraft      ApplicationStatus = "draft"
	StatusSubmitted  ApplicationStatus = "submitted"
	StatusAccepted   ApplicationStatus = "accepted"
	StatusRejected   ApplicationStatus = "rejected"
	StatusWaitlisted ApplicationStatus = "waitlisted"
)

// ApplicationStatuses lists every status in display order.
var ApplicationStatuses = []ApplicationStatus{
	StatusDraft, StatusSubmitted, StatusAccepted, StatusRejected, StatusWaitlisted,
}

func (s ApplicationStatus) Valid() bool {
	for _, st := range ApplicationStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// MaxNotesLength bounds reviewer notes, in characters.
const MaxNotesLength = 1000

// Review is one reviewer's assignment to one application. The applicant
// fields are a read-only snapshot joined in for list display.
type Review struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	AdminID       string     `json:"admin_id"`
	Vote          *Vote      `json:"vote"`
	Notes         *string    `json:"notes"`
	AssignedAt    time.Time  `json:"assigned_at"`
	ReviewedAt    *time.Time `json:"reviewed_at"`

	FirstName               *string `json:"first_name"`
	LastName                *string `json:"last_name"`
	Email                   string  `json:"email"`
	Age                     *int    `json:"age"`
	University              *string `json:"university"`
	Major                   *string `json:"major"`
	CountryOfResidence      *string `json:"country_of_residence"`
	HackathonsAttendedCount *int    `json:"hackathons_attended_count"`
}

// Decided reports whether a vote has been recorded. A decided review is
// never edited again.
func (r Review) Decided() bool {
	return r.Vote != nil
}

// ApplicantName returns "First Last", falling back to the email.
func (r Review) ApplicantName() string {
	return displayName(r.FirstName, r.LastName, r.Email)
}

func displayName(first, last *string, email string) string {
	var parts []string
	if first != nil && *first != "" {
		parts = append(parts, *first)
	}
	if last != nil && *last != "" {
		parts = append(parts, *last)
	}
	if len(parts) == 0 {
		return email
	}
	return strings.Join(parts, " ")
}

// VotePayload is the body of a vote submission.
type VotePayload struct {
	Vote  Vote    `json:"vote"`
	Notes *string `json:"notes,omitempty"`
}

// Validate checks the vote value and the notes length.
func (p VotePayload) Validate() error {
	if !p.Vote.Valid() {
		return fmt.Errorf("vote must be one of accept, waitlist, reject")
	}
	if p.Notes != nil && utf8.RuneCountInString(*p.Notes) > MaxNotesLength {
		return fmt.Errorf("notes must be at most %d characters", MaxNotesLength)
	}
	return nil
}

// ReviewNote is another reviewer's note on an application.
type ReviewNote struct {
	AdminID    string    `json:"admin_id"`
	AdminEmail string    `json:"admin_email"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Admin is a reviewer account.
type Admin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Application is the full applicant record, read-only in this system.
type Application struct {
	ID     string            `json:"id"`
	UserID string            `json:"user_id"`
	Email  string            `json:"email"`
	Status ApplicationStatus `json:"status"`

	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	PhoneE164 *string `json:"phone_e164"`
	Age       *int    `json:"age"`

	CountryOfResidence *string `json:"country_of_residence"`
	Gender             *string `json:"gender"`

	University   *string `json:"university"`
	Major        *string `json:"major"`
	LevelOfStudy *string `json:"level_of_study"`

	ShortAnswerResponses json.RawMessage `json:"short_answer_responses"`

	HackathonsAttendedCount *int    `json:"hackathons_attended_count"`
	SoftwareExperienceLevel *string `json:"software_experience_level"`
	HeardAbout              *string `json:"heard_about"`

	ShirtSize           *string  `json:"shirt_size"`
	DietaryRestrictions []string `json:"dietary_restrictions"`

	Github   *string `json:"github"`
	LinkedIn *string `json:"linkedin"`
	Website  *string `json:"website"`

	SubmittedAt *time.Time `json:"submitted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FullName returns "First Last", falling back to the email.
func (a Application) FullName() string {
	return displayName(a.FirstName, a.LastName, a.Email)
}

// ShortAnswer is one question/answer pair from the application form.
type ShortAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ShortAnswers decodes ShortAnswerResponses. Both a list of
// {question, answer} objects and a flat question→answer object are
// accepted; the latter is returned sorted by question.
func (a Application) ShortAnswers() []ShortAnswer {
	if len(a.ShortAnswerResponses) == 0 {
		return nil
	}
	var list []ShortAnswer
	if err := json.Unmarshal(a.ShortAnswerResponses, &list); err == nil {
		return list
	}
	var m map[string]string
	if err := json.Unmarshal(a.ShortAnswerResponses, &m); err != nil {
		return nil
	}
	out := make([]ShortAnswer, 0, len(m))
	for q, ans := range m {
		out = append(out, ShortAnswer{Question: q, Answer: ans})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Question < out[j].Question })
	return out
}

// ApplicationListItem is the lightweight row of the applications list.
type ApplicationListItem struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Email       string            `json:"email"`
	Status      ApplicationStatus `json:"status"`
	FirstName   *string           `json:"first_name"`
	LastName    *string           `json:"last_name"`
	University  *string           `json:"university"`
	SubmittedAt *time.Time        `json:"submitted_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Name returns "First Last", falling back to the email.
func (a ApplicationListItem) Name() string {
	return displayName(a.FirstName, a.LastName, a.Email)
}

// ApplicationStats counts applications per status.
type ApplicationStats struct {
	TotalApplications int `json:"total_applications"`
	Draft             int `json:"draft"`
	Submitted         int `json:"submitted"`
	Accepted          int `json:"accepted"`
	Rejected          int `json:"rejected"`
	Waitlisted        int `json:"waitlisted"`
	// AcceptanceRate is accepted as a percentage of all applications.
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// Count returns the number of applications with status st.
func (s ApplicationStats) Count(st ApplicationStatus) int {
	switch st {
	case StatusDraft:
		return s.Draft
	case StatusSubmitted:
		return s.Submitted
	case StatusAccepted:
		return s.Accepted
	case StatusRejected:
		return s.Rejected
	case StatusWaitlisted:
		return s.Waitlisted
	}
	return 0
}

// add records n applications with status st. Unknown statuses still count
// towards the total.
func (s *ApplicationStats) add(st ApplicationStatus, n int) {
	s.TotalApplications += n
	switch st {
	case StatusDraft:
		s.Draft += n
	case StatusSubmitted:
		s.Submitted += n
	case StatusAccepted:
		s.Accepted += n
	case StatusRejected:
		s.Rejected += n
	case StatusWaitlisted:
		s.Waitlisted += n
	}
	if s.TotalApplications > 0 {
		s.AcceptanceRate = float64(s.Accepted) * 100 / float64(s.TotalApplications)
	}
}

// ApplicationListResult is the wire shape of one page of applications.
type ApplicationListResult struct {
	Applications []ApplicationListItem `json:"applications"`
	NextCursor   *string               `json:"next_cursor"`
	PrevCursor   *string               `json:"prev_cursor"`
	HasMore      bool                  `json:"has_more"`
}

// NewApplicationListResult converts a page to its wire shape.
func NewApplicationListResult(p pagination.Page[ApplicationListItem]) ApplicationListResult {
	items := p.Items
	if items == nil {
		items = []ApplicationListItem{}
	}
	return ApplicationListResult{
		Applications: items,
		NextCursor:   p.NextCursor,
		PrevCursor:   p.PrevCursor,
		HasMore:      p.HasMore,
	}
}

// Page converts the wire shape back to a page.
func (r ApplicationListResult) Page() pagination.Page[ApplicationListItem] {
	items := r.Applications
	if items == nil {
		items = []ApplicationListItem{}
	}
	return pagination.Page[ApplicationListItem]{
		Items:      items,
		NextCursor: r.NextCursor,
		PrevCursor: r.PrevCursor,
		HasMore:    r.HasMore,
	}
}
