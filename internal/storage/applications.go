package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hackutd/harp-sub000/internal/pagination"
)

// GetApplication returns the full applicant record.
func (db *DB) GetApplication(ctx context.Context, id string) (*Application, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var (
		app                                         Application
		first, last, phone, country, gender         sql.NullString
		uni, major, level, exp, heard, shirt        sql.NullString
		github, linkedin, website, submitted        sql.NullString
		age, hackathons                             sql.NullInt64
		shortAnswers, dietary, createdAt, updatedAt string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, email, status,
			first_name, last_name, phone_e164, age,
			country_of_residence, gender,
			university, major, level_of_study,
			short_answer_responses,
			hackathons_attended_count, software_experience_level, heard_about,
			shirt_size, dietary_restrictions,
			github, linkedin, website,
			submitted_at, created_at, updated_at
		FROM applications
		WHERE id = ?`, id).Scan(
		&app.ID, &app.UserID, &app.Email, &app.Status,
		&first, &last, &phone, &age,
		&country, &gender,
		&uni, &major, &level,
		&shortAnswers,
		&hackathons, &exp, &heard,
		&shirt, &dietary,
		&github, &linkedin, &website,
		&submitted, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	app.FirstName, app.LastName, app.PhoneE164 = nullStringPtr(first), nullStringPtr(last), nullStringPtr(phone)
	app.Age = nullIntPtr(age)
	app.CountryOfResidence, app.Gender = nullStringPtr(country), nullStringPtr(gender)
	app.University, app.Major, app.LevelOfStudy = nullStringPtr(uni), nullStringPtr(major), nullStringPtr(level)
	app.ShortAnswerResponses = json.RawMessage(shortAnswers)
	app.HackathonsAttendedCount = nullIntPtr(hackathons)
	app.SoftwareExperienceLevel, app.HeardAbout = nullStringPtr(exp), nullStringPtr(heard)
	app.ShirtSize = nullStringPtr(shirt)
	if err := json.Unmarshal([]byte(dietary), &app.DietaryRestrictions); err != nil {
		return nil, fmt.Errorf("decode dietary restrictions: %w", err)
	}
	app.Github, app.LinkedIn, app.Website = nullStringPtr(github), nullStringPtr(linkedin), nullStringPtr(website)
	app.SubmittedAt = parseNullTime(submitted)
	app.CreatedAt = parseSQLiteTime(createdAt)
	app.UpdatedAt = parseSQLiteTime(updatedAt)
	return &app, nil
}

// ApplicationStats counts applications by status.
func (db *DB) ApplicationStats(ctx context.Context) (*ApplicationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	defer rows.Close()

	stats := &ApplicationStats{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.add(ApplicationStatus(status), n)
	}
	return stats, rows.Err()
}

// CreateApplication inserts app, filling ID, CreatedAt and UpdatedAt when
// they are zero.
func (db *DB) CreateApplication(ctx context.Context, app *Application) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	prepareApplication(app)
	dietary, err := json.Marshal(app.DietaryRestrictions)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO applications (
			id, user_id, email, status,
			first_name, last_name, phone_e164, age,
			country_of_residence, gender,
			university, major, level_of_study,
			short_answer_responses,
			hackathons_attended_count, software_experience_level, heard_about,
			shirt_size, dietary_restrictions,
			github, linkedin, website,
			submitted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID, app.UserID, app.Email, string(app.Status),
		app.FirstName, app.LastName, app.PhoneE164, app.Age,
		app.CountryOfResidence, app.Gender,
		app.University, app.Major, app.LevelOfStudy,
		string(app.ShortAnswerResponses),
		app.HackathonsAttendedCount, app.SoftwareExperienceLevel, app.HeardAbout,
		app.ShirtSize, string(dietary),
		app.Github, app.LinkedIn, app.Website,
		formatTimePtr(app.SubmittedAt), formatTime(app.CreatedAt), formatTime(app.UpdatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return ErrConflict
	}
	return err
}

// prepareApplication fills defaults shared by both backends.
func prepareApplication(app *Application) {
	if app.ID == "" {
		app.ID = newID()
	}
	if app.UserID == "" {
		app.UserID = newID()
	}
	if app.Status == "" {
		app.Status = StatusDraft
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = app.CreatedAt
	}
	if len(app.ShortAnswerResponses) == 0 {
		app.ShortAnswerResponses = json.RawMessage(`{}`)
	}
	if app.DietaryRestrictions == nil {
		app.DietaryRestrictions = []string{}
	}
}

// ListApplications returns one keyset page ordered by (created_at DESC,
// id DESC). A cursor pins the position, so rows inserted ahead of it do not
// shift later pages.
func (db *DB) ListApplications(ctx context.Context, req pagination.Request) (pagination.Page[ApplicationListItem], error) {
	req = req.Normalize()
	if !validStatusFilter(req) {
		return pagination.Page[ApplicationListItem]{}, fmt.Errorf("invalid status %q", req.Status)
	}
	var cur *pagination.Cursor
	if req.Cursor != "" {
		c, err := pagination.Decode(req.Cursor)
		if err != nil {
			return pagination.Page[ApplicationListItem]{}, err
		}
		cur = &c
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if req.Status != "" {
		where = append(where, "status = ?")
		args = append(args, req.Status)
	}
	order := "created_at DESC, id DESC"
	if cur != nil {
		op := "<"
		if req.Direction == pagination.Backward {
			op = ">"
			order = "created_at ASC, id ASC"
		}
		where = append(where, "(created_at, id) "+op+" (?, ?)")
		args = append(args, formatTime(cur.CreatedAt), cur.ID)
	}

	var q strings.Builder
	q.WriteString(`SELECT id, user_id, email, status, first_name, last_name, university, submitted_at, created_at FROM applications`)
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	q.WriteString(" ORDER BY " + order + " LIMIT ?")
	args = append(args, req.Limit+1)

	rows, err := db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return pagination.Page[ApplicationListItem]{}, err
	}
	defer rows.Close()

	items := make([]ApplicationListItem, 0, req.Limit+1)
	for rows.Next() {
		var (
			it                     ApplicationListItem
			first, last, uni, subm sql.NullString
			created                string
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.Email, &it.Status, &first, &last, &uni, &subm, &created); err != nil {
			return pagination.Page[ApplicationListItem]{}, err
		}
		it.FirstName, it.LastName, it.University = nullStringPtr(first), nullStringPtr(last), nullStringPtr(uni)
		it.SubmittedAt = parseNullTime(subm)
		it.CreatedAt = parseSQLiteTime(created)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[ApplicationListItem]{}, err
	}
	return pagination.Window(items, req, applicationCursor), nil
}
