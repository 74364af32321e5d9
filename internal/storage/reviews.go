package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const reviewColumns = `
	r.id, r.application_id, r.admin_id, r.vote, r.notes, r.assigned_at, r.reviewed_at,
	a.first_name, a.last_name, a.email, a.age, a.university, a.major,
	a.country_of_residence, a.hackathons_attended_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (Review, error) {
	var (
		r                              Review
		vote, notes                    sql.NullString
		assignedAt                     string
		reviewedAt                     sql.NullString
		first, last, uni, major, cntry sql.NullString
		age, hackathons                sql.NullInt64
	)
	err := row.Scan(
		&r.ID, &r.ApplicationID, &r.AdminID, &vote, &notes, &assignedAt, &reviewedAt,
		&first, &last, &r.Email, &age, &uni, &major, &cntry, &hackathons,
	)
	if err != nil {
		return Review{}, err
	}
	if vote.Valid {
		v := Vote(vote.String)
		r.Vote = &v
	}
	r.Notes = nullStringPtr(notes)
	r.AssignedAt = parseSQLiteTime(assignedAt)
	r.ReviewedAt = parseNullTime(reviewedAt)
	r.FirstName = nullStringPtr(first)
	r.LastName = nullStringPtr(last)
	r.Age = nullIntPtr(age)
	r.University = nullStringPtr(uni)
	r.Major = nullStringPtr(major)
	r.CountryOfResidence = nullStringPtr(cntry)
	r.HackathonsAttendedCount = nullIntPtr(hackathons)
	return r, nil
}

func (db *DB) queryReviews(ctx context.Context, query string, args ...any) ([]Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ListPendingReviews returns the admin's undecided reviews, oldest
// assignment first.
func (db *DB) ListPendingReviews(ctx context.Context, adminID string) ([]Review, error) {
	return db.queryReviews(ctx, `
		SELECT `+reviewColumns+`
		FROM application_reviews r
		JOIN applications a ON a.id = r.application_id
		WHERE r.admin_id = ? AND r.vote IS NULL
		ORDER BY r.assigned_at ASC, r.id ASC`, adminID)
}

// ListCompletedReviews returns the admin's decided reviews, most recent
// decision first.
func (db *DB) ListCompletedReviews(ctx context.Context, adminID string) ([]Review, error) {
	return db.queryReviews(ctx, `
		SELECT `+reviewColumns+`
		FROM application_reviews r
		JOIN applications a ON a.id = r.application_id
		WHERE r.admin_id = ? AND r.vote IS NOT NULL
		ORDER BY r.reviewed_at DESC, r.id DESC`, adminID)
}

// GetReview returns one review with its applicant snapshot.
func (db *DB) GetReview(ctx context.Context, id string) (*Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	r, err := scanReview(db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM application_reviews r
		JOIN applications a ON a.id = r.application_id
		WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SubmitVote records the admin's decision. It succeeds at most once per
// review: a review that already has a vote yields ErrConflict, and one that
// does not exist or belongs to another admin yields ErrNotFound.
func (db *DB) SubmitVote(ctx context.Context, reviewID, adminID string, p VotePayload) (*Review, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	now := formatTime(time.Now())
	res, err := db.ExecContext(ctx, `
		UPDATE application_reviews
		SET vote = ?, notes = ?, reviewed_at = ?, updated_at = ?
		WHERE id = ? AND admin_id = ? AND vote IS NULL`,
		string(p.Vote), normalizeNotes(p.Notes), now, now, reviewID, adminID)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		var vote sql.NullString
		err := db.QueryRowContext(ctx,
			`SELECT vote FROM application_reviews WHERE id = ? AND admin_id = ?`,
			reviewID, adminID).Scan(&vote)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return db.GetReview(ctx, reviewID)
}

// NotesByApplication returns the non-empty notes left on an application,
// in the order they were written.
func (db *DB) NotesByApplication(ctx context.Context, applicationID string) ([]ReviewNote, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT r.admin_id, COALESCE(ad.email, ''), r.notes, COALESCE(r.reviewed_at, r.updated_at)
		FROM application_reviews r
		LEFT JOIN admins ad ON ad.id = r.admin_id
		WHERE r.application_id = ? AND r.notes IS NOT NULL AND r.notes != ''
		ORDER BY COALESCE(r.reviewed_at, r.updated_at) ASC, r.id ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []ReviewNote{}
	for rows.Next() {
		var n ReviewNote
		var created string
		if err := rows.Scan(&n.AdminID, &n.AdminEmail, &n.Notes, &created); err != nil {
			return nil, err
		}
		n.CreatedAt = parseSQLiteTime(created)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CreateReview assigns an application to an admin.
func (db *DB) CreateReview(ctx context.Context, applicationID, adminID string, assignedAt time.Time) (*Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	id := newID()
	ts := formatTime(assignedAt)
	_, err := db.ExecContext(ctx, `
		INSERT INTO application_reviews (id, application_id, admin_id, assigned_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, id, applicationID, adminID, ts, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return db.GetReview(ctx, id)
}

// AssignNext picks the submitted application with the fewest assignments
// (oldest submission first) that the admin has not been assigned yet, and
// assigns it. ErrNotFound means nothing needs review.
func (db *DB) AssignNext(ctx context.Context, adminID string, reviewsPerApp int) (*Review, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*QueryTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var appID string
	err = tx.QueryRowContext(ctx, `
		SELECT a.id
		FROM applications a
		WHERE a.status = 'submitted'
		  AND (SELECT COUNT(*) FROM application_reviews x WHERE x.application_id = a.id) < ?
		  AND NOT EXISTS (
		      SELECT 1 FROM application_reviews x
		      WHERE x.application_id = a.id AND x.admin_id = ?)
		ORDER BY (SELECT COUNT(*) FROM application_reviews x WHERE x.application_id = a.id) ASC,
		         a.submitted_at ASC, a.id ASC
		LIMIT 1`, reviewsPerApp, adminID).Scan(&appID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	id := newID()
	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO application_reviews (id, application_id, admin_id, assigned_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, id, appID, adminID, now, now, now); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return db.GetReview(ctx, id)
}

// UpsertAdmin creates or updates an admin row; notes are attributed by it.
func (db *DB) UpsertAdmin(ctx context.Context, a Admin) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO admins (id, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email`,
		a.ID, a.Email, formatTime(time.Now()))
	return err
}
