package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hackutd/harp-sub000/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL schema version - increment when schema changes
const pgSchemaVersion = 1

// pgSchemaName isolates harp tables from anything else in the database.
const pgSchemaName = "harp"

//go:embed schemas/postgres.sql
var pgSchemaSQL string

// pgSchemaStatements splits the embedded schema into single statements;
// pgx does not run multi-statement strings in extended protocol mode.
func pgSchemaStatements() []string {
	var stmts []string
	for _, stmt := range strings.Split(pgSchemaSQL, ";") {
		var code []string
		for _, line := range strings.Split(stmt, "\n") {
			if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "--") {
				code = append(code, line)
			}
		}
		if len(code) > 0 {
			stmts = append(stmts, strings.TrimSpace(strings.Join(code, "\n")))
		}
	}
	return stmts
}

// PgPoolConfig configures the PostgreSQL connection pool
type PgPoolConfig struct {
	ConnectTimeout  time.Duration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPgPoolConfig returns sensible defaults for the connection pool
func DefaultPgPoolConfig() PgPoolConfig {
	return PgPoolConfig{
		ConnectTimeout:  5 * time.Second,
		MaxConns:        4,
		MinConns:        0,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// PgStore is the PostgreSQL-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, sets search_path to the harp schema on every
// connection and ensures the schema exists.
func OpenPostgres(ctx context.Context, connString string, cfg PgPoolConfig) (*PgStore, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO "+pgSchemaName)
		if err != nil {
			if _, createErr := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgSchemaName); createErr != nil {
				return createErr
			}
			_, err = conn.Exec(ctx, "SET search_path TO "+pgSchemaName)
		}
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PgStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the schema if it doesn't exist and checks version.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range pgSchemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var current int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if current > pgSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, pgSchemaVersion)
	}
	if current < pgSchemaVersion {
		if _, err := s.pool.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, pgSchemaVersion); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// Tx runs fn within a transaction
func (s *PgStore) Tx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const pgReviewColumns = `
	r.id, r.application_id, r.admin_id, r.vote, r.notes, r.assigned_at, r.reviewed_at,
	a.first_name, a.last_name, a.email, a.age, a.university, a.major,
	a.country_of_residence, a.hackathons_attended_count`

func pgScanReview(row pgx.Row) (Review, error) {
	var r Review
	var vote *string
	err := row.Scan(
		&r.ID, &r.ApplicationID, &r.AdminID, &vote, &r.Notes, &r.AssignedAt, &r.ReviewedAt,
		&r.FirstName, &r.LastName, &r.Email, &r.Age, &r.University, &r.Major,
		&r.CountryOfResidence, &r.HackathonsAttendedCount,
	)
	if err != nil {
		return Review{}, err
	}
	if vote != nil {
		v := Vote(*vote)
		r.Vote = &v
	}
	return r, nil
}

func (s *PgStore) queryReviews(ctx context.Context, query string, args ...any) ([]Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		r, err := pgScanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *PgStore) ListPendingReviews(ctx context.Context, adminID string) ([]Review, error) {
	return s.queryReviews(ctx, `
		SELECT `+pgReviewColumns+`
		FROM application_reviews r
		JOIN applications a ON a.id = r.application_id
		WHERE r.admin_id = $1 AND r.vote IS NULL
		ORDER BY r.assigned_at ASC, r.id ASC`, adminID)
}

func (s *PgStore) ListCompletedReviews(ctx context.Context, adminID string) ([]Review, error) {
	return s.queryReviews(ctx, `
		SELECT `+pgReviewColumns+`
		FROM application_reviews r
		JOIN applications a ON a.id = r.application_id
		WHERE r.admin_id = $1 AND r.vote IS NOT NULL
		ORDER BY r.reviewed_at DESC, r.id DESC`, adminID)
}

func (s *PgStore) getReview(ctx context.Context, q pgxQuerier, id string) (*Review, error) {
	r, err := pgScanReview(q.QueryRow(ctx, `
		SELECT `+pgReviewColumns+`
		FROM application_reviews r
		JOIN applications a ON a.id = r.application_id
		WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PgStore) SubmitVote(ctx context.Context, reviewID, adminID string, p VotePayload) (*Review, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE application_reviews
		SET vote = $1, notes = $2, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND admin_id = $4 AND vote IS NULL`,
		string(p.Vote), normalizeNotes(p.Notes), reviewID, adminID)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var vote *string
		err := s.pool.QueryRow(ctx,
			`SELECT vote FROM application_reviews WHERE id = $1 AND admin_id = $2`,
			reviewID, adminID).Scan(&vote)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return s.getReview(ctx, s.pool, reviewID)
}

func (s *PgStore) NotesByApplication(ctx context.Context, applicationID string) ([]ReviewNote, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT r.admin_id, COALESCE(ad.email, ''), r.notes, COALESCE(r.reviewed_at, r.updated_at)
		FROM application_reviews r
		LEFT JOIN admins ad ON ad.id = r.admin_id
		WHERE r.application_id = $1 AND r.notes IS NOT NULL AND r.notes != ''
		ORDER BY COALESCE(r.reviewed_at, r.updated_at) ASC, r.id ASC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []ReviewNote{}
	for rows.Next() {
		var n ReviewNote
		if err := rows.Scan(&n.AdminID, &n.AdminEmail, &n.Notes, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *PgStore) CreateReview(ctx context.Context, applicationID, adminID string, assignedAt time.Time) (*Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	id := newID()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO application_reviews (id, application_id, admin_id, assigned_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $4)`, id, applicationID, adminID, assignedAt)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return s.getReview(ctx, s.pool, id)
}

func (s *PgStore) AssignNext(ctx context.Context, adminID string, reviewsPerApp int) (*Review, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*QueryTimeout)
	defer cancel()

	var review *Review
	err := s.Tx(ctx, func(tx pgx.Tx) error {
		var appID string
		err := tx.QueryRow(ctx, `
			SELECT a.id
			FROM applications a
			LEFT JOIN LATERAL (
			    SELECT COUNT(*) AS n FROM application_reviews x WHERE x.application_id = a.id
			) c ON TRUE
			WHERE a.status = 'submitted'
			  AND c.n < $1
			  AND NOT EXISTS (
			      SELECT 1 FROM application_reviews x
			      WHERE x.application_id = a.id AND x.admin_id = $2)
			ORDER BY c.n ASC, a.submitted_at ASC, a.id ASC
			LIMIT 1
			FOR UPDATE OF a SKIP LOCKED`, reviewsPerApp, adminID).Scan(&appID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id := newID()
		if _, err := tx.Exec(ctx, `
			INSERT INTO application_reviews (id, application_id, admin_id)
			VALUES ($1, $2, $3)`, id, appID, adminID); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		review, err = s.getReview(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *PgStore) UpsertAdmin(ctx context.Context, a Admin) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO admins (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`, a.ID, a.Email)
	return err
}

func (s *PgStore) GetApplication(ctx context.Context, id string) (*Application, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var app Application
	var status, shortAnswers string
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, email, status,
			first_name, last_name, phone_e164, age,
			country_of_residence, gender,
			university, major, level_of_study,
			short_answer_responses::text,
			hackathons_attended_count, software_experience_level, heard_about,
			shirt_size, dietary_restrictions,
			github, linkedin, website,
			submitted_at, created_at, updated_at
		FROM applications
		WHERE id = $1`, id).Scan(
		&app.ID, &app.UserID, &app.Email, &status,
		&app.FirstName, &app.LastName, &app.PhoneE164, &app.Age,
		&app.CountryOfResidence, &app.Gender,
		&app.University, &app.Major, &app.LevelOfStudy,
		&shortAnswers,
		&app.HackathonsAttendedCount, &app.SoftwareExperienceLevel, &app.HeardAbout,
		&app.ShirtSize, &app.DietaryRestrictions,
		&app.Github, &app.LinkedIn, &app.Website,
		&app.SubmittedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	app.Status = ApplicationStatus(status)
	app.ShortAnswerResponses = []byte(shortAnswers)
	return &app, nil
}

func (s *PgStore) CreateApplication(ctx context.Context, app *Application) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	prepareApplication(app)
	_, err := s.pool.Exec(ctx, `
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		app.ID, app.UserID, app.Email, string(app.Status),
		app.FirstName, app.LastName, app.PhoneE164, app.Age,
		app.CountryOfResidence, app.Gender,
		app.University, app.Major, app.LevelOfStudy,
		string(app.ShortAnswerResponses),
		app.HackathonsAttendedCount, app.SoftwareExperienceLevel, app.HeardAbout,
		app.ShirtSize, app.DietaryRestrictions,
		app.Github, app.LinkedIn, app.Website,
		app.SubmittedAt, app.CreatedAt, app.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// ApplicationStats counts applications by status.
func (s *PgStore) ApplicationStats(ctx context.Context) (*ApplicationStats, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
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

func (s *PgStore) ListApplications(ctx context.Context, req pagination.Request) (pagination.Page[ApplicationListItem], error) {
	req = req.Normalize()
	if !validStatusFilter(req) {
		return pagination.Page[ApplicationListItem]{}, fmt.Errorf("invalid status %q", req.Status)
	}

	var cursorTime *time.Time
	var cursorID *string
	if req.Cursor != "" {
		c, err := pagination.Decode(req.Cursor)
		if err != nil {
			return pagination.Page[ApplicationListItem]{}, err
		}
		cursorTime, cursorID = &c.CreatedAt, &c.ID
	}
	var status *string
	if req.Status != "" {
		status = &req.Status
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	query := `
		SELECT id, user_id, email, status, first_name, last_name, university, submitted_at, created_at
		FROM applications
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3::text))
		ORDER BY created_at DESC, id DESC
		LIMIT $4`
	if req.Direction == pagination.Backward && cursorTime != nil {
		query = `
			SELECT id, user_id, email, status, first_name, last_name, university, submitted_at, created_at
			FROM applications
			WHERE ($1::text IS NULL OR status = $1)
			  AND (created_at, id) > ($2, $3::text)
			ORDER BY created_at ASC, id ASC
			LIMIT $4`
	}

	rows, err := s.pool.Query(ctx, query, status, cursorTime, cursorID, req.Limit+1)
	if err != nil {
		return pagination.Page[ApplicationListItem]{}, err
	}
	defer rows.Close()

	items := make([]ApplicationListItem, 0, req.Limit+1)
	for rows.Next() {
		var it ApplicationListItem
		var st string
		if err := rows.Scan(&it.ID, &it.UserID, &it.Email, &st, &it.FirstName, &it.LastName, &it.University, &it.SubmittedAt, &it.CreatedAt); err != nil {
			return pagination.Page[ApplicationListItem]{}, err
		}
		it.Status = ApplicationStatus(st)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[ApplicationListItem]{}, err
	}
	return pagination.Window(items, req, applicationCursor), nil
}
