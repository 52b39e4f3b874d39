package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS job_postings (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL DEFAULT '',
	employer             TEXT NOT NULL DEFAULT '',
	allowed_visa_codes   TEXT[] NOT NULL DEFAULT '{}',
	board_type           TEXT NOT NULL,
	weekly_hours         INTEGER,
	industry_category    TEXT NOT NULL DEFAULT '',
	requires_sponsorship BOOLEAN,
	posted_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS job_postings_board_industry_idx ON job_postings (board_type, industry_category);
`

const jobColumns = `id, title, employer, allowed_visa_codes, board_type, weekly_hours, industry_category, requires_sponsorship, posted_at`

const (
	upsertJobQuery = `INSERT INTO job_postings (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			employer = EXCLUDED.employer,
			allowed_visa_codes = EXCLUDED.allowed_visa_codes,
			board_type = EXCLUDED.board_type,
			weekly_hours = EXCLUDED.weekly_hours,
			industry_category = EXCLUDED.industry_category,
			requires_sponsorship = EXCLUDED.requires_sponsorship,
			posted_at = EXCLUDED.posted_at`
	getJobQuery   = `SELECT ` + jobColumns + ` FROM job_postings WHERE id = $1`
	listJobsQuery = `SELECT ` + jobColumns + ` FROM job_postings
		WHERE ($1::text = '' OR board_type = $1) AND ($2::text = '' OR industry_category = $2)
		ORDER BY posted_at DESC, id`
)

// PostgresJobStore persists postings in PostgreSQL.
type PostgresJobStore struct {
	db *sql.DB
}

// NewPostgresJobStore constructs a PostgreSQL-backed job store.
func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

// EnsureSchema creates the job_postings table if it does not exist.
func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, jobsSchema); err != nil {
		return fmt.Errorf("create job schema: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Save(ctx context.Context, job *ports.Job) error {
	prepared, err := prepareJob(job)
	if err != nil {
		return err
	}
	c := prepared.Constraints
	codes := make([]string, len(c.AllowedVisaCodes))
	for i, code := range c.AllowedVisaCodes {
		codes[i] = string(code)
	}
	var hours sql.NullInt64
	if c.WeeklyHours != nil {
		hours = sql.NullInt64{Int64: int64(*c.WeeklyHours), Valid: true}
	}
	var sponsorship sql.NullBool
	if c.RequiresSponsorship != nil {
		sponsorship = sql.NullBool{Bool: *c.RequiresSponsorship, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, upsertJobQuery,
		prepared.ID,
		prepared.Title,
		prepared.Employer,
		pq.Array(codes),
		string(c.BoardType),
		hours,
		c.IndustryCategory,
		sponsorship,
		prepared.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", prepared.ID, err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (*ports.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, getJobQuery, strings.TrimSpace(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return job, nil
}

func (s *PostgresJobStore) List(ctx context.Context, filter ports.JobFilter) ([]*ports.Job, error) {
	rows, err := s.db.QueryContext(ctx, listJobsQuery,
		string(filter.BoardType),
		eligibility.NormalizeIndustry(filter.Industry),
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*ports.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*ports.Job, error) {
	var (
		job         ports.Job
		codes       []string
		boardType   string
		hours       sql.NullInt64
		sponsorship sql.NullBool
	)
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Employer,
		pq.Array(&codes),
		&boardType,
		&hours,
		&job.Constraints.IndustryCategory,
		&sponsorship,
		&job.PostedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Constraints.BoardType = eligibility.BoardType(boardType)
	job.Constraints.AllowedVisaCodes = make([]eligibility.VisaCode, len(codes))
	for i, code := range codes {
		job.Constraints.AllowedVisaCodes[i] = eligibility.VisaCode(code)
	}
	if hours.Valid {
		h := int(hours.Int64)
		job.Constraints.WeeklyHours = &h
	}
	if sponsorship.Valid {
		b := sponsorship.Bool
		job.Constraints.RequiresSponsorship = &b
	}
	return &job, nil
}
