package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"visamatch/internal/eligibility"
	"visamatch/internal/eligibility/ports"
)

//go:embed demo_fixtures.yaml
var demoFixtures []byte

type jobFixture struct {
	ID                  string   `koanf:"id"`
	Title               string   `koanf:"title"`
	Employer            string   `koanf:"employer"`
	AllowedVisaCodes    []string `koanf:"allowed_visa_codes"`
	BoardType           string   `koanf:"board_type"`
	WeeklyHours         *int     `koanf:"weekly_hours"`
	Industry            string   `koanf:"industry"`
	RequiresSponsorship *bool    `koanf:"requires_sponsorship"`
	PostedAt            string   `koanf:"posted_at"`
}

type attributesFixture struct {
	MaxWeeklyHours      *int     `koanf:"max_weekly_hours"`
	PermittedIndustries []string `koanf:"permitted_industries"`
	RequiresSponsorship bool     `koanf:"requires_sponsorship"`
	RequiresWorkPermit  bool     `koanf:"requires_work_permit"`
	Nationality         string   `koanf:"nationality"`
}

type verificationFixture struct {
	WorkerID   string             `koanf:"worker_id"`
	VisaCode   string             `koanf:"visa_code"`
	Verified   bool               `koanf:"verified"`
	Attributes *attributesFixture `koanf:"attributes"`
	VerifiedAt string             `koanf:"verified_at"`
	ExpiresAt  string             `koanf:"expires_at"`
}

// Fixtures are postings and verification records to preload into stores.
type Fixtures struct {
	Jobs          []*ports.Job
	Verifications []*ports.VerificationRecord
}

// DemoFixtures returns the embedded sample data.
func DemoFixtures() (*Fixtures, error) {
	return ParseFixtures(demoFixtures)
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	return decodeFixtures(k)
}

// ParseFixtures decodes YAML fixtures from memory.
func ParseFixtures(data []byte) (*Fixtures, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return decodeFixtures(k)
}

func decodeFixtures(k *koanf.Koanf) (*Fixtures, error) {
	var raw struct {
		Jobs          []jobFixture          `koanf:"jobs"`
		Verifications []verificationFixture `koanf:"verifications"`
	}
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	f := &Fixtures{
		Jobs:          make([]*ports.Job, 0, len(raw.Jobs)),
		Verifications: make([]*ports.VerificationRecord, 0, len(raw.Verifications)),
	}
	for i, j := range raw.Jobs {
		job, err := j.toJob()
		if err != nil {
			return nil, fmt.Errorf("job fixture %d: %w", i, err)
		}
		f.Jobs = append(f.Jobs, job)
	}
	for i, v := range raw.Verifications {
		rec, err := v.toRecord()
		if err != nil {
			return nil, fmt.Errorf("verification fixture %d: %w", i, err)
		}
		f.Verifications = append(f.Verifications, rec)
	}
	return f, nil
}

func (j jobFixture) toJob() (*ports.Job, error) {
	postedAt, err := parseTime(j.PostedAt)
	if err != nil {
		return nil, fmt.Errorf("posted_at: %w", err)
	}
	var codes []eligibility.VisaCode
	for _, c := range j.AllowedVisaCodes {
		codes = append(codes, eligibility.VisaCode(c))
	}
	return &ports.Job{
		ID:       j.ID,
		Title:    j.Title,
		Employer: j.Employer,
		Constraints: eligibility.JobConstraints{
			AllowedVisaCodes:    codes,
			BoardType:           eligibility.BoardType(j.BoardType),
			WeeklyHours:         j.WeeklyHours,
			IndustryCategory:    j.Industry,
			RequiresSponsorship: j.RequiresSponsorship,
		},
		PostedAt: postedAt,
	}, nil
}

func (v verificationFixture) toRecord() (*ports.VerificationRecord, error) {
	verifiedAt, err := parseTime(v.VerifiedAt)
	if err != nil {
		return nil, fmt.Errorf("verified_at: %w", err)
	}
	expiresAt, err := parseTime(v.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	rec := &ports.VerificationRecord{
		WorkerID:   v.WorkerID,
		VisaCode:   eligibility.VisaCode(v.VisaCode),
		Verified:   v.Verified,
		VerifiedAt: verifiedAt,
		ExpiresAt:  expiresAt,
	}
	if a := v.Attributes; a != nil {
		rec.Attributes = &eligibility.VisaAttributes{
			MaxWeeklyHours:      a.MaxWeeklyHours,
			PermittedIndustries: a.PermittedIndustries,
			RequiresSponsorship: a.RequiresSponsorship,
			RequiresWorkPermit:  a.RequiresWorkPermit,
			Nationality:         a.Nationality,
		}
	}
	return rec, nil
}

func parseTime(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Seed saves every fixture into the given stores.
func Seed(ctx context.Context, f *Fixtures, jobs JobWriter, verifications *InMemoryVerificationStore) error {
	for _, job := range f.Jobs {
		if err := jobs.Save(ctx, job); err != nil {
			return fmt.Errorf("seed job %s: %w", job.ID, err)
		}
	}
	for _, rec := range f.Verifications {
		if err := verifications.Save(ctx, rec); err != nil {
			return fmt.Errorf("seed verification %s: %w", rec.WorkerID, err)
		}
	}
	return nil
}
