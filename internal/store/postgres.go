package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jimezsa/jobmatch/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const selectPostingSQL = `
SELECT p.source_url, p.source, p.title, p.company_name, p.company_logo_url,
       p.description, p.location, p.salary_min, p.salary_max, p.work_arrangement,
       p.contract_type, p.education_required, p.experience_required, p.benefits,
       p.application_link, p.posted_at, p.scraped_at, p.fraud_probability,
       p.fraud_indicators,
       COALESCE(ARRAY(
           SELECT s.name FROM posting_skills ps
           JOIN skills s ON s.key = ps.skill_key
           WHERE ps.source_url = p.source_url
           ORDER BY s.key
       ), '{}') AS skills
FROM postings p`

const upsertPostingSQL = `
INSERT INTO postings (
    source_url, source, title, company_name, company_logo_url, description,
    location, salary_min, salary_max, work_arrangement, contract_type,
    education_required, experience_required, benefits, application_link,
    posted_at, scraped_at, fraud_probability, fraud_indicators
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (source_url) DO UPDATE SET
    source = EXCLUDED.source,
    title = EXCLUDED.title,
    company_name = EXCLUDED.company_name,
    company_logo_url = EXCLUDED.company_logo_url,
    description = EXCLUDED.description,
    location = EXCLUDED.location,
    salary_min = EXCLUDED.salary_min,
    salary_max = EXCLUDED.salary_max,
    work_arrangement = EXCLUDED.work_arrangement,
    contract_type = EXCLUDED.contract_type,
    education_required = EXCLUDED.education_required,
    experience_required = EXCLUDED.experience_required,
    benefits = EXCLUDED.benefits,
    application_link = EXCLUDED.application_link,
    posted_at = EXCLUDED.posted_at,
    scraped_at = EXCLUDED.scraped_at,
    fraud_probability = EXCLUDED.fraud_probability,
    fraud_indicators = EXCLUDED.fraud_indicators`

const (
	insertSkillSQL        = `INSERT INTO skills (key, name) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`
	clearPostingSkillsSQL = `DELETE FROM posting_skills WHERE source_url = $1`
	linkPostingSkillSQL   = `INSERT INTO posting_skills (source_url, skill_key) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	listSkillsSQL         = `SELECT name FROM skills ORDER BY key`
)

// Postgres stores postings in three tables: postings, skills and the
// posting_skills join.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Get(ctx context.Context, sourceURL string) (models.JobPosting, bool, error) {
	row := s.pool.QueryRow(ctx, selectPostingSQL+` WHERE p.source_url = $1`, sourceURL)
	p, err := scanPosting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.JobPosting{}, false, nil
	}
	if err != nil {
		return models.JobPosting{}, false, fmt.Errorf("get posting %s: %w", sourceURL, err)
	}
	return p, true, nil
}

func (s *Postgres) List(ctx context.Context) ([]models.JobPosting, error) {
	rows, err := s.pool.Query(ctx, selectPostingSQL+` ORDER BY p.scraped_at DESC, p.source_url`)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []models.JobPosting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	return out, nil
}

func (s *Postgres) ListSkills(ctx context.Context) ([]models.SkillTag, error) {
	rows, err := s.pool.Query(ctx, listSkillsSQL)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}

	out := make([]models.SkillTag, 0, len(names))
	for _, name := range names {
		out = append(out, models.SkillTag(name))
	}
	return out, nil
}

func (s *Postgres) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin", err)
	}
	return &postgresTx{tx: tx}, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

// Upsert writes the posting row and replaces its skill links in one batch.
func (t *postgresTx) Upsert(ctx context.Context, p models.JobPosting) error {
	args, err := postingArgs(p)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(upsertPostingSQL, args...)
	batch.Queue(clearPostingSkillsSQL, p.SourceURL)
	for _, tag := range p.Skills {
		batch.Queue(insertSkillSQL, tag.Normalized(), string(tag))
		batch.Queue(linkPostingSkillSQL, p.SourceURL, tag.Normalized())
	}

	results := t.tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert %s: %w", p.SourceURL, err)
		}
	}
	return results.Close()
}

func (t *postgresTx) CreateSkill(ctx context.Context, tag models.SkillTag) error {
	if tag.Normalized() == "" {
		return nil
	}
	if _, err := t.tx.Exec(ctx, insertSkillSQL, tag.Normalized(), string(tag)); err != nil {
		return fmt.Errorf("create skill %s: %w", tag, err)
	}
	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return persistErr("commit", err)
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// postingArgs flattens a posting into upsertPostingSQL parameters.
func postingArgs(p models.JobPosting) ([]any, error) {
	indicators := p.FraudIndicators
	if indicators == nil {
		indicators = []models.FraudIndicator{}
	}
	encoded, err := json.Marshal(indicators)
	if err != nil {
		return nil, fmt.Errorf("encode fraud indicators: %w", err)
	}

	var salaryMin, salaryMax *int
	if p.Salary != nil {
		lo, hi := p.Salary.Min, p.Salary.Max
		salaryMin, salaryMax = &lo, &hi
	}

	return []any{
		p.SourceURL,
		string(p.Source),
		p.Title,
		p.CompanyName,
		p.CompanyLogoURL,
		p.Description,
		p.Location,
		salaryMin,
		salaryMax,
		string(p.WorkArrangement),
		p.ContractType,
		string(p.EducationRequired),
		p.ExperienceRequired,
		p.Benefits,
		p.ApplicationLink,
		p.PostedAt.UTC(),
		p.ScrapedAt.UTC(),
		p.FraudProbability,
		encoded,
	}, nil
}

type postingRow struct {
	SourceURL          string
	Source             string
	Title              string
	CompanyName        string
	CompanyLogoURL     string
	Description        string
	Location           string
	SalaryMin          *int
	SalaryMax          *int
	WorkArrangement    string
	ContractType       string
	EducationRequired  string
	ExperienceRequired *int
	Benefits           string
	ApplicationLink    string
	PostedAt           time.Time
	ScrapedAt          time.Time
	FraudProbability   float64
	FraudIndicators    []byte
	Skills             []string
}

func scanPosting(row pgx.Row) (models.JobPosting, error) {
	var r postingRow
	err := row.Scan(
		&r.SourceURL, &r.Source, &r.Title, &r.CompanyName, &r.CompanyLogoURL,
		&r.Description, &r.Location, &r.SalaryMin, &r.SalaryMax, &r.WorkArrangement,
		&r.ContractType, &r.EducationRequired, &r.ExperienceRequired, &r.Benefits,
		&r.ApplicationLink, &r.PostedAt, &r.ScrapedAt, &r.FraudProbability,
		&r.FraudIndicators, &r.Skills,
	)
	if err != nil {
		return models.JobPosting{}, err
	}
	return r.posting()
}

func (r postingRow) posting() (models.JobPosting, error) {
	p := models.JobPosting{
		SourceURL:          r.SourceURL,
		Source:             models.Source(r.Source),
		Title:              r.Title,
		CompanyName:        r.CompanyName,
		CompanyLogoURL:     r.CompanyLogoURL,
		Description:        r.Description,
		Location:           r.Location,
		WorkArrangement:    models.WorkArrangement(r.WorkArrangement),
		ContractType:       r.ContractType,
		EducationRequired:  models.EducationLevel(r.EducationRequired),
		ExperienceRequired: r.ExperienceRequired,
		Benefits:           r.Benefits,
		ApplicationLink:    r.ApplicationLink,
		PostedAt:           r.PostedAt.UTC(),
		ScrapedAt:          r.ScrapedAt.UTC(),
		FraudProbability:   r.FraudProbability,
	}
	if r.SalaryMin != nil {
		p.Salary = &models.Salary{Min: *r.SalaryMin}
		p.Salary.Max = *r.SalaryMin
		if r.SalaryMax != nil {
			p.Salary.Max = *r.SalaryMax
		}
	}
	if len(r.FraudIndicators) > 0 {
		if err := json.Unmarshal(r.FraudIndicators, &p.FraudIndicators); err != nil {
			return models.JobPosting{}, fmt.Errorf("decode fraud indicators: %w", err)
		}
		if len(p.FraudIndicators) == 0 {
			p.FraudIndicators = nil
		}
	}
	for _, name := range r.Skills {
		p.Skills = p.Skills.Add(models.SkillTag(name))
	}
	return p, nil
}
