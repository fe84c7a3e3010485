package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jimezsa/jobmatch/internal/config"
	"github.com/jimezsa/jobmatch/internal/export"
	"github.com/jimezsa/jobmatch/internal/models"
	"github.com/jimezsa/jobmatch/internal/pipeline"
	"github.com/jimezsa/jobmatch/internal/store"
)

type fakeIngester struct {
	report   pipeline.Report
	err      error
	parallel bool
	query    string
	location string
	closed   bool
}

func (f *fakeIngester) Run(_ context.Context, query, location string, parallel bool) (pipeline.Report, error) {
	f.query, f.location, f.parallel = query, location, parallel
	return f.report, f.err
}

func (f *fakeIngester) ScrapeJobs(ctx context.Context, query, location string) (int, error) {
	report, err := f.Run(ctx, query, location, true)
	return report.Created, err
}

func (f *fakeIngester) Close() error {
	f.closed = true
	return nil
}

func testContext(t *testing.T) (*Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("JOBMATCH_CONFIG_DIR", dir)
	t.Setenv("JOBMATCH_PROXIES", "")

	var out, errOut bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.DefaultQuery = "developer"
	cfg.DefaultLocation = "France"
	cfg.Parallel = true
	cfg.MatchMinScore = 10
	cfg.MatchLimit = 100
	return &Context{
		Out:       &out,
		Err:       &errOut,
		Config:    cfg,
		ConfigDir: dir,
		Logger:    zerolog.Nop(),
	}, &out, &errOut
}

func seededStore(t *testing.T, postings ...models.JobPosting) *store.Memory {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, p := range postings {
		if err := tx.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return st
}

func storedPosting(url, title, location string, work models.WorkArrangement, fraud float64, skills ...models.SkillTag) models.JobPosting {
	return models.JobPosting{
		SourceURL:        url,
		Source:           models.SourceIndeed,
		Title:            title,
		CompanyName:      "Acme",
		Location:         location,
		WorkArrangement:  work,
		ApplicationLink:  url,
		ScrapedAt:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		FraudProbability: fraud,
		Skills:           models.NewSkillSet(skills...),
	}
}

func TestParseSites(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"all", nil},
		{"", nil},
		{"indeed, linkedin", []string{"indeed", "linkedin"}},
		{"indeed,ALL", nil},
		{" , pole-emploi", []string{"pole-emploi"}},
	}
	for _, tc := range cases {
		if got := parseSites(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parseSites(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestScrapeUsesConfigDefaultsAndPrintsSummary(t *testing.T) {
	ctx, _, errOut := testContext(t)
	fake := &fakeIngester{report: pipeline.Report{
		RunID:   "run-1",
		Created: 3,
		Updated: 1,
		Dropped: 1,
		Sources: []pipeline.SourceResult{
			{Source: "monster", Postings: 0, Err: errors.New("blocked")},
			{Source: "indeed", Postings: 5},
		},
	}}
	var gotOpts pipeline.BuildOptions
	ctx.NewIngester = func(_ context.Context, opts pipeline.BuildOptions) (Ingester, error) {
		gotOpts = opts
		return fake, nil
	}

	cmd := &ScrapeCmd{Sites: "indeed,monster", Sequential: true}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if fake.query != "developer" || fake.location != "France" {
		t.Fatalf("unexpected query/location: %q %q", fake.query, fake.location)
	}
	if fake.parallel {
		t.Fatal("--sequential must disable parallel mode")
	}
	if !fake.closed {
		t.Fatal("ingester was not closed")
	}
	if !reflect.DeepEqual(gotOpts.Sites, []string{"indeed", "monster"}) {
		t.Fatalf("unexpected sites: %#v", gotOpts.Sites)
	}
	if len(gotOpts.Sources) != len(config.DefaultSources()) {
		t.Fatalf("expected default sources, got %d", len(gotOpts.Sources))
	}

	want := "summary: new_jobs=3 updated=1 dropped=1 by_source=indeed:5, monster:0\n"
	if errOut.String() != want {
		t.Fatalf("summary = %q, want %q", errOut.String(), want)
	}
}

func TestScrapeReturnsPersistenceError(t *testing.T) {
	ctx, _, _ := testContext(t)
	fake := &fakeIngester{err: store.ErrPersistenceFailed}
	ctx.NewIngester = func(context.Context, pipeline.BuildOptions) (Ingester, error) { return fake, nil }

	err := (&ScrapeCmd{Query: "go", Location: "Lyon"}).Run(ctx)
	if !errors.Is(err, store.ErrPersistenceFailed) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if !fake.parallel {
		t.Fatal("parallel mode is the default")
	}
}

func TestScrapeJSONReport(t *testing.T) {
	ctx, out, _ := testContext(t)
	ctx.JSONOutput = true
	fake := &fakeIngester{report: pipeline.Report{RunID: "run-9", Created: 2, Sources: []pipeline.SourceResult{{Source: "indeed", Postings: 2}}}}
	ctx.NewIngester = func(context.Context, pipeline.BuildOptions) (Ingester, error) { return fake, nil }

	if err := (&ScrapeCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), `"run_id": "run-9"`) || !strings.Contains(out.String(), `"indeed": 2`) {
		t.Fatalf("unexpected JSON report:\n%s", out.String())
	}
}

func TestJobsCriteria(t *testing.T) {
	cmd := &JobsCmd{
		Query:         " golang ",
		Work:          "remote",
		Education:     "BAC+5",
		ExperienceMax: 3,
		Skills:        "Go, Docker,",
		FraudMax:      -1,
		HideFraud:     true,
	}
	c := cmd.Criteria()
	if c.Query != "golang" || c.WorkArrangement != models.WorkRemote || c.Education != models.EducationBac5 {
		t.Fatalf("unexpected criteria: %+v", c)
	}
	if c.ExperienceMax == nil || *c.ExperienceMax != 3 {
		t.Fatalf("expected experience max 3, got %v", c.ExperienceMax)
	}
	if c.FraudMax != nil {
		t.Fatalf("negative fraud max must disable the filter, got %v", *c.FraudMax)
	}
	if !reflect.DeepEqual(c.Skills, []string{"Go", "Docker"}) || !c.HideFraud {
		t.Fatalf("unexpected criteria: %+v", c)
	}

	c = (&JobsCmd{ExperienceMax: -1, FraudMax: 0.3}).Criteria()
	if c.ExperienceMax != nil || c.FraudMax == nil || *c.FraudMax != 0.3 {
		t.Fatalf("unexpected criteria: %+v", c)
	}
}

func TestJobsFiltersStoredPostings(t *testing.T) {
	ctx, out, _ := testContext(t)
	st := seededStore(t,
		storedPosting("https://x.test/job/1", "Développeur Go", "Paris", models.WorkRemote, 0.1, "Go"),
		storedPosting("https://x.test/job/2", "Développeur Java", "Lyon", models.WorkOnsite, 0.1, "Java"),
		storedPosting("https://x.test/job/3", "Go Ninja", "Paris", models.WorkRemote, 0.9, "Go"),
	)
	ctx.OpenStore = func(context.Context) (store.Store, error) { return st, nil }

	cmd := &JobsCmd{Work: "remote", HideFraud: true, ExperienceMax: -1, FraudMax: -1, OutputOptions: OutputOptions{Format: "csv"}}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records, err := csv.NewReader(out).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected one posting, got %d rows", len(records)-1)
	}
	if records[1][4] != "https://x.test/job/1" {
		t.Fatalf("unexpected posting: %v", records[1])
	}
}

func TestMatchRanksAgainstProfile(t *testing.T) {
	ctx, out, errOut := testContext(t)
	st := seededStore(t,
		storedPosting("https://x.test/job/1", "Développeur Java", "Lyon", models.WorkOnsite, 0.1, "Java"),
		storedPosting("https://x.test/job/2", "Développeur Go", "Paris", models.WorkRemote, 0.1, "Go"),
		storedPosting("https://example.com/job7", "Développeur Go", "Paris", models.WorkRemote, 0.1, "Go"),
	)
	ctx.OpenStore = func(context.Context) (store.Store, error) { return st, nil }

	profilePath := filepath.Join(t.TempDir(), "profile.json")
	profile := `{
  // json5 comments are allowed
  "desired_location": "Paris",
  "work_arrangement": "remote",
  "skills": ["go", "Go", "Docker"],
}`
	if err := os.WriteFile(profilePath, []byte(profile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	cmd := &MatchCmd{Profile: profilePath, MinScore: -1, Limit: -1, OutputOptions: OutputOptions{Format: "csv"}}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	records, err := csv.NewReader(out).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected two ranked postings, got %d rows", len(records)-1)
	}
	if records[1][4] != "https://x.test/job/2" {
		t.Fatalf("best match should come first: %v", records[1])
	}
	best, _ := strconv.Atoi(records[1][15])
	worst, _ := strconv.Atoi(records[2][15])
	if best != 79 || worst != 15 {
		t.Fatalf("scores = %d, %d; want 79, 15", best, worst)
	}
	if !strings.Contains(errOut.String(), "matched=2 of 3") {
		t.Fatalf("unexpected summary: %q", errOut.String())
	}
}

func TestMatchMinScoreOverridesConfig(t *testing.T) {
	cases := []struct {
		minScore int
		want     string
	}{
		{-1, "matched=1 of 2"},
		{0, "matched=2 of 2"},
	}

	for _, tc := range cases {
		ctx, _, errOut := testContext(t)
		ctx.Config.MatchMinScore = 20
		st := seededStore(t,
			storedPosting("https://x.test/job/1", "Développeur Java", "Lyon", models.WorkOnsite, 0.1, "Java"),
			storedPosting("https://x.test/job/2", "Développeur Go", "Paris", models.WorkRemote, 0.1, "Go"),
		)
		ctx.OpenStore = func(context.Context) (store.Store, error) { return st, nil }

		profilePath := filepath.Join(t.TempDir(), "profile.json")
		profile := `{desired_location: "Paris", work_arrangement: "remote", skills: ["Go"]}`
		if err := os.WriteFile(profilePath, []byte(profile), 0o644); err != nil {
			t.Fatalf("write profile: %v", err)
		}

		cmd := &MatchCmd{Profile: profilePath, MinScore: tc.minScore, Limit: -1, OutputOptions: OutputOptions{Format: "csv"}}
		if err := cmd.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.Contains(errOut.String(), tc.want) {
			t.Fatalf("min score %d: summary = %q, want %q", tc.minScore, errOut.String(), tc.want)
		}
	}
}

func TestLoadProfileNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	data := `{desired_salary: 45000, education_level: "bac+5", work_arrangement: "Hybride", skills: ["Python", "python", " SQL "]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	profile, err := loadProfile(path)
	if err != nil {
		t.Fatalf("loadProfile() error = %v", err)
	}
	if profile.DesiredSalary != 45000 || profile.EducationLevel != models.EducationBac5 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.WorkArrangement != models.WorkUnspecified {
		t.Fatalf("unknown work label should be unspecified, got %q", profile.WorkArrangement)
	}
	if !reflect.DeepEqual(profile.Skills, models.SkillSet{"Python", "SQL"}) {
		t.Fatalf("unexpected skills: %#v", profile.Skills)
	}

	if _, err := loadProfile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestResolveFormat(t *testing.T) {
	ctx := &Context{Out: io.Discard, JSONOutput: true}
	if got, _ := resolveFormat(ctx, OutputOptions{Format: "md"}); got != export.FormatJSON {
		t.Fatalf("--json must win, got %q", got)
	}

	ctx = &Context{Out: io.Discard, PlainText: true}
	if got, _ := resolveFormat(ctx, OutputOptions{}); got != export.FormatTSV {
		t.Fatalf("--plain must give tsv, got %q", got)
	}

	ctx = &Context{Out: io.Discard}
	if got, _ := resolveFormat(ctx, OutputOptions{Output: "jobs.out"}); got != export.FormatCSV {
		t.Fatalf("file output defaults to csv, got %q", got)
	}
	if got, _ := resolveFormat(ctx, OutputOptions{Format: "md"}); got != export.FormatMarkdown {
		t.Fatalf("explicit format ignored, got %q", got)
	}
}
