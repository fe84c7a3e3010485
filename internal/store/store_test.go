package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimezsa/jobmatch/internal/models"
)

func samplePosting(url string, scraped time.Time) models.JobPosting {
	years := 3
	return models.JobPosting{
		SourceURL:          url,
		Source:             models.SourceIndeed,
		Title:              "Développeur Go",
		CompanyName:        "Acme",
		Description:        "Backend Go et PostgreSQL.",
		Location:           "Paris",
		Salary:             models.SalaryRange(45000, 60000),
		WorkArrangement:    models.WorkHybrid,
		ContractType:       "CDI",
		EducationRequired:  models.EducationBac5,
		ExperienceRequired: &years,
		ApplicationLink:    url,
		PostedAt:           scraped.Add(-24 * time.Hour),
		ScrapedAt:          scraped,
		FraudProbability:   0.12,
		Skills:             models.NewSkillSet("Go", "PostgreSQL"),
	}
}

func commit(t *testing.T, s Store, postings []models.JobPosting, skills ...models.SkillTag) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for _, p := range postings {
		require.NoError(t, tx.Upsert(ctx, p))
	}
	for _, tag := range skills {
		require.NoError(t, tx.CreateSkill(ctx, tag))
	}
	require.NoError(t, tx.Commit(ctx))
}

func TestMemoryCommitIsVisible(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemory()

	commit(t, s, []models.JobPosting{samplePosting("https://x.test/job/1", now)}, "Docker")

	got, ok, err := s.Get(ctx, "https://x.test/job/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Equal(t, 45000, got.Salary.Min)

	skills, err := s.ListSkills(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SkillTag{"Docker", "Go", "PostgreSQL"}, skills)
}

func TestMemoryRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Upsert(ctx, samplePosting("https://x.test/job/1", time.Now())))
	require.NoError(t, tx.CreateSkill(ctx, "Rust"))
	require.NoError(t, tx.Rollback(ctx))

	postings, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, postings)
	skills, err := s.ListSkills(ctx)
	require.NoError(t, err)
	assert.Empty(t, skills)

	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
}

func TestMemoryUncommittedWritesAreInvisible(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Upsert(ctx, samplePosting("https://x.test/job/1", time.Now())))

	_, ok, err := s.Get(ctx, "https://x.test/job/1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUpsertReplacesPosting(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemory()

	first := samplePosting("https://x.test/job/1", now)
	commit(t, s, []models.JobPosting{first})

	second := samplePosting("https://x.test/job/1", now.Add(time.Hour))
	second.Title = "Lead Go"
	second.Salary = nil
	second.Skills = models.NewSkillSet("Go")
	commit(t, s, []models.JobPosting{second})

	postings, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "Lead Go", postings[0].Title)
	assert.Nil(t, postings[0].Salary)
	assert.Equal(t, models.SkillSet{"Go"}, postings[0].Skills)
}

func TestMemoryCreateSkillDeduplicatesByNormalizedName(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	commit(t, s, nil, "Python", "python ", " PYTHON", "")

	skills, err := s.ListSkills(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SkillTag{"Python"}, skills)
}

func TestMemoryListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemory()

	commit(t, s, []models.JobPosting{
		samplePosting("https://x.test/job/old", base),
		samplePosting("https://x.test/job/new", base.Add(time.Hour)),
	})

	postings, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "https://x.test/job/new", postings[0].SourceURL)
	assert.Equal(t, "https://x.test/job/old", postings[1].SourceURL)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	commit(t, s, []models.JobPosting{samplePosting("https://x.test/job/1", time.Now())})

	got, _, err := s.Get(ctx, "https://x.test/job/1")
	require.NoError(t, err)
	got.Salary.Min = 1
	got.Skills[0] = "Cobol"

	again, _, err := s.Get(ctx, "https://x.test/job/1")
	require.NoError(t, err)
	assert.Equal(t, 45000, again.Salary.Min)
	assert.True(t, again.Skills.Contains("Go"))
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "postings.json")
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	s, err := OpenFile(path)
	require.NoError(t, err)
	commit(t, s, []models.JobPosting{samplePosting("https://x.test/job/1", now)}, "Kubernetes")

	reopened, err := OpenFile(path)
	require.NoError(t, err)

	got, ok, err := reopened.Get(ctx, "https://x.test/job/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now, got.ScrapedAt)
	assert.Equal(t, 3, *got.ExperienceRequired)

	skills, err := reopened.ListSkills(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SkillTag{"Go", "Kubernetes", "PostgreSQL"}, skills)
}

func TestFileStoreMissingAndEmptyFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	postings, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, postings)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	_, err = OpenFile(empty)
	require.NoError(t, err)
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := OpenFile(path)
	require.Error(t, err)
}

func TestFileStoreFailedCommitKeepsState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "postings.json")

	s, err := OpenFile(path)
	require.NoError(t, err)
	commit(t, s, []models.JobPosting{samplePosting("https://x.test/job/1", time.Now())})

	s.persist = func(snapshot) error { return os.ErrPermission }
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Upsert(ctx, samplePosting("https://x.test/job/2", time.Now())))
	err = tx.Commit(ctx)
	require.ErrorIs(t, err, ErrPersistenceFailed)

	_, ok, err := s.Get(ctx, "https://x.test/job/2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenDispatchesOnScheme(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory://")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	path := filepath.Join(t.TempDir(), "store.json")
	s, err = Open(ctx, "file://"+path)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	commit(t, s, []models.JobPosting{samplePosting("https://x.test/job/1", time.Now())})
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = Open(ctx, "mongodb://localhost")
	require.Error(t, err)
}

func TestPostingArgsRoundTripThroughRow(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p := samplePosting("https://x.test/job/1", now)
	p.FraudIndicators = []models.FraudIndicator{{Code: "urgency", Description: "Urgent language"}}

	args, err := postingArgs(p)
	require.NoError(t, err)
	require.Len(t, args, 19)

	row := postingRow{
		SourceURL:          args[0].(string),
		Source:             args[1].(string),
		Title:              args[2].(string),
		CompanyName:        args[3].(string),
		CompanyLogoURL:     args[4].(string),
		Description:        args[5].(string),
		Location:           args[6].(string),
		SalaryMin:          args[7].(*int),
		SalaryMax:          args[8].(*int),
		WorkArrangement:    args[9].(string),
		ContractType:       args[10].(string),
		EducationRequired:  args[11].(string),
		ExperienceRequired: args[12].(*int),
		Benefits:           args[13].(string),
		ApplicationLink:    args[14].(string),
		PostedAt:           args[15].(time.Time),
		ScrapedAt:          args[16].(time.Time),
		FraudProbability:   args[17].(float64),
		FraudIndicators:    args[18].([]byte),
		Skills:             p.Skills.Strings(),
	}
	got, err := row.posting()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPostingArgsWithoutSalary(t *testing.T) {
	p := samplePosting("https://x.test/job/1", time.Now())
	p.Salary = nil
	p.FraudIndicators = nil

	args, err := postingArgs(p)
	require.NoError(t, err)
	assert.Nil(t, args[7].(*int))
	assert.Nil(t, args[8].(*int))
	assert.JSONEq(t, `[]`, string(args[18].([]byte)))
}

func TestRedisKeyLayout(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	s := NewRedis(client, "")
	assert.Equal(t, "jobmatch:posting:https://x.test/job/1", s.postingKey("https://x.test/job/1"))
	assert.Equal(t, "jobmatch:postings", s.indexKey())
	assert.Equal(t, "jobmatch:skills", s.skillsKey())

	custom := NewRedis(client, "staging")
	assert.Equal(t, "staging:postings", custom.indexKey())
}

func TestRedisTxBuffersUntilCommit(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	tx, err := NewRedis(client, "").Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Upsert(ctx, samplePosting("https://x.test/job/1", time.Now())))
	require.NoError(t, tx.CreateSkill(ctx, "Go"))
	require.NoError(t, tx.Rollback(ctx))
	assert.ErrorIs(t, tx.Upsert(ctx, samplePosting("https://x.test/job/2", time.Now())), ErrTxDone)
}
