package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jimezsa/jobmatch/internal/models"
)

type snapshot struct {
	postings map[string]models.JobPosting
	skills   map[string]models.SkillTag
}

func newSnapshot() snapshot {
	return snapshot{postings: map[string]models.JobPosting{}, skills: map[string]models.SkillTag{}}
}

func (s snapshot) clone() snapshot {
	out := snapshot{
		postings: make(map[string]models.JobPosting, len(s.postings)),
		skills:   make(map[string]models.SkillTag, len(s.skills)),
	}
	for k, v := range s.postings {
		out.postings[k] = v
	}
	for k, v := range s.skills {
		out.skills[k] = v
	}
	return out
}

// Memory keeps everything in process. It also backs the file store.
type Memory struct {
	mu      sync.RWMutex
	data    snapshot
	persist func(snapshot) error
}

func NewMemory() *Memory {
	return &Memory{data: newSnapshot()}
}

func (m *Memory) Get(_ context.Context, sourceURL string) (models.JobPosting, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data.postings[sourceURL]
	return copyPosting(p), ok, nil
}

// List returns postings ordered by scrape time, newest first.
func (m *Memory) List(_ context.Context) ([]models.JobPosting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedPostings(m.data.postings), nil
}

func (m *Memory) ListSkills(_ context.Context) ([]models.SkillTag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedSkills(m.data.skills), nil
}

func (m *Memory) Begin(_ context.Context) (Tx, error) {
	return &memoryTx{store: m}, nil
}

func (m *Memory) Close() error {
	return nil
}

type memoryOp func(s snapshot)

type memoryTx struct {
	store *Memory
	ops   []memoryOp
	done  bool
}

func (tx *memoryTx) Upsert(_ context.Context, p models.JobPosting) error {
	if tx.done {
		return ErrTxDone
	}
	p = copyPosting(p)
	tx.ops = append(tx.ops, func(s snapshot) {
		s.postings[p.SourceURL] = p
		for _, tag := range p.Skills {
			if _, ok := s.skills[tag.Normalized()]; !ok {
				s.skills[tag.Normalized()] = tag
			}
		}
	})
	return nil
}

func (tx *memoryTx) CreateSkill(_ context.Context, tag models.SkillTag) error {
	if tx.done {
		return ErrTxDone
	}
	tag = models.SkillTag(strings.TrimSpace(string(tag)))
	if tag == "" {
		return nil
	}
	tx.ops = append(tx.ops, func(s snapshot) {
		if _, ok := s.skills[tag.Normalized()]; !ok {
			s.skills[tag.Normalized()] = tag
		}
	})
	return nil
}

// Commit applies every buffered write to a copy and swaps it in only once the
// copy has been persisted.
func (tx *memoryTx) Commit(_ context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	m := tx.store
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.data.clone()
	for _, op := range tx.ops {
		op(next)
	}
	if m.persist != nil {
		if err := m.persist(next); err != nil {
			return persistErr("commit", err)
		}
	}
	m.data = next
	return nil
}

func (tx *memoryTx) Rollback(_ context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.ops = nil
	return nil
}

func copyPosting(p models.JobPosting) models.JobPosting {
	if p.Salary != nil {
		salary := *p.Salary
		p.Salary = &salary
	}
	if p.ExperienceRequired != nil {
		years := *p.ExperienceRequired
		p.ExperienceRequired = &years
	}
	p.FraudIndicators = append([]models.FraudIndicator(nil), p.FraudIndicators...)
	p.Skills = append(models.SkillSet(nil), p.Skills...)
	return p
}

func sortedPostings(postings map[string]models.JobPosting) []models.JobPosting {
	out := make([]models.JobPosting, 0, len(postings))
	for _, p := range postings {
		out = append(out, copyPosting(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.After(out[j].ScrapedAt)
		}
		return out[i].SourceURL < out[j].SourceURL
	})
	return out
}

func sortedSkills(skills map[string]models.SkillTag) []models.SkillTag {
	out := make([]models.SkillTag, 0, len(skills))
	for _, tag := range skills {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Normalized() < out[j].Normalized() })
	return out
}
