package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jimezsa/jobmatch/internal/models"
)

const DefaultRedisPrefix = "jobmatch"

// Redis keeps one JSON value per posting plus two index keys: a set of
// posting URLs and a hash of normalized skill key to display name.
type Redis struct {
	client *redis.Client
	prefix string
}

func OpenRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, DefaultRedisPrefix), nil
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) postingKey(sourceURL string) string {
	return s.prefix + ":posting:" + sourceURL
}

func (s *Redis) indexKey() string {
	return s.prefix + ":postings"
}

func (s *Redis) skillsKey() string {
	return s.prefix + ":skills"
}

func (s *Redis) Get(ctx context.Context, sourceURL string) (models.JobPosting, bool, error) {
	raw, err := s.client.Get(ctx, s.postingKey(sourceURL)).Result()
	if errors.Is(err, redis.Nil) {
		return models.JobPosting{}, false, nil
	}
	if err != nil {
		return models.JobPosting{}, false, fmt.Errorf("get posting %s: %w", sourceURL, err)
	}

	var p models.JobPosting
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return models.JobPosting{}, false, fmt.Errorf("decode posting %s: %w", sourceURL, err)
	}
	return p, true, nil
}

func (s *Redis) List(ctx context.Context) ([]models.JobPosting, error) {
	urls, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list posting urls: %w", err)
	}
	if len(urls) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		keys = append(keys, s.postingKey(u))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}

	postings := make(map[string]models.JobPosting, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var p models.JobPosting
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode posting %s: %w", urls[i], err)
		}
		postings[p.SourceURL] = p
	}
	return sortedPostings(postings), nil
}

func (s *Redis) ListSkills(ctx context.Context) ([]models.SkillTag, error) {
	values, err := s.client.HGetAll(ctx, s.skillsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	skills := make(map[string]models.SkillTag, len(values))
	for key, name := range values {
		skills[key] = models.SkillTag(name)
	}
	return sortedSkills(skills), nil
}

func (s *Redis) Begin(_ context.Context) (Tx, error) {
	return &redisTx{store: s}, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}

type redisTx struct {
	store    *Redis
	postings []models.JobPosting
	skills   []models.SkillTag
	done     bool
}

func (t *redisTx) Upsert(_ context.Context, p models.JobPosting) error {
	if t.done {
		return ErrTxDone
	}
	t.postings = append(t.postings, copyPosting(p))
	return nil
}

func (t *redisTx) CreateSkill(_ context.Context, tag models.SkillTag) error {
	if t.done {
		return ErrTxDone
	}
	if tag.Normalized() != "" {
		t.skills = append(t.skills, tag)
	}
	return nil
}

// Commit sends every buffered write inside one MULTI/EXEC block.
func (t *redisTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if len(t.postings) == 0 && len(t.skills) == 0 {
		return nil
	}

	encoded := make([][]byte, 0, len(t.postings))
	for _, p := range t.postings {
		raw, err := json.Marshal(p)
		if err != nil {
			return persistErr("encode "+p.SourceURL, err)
		}
		encoded = append(encoded, raw)
	}

	s := t.store
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range t.postings {
			pipe.Set(ctx, s.postingKey(p.SourceURL), encoded[i], 0)
			pipe.SAdd(ctx, s.indexKey(), p.SourceURL)
			for _, tag := range p.Skills {
				pipe.HSetNX(ctx, s.skillsKey(), tag.Normalized(), string(tag))
			}
		}
		for _, tag := range t.skills {
			pipe.HSetNX(ctx, s.skillsKey(), tag.Normalized(), string(tag))
		}
		return nil
	})
	if err != nil {
		return persistErr("commit", err)
	}
	return nil
}

func (t *redisTx) Rollback(_ context.Context) error {
	t.done = true
	t.postings = nil
	t.skills = nil
	return nil
}
