// Package store persists postings and the skill vocabulary. Every backend
// exposes the same narrow contract: keyed reads, bulk listing and a
// transaction whose Commit is all-or-nothing.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jimezsa/jobmatch/internal/models"
)

var (
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrTxDone            = errors.New("transaction already committed or rolled back")
)

type Store interface {
	Get(ctx context.Context, sourceURL string) (models.JobPosting, bool, error)
	List(ctx context.Context) ([]models.JobPosting, error)
	ListSkills(ctx context.Context) ([]models.SkillTag, error)
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx buffers writes until Commit. Upsert replaces the stored posting and its
// skill set wholesale.
type Tx interface {
	Upsert(ctx context.Context, p models.JobPosting) error
	CreateSkill(ctx context.Context, tag models.SkillTag) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Open picks a backend from the URL scheme: memory://, file:///path.json,
// postgres:// (or postgresql://) and redis:// (or rediss://).
func Open(ctx context.Context, rawURL string) (Store, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return NewMemory(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "memory":
		return NewMemory(), nil
	case "file":
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = u.Host + u.Path
		}
		return OpenFile(path)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, rawURL)
	case "redis", "rediss":
		return OpenRedis(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailed, op, err)
}
