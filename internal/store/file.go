package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimezsa/jobmatch/internal/models"
)

// fileDocument is the on-disk layout of the file store.
type fileDocument struct {
	Skills   []models.SkillTag   `json:"skills"`
	Postings []models.JobPosting `json:"postings"`
}

// OpenFile returns a Memory store loaded from path that rewrites the whole
// file on every commit. A missing file starts empty.
func OpenFile(path string) (*Memory, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	doc, err := readDocumentAllowMissing(path)
	if err != nil {
		return nil, err
	}

	m := NewMemory()
	for _, tag := range doc.Skills {
		m.data.skills[tag.Normalized()] = tag
	}
	for _, p := range doc.Postings {
		if p.SourceURL == "" {
			continue
		}
		m.data.postings[p.SourceURL] = p
	}
	m.persist = func(s snapshot) error {
		return writeDocument(path, fileDocument{
			Skills:   sortedSkills(s.skills),
			Postings: sortedPostings(s.postings),
		})
	}
	return m, nil
}

func readDocument(path string) (fileDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileDocument{}, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return fileDocument{}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

func readDocumentAllowMissing(path string) (fileDocument, error) {
	doc, err := readDocument(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileDocument{}, nil
		}
		return fileDocument{}, err
	}
	return doc, nil
}

// writeDocument writes pretty JSON through a temp file and rename so a failed
// write never truncates the previous state.
func writeDocument(path string, doc fileDocument) error {
	if doc.Skills == nil {
		doc.Skills = []models.SkillTag{}
	}
	if doc.Postings == nil {
		doc.Postings = []models.JobPosting{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".jobmatch-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
