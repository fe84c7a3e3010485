package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jimezsa/jobmatch/internal/models"
)

func samplePosting() models.JobPosting {
	years := 2
	return models.JobPosting{
		SourceURL:          "https://fr.indeed.com/viewjob?jk=1",
		Source:             models.SourceIndeed,
		Title:              "Développeur Go",
		CompanyName:        "Acme",
		Location:           "Paris",
		Salary:             models.SalaryRange(45000, 60000),
		WorkArrangement:    models.WorkHybrid,
		ContractType:       "CDI",
		EducationRequired:  models.EducationBac5,
		ExperienceRequired: &years,
		ApplicationLink:    "https://fr.indeed.com/viewjob?jk=1",
		PostedAt:           time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		FraudProbability:   0.45,
		FraudIndicators:    []models.FraudIndicator{{Code: "no_requirements", Description: "No required qualifications or experience"}},
		Skills:             models.NewSkillSet("PostgreSQL", "Go"),
	}
}

func TestWriteCSV(t *testing.T) {
	score := 72
	var buf bytes.Buffer
	if err := WritePostings(&buf, []Row{{Posting: samplePosting(), Score: &score}}, FormatCSV, WriteOptions{}); err != nil {
		t.Fatalf("WritePostings: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d", len(records))
	}
	row := records[1]
	want := map[int]string{
		0:  "indeed",
		7:  "45000",
		8:  "60000",
		10: "2",
		11: "Go;PostgreSQL",
		13: "0.45",
		14: "medium",
		15: "72",
	}
	for idx, value := range want {
		if row[idx] != value {
			t.Fatalf("column %s = %q, want %q", records[0][idx], row[idx], value)
		}
	}
}

func TestWriteJSONAddsRisk(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePostings(&buf, Rows([]models.JobPosting{samplePosting()}), FormatJSON, WriteOptions{}); err != nil {
		t.Fatalf("WritePostings: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 row, got %d", len(decoded))
	}
	if decoded[0]["risk"] != "medium" || decoded[0]["risk_label"] != "Medium" {
		t.Fatalf("unexpected risk fields: %v", decoded[0])
	}
	if decoded[0]["source_url"] != "https://fr.indeed.com/viewjob?jk=1" {
		t.Fatalf("posting fields not inlined: %v", decoded[0])
	}
	if _, ok := decoded[0]["match_score"]; ok {
		t.Fatal("unranked rows must not carry a match score")
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePostings(&buf, Rows([]models.JobPosting{samplePosting()}), FormatMarkdown, WriteOptions{}); err != nil {
		t.Fatalf("WritePostings: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"- **Développeur Go** (Acme)",
		"  Salary: 45000 - 60000 €",
		"  Skills: Go, PostgreSQL",
		"  Fraud risk: Medium (45%)",
		"    - No required qualifications or experience",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WritePostings(&buf, nil, FormatMarkdown, WriteOptions{}); err != nil {
		t.Fatalf("WritePostings: %v", err)
	}
	if buf.String() != "No results.\n" {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}
}

func TestWriteTableShowsMatchColumnOnlyWhenRanked(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePostings(&buf, Rows([]models.JobPosting{samplePosting()}), FormatTable, WriteOptions{}); err != nil {
		t.Fatalf("WritePostings: %v", err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	if strings.Contains(header, "match") {
		t.Fatalf("unexpected match column: %q", header)
	}

	score := 80
	buf.Reset()
	if err := WritePostings(&buf, []Row{{Posting: samplePosting(), Score: &score}}, FormatTable, WriteOptions{}); err != nil {
		t.Fatalf("WritePostings: %v", err)
	}
	if !strings.Contains(buf.String(), "match") || !strings.Contains(buf.String(), "80") {
		t.Fatalf("expected match column:\n%s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "markdown": FormatMarkdown, "": FormatTable, "TSV": FormatTSV} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestShortURLLabel(t *testing.T) {
	if got := shortURLLabel("https://www.linkedin.com/jobs/view/123"); got != "linkedin.com/jobs/view/123" {
		t.Fatalf("unexpected label: %q", got)
	}
}
