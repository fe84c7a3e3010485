package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/termenv"

	"github.com/jimezsa/jobmatch/internal/fraud"
	"github.com/jimezsa/jobmatch/internal/models"
	"github.com/jimezsa/jobmatch/internal/ui"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

// Row is one posting to print. Score is set only when postings were ranked
// against a profile.
type Row struct {
	Posting models.JobPosting
	Score   *int
}

func Rows(postings []models.JobPosting) []Row {
	rows := make([]Row, 0, len(postings))
	for _, p := range postings {
		rows = append(rows, Row{Posting: p})
	}
	return rows
}

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "tsv":
		return FormatTSV, nil
	case "table", "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", value)
	}
}

func WritePostings(w io.Writer, rows []Row, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatCSV:
		return writeCSV(w, rows, ',')
	case FormatTSV:
		return writeCSV(w, rows, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, rows)
	default:
		return writeTable(w, rows, opts)
	}
}

type jsonRow struct {
	models.JobPosting
	Risk      fraud.RiskLevel `json:"risk"`
	RiskLabel string          `json:"risk_label"`
	Score     *int            `json:"match_score,omitempty"`
}

func writeJSON(w io.Writer, rows []Row) error {
	out := make([]jsonRow, 0, len(rows))
	for _, row := range rows {
		risk := fraud.Risk(row.Posting.FraudProbability)
		out = append(out, jsonRow{
			JobPosting: row.Posting,
			Risk:       risk,
			RiskLabel:  risk.Label(),
			Score:      row.Score,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeCSV(w io.Writer, rows []Row, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(csvHeader()); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(csvRow(row)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, rows []Row, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(rows), "\t"))
	output := termenv.NewOutput(w)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(tableRow(row, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, row := range rows {
		p := row.Posting
		risk := fraud.Risk(p.FraudProbability)

		urlLine := "  URL: -"
		if link := safe(p.ApplicationLink); link != "" {
			urlLine = fmt.Sprintf("  URL: [Open listing](<%s>)", link)
		}
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", safe(p.Title), safe(p.CompanyName)),
			fmt.Sprintf("  Location: %s", safe(p.Location)),
			fmt.Sprintf("  Source: %s", p.Source),
			urlLine,
		}
		if row.Score != nil {
			lines = append(lines, fmt.Sprintf("  Match: %d/100", *row.Score))
		}
		if p.WorkArrangement != "" && p.WorkArrangement != models.WorkUnspecified {
			lines = append(lines, fmt.Sprintf("  Work: %s", p.WorkArrangement))
		}
		if p.ContractType != "" {
			lines = append(lines, fmt.Sprintf("  Contract: %s", safe(p.ContractType)))
		}
		if salary := formatSalary(p.Salary); salary != "" {
			lines = append(lines, fmt.Sprintf("  Salary: %s", salary))
		}
		if len(p.Skills) > 0 {
			lines = append(lines, fmt.Sprintf("  Skills: %s", strings.Join(p.Skills.Sorted().Strings(), ", ")))
		}
		if !p.PostedAt.IsZero() {
			lines = append(lines, fmt.Sprintf("  Posted: %s", p.PostedAt.Format(time.RFC3339)))
		}
		lines = append(lines, fmt.Sprintf("  Fraud risk: %s (%.0f%%)", risk.Label(), p.FraudProbability*100))
		for _, ind := range p.FraudIndicators {
			lines = append(lines, fmt.Sprintf("    - %s", ind.Description))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func csvHeader() []string {
	return []string{
		"source",
		"title",
		"company",
		"location",
		"url",
		"work_arrangement",
		"contract_type",
		"salary_min",
		"salary_max",
		"education",
		"experience_years",
		"skills",
		"posted_at",
		"fraud_probability",
		"risk",
		"match_score",
	}
}

func csvRow(row Row) []string {
	p := row.Posting
	posted := ""
	if !p.PostedAt.IsZero() {
		posted = p.PostedAt.Format(time.RFC3339)
	}
	salaryMin, salaryMax := "", ""
	if p.Salary != nil {
		salaryMin = strconv.Itoa(p.Salary.Min)
		salaryMax = strconv.Itoa(p.Salary.Max)
	}
	experience := ""
	if p.ExperienceRequired != nil {
		experience = strconv.Itoa(*p.ExperienceRequired)
	}
	score := ""
	if row.Score != nil {
		score = strconv.Itoa(*row.Score)
	}
	return []string{
		string(p.Source),
		p.Title,
		p.CompanyName,
		p.Location,
		p.ApplicationLink,
		string(p.WorkArrangement),
		p.ContractType,
		salaryMin,
		salaryMax,
		string(p.EducationRequired),
		experience,
		strings.Join(p.Skills.Sorted().Strings(), ";"),
		posted,
		strconv.FormatFloat(p.FraudProbability, 'f', 2, 64),
		string(fraud.Risk(p.FraudProbability)),
		score,
	}
}

func formatSalary(s *models.Salary) string {
	if s == nil {
		return ""
	}
	if s.IsRange() {
		return fmt.Sprintf("%d - %d €", s.Min, s.Max)
	}
	return fmt.Sprintf("%d €", s.Min)
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func tableHeader(rows []Row) []string {
	header := []string{"source", "title", "company", "location", "risk"}
	if scored(rows) {
		header = append(header, "match")
	}
	return append(header, "url")
}

func scored(rows []Row) bool {
	for _, row := range rows {
		if row.Score != nil {
			return true
		}
	}
	return false
}

func tableRow(row Row, output *termenv.Output, opts WriteOptions) []string {
	p := row.Posting

	link := safe(p.ApplicationLink)
	displayURL := "-"
	if link != "" {
		displayURL = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(link)
		}
		displayURL = ui.ColorizeLink(output, opts.ColorEnabled, displayURL)
		if opts.Hyperlinks {
			displayURL = hyperlink(link, displayURL)
		}
	}

	risk := fraud.Risk(p.FraudProbability)
	cells := []string{
		string(p.Source),
		safe(p.Title),
		safe(p.CompanyName),
		safe(p.Location),
		ui.Paint(output, opts.ColorEnabled, risk.Class(), risk.Label()),
	}
	if row.Score != nil {
		cells = append(cells, strconv.Itoa(*row.Score))
	}
	return append(cells, displayURL)
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
