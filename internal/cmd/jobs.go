package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jimezsa/jobmatch/internal/export"
	"github.com/jimezsa/jobmatch/internal/match"
	"github.com/jimezsa/jobmatch/internal/models"
)

type OutputOptions struct {
	Format string `help:"Output format: csv, json, md, tsv, table." enum:",csv,json,md,tsv,table" default:""`
	Links  string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output string `name:"output" short:"o" help:"Write output to a file."`
}

type JobsCmd struct {
	Query         string  `arg:"" optional:"" help:"Text to look for in title, description or company."`
	Location      string  `help:"Location substring."`
	Work          string  `help:"Work arrangement: onsite, remote, hybrid." enum:",onsite,remote,hybrid" default:""`
	SalaryMin     int     `help:"Minimum salary; postings without salary are excluded."`
	Education     string  `help:"Required education level." enum:",none,bac,bac+2,bac+3,bac+5,bac+8" default:""`
	ExperienceMax int     `help:"Maximum years of experience required; unknown experience passes. Negative disables." default:"-1"`
	Skills        string  `help:"Comma-separated skills; a posting with any of them matches."`
	FraudMax      float64 `help:"Maximum fraud probability (0-1). Negative disables." default:"-1"`
	HideFraud     bool    `help:"Hide postings with a fraud probability above 0.6."`
	Profile       string  `help:"Rank results against a candidate profile JSON file."`
	Limit         int     `help:"Maximum postings to print (0 = no limit)."`
	OutputOptions
}

func (j *JobsCmd) Criteria() models.Criteria {
	c := models.Criteria{
		Query:           strings.TrimSpace(j.Query),
		Location:        strings.TrimSpace(j.Location),
		WorkArrangement: models.ParseWorkArrangement(j.Work),
		SalaryMin:       j.SalaryMin,
		Education:       models.EducationLevel(strings.ToLower(strings.TrimSpace(j.Education))),
		Skills:          splitList(j.Skills),
		HideFraud:       j.HideFraud,
	}
	if j.ExperienceMax >= 0 {
		years := j.ExperienceMax
		c.ExperienceMax = &years
	}
	if j.FraudMax >= 0 {
		limit := j.FraudMax
		c.FraudMax = &limit
	}
	return c
}

func (j *JobsCmd) Run(ctx *Context) error {
	st, err := ctx.store()
	if err != nil {
		return err
	}
	defer st.Close()

	postings, err := st.List(ctx.context())
	if err != nil {
		return err
	}
	postings = match.Filter(postings, j.Criteria())

	var rows []export.Row
	if strings.TrimSpace(j.Profile) != "" {
		profile, err := loadProfile(j.Profile)
		if err != nil {
			return err
		}
		rows = scoredRows(match.Rank(profile, postings, ctx.Config.MatchMinScore, j.Limit))
	} else {
		rows = export.Rows(limitPostings(postings, j.Limit))
	}
	return writeRows(ctx, rows, j.OutputOptions)
}

type MatchCmd struct {
	Profile  string `arg:"" help:"Candidate profile JSON file."`
	MinScore int    `help:"Minimum match score to keep; 0 keeps everything. Negative uses the config value." default:"-1"`
	Limit    int    `help:"Maximum postings to return; 0 means no limit. Negative uses the config value." default:"-1"`
	OutputOptions
}

func (m *MatchCmd) Run(ctx *Context) error {
	profile, err := loadProfile(m.Profile)
	if err != nil {
		return err
	}

	st, err := ctx.store()
	if err != nil {
		return err
	}
	defer st.Close()

	postings, err := st.List(ctx.context())
	if err != nil {
		return err
	}

	minScore := defaultInt(m.MinScore, ctx.Config.MatchMinScore)
	limit := defaultInt(m.Limit, ctx.Config.MatchLimit)
	ranked := match.Rank(profile, postings, minScore, limit)
	if err := writeRows(ctx, scoredRows(ranked), m.OutputOptions); err != nil {
		return err
	}
	if !ctx.JSONOutput && !ctx.PlainText {
		_, _ = fmt.Fprintf(ctx.Err, "summary: matched=%d of %d stored\n", len(ranked), len(postings))
	}
	return nil
}

func scoredRows(ranked []match.Scored) []export.Row {
	rows := make([]export.Row, 0, len(ranked))
	for _, s := range ranked {
		score := s.Score
		rows = append(rows, export.Row{Posting: s.Posting, Score: &score})
	}
	return rows
}

func limitPostings(postings []models.JobPosting, limit int) []models.JobPosting {
	if limit <= 0 || len(postings) <= limit {
		return postings
	}
	return postings[:limit]
}

func writeRows(ctx *Context, rows []export.Row, opts OutputOptions) error {
	format, err := resolveFormat(ctx, opts)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if opts.Output != "" {
		file, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled && opts.Output == ""
	hyperlinks := colorEnabled && isTTY(writer)
	linkStyle := export.LinkStyleFull
	if strings.EqualFold(opts.Links, string(export.LinkStyleShort)) {
		linkStyle = export.LinkStyleShort
	}
	return export.WritePostings(writer, rows, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   hyperlinks,
		LinkStyle:    linkStyle,
	})
}

func resolveFormat(ctx *Context, opts OutputOptions) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if opts.Format != "" {
		return export.ParseFormat(opts.Format)
	}
	if opts.Output != "" {
		return export.FormatCSV, nil
	}
	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultInt treats a negative value as unset.
func defaultInt(value, fallback int) int {
	if value < 0 {
		return fallback
	}
	return value
}
