package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/jimezsa/jobmatch/internal/pipeline"
)

type ScrapeCmd struct {
	Query      string `arg:"" optional:"" help:"Search query. Defaults to default_query from config."`
	Location   string `help:"Job location. Defaults to default_location from config."`
	Sites      string `help:"Comma-separated list of sources (default: all)." default:"all"`
	Sequential bool   `help:"Scrape sources one at a time."`
	Proxies    string `help:"Comma-separated proxy URLs." env:"JOBMATCH_PROXIES"`
}

func (s *ScrapeCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	query := firstNonEmpty(s.Query, cfg.DefaultQuery)
	location := firstNonEmpty(s.Location, cfg.DefaultLocation)

	ing, err := ctx.ingester(s.Sites, s.Proxies)
	if err != nil {
		return err
	}
	defer ing.Close()

	stopIndicator := startScrapeIndicator(ctx)
	report, runErr := ing.Run(ctx.context(), query, location, cfg.Parallel && !s.Sequential)
	if stopIndicator != nil {
		stopIndicator()
	}

	reportSourceFailures(ctx, report.Sources)
	if runErr != nil {
		return runErr
	}

	if ctx.JSONOutput {
		return writeReportJSON(ctx.Out, report)
	}
	_, _ = fmt.Fprintln(ctx.Err, formatScrapeSummary(report))
	return nil
}

type reportJSON struct {
	RunID     string         `json:"run_id"`
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Dropped   int            `json:"dropped"`
	Collected int            `json:"collected"`
	Sources   map[string]int `json:"sources"`
	Failures  []string       `json:"failures,omitempty"`
}

func writeReportJSON(w io.Writer, report pipeline.Report) error {
	out := reportJSON{
		RunID:     report.RunID,
		Created:   report.Created,
		Updated:   report.Updated,
		Dropped:   report.Dropped,
		Collected: report.Collected,
		Sources:   make(map[string]int, len(report.Sources)),
	}
	for _, src := range report.Sources {
		out.Sources[src.Source] = src.Postings
		if src.Err != nil {
			out.Failures = append(out.Failures, fmt.Sprintf("%s: %v", src.Source, src.Err))
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func formatScrapeSummary(report pipeline.Report) string {
	sources := append([]pipeline.SourceResult(nil), report.Sources...)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Source < sources[j].Source
	})

	bySource := "none"
	if len(sources) > 0 {
		parts := make([]string, 0, len(sources))
		for _, src := range sources {
			parts = append(parts, fmt.Sprintf("%s:%d", src.Source, src.Postings))
		}
		bySource = strings.Join(parts, ", ")
	}

	return fmt.Sprintf("summary: new_jobs=%d updated=%d dropped=%d by_source=%s",
		report.Created, report.Updated, report.Dropped, bySource)
}

func reportSourceFailures(ctx *Context, sources []pipeline.SourceResult) {
	if ctx == nil || ctx.UI == nil || !ctx.Verbose {
		return
	}

	var failed []pipeline.SourceResult
	for _, src := range sources {
		if src.Err != nil {
			failed = append(failed, src)
		}
	}
	if len(failed) == 0 {
		return
	}

	ctx.UI.Warnf("\nSource errors:")
	for _, src := range failed {
		ctx.UI.Warnf("  %s: %v", src.Source, src.Err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

func startScrapeIndicator(ctx *Context) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				frame := frames[index%len(frames)]
				fmt.Fprintf(ctx.Err, "\r\033[2KScraping... %ds %s", seconds, frame)
				index++
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}
