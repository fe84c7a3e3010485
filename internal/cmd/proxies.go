package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jimezsa/jobmatch/internal/config"
	"github.com/jimezsa/jobmatch/internal/network"
)

type ProxiesCmd struct {
	Check ProxyCheckCmd `cmd:"" help:"Validate proxies against a job source."`
}

type ProxyCheckCmd struct {
	Target  string `help:"Target URL. Defaults to the first configured source."`
	Timeout int    `help:"Timeout in seconds." default:"15"`
}

type ProxyCheckResult struct {
	Proxy     string `json:"proxy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (p *ProxyCheckCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies("")
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return fmt.Errorf("no proxies configured")
	}

	target := strings.TrimSpace(p.Target)
	if target == "" {
		sources, err := config.LoadSources(ctx.ConfigDir)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return fmt.Errorf("no sources configured and no --target given")
		}
		target = sources[0].BaseURL
	}

	timeout := time.Duration(p.Timeout) * time.Second
	results := make([]ProxyCheckResult, 0, len(proxies))
	for _, proxy := range proxies {
		results = append(results, checkProxy(ctx, proxy, target, timeout))
	}
	return writeProxyResults(ctx, results)
}

// checkProxy fetches target once through proxy. Block pages count as a
// failure because that proxy is useless for scraping.
func checkProxy(ctx *Context, proxy, target string, timeout time.Duration) ProxyCheckResult {
	result := ProxyCheckResult{Proxy: proxy}
	rotator, err := network.NewRotator([]string{proxy}, 5*time.Minute)
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
		return result
	}
	client, err := network.NewClient(rotator, timeout)
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
		return result
	}

	fetcher := network.NewFetcher(client, network.FetcherOptions{
		Timeout:    timeout,
		MaxRetries: 0,
		Logger:     ctx.Logger,
	})

	start := time.Now()
	page, err := fetcher.Fetch(ctx.context(), target, nil)
	result.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Status = "error"
		var fetchErr *network.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Status != 0 {
			result.Status = fmt.Sprintf("%d", fetchErr.Status)
		}
		if errors.Is(err, network.ErrBlocked) {
			result.Status = "blocked"
		}
		result.Error = err.Error()
		return result
	}
	result.Status = fmt.Sprintf("%d", page.Status)
	return result
}

func writeProxyResults(ctx *Context, results []ProxyCheckResult) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if ctx.PlainText {
		for _, res := range results {
			line := []string{res.Proxy, res.Status, fmt.Sprintf("%d", res.LatencyMS), res.Error}
			fmt.Fprintln(ctx.Out, strings.Join(line, "\t"))
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "proxy\tstatus\tlatency_ms\terror")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Proxy, res.Status, res.LatencyMS, res.Error)
	}
	return tw.Flush()
}
