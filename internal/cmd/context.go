package cmd

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jimezsa/jobmatch/internal/config"
	"github.com/jimezsa/jobmatch/internal/pipeline"
	"github.com/jimezsa/jobmatch/internal/store"
	"github.com/jimezsa/jobmatch/internal/ui"
)

// Ingester is the part of *pipeline.Manager the commands drive.
type Ingester interface {
	Run(ctx context.Context, query, location string, parallel bool) (pipeline.Report, error)
	ScrapeJobs(ctx context.Context, query, location string) (int, error)
	Close() error
}

type Context struct {
	Ctx        context.Context
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode

	// NewIngester and OpenStore replace the real wiring when set.
	NewIngester func(ctx context.Context, opts pipeline.BuildOptions) (Ingester, error)
	OpenStore   func(ctx context.Context) (store.Store, error)
}

func (c *Context) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) ingester(sites string, proxiesFlag string) (Ingester, error) {
	sources, err := config.LoadSources(c.ConfigDir)
	if err != nil {
		return nil, err
	}
	proxies, err := config.LoadProxies(proxiesFlag)
	if err != nil {
		return nil, err
	}

	opts := pipeline.BuildOptions{
		Sources: sources,
		Sites:   parseSites(sites),
		Proxies: proxies,
		Logger:  c.Logger,
	}
	if c.NewIngester != nil {
		return c.NewIngester(c.context(), opts)
	}
	m, err := pipeline.Build(c.context(), c.Config, opts)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Context) store() (store.Store, error) {
	if c.OpenStore != nil {
		return c.OpenStore(c.context())
	}
	return store.Open(c.context(), c.Config.StoreURL)
}

// parseSites turns a comma-separated flag into source names. "all" and an
// empty value select every source.
func parseSites(raw string) []string {
	var sites []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, "all") {
			return nil
		}
		sites = append(sites, part)
	}
	return sites
}
