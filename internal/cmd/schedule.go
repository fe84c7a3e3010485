package cmd

import (
	"github.com/jimezsa/jobmatch/internal/pipeline"
)

type ScheduleCmd struct {
	Spec     string `help:"Cron spec, e.g. \"@every 6h\" or \"0 */4 * * *\". Defaults to schedule from config."`
	Query    string `help:"Search query. Defaults to default_query from config."`
	Location string `help:"Job location. Defaults to default_location from config."`
	Sites    string `help:"Comma-separated list of sources (default: all)." default:"all"`
	Proxies  string `help:"Comma-separated proxy URLs." env:"JOBMATCH_PROXIES"`
}

// Run blocks until the command context is cancelled (SIGINT/SIGTERM).
func (s *ScheduleCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	ing, err := ctx.ingester(s.Sites, s.Proxies)
	if err != nil {
		return err
	}
	defer ing.Close()

	runCtx := ctx.context()
	scheduler := pipeline.NewScheduler(
		ing,
		firstNonEmpty(s.Spec, cfg.Schedule),
		firstNonEmpty(s.Query, cfg.DefaultQuery),
		firstNonEmpty(s.Location, cfg.DefaultLocation),
		ctx.Logger,
	)
	if err := scheduler.Start(runCtx); err != nil {
		return err
	}

	<-runCtx.Done()
	<-scheduler.Stop().Done()
	return nil
}
