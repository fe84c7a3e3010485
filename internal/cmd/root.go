package cmd

import (
	"fmt"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version  VersionCmd  `cmd:"" help:"Print version."`
	Config   ConfigCmd   `cmd:"" help:"Manage configuration."`
	Scrape   ScrapeCmd   `cmd:"" help:"Scrape every source once and store the postings."`
	Jobs     JobsCmd     `cmd:"" help:"List stored postings with filters."`
	Match    MatchCmd    `cmd:"" help:"Rank stored postings against a candidate profile."`
	Schedule ScheduleCmd `cmd:"" help:"Scrape on a cron schedule until interrupted."`
	Proxies  ProxiesCmd  `cmd:"" help:"Proxy utilities."`
}

func NewCLI() *CLI {
	return &CLI{}
}

type VersionCmd struct{}

func (v *VersionCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintln(ctx.Out, ctx.Version)
	return err
}
