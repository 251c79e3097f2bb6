package main

import (
	"github.com/alecthomas/kong"

	_ "modernc.org/sqlite"

	"github.com/lox/skycast/internal/config"
)

type CLI struct {
	config.Config `embed:""`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the dashboard server."`
	Query   QueryCmd   `cmd:"" help:"Resolve one city, record it in the history and print the snapshot."`
	History HistoryCmd `cmd:"" help:"Print the recent-city history."`
}

func main() {
	config.LoadDotenv()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("skycast"),
		kong.Description("Single-city weather dashboard."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Config))
}
