package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "naarad",
		Usage:   "Client follow-up dashboard for the NAARAD agent",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the web dashboard and JSON API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the client tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:  "clients",
				Usage: "List clients",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Match name or company"},
					&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "all, active, pending, overdue or responded"},
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
				},
				Action: listClients,
			},
			{
				Name:      "upload",
				Usage:     "Replace the client list from a CSV file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "sample", Usage: "Upload the built-in sample clients instead of a file"},
				},
				Action: uploadClients,
			},
			{
				Name:      "history",
				Usage:     "Show a client's interaction history",
				ArgsUsage: "CLIENT_ID",
				Action:    showHistory,
			},
			{
				Name:      "reply",
				Usage:     "Send a manual reply to a client",
				ArgsUsage: "CLIENT_ID MESSAGE...",
				Action:    sendReply,
			},
			{
				Name:      "toggle",
				Usage:     "Flip automated follow-ups for a client, or set them with --auto",
				ArgsUsage: "CLIENT_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "auto", Usage: "Desired automation flag"},
				},
				Action: toggleAuto,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
