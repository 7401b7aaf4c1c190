package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/naarad/internal"
	"github.com/starford/naarad/internal/clientservice"
	"github.com/starford/naarad/internal/csvimport"
	"github.com/starford/naarad/internal/views"
	pkgconfig "github.com/starford/naarad/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr))
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// service builds a client service for one-shot commands. Only warnings reach
// the log so command output stays readable.
func service(ctx context.Context, cmd *cli.Command, load bool) (*clientservice.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, max(cfg.App.LogLevel, slog.LevelWarn))
	svc := internal.NewClientService(cfg, logger)
	if load {
		if err := svc.Load(ctx); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().First())
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

func listClients(ctx context.Context, cmd *cli.Command) error {
	svc, err := service(ctx, cmd, true)
	if err != nil {
		return err
	}
	clients := views.Filter(svc.Clients(), cmd.String("query"), views.ParseStatusFilter(cmd.String("status")))

	w := stdout(cmd)
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(clients)
	}

	now := time.Now()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOMPANY\tSTATUS\tPRIORITY\tAUTO\tLAST CONTACT")
	for _, c := range clients {
		auto := "off"
		if c.Auto {
			auto = "on"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Company, c.Status, c.Priority, auto,
			views.FormatLastInteraction(c.LastInteraction, now))
	}
	return tw.Flush()
}

func uploadClients(ctx context.Context, cmd *cli.Command) error {
	svc, err := service(ctx, cmd, false)
	if err != nil {
		return err
	}

	var count int
	if cmd.Bool("sample") {
		res, err := svc.UploadSample(ctx)
		if err != nil {
			return err
		}
		count = res.Count
	} else {
		path, err := requireArg(cmd, "FILE")
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		clients, err := csvimport.Parse(f)
		if err != nil {
			return err
		}
		res, err := svc.Upload(ctx, clients)
		if err != nil {
			return err
		}
		count = res.Count
	}
	_, err = fmt.Fprintf(stdout(cmd), "uploaded %d clients\n", count)
	return err
}

func showHistory(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "CLIENT_ID")
	if err != nil {
		return err
	}
	svc, err := service(ctx, cmd, true)
	if err != nil {
		return err
	}
	if _, err := svc.Get(id); err != nil {
		return err
	}
	entries, err := svc.History(ctx, id)
	if err != nil {
		return err
	}

	w := stdout(cmd)
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No history yet")
		return err
	}
	for _, b := range views.Timeline(entries) {
		fmt.Fprintf(w, "[%s] %s: %s\n", b.Time, b.Sender, b.Content)
		if b.Rationale != "" {
			fmt.Fprintf(w, "    rationale: %s\n", b.Rationale)
		}
	}
	return nil
}

func sendReply(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "CLIENT_ID")
	if err != nil {
		return err
	}
	text := strings.Join(cmd.Args().Tail(), " ")
	svc, err := service(ctx, cmd, true)
	if err != nil {
		return err
	}
	if _, err := svc.Get(id); err != nil {
		return err
	}
	if err := svc.Reply(ctx, id, text); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout(cmd), "reply sent to %s\n", id)
	return err
}

func toggleAuto(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "CLIENT_ID")
	if err != nil {
		return err
	}
	svc, err := service(ctx, cmd, true)
	if err != nil {
		return err
	}

	c, err := svc.Get(id)
	if err != nil {
		return err
	}
	want := !c.Auto
	if cmd.IsSet("auto") {
		want = cmd.Bool("auto")
	}
	c, err = svc.SetAuto(ctx, id, want)
	if err != nil {
		return err
	}
	state := "off"
	if c.Auto {
		state = "on"
	}
	_, err = fmt.Fprintf(stdout(cmd), "auto follow-up %s for %s\n", state, id)
	return err
}
