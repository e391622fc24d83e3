package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
	apiclient "github.com/altoslab447/openclaw-dashboard/pkg/api/client"
)

var buildVersion = "dev"

const defaultAPI = "http://localhost:3456"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "logs":
		err = commandLogs(args, os.Stdout)
	case "snapshot":
		err = commandSnapshot(args, os.Stdout)
	case "health":
		err = commandHealth(args, os.Stdout)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	api := fs.String("api", envOr("OPENCLAW_DASHBOARD_URL", defaultAPI), "dashboard base URL")
	return fs, api
}

func commandLogs(args []string, out io.Writer) error {
	fs, api := newFlagSet("logs")
	count := fs.IntP("count", "n", 0, "number of recent lines (server default 100, max 500)")
	follow := fs.BoolP("follow", "f", false, "stream new lines until interrupted")
	noColor := fs.Bool("no-color", false, "disable colour output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	client, err := apiclient.New(*api)
	if err != nil {
		return err
	}
	f := newFormatter(!*noColor && isTerminal(out))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	records, err := client.FetchLogs(fetchCtx, *count)
	cancel()
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintln(out, f.record(rec))
	}
	if !*follow {
		return nil
	}

	return client.Follow(ctx, func(ev apiclient.Event) error {
		switch ev.Type {
		case domain.EnvelopeLog:
			rec, err := ev.Record()
			if err != nil {
				return fmt.Errorf("decode log event: %w", err)
			}
			fmt.Fprintln(out, f.record(rec))
		case domain.EnvelopeDataChanged:
			fmt.Fprintln(out, f.changed(ev.ChangedFile()))
		}
		return nil
	})
}

func commandSnapshot(args []string, out io.Writer) error {
	fs, api := newFlagSet("snapshot")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	client, err := apiclient.New(*api)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	raw, err := client.FetchRawSnapshot(ctx)
	if err != nil {
		return err
	}
	var pretty any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

func commandHealth(args []string, out io.Writer) error {
	fs, api := newFlagSet("health")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	client, err := apiclient.New(*api)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := client.Health(ctx)
	if err != nil {
		return err
	}
	log := "inactive"
	if h.Watching.Log {
		log = "active"
	}
	fmt.Fprintf(out, "status: %s\nlog: %s\nstate paths: %d\nsubscribers: %d\n",
		h.Status, log, h.Watching.StatePaths, h.Subscribers)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Printf("clawctl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	clawctl logs [--count N] [--follow] [--api http://localhost:3456] [--no-color]
	clawctl snapshot [--api http://localhost:3456]
	clawctl health [--api http://localhost:3456]
	clawctl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
