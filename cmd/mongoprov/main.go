package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"mongoprov/internal/app"
	"mongoprov/internal/config"
	apperrors "mongoprov/internal/errors"
	errlogging "mongoprov/internal/errors/logging"
	"mongoprov/internal/logger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `Usage: mongoprov [flags] <command> [flags]

Commands:
  apply     create missing collections and indexes (--dry-run to inspect only)
  verify    check the database against the plan
  plan      print the plan as mongo shell statements
  history   show recent runs from the journal (--limit N)
  menu      interactive menu (default on a terminal)

Flags:
`

type invocation struct {
	command   string
	dryRun    bool
	limit     int
	sources   config.Sources
	overrides config.Overrides
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	bootLog := logger.NewColoredLogger(logger.WithOutput(stderr))

	inv, err := parseArgs(args, stderr, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.Load(inv.sources)
	if err != nil {
		bootLog.Error("Configuration failed: %v", err)
		return exitFailure
	}
	cfg.Apply(inv.overrides)

	if inv.command == "plan" || inv.command == "history" {
		err = cfg.ValidateLocal()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		bootLog.Error("Invalid configuration: %v", err)
		return exitFailure
	}

	log, err := logger.NewFromConfig(cfg.Log.Format, cfg.Log.Level, stderr)
	if err != nil {
		bootLog.Error("Failed to initialise logger: %v", err)
		return exitFailure
	}

	application, err := app.New(cfg, log)
	if err != nil {
		errlogging.Error(context.Background(), log, "failed to initialise mongoprov", err)
		return exitFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			log.Info("Received exit signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	err = application.Run(ctx, app.Command{Name: inv.command, DryRun: inv.dryRun, Limit: inv.limit})
	switch {
	case err == nil:
		return exitOK
	case apperrors.HasCode(err, apperrors.CodeUsage):
		fmt.Fprintln(stderr, err)
		return exitUsage
	default:
		log.Error("mongoprov %s failed: %v", inv.command, err)
		return exitFailure
	}
}

// parseArgs accepts flags both before and after the command name.
func parseArgs(args []string, stderr io.Writer, interactive bool) (*invocation, error) {
	inv := &invocation{}
	fs := flag.NewFlagSet("mongoprov", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&inv.sources.ConfigFile, "config", "", "YAML config file")
	envFile := fs.String("env-file", ".env", "dotenv file with MONGO_URI and friends")
	fs.StringVar(&inv.overrides.URI, "uri", "", "MongoDB connection string")
	fs.StringVar(&inv.overrides.Database, "db", "", "database name")
	fs.StringVar(&inv.overrides.PlanPath, "plan", "", "plan file (default: embedded plan)")
	fs.StringVar(&inv.overrides.JournalPath, "journal", "", "run journal path")
	fs.StringVar(&inv.overrides.MetricsPath, "metrics-file", "", "Prometheus textfile to write after apply and verify")
	fs.StringVar(&inv.overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&inv.overrides.LogFormat, "log-format", "", "color, text or json")
	fs.BoolVar(&inv.dryRun, "dry-run", false, "apply: report what would be created")
	fs.IntVar(&inv.limit, "limit", 10, "history: number of runs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) > 0 {
		inv.command = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, err
		}
		if fs.NArg() > 0 {
			return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
		}
	}

	if inv.command == "" {
		if !interactive {
			fs.Usage()
			return nil, errors.New("no command given")
		}
		inv.command = "menu"
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "env-file" {
			inv.sources.EnvFileRequired = true
		}
	})
	inv.sources.EnvFile = *envFile
	return inv, nil
}
