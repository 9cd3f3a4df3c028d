// Package main is the tabledb command line tool.
//
// tabledb stores schema-light tables in a single file and answers single-field
// queries from in-memory indexes. It runs one-shot commands, an interactive
// shell, or an HTTP server. Configuration is read from a YAML file and can be
// overridden with flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/tabledb/internal/config"
	"github.com/maruel/tabledb/internal/storage"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tabledb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "tabledb.yaml", "Configuration file; ignored when missing")
	dbPath := flag.String("db", "", "Database file (.json, .yaml, .yml, .msgpack or .mpk)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	httpAddr := flag.String("http", "", "Address for serve to listen on (e.g., localhost:8080)")
	watch := flag.Bool("watch", false, "Reload the database when the file changes on disk (serve, shell)")
	history := flag.Bool("history", false, "Commit the database file to git after every change")
	rateLimit := flag.Int("rate-limit", 0, "API requests per minute per client for serve; 0 disables")
	flag.Usage = usage
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch t := a.Value.Any().(type) {
			case string:
				if t == "" {
					return slog.Attr{}
				}
			case time.Duration:
				if t == 0 {
					return slog.Attr{}
				}
			case nil:
				return slog.Attr{}
			}
			return a
		},
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Flags explicitly set win over the configuration file.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if set["db"] {
		cfg.Path = *dbPath
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if set["http"] {
		cfg.HTTP = *httpAddr
	}
	if set["watch"] {
		cfg.Watch = *watch
	}
	if set["history"] {
		cfg.History = *history
	}
	if set["rate-limit"] {
		cfg.RateLimitPerMin = *rateLimit
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	ll.Set(level)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}
	cmd, ok := lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q; see -help", args[0])
	}
	if cmd.name == "schema" {
		return cmd.run(ctx, &env{out: os.Stdout, cfg: cfg}, nil)
	}

	db, err := storage.OpenDatabase(cfg.Path, storage.Options{History: cfg.History})
	if err != nil {
		return err
	}
	e := &env{db: db, out: os.Stdout, in: os.Stdin, cfg: cfg}
	return e.exec(ctx, cmd, args[1:])
}

func usage() {
	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintf(out, "usage: tabledb [flags] <command> [args]\n\nCommands:\n")
	for _, c := range commands {
		_, _ = fmt.Fprintf(out, "  %-10s %s\n", c.name, c.usage)
	}
	_, _ = fmt.Fprintf(out, "\nFlags:\n")
	flag.PrintDefaults()
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("tabledb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
