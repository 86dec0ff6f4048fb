// cmd/stacker/main.go
//
// Entry point for the stacker CLI. It reads stacker.yaml (or the defaults),
// applies command line overrides, then writes every configured output.
//
//	stacker -init                      write a starter stacker.yaml
//	stacker                            run the configured outputs
//	stacker -source part.gcode -out stack4.gcode=4 -out stack20.gcode=20

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/kingrea/stacker/internal/config"
	"github.com/kingrea/stacker/internal/logbook"
	"github.com/kingrea/stacker/internal/stacker"
	"github.com/kingrea/stacker/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultFileName, "path to the stacker YAML configuration")
	initConfig := flag.Bool("init", false, "write a default configuration file and exit")
	source := flag.String("source", "", "g-code file to read (overrides config)")
	unit := flag.Float64("unit", 0, "height of one repetition in mm (overrides config)")
	gap := flag.Float64("gap", 0, "air gap between repetitions in mm (overrides config)")
	lenient := flag.Bool("lenient", false, "copy files with missing markers instead of failing")
	plain := flag.Bool("plain", false, "print plain progress lines even on a terminal")
	outputs := outputFlag{}
	flag.Var(&outputs, "out", "output to write as path=count (repeatable, replaces configured outputs)")
	flag.Parse()

	if *initConfig {
		created, err := config.Init(*configPath)
		if err != nil {
			die("init config: %v", err)
		}
		if created {
			fmt.Printf("Wrote %s\n", *configPath)
		} else {
			fmt.Printf("%s already exists, leaving it alone\n", *configPath)
		}
		return
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := loadConfig(*configPath, set["config"])
	if err != nil {
		die("load config: %v", err)
	}
	if set["source"] {
		if err := cfg.SetSource(*source); err != nil {
			die("%v", err)
		}
	}
	if set["unit"] {
		cfg.UnitHeight = *unit
	}
	if set["gap"] {
		cfg.GapHeight = *gap
	}
	if set["lenient"] {
		cfg.LenientMarkers = *lenient
	}
	if len(outputs) > 0 {
		if err := cfg.SetOutputs(outputs); err != nil {
			die("%v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		die("%v", err)
	}

	book, err := logbook.New(cfg.LogFile)
	if err != nil {
		die("open log: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var results []stacker.Result
	if !*plain && isatty.IsTerminal(os.Stdout.Fd()) {
		results, err = tui.Run(ctx, cfg, book, os.Stdout)
	} else {
		results, err = runPlain(ctx, cfg, book)
	}
	if len(results) == 0 && err != nil {
		stop()
		die("%v", err)
	}
	fmt.Print(tui.RenderSummary(results, err))
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func runPlain(ctx context.Context, cfg *config.Config, book *logbook.Logbook) ([]stacker.Result, error) {
	reporter := tui.NewPlainReporter(os.Stdout, len(cfg.Outputs))
	runner, err := stacker.New(cfg, stacker.WithObserver(reporter), stacker.WithLogbook(book))
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}

// loadConfig reads path. A missing file falls back to the built-in defaults
// unless the user named the file explicitly.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	return config.Default(cwd), nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// outputFlag collects repeated -out path=count values in order.
type outputFlag []config.Output

func (o *outputFlag) String() string {
	if o == nil || len(*o) == 0 {
		return ""
	}
	var pairs []string
	for _, out := range *o {
		pairs = append(pairs, fmt.Sprintf("%s=%d", out.Path, out.Count))
	}
	return strings.Join(pairs, ", ")
}

func (o *outputFlag) Set(value string) error {
	idx := strings.LastIndex(value, "=")
	if idx < 0 {
		return fmt.Errorf("expected path=count, got %q", value)
	}
	path := strings.TrimSpace(value[:idx])
	if path == "" {
		return fmt.Errorf("output path is empty in %q", value)
	}
	count, err := strconv.Atoi(strings.TrimSpace(value[idx+1:]))
	if err != nil {
		return fmt.Errorf("count in %q: %w", value, err)
	}
	if count < 0 {
		return fmt.Errorf("count in %q must be >= 0", value)
	}
	*o = append(*o, config.Output{Path: path, Count: count})
	return nil
}
