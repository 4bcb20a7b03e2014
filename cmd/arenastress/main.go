// Command arenastress allocates into a shared FastArena from many goroutines
// and checks that every reservation is disjoint and fully published.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/pavanmanishd/typedarena"
	"github.com/pavanmanishd/typedarena/internal/flagenv"
	"github.com/spf13/pflag"
)

var (
	EnvPrefix   = "ARENASTRESS_"
	Workers     = pflag.IntP("workers", "w", 8, "number of allocating goroutines")
	Allocs      = pflag.IntP("allocs", "n", 10000, "values allocated by each worker per round")
	Batch       = pflag.IntP("batch", "b", 1, "values per allocation call (1 uses TryAlloc, more uses AllocSlice)")
	Capacity    = pflag.IntP("capacity", "c", typedarena.DefaultCapacity, "initial arena capacity")
	Rounds      = pflag.IntP("rounds", "r", 10, "rounds to run, rolling back after each")
	MetricsAddr = pflag.String("metrics-addr", "", "serve prometheus metrics on this address (empty to disable)")
	LogLevel    = flagenv.LevelP(pflag.CommandLine, "log-level", "L", slog.LevelInfo, "log level")
	LogJSON     = pflag.Bool("log-json", false, "use json logs")
	Help        = pflag.BoolP("help", "h", false, "show this help text")
)

func main() {
	if err := parseArgs(pflag.CommandLine, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *Help || pflag.NArg() != 0 {
		fmt.Printf("usage: %s [options]\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		if *Help {
			return
		}
		os.Exit(2)
	}

	cfg := config{
		Workers:     *Workers,
		Allocs:      *Allocs,
		Batch:       *Batch,
		Capacity:    *Capacity,
		Rounds:      *Rounds,
		MetricsAddr: *MetricsAddr,
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *LogJSON {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: LogLevel,
		})))
	} else {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: LogLevel,
		})))
	}
	slog.SetLogLoggerLevel(LogLevel.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, slog.Default())
	stop()
	if err != nil {
		slog.Error("stress run failed", "error", err)
		os.Exit(1)
	}
}

// parseArgs parses the command line, then fills flags it left unset from
// EnvPrefix environment variables.
func parseArgs(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	return flagenv.ParseEnv(fs, EnvPrefix)
}
