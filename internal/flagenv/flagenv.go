// Package flagenv implements extensions to pflag.
package flagenv

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/pflag"
)

// LevelP defines a slog level flag on fs. The flag accepts anything
// slog.Level.UnmarshalText does, such as "debug" or "warn+2".
func LevelP(fs *pflag.FlagSet, name, shorthand string, value slog.Level, usage string) *slog.LevelVar {
	level := new(slog.LevelVar)
	def := new(slog.LevelVar)
	def.Set(value)
	fs.TextVarP(level, name, shorthand, def, usage)
	return level
}

// ParseEnv sets flags on fs from environment variables named prefix followed
// by the upper-cased flag name with dashes as underscores, so that
// ARENASTRESS_LOG_LEVEL sets --log-level. Unknown names are reported to the
// flag set's output and skipped. Flags already set on the command line are
// left alone, so call it after fs.Parse.
func ParseEnv(fs *pflag.FlagSet, prefix string) error {
	return parseEnv(fs, prefix, os.Environ())
}

func parseEnv(fs *pflag.FlagSet, prefix string, environ []string) error {
	for _, env := range environ {
		k, v, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		s, ok := strings.CutPrefix(k, prefix)
		if !ok || s == "" {
			continue
		}
		n := strings.Map(func(r rune) rune {
			switch r {
			case '_':
				return '-'
			}
			return unicode.ToLower(r)
		}, s)
		f := fs.Lookup(n)
		if f == nil {
			fmt.Fprintf(fs.Output(), "env %s: unknown flag --%s\n", k, n)
			continue
		}
		if f.Changed {
			continue
		}
		if err := fs.Set(n, v); err != nil {
			return fmt.Errorf("env %s: flag --%s: invalid argument: %w", k, n, err)
		}
	}
	return nil
}
