package typedarena

import "log/slog"

// Option configures an arena.
type Option func(*config)

type config struct {
	logger *slog.Logger
	name   string
}

// WithLogger sets the logger used for structural events such as growth,
// rollback and capacity exhaustion. Arenas log nothing by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithName attaches a name to the arena's log records.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.name != "" {
		c.logger = c.logger.With("arena", c.name)
	}
	return c
}
