package engine

import (
	"log/slog"

	"github.com/cwbudde/algo-nmr/nmr/diag"
	"github.com/cwbudde/algo-nmr/nmr/params"
	"github.com/cwbudde/algo-nmr/nmr/product"
)

// Observer is notified about invalidated products and changed parameters.
type Observer interface {
	ProductsChanged(mask product.Mask, step int)
	ParamChanged(id params.ID, step int)
}

// Config holds the engine settings.
type Config struct {
	Logger   *slog.Logger
	Observer Observer

	// MaxBufferLen bounds the number of complex values of one transform
	// buffer (steps × DFT length).
	MaxBufferLen int
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns a config with a discarding logger and no observer.
func DefaultConfig() Config {
	return Config{
		Logger:       diag.NewDiscardLogger(),
		MaxBufferLen: 1 << 27,
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithObserver installs a change observer.
func WithObserver(o Observer) Option {
	return func(cfg *Config) {
		cfg.Observer = o
	}
}

// WithMaxBufferLen bounds the size of one transform buffer.
func WithMaxBufferLen(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxBufferLen = n
		}
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
