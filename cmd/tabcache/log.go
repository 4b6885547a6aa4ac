package main

import (
	"io"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	goerrors "github.com/goliatone/go-errors"
)

// logConfig is read from the process environment before flags are parsed.
type logConfig struct {
	Level  string `env:"TABCACHE_LOG_LEVEL" envDefault:"warn"`
	Format string `env:"TABCACHE_LOG_FORMAT" envDefault:"text"`
}

func newLogger(w io.Writer) (*log.Logger, error) {
	cfg, err := env.ParseAs[logConfig]()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "error parsing log environment")
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, goerrors.NewValidation("invalid log configuration",
			goerrors.FieldError{Field: "TABCACHE_LOG_LEVEL", Message: err.Error(), Value: cfg.Level},
		)
	}

	var formatter log.Formatter
	switch strings.ToLower(cfg.Format) {
	case "text", "":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, goerrors.NewValidation("invalid log configuration",
			goerrors.FieldError{Field: "TABCACHE_LOG_FORMAT", Message: "must be text, json or logfmt", Value: cfg.Format},
		)
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          "tabcache",
		ReportTimestamp: level <= log.DebugLevel,
	}), nil
}
