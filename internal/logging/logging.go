// Package logging configures logrus from the application configuration.
package logging

import (
	"io"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vkngwrapper/cubes/internal/config"
)

// Configure applies cfg to logger and sends its output to out.
func Configure(logger *log.Logger, cfg config.LogConfig, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "log level"), config.ErrInvalid)
	}

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return errors.Mark(errors.Newf("unknown log format %q", cfg.Format), config.ErrInvalid)
	}

	logger.SetLevel(level)
	logger.SetOutput(out)
	return nil
}
