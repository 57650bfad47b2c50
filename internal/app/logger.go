package app

import (
	"strings"

	"github.com/charlesng35/portcullis/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
func ConfigureLogging(level string) error {
	return ConfigureLoggingWithEncoding(level, "")
}

// ConfigureLoggingWithEncoding is ConfigureLogging with an explicit zap encoding ("json" or "console").
func ConfigureLoggingWithEncoding(level, encoding string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(level, logger.Options{Encoding: strings.TrimSpace(encoding)})
}
