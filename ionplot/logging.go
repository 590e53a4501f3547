package main

import (
	"io"
	"log"
	"os"

	"github.com/itohio/ionplot/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging sends the standard logger to stderr and, when a log file is
// configured, to a size rotated file as well. The returned closer is nil when
// no file is used.
func setupLogging(cfg config.LogConfig) io.Closer {
	log.SetFlags(log.LstdFlags)
	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes after which a new file is created
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return rotating
}
