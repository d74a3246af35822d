package login

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// LogConfig is the logging configuration for one process invocation. It is
// built once by the CLI layer and read thereafter; the core never mutates
// global logger state based on flags.
type LogConfig struct {
	// Verbose counts -v occurrences. 0 = warnings, 1 = info, 2+ = debug.
	Verbose int
}

func (c *LogConfig) level() log.Level {
	switch {
	case c.Verbose <= 0:
		return log.WarnLevel
	case c.Verbose == 1:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

// ConfigureConsole points the logger at stderr for foreground commands.
func (c *LogConfig) ConfigureConsole() {
	log.SetOutput(os.Stderr)
	log.SetLevel(c.level())
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp:       true,
		DisableQuote:           true,
		DisableLevelTruncation: true,
	})
}

// configureFile redirects logging to the per-profile log file. The refresh
// daemon has no attached console, so this is its only output channel.
func configureFile(profileName string) (string, error) {
	dir, err := loginDir()
	if err != nil {
		return "", err
	}

	logfile := filepath.Join(dir, logDirName, profileName+".log")
	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return "", err
	}

	log.SetOutput(f)
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:          true,
		DisableQuote:           true,
		DisableLevelTruncation: true,
	})
	return logfile, nil
}
