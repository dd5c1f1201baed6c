package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultConfigPath is the default path to the config file
	DefaultAppName        = "chatllms"
	DefaultAppCMDShortCut = "chatllms"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultDataDir        = "./data"
	DefaultStorePath      = filepath.Join(DefaultConfigPath, "runs.db")

	// Default store settings
	DefaultStoreDSN = "file:" + DefaultStorePath
)

// IgnoreIndex is the label value excluded from the loss. It can never be a
// vocabulary id.
const IgnoreIndex int64 = -100

// Special token strings used when a tokenizer does not define its own.
const (
	DefaultPadToken = "[PAD]"
	DefaultEOSToken = "</s>"
	DefaultBOSToken = "<s>"
	DefaultUNKToken = "<unk>"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// GetLevelLogger returns GetLogger filtered to the named level. Unknown or
// empty names keep the info level.
func GetLevelLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return GetLogger().Level(lvl)
}
