package configuration

import (
	"os"

	"github.com/joho/godotenv"

	"social-publisher/infrastructure/logger"
)

// LoadEnvFromFile loads KEY=VALUE pairs from the given files (e.g. config.env, .env).
// Missing files are skipped. Variables already set in the process are not overridden.
func LoadEnvFromFile(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.GetLogger().WithField("file", p).WithField("error", err).Warn("Failed to load env file")
			continue
		}
		logger.GetLogger().WithField("file", p).Info("Loaded env file")
	}
}
