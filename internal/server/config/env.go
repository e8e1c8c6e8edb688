package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envFileVar names the variable pointing at an optional dotenv file.
const envFileVar = "AUTHKEEPER_ENV_FILE"

// parseEnv loads the dotenv file (".env" unless AUTHKEEPER_ENV_FILE says
// otherwise; a missing file is fine) and then overlays every AUTHKEEPER_*
// variable present in the environment. Variables already set in the process
// environment win over the dotenv file. Unset variables leave the field alone.
func parseEnv(cfg *Config) error {
	path := os.Getenv(envFileVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return env.Parse(cfg)
}
