package app

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads dotenv files into the process environment. Missing
// files are not an error; existing environment variables are preserved.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv fills unset Config fields from the environment.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.AnnuaireURL == "" {
		cfg.AnnuaireURL = os.Getenv("ANNUAIRE_URL")
	}
	if cfg.UNPPCIListing == "" {
		cfg.UNPPCIListing = os.Getenv("UNPPCI_LISTING_URL")
	}
}
