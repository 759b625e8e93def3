package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections map
// naturally to the flag names.
type FileConfig struct {
	Source string `yaml:"source" json:"source"`

	Annuaire struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"annuaire" json:"annuaire"`

	UNPPCI struct {
		Listing     string `yaml:"listing" json:"listing"`
		MaxArticles int    `yaml:"maxArticles" json:"maxArticles"`
		MaxPages    int    `yaml:"maxPages" json:"maxPages"`
		AllMonths   bool   `yaml:"allMonths" json:"allMonths"`
		InsecureTLS *bool  `yaml:"insecureTLS" json:"insecureTLS"`
	} `yaml:"unppci" json:"unppci"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	DB struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"db" json:"db"`

	Output  string `yaml:"output" json:"output"`
	DryRun  bool   `yaml:"dryRun" json:"dryRun"`
	Strict  bool   `yaml:"strict" json:"strict"`
	Verbose bool   `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// Flag defaults that file config may override when the flag was not set
// explicitly.
const (
	DefaultAnnuaireURL   = "https://www.annuaireci.com/pharmacies-de-garde/abidjan"
	DefaultUNPPCIListing = "https://www.unppci.org/?cat=1&rw=actualites"
	DefaultCacheDir      = ".pharmagarde-cache"
	DefaultMaxArticles   = 3
	DefaultMaxPages      = 3
)

// ApplyFileConfig overlays file values into cfg for fields still at their
// flag defaults, so explicit flags always win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if (cfg.Source == "" || cfg.Source == SourceAll) && fc.Source != "" {
		cfg.Source = fc.Source
	}
	if (cfg.AnnuaireURL == "" || cfg.AnnuaireURL == DefaultAnnuaireURL) && fc.Annuaire.URL != "" {
		cfg.AnnuaireURL = fc.Annuaire.URL
	}
	if (cfg.UNPPCIListing == "" || cfg.UNPPCIListing == DefaultUNPPCIListing) && fc.UNPPCI.Listing != "" {
		cfg.UNPPCIListing = fc.UNPPCI.Listing
	}
	if (cfg.MaxArticles == 0 || cfg.MaxArticles == DefaultMaxArticles) && fc.UNPPCI.MaxArticles > 0 {
		cfg.MaxArticles = fc.UNPPCI.MaxArticles
	}
	if (cfg.MaxPages == 0 || cfg.MaxPages == DefaultMaxPages) && fc.UNPPCI.MaxPages > 0 {
		cfg.MaxPages = fc.UNPPCI.MaxPages
	}
	if !cfg.AllMonths && fc.UNPPCI.AllMonths {
		cfg.AllMonths = true
	}
	if fc.UNPPCI.InsecureTLS != nil {
		cfg.InsecureTLS = *fc.UNPPCI.InsecureTLS
	}
	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if cfg.DatabaseURL == "" && fc.DB.URL != "" {
		cfg.DatabaseURL = fc.DB.URL
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Strict && fc.Strict {
		cfg.Strict = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig checks required settings. Dry-run and validate-only
// modes may omit the database URL.
func ValidateConfig(cfg Config) error {
	switch cfg.Source {
	case SourceAnnuaire, SourceUNPPCI, SourceAll:
	default:
		return fmt.Errorf("config: unknown source %q", cfg.Source)
	}
	if cfg.Source != SourceUNPPCI && strings.TrimSpace(cfg.AnnuaireURL) == "" {
		return errors.New("config: annuaire.url is required")
	}
	if cfg.Source != SourceAnnuaire && strings.TrimSpace(cfg.UNPPCIListing) == "" {
		return errors.New("config: unppci.listing is required")
	}
	if !cfg.DryRun && !cfg.ValidateOnly && strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: db.url is required (or set DATABASE_URL, or use -dry-run)")
	}
	if cfg.MaxArticles < 0 || cfg.MaxPages < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
