package app

import "time"

// Source selection values for Config.Source.
const (
	SourceAnnuaire = "annuaireci"
	SourceUNPPCI   = "unppci"
	SourceAll      = "all"
)

// Config holds runtime configuration for the collector.
type Config struct {
	// Source selects which origin(s) to collect: annuaireci, unppci, all.
	Source string

	// AnnuaireURL is the weekly directory page.
	AnnuaireURL string
	// UNPPCIListing is the news category page where bulletin articles appear.
	UNPPCIListing string

	// MaxArticles caps how many duty articles are scanned per run.
	MaxArticles int
	// MaxPages caps listing pagination.
	MaxPages int
	// AllMonths disables the current-month bulletin filter.
	AllMonths bool

	// Behavior
	DryRun       bool
	ValidateOnly bool
	Strict       bool
	// Force reloads documents already present in the database.
	Force bool
	// OutputPath receives the JSON payload in dry-run mode. Empty means stdout.
	OutputPath string

	// Cache
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool
	BypassCache bool

	// Database
	DatabaseURL string

	// InsecureTLS disables certificate checks for bulletin downloads.
	InsecureTLS bool

	Verbose      bool
	DebugVerbose bool
}
