package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sagakore/pharmagarde/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		source       string
		annuaireURL  string
		listingURL   string
		maxArticles  int
		maxPages     int
		allMonths    bool
		dryRun       bool
		validateOnly bool
		strict       bool
		force        bool
		outputPath   string
		cacheDir     string
		cacheMaxAge  time.Duration
		cacheClear   bool
		bypassCache  bool
		dbURL        string
		insecureTLS  bool
		configPath   string
		envFile      string
		verbose      bool
		debugVerbose bool
	)

	flag.StringVar(&source, "source", app.SourceAll, "Source to collect: annuaireci, unppci, or all")
	flag.StringVar(&annuaireURL, "annuaire.url", app.DefaultAnnuaireURL, "Weekly directory page URL")
	flag.StringVar(&listingURL, "unppci.listing", app.DefaultUNPPCIListing, "Bulletin article listing URL")
	flag.IntVar(&maxArticles, "unppci.maxArticles", app.DefaultMaxArticles, "Maximum duty articles to scan")
	flag.IntVar(&maxPages, "unppci.maxPages", app.DefaultMaxPages, "Maximum listing pages to paginate")
	flag.BoolVar(&allMonths, "all-months", false, "Load every discovered bulletin instead of only the current month's pair")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse and print JSON facts without touching the database")
	flag.BoolVar(&validateOnly, "validate-only", false, "Check the directory page structure and exit")
	flag.BoolVar(&strict, "strict", false, "Abort a document on structure-validation alerts")
	flag.BoolVar(&force, "force", false, "Reload documents already present in the database")
	flag.StringVar(&outputPath, "output", "", "Dry-run JSON output path (default stdout)")
	flag.StringVar(&cacheDir, "cache.dir", app.DefaultCacheDir, "Cache directory path")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&bypassCache, "cache.bypass", false, "Fetch fresh, skipping conditional revalidation")
	flag.StringVar(&dbURL, "db.url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	flag.BoolVar(&insecureTLS, "insecure-tls", true, "Skip TLS verification on bulletin downloads (the host serves a broken chain)")
	flag.StringVar(&configPath, "config", "", "Optional YAML or JSON config file")
	flag.StringVar(&envFile, "env", ".env", "Dotenv file to load before reading the environment")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&debugVerbose, "debug-verbose", false, "Log every classified line and diagnostic")
	flag.Parse()

	switch {
	case debugVerbose:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.LoadEnvFiles(envFile); err != nil {
		log.Error().Err(err).Msg("load env file")
		os.Exit(1)
	}

	cfg := app.Config{
		Source:        source,
		AnnuaireURL:   annuaireURL,
		UNPPCIListing: listingURL,
		MaxArticles:   maxArticles,
		MaxPages:      maxPages,
		AllMonths:     allMonths,
		DryRun:        dryRun,
		ValidateOnly:  validateOnly,
		Strict:        strict,
		Force:         force,
		OutputPath:    outputPath,
		CacheDir:      cacheDir,
		CacheMaxAge:   cacheMaxAge,
		CacheClear:    cacheClear,
		BypassCache:   bypassCache,
		DatabaseURL:   dbURL,
		InsecureTLS:   insecureTLS,
		Verbose:       verbose,
		DebugVerbose:  debugVerbose,
	}

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnv(&cfg)

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(2)
	}
}

func run(cfg app.Config) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
