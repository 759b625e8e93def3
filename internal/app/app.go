// Package app wires discovery, fetching, extraction, and storage into
// the collector pipeline the CLI drives.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/sagakore/pharmagarde/internal/annuaire"
	"github.com/sagakore/pharmagarde/internal/bulletin"
	"github.com/sagakore/pharmagarde/internal/cache"
	"github.com/sagakore/pharmagarde/internal/discover"
	"github.com/sagakore/pharmagarde/internal/engine"
	"github.com/sagakore/pharmagarde/internal/fetch"
	"github.com/sagakore/pharmagarde/internal/pdftext"
	"github.com/sagakore/pharmagarde/internal/roster"
	"github.com/sagakore/pharmagarde/internal/store"
)

// ErrNoDocuments is returned when a run finishes without successfully
// processing a single document. Per the exit code policy this maps to a
// non-zero process exit.
var ErrNoDocuments = fmt.Errorf("no documents processed")

type App struct {
	cfg      Config
	pages    *fetch.Client
	download *fetch.Client
	pool     *pgxpool.Pool
	store    *store.Store
	now      func() time.Time
}

func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}

	var docCache *cache.DocCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.Clear(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			_, _ = cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
		}
		docCache = &cache.DocCache{Dir: cfg.CacheDir}
	}

	a.pages = &fetch.Client{
		MaxAttempts:       4,
		PerRequestTimeout: 30 * time.Second,
		Cache:             docCache,
		BypassCache:       cfg.BypassCache,
	}
	// The bulletin host drops TLS on file downloads; a dedicated client
	// keeps the relaxed setting away from page fetches.
	a.download = &fetch.Client{
		MaxAttempts:       4,
		PerRequestTimeout: 2 * time.Minute,
		Cache:             docCache,
		BypassCache:       cfg.BypassCache,
		InsecureTLS:       cfg.InsecureTLS,
	}

	if cfg.DatabaseURL != "" && !cfg.DryRun && !cfg.ValidateOnly {
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		a.store = store.New(pool, log.Logger)
		if err := a.store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Run collects the configured sources. A failing document is logged and
// skipped; the run fails only when nothing was processed.
func (a *App) Run(ctx context.Context) error {
	processed := 0

	if a.cfg.Source == SourceAnnuaire || a.cfg.Source == SourceAll {
		n, err := a.runAnnuaire(ctx)
		if err != nil {
			log.Error().Err(err).Msg("annuaire collection failed")
		}
		processed += n
	}
	if a.cfg.Source == SourceUNPPCI || a.cfg.Source == SourceAll {
		n, err := a.runUNPPCI(ctx)
		if err != nil {
			log.Error().Err(err).Msg("bulletin collection failed")
		}
		processed += n
	}

	if processed == 0 {
		return ErrNoDocuments
	}
	log.Info().Int("documents", processed).Msg("run complete")
	return nil
}

func (a *App) runAnnuaire(ctx context.Context) (int, error) {
	url := a.cfg.AnnuaireURL
	log.Info().Str("url", url).Msg("fetching directory page")
	res, err := a.pages.Get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch directory: %w", err)
	}

	if a.cfg.ValidateOnly {
		alerts := annuaire.ValidateStructure(res.Body)
		for _, alert := range alerts {
			log.Warn().Str("alert", alert).Msg("structure drift")
		}
		if len(alerts) > 0 {
			return 0, fmt.Errorf("directory structure: %d alert(s)", len(alerts))
		}
		log.Info().Msg("directory structure OK")
		return 1, nil
	}

	result, err := engine.Process(engine.Document{
		Source:    roster.SourceAnnuaire,
		URL:       url,
		ScrapedAt: a.now(),
		HTML:      res.Body,
		Strict:    a.cfg.Strict,
	})
	if err != nil {
		return 0, fmt.Errorf("process directory: %w", err)
	}
	if err := a.emit(ctx, roster.SourceAnnuaire, url, result); err != nil {
		return 0, err
	}
	return 1, nil
}

func (a *App) runUNPPCI(ctx context.Context) (int, error) {
	links, err := a.discoverBulletins(ctx)
	if err != nil {
		return 0, err
	}
	if len(links) == 0 {
		return 0, fmt.Errorf("no bulletin PDFs discovered")
	}

	processed := 0
	for _, link := range links {
		if err := a.loadBulletin(ctx, link); err != nil {
			log.Error().Err(err).Str("url", link.URL).Str("label", link.Label).
				Msg("bulletin skipped")
			continue
		}
		processed++
	}
	return processed, nil
}

// discoverBulletins walks the news listing, scans duty articles, and
// returns the PDF links to load.
func (a *App) discoverBulletins(ctx context.Context) ([]discover.PDFLink, error) {
	var articles []discover.Article
	url := a.cfg.UNPPCIListing
	for page := 0; url != "" && page < a.cfg.MaxPages; page++ {
		log.Info().Str("url", url).Int("page", page+1).Msg("scanning article listing")
		res, err := a.pages.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch listing: %w", err)
		}
		listing, err := discover.ParseListing(res.Body, url)
		if err != nil {
			return nil, err
		}
		articles = append(articles, listing.Articles...)
		url = listing.NextURL
	}

	garde := discover.GardeOnly(articles)
	if len(garde) > a.cfg.MaxArticles {
		garde = garde[:a.cfg.MaxArticles]
	}
	log.Info().Int("total", len(articles)).Int("garde", len(garde)).Msg("articles discovered")

	var links []discover.PDFLink
	seen := map[string]bool{}
	for i := range garde {
		art := garde[i]
		res, err := a.pages.Get(ctx, art.URL)
		if err != nil {
			log.Warn().Err(err).Int("article", art.ID).Msg("article fetch failed")
			continue
		}
		found, err := discover.PDFLinks(res.Body, art.URL, &art)
		if err != nil {
			log.Warn().Err(err).Int("article", art.ID).Msg("article parse failed")
			continue
		}
		for _, l := range found {
			if l.IsGarde && !seen[l.URL] {
				seen[l.URL] = true
				links = append(links, l)
			}
		}
	}

	if !a.cfg.AllMonths {
		filtered := discover.FilterCurrentMonth(links, a.now())
		if len(filtered) < 2 {
			log.Warn().Int("found", len(filtered)).
				Str("month", discover.MonthLabel(a.now())).
				Msg("fewer bulletins than expected; month may not be published yet")
		}
		links = filtered
	}
	return links, nil
}

func (a *App) loadBulletin(ctx context.Context, link discover.PDFLink) error {
	if a.store != nil && !a.cfg.Force {
		done, err := a.store.AlreadyIngested(ctx, roster.SourceUNPPCI, link.URL)
		if err != nil {
			log.Warn().Err(err).Msg("ingestion check failed, continuing")
		} else if done {
			log.Info().Str("url", link.URL).Msg("already ingested, skipping")
			return nil
		}
	}

	log.Info().Str("label", link.Label).Str("url", link.URL).Msg("downloading bulletin")
	res, err := a.download.Get(ctx, link.URL)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	pages, err := pdftext.Pages(res.Body)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	hint := bulletin.HintAbidjan
	if discover.IsInterieur(link) {
		hint = bulletin.HintInterieur
	}
	result, err := engine.Process(engine.Document{
		Source:    roster.SourceUNPPCI,
		URL:       link.URL,
		ScrapedAt: a.now(),
		Pages:     pages,
		Hint:      hint,
	})
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	return a.emit(ctx, roster.SourceUNPPCI, link.URL, result)
}

// emit delivers one processed document: upsert into the database, or the
// JSON payload in dry-run mode.
func (a *App) emit(ctx context.Context, source roster.Source, url string, result *engine.Result) error {
	for _, d := range result.Diagnostics {
		log.Debug().Str("code", d.Code).Str("detail", d.Detail).Msg("diagnostic")
	}

	if a.store == nil {
		return a.writePayload(source, url, result)
	}

	facts := make([]store.Fact, len(result.Facts))
	for i, f := range result.Facts {
		facts[i] = store.Fact{Pharmacy: f.Pharmacy, Duty: f.Duty}
	}
	counts, err := a.store.Load(ctx, facts)
	if err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	log.Info().Str("url", url).
		Int("pharmacies", counts.Pharmacies).Int("duties", counts.Duties).
		Msg("document loaded")
	return nil
}

type payload struct {
	Source      roster.Source       `json:"source"`
	SourceURL   string              `json:"source_url"`
	Facts       []engine.Fact       `json:"facts"`
	Diagnostics []roster.Diagnostic `json:"diagnostics,omitempty"`
}

func (a *App) writePayload(source roster.Source, url string, result *engine.Result) error {
	p := payload{Source: source, SourceURL: url, Facts: result.Facts, Diagnostics: result.Diagnostics}
	out := os.Stdout
	if a.cfg.OutputPath != "" {
		f, err := os.OpenFile(a.cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
