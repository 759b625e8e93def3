// parsebulletin extracts one local bulletin PDF to JSON on stdout. It is
// the debugging companion to the full collector: point it at a downloaded
// file and inspect exactly what the parser sees.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sagakore/pharmagarde/internal/bulletin"
	"github.com/sagakore/pharmagarde/internal/engine"
	"github.com/sagakore/pharmagarde/internal/pdftext"
	"github.com/sagakore/pharmagarde/internal/roster"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		layout  string
		rawOnly bool
		year    int
	)
	flag.StringVar(&layout, "layout", "auto", "Bulletin layout: auto, abidjan, or interieur")
	flag.BoolVar(&rawOnly, "raw", false, "Print the extraction tree instead of normalized facts")
	flag.IntVar(&year, "year", time.Now().Year(), "Context year for week headers without one")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Error().Msg("usage: parsebulletin [flags] <bulletin.pdf>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	hint := bulletin.HintAuto
	switch layout {
	case "abidjan":
		hint = bulletin.HintAbidjan
	case "interieur":
		hint = bulletin.HintInterieur
	case "auto":
	default:
		log.Error().Str("layout", layout).Msg("unknown layout")
		os.Exit(1)
	}

	pages, err := pdftext.PagesFromFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("extract text")
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if rawOnly {
		res, err := bulletin.Extract(pages, hint, year)
		if err != nil {
			log.Error().Err(err).Msg("parse bulletin")
			os.Exit(2)
		}
		if err := enc.Encode(res); err != nil {
			log.Error().Err(err).Msg("encode")
			os.Exit(2)
		}
		return
	}

	result, err := engine.Process(engine.Document{
		Source:    roster.SourceUNPPCI,
		URL:       "file://" + path,
		ScrapedAt: time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC),
		Pages:     pages,
		Hint:      hint,
	})
	if err != nil {
		log.Error().Err(err).Msg("process bulletin")
		os.Exit(2)
	}
	if err := enc.Encode(result); err != nil {
		log.Error().Err(err).Msg("encode")
		os.Exit(2)
	}
}
