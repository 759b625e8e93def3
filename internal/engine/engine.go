// Package engine turns one raw source document into normalized,
// identity-keyed duty facts. It performs no I/O: callers hand it the
// already-fetched document body (HTML markup or extracted PDF page text)
// and collect the facts plus diagnostics. Documents are independent, so
// callers may process several in parallel.
package engine

import (
	"fmt"
	"time"

	"github.com/sagakore/pharmagarde/internal/annuaire"
	"github.com/sagakore/pharmagarde/internal/bulletin"
	"github.com/sagakore/pharmagarde/internal/normalize"
	"github.com/sagakore/pharmagarde/internal/roster"
)

// Document is the engine's input contract: source identity, provenance,
// and exactly one body form (HTML for the directory source, Pages for
// the bulletin source).
type Document struct {
	Source    roster.Source
	URL       string
	ScrapedAt time.Time

	HTML  []byte
	Pages []string

	// Hint forces a bulletin layout when known from the document label.
	Hint bulletin.LayoutHint
	// Strict escalates structure-validation alerts into a failed document.
	Strict bool
}

// Fact pairs a normalized pharmacy with one duty-period assertion. Both
// carry their derived keys; the engine never emits a half-keyed pair.
type Fact struct {
	Pharmacy roster.NormalizedPharmacy
	Duty     roster.DutyPeriod
}

// Result is everything extracted from one document.
type Result struct {
	Facts       []Fact
	Diagnostics []roster.Diagnostic
}

// Process parses, normalizes, and keys one document. Per-entry anomalies
// come back as diagnostics; per-document failures (unparseable date
// context, zero entries, strict-mode structure drift) come back as the
// error.
func Process(doc Document) (*Result, error) {
	if doc.ScrapedAt.IsZero() {
		doc.ScrapedAt = time.Now().UTC()
	}

	switch {
	case doc.HTML != nil:
		return processDirectory(doc)
	case doc.Pages != nil:
		return processBulletin(doc)
	}
	return nil, fmt.Errorf("engine: document %q has no body", doc.URL)
}

func processDirectory(doc Document) (*Result, error) {
	dir, err := annuaire.Extract(doc.HTML, doc.Strict)
	if err != nil {
		return nil, err
	}
	res := &Result{Diagnostics: dir.Diagnostics}
	res.addWeek(doc, dir.WeekStart, dir.WeekEnd, dir.Areas)
	return res, nil
}

func processBulletin(doc Document) (*Result, error) {
	ext, err := bulletin.Extract(doc.Pages, doc.Hint, doc.ScrapedAt.Year())
	if err != nil {
		return nil, err
	}
	res := &Result{Diagnostics: ext.Diagnostics}

	dated := 0
	for _, wk := range ext.Weeks {
		if wk.Start.IsZero() {
			continue
		}
		dated++
		res.addWeek(doc, wk.Start, wk.End, wk.Areas)
	}
	if dated == 0 && len(ext.Weeks) > 0 {
		return nil, fmt.Errorf("engine: document %q carries entries but no parseable week header", doc.URL)
	}
	return res, nil
}

// addWeek normalizes every entry under every area of one duty week and
// appends the resulting facts. Entries that cannot produce both keys are
// excluded with a diagnostic rather than emitted half-keyed.
func (r *Result) addWeek(doc Document, start, end time.Time, areas []*roster.Area) {
	for _, area := range areas {
		for _, raw := range area.Pharmacies {
			pharm, ok := NormalizeEntry(raw)
			if !ok {
				r.Diagnostics = append(r.Diagnostics, roster.Diagnostic{
					Code:   roster.DiagSkippedEntry,
					Detail: fmt.Sprintf("unkeyable entry %q in %q", raw.NameRaw, area.Label),
				})
				continue
			}
			duty := roster.DutyPeriod{
				PharmacyKey: pharm.Key,
				Start:       start,
				End:         end,
				Source:      doc.Source,
				SourceURL:   doc.URL,
				ScrapedAt:   doc.ScrapedAt,
			}
			duty.Key = roster.DutyKey(pharm.Key, start, end, doc.Source)
			r.Facts = append(r.Facts, Fact{Pharmacy: pharm, Duty: duty})
		}
	}
}

// NormalizeEntry projects a raw sighting onto its canonical form. ok is
// false when the normalized name or city is empty, because the identity
// key would degenerate.
func NormalizeEntry(raw roster.RawPharmacyEntry) (roster.NormalizedPharmacy, bool) {
	city, sector, hasSector := normalize.Area(raw.AreaRaw)
	nameNorm := normalize.Text(raw.NameRaw)
	if nameNorm == "" || city == "" {
		return roster.NormalizedPharmacy{}, false
	}
	return roster.NormalizedPharmacy{
		Key:         roster.PharmacyKey(city, nameNorm),
		NameRaw:     raw.NameRaw,
		NameNorm:    nameNorm,
		AddressRaw:  raw.AddressRaw,
		AddressNorm: normalize.Text(raw.AddressRaw),
		AreaRaw:     raw.AreaRaw,
		CityNorm:    city,
		Sector:      sector,
		HasSector:   hasSector,
		PhonesRaw:   raw.PhonesRaw,
		PhonesE164:  normalize.Phones(raw.PhonesRaw),
	}, true
}
