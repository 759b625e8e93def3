// Package bulletin reconstructs pharmacy duty records from the text of
// the monthly PDF bulletins. Two structurally different documents are
// published: the Abidjan edition groups entries under standalone zone
// headers, while the Interieur edition prints the city and pharmacy on a
// single combined line. Each is handled by its own Layout implementation
// behind a shared page walk.
package bulletin

import (
	"fmt"
	"strings"
	"time"

	"github.com/sagakore/pharmagarde/internal/dateparse"
	"github.com/sagakore/pharmagarde/internal/normalize"
	"github.com/sagakore/pharmagarde/internal/roster"
)

// LayoutHint lets the caller force a layout when it is known from the
// document label; HintAuto runs the detector.
type LayoutHint int

const (
	HintAuto LayoutHint = iota
	HintAbidjan
	HintInterieur
)

// EmptyExtractionError means a non-empty document produced zero pharmacy
// entries, which almost always signals a layout change upstream rather
// than bad input bytes. Fatal for the document, recoverable for the run.
type EmptyExtractionError struct {
	Layout string
	Lines  int
}

func (e *EmptyExtractionError) Error() string {
	return fmt.Sprintf("bulletin: no pharmacy entries recovered (%s layout, %d non-blank lines)", e.Layout, e.Lines)
}

// Result is the reconstructed document: duty weeks with zone-grouped raw
// entries, plus diagnostics for everything that was skipped.
type Result struct {
	Layout      string
	Weeks       []*roster.Week
	Diagnostics []roster.Diagnostic
}

// Layout turns classified lines into entries. Implementations mutate the
// shared document state; the page walk owns week handling and
// boilerplate skipping.
type Layout interface {
	Name() string
	consume(st *state, kind LineKind, line string, page int)
}

// Extract classifies every line of every page and reconstructs the duty
// weeks. contextYear feeds date resolution when a week header omits its
// year.
func Extract(pages []string, hint LayoutHint, contextYear int) (*Result, error) {
	layout := pickLayout(pages, hint)
	st := &state{areaByName: map[string]*roster.Area{}}

	nonBlank := 0
	for pageNum, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			line := normalize.Clean(raw)
			if line == "" {
				continue
			}
			nonBlank++

			kind := Classify(line)
			switch kind {
			case KindWeek:
				if err := st.startWeek(line, contextYear); err != nil {
					return nil, err
				}
			case KindBoilerplate:
				// page furniture, section banners
			case KindNoise:
				st.diag(roster.DiagUnclassifiableLine, line, pageNum+1)
			default:
				if st.week == nil {
					// entry material before any week header: open an
					// undated week so the entries are not lost; the
					// caller decides whether a missing date context is
					// fatal
					st.week = &roster.Week{}
					st.weeks = append(st.weeks, st.week)
				}
				layout.consume(st, kind, line, pageNum+1)
			}
		}
	}

	if st.entries == 0 && nonBlank > 0 {
		return nil, &EmptyExtractionError{Layout: layout.Name(), Lines: nonBlank}
	}
	return &Result{Layout: layout.Name(), Weeks: st.weeks, Diagnostics: st.diags}, nil
}

// DetectLayout inspects the pages and picks the layout whose signature
// line shape dominates: combined "CITY PHCIE ..." lines mean the
// Interieur edition, standalone zone headers the Abidjan one.
func DetectLayout(pages []string) Layout {
	combined, zones := 0, 0
	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			line := normalize.Clean(raw)
			switch Classify(line) {
			case KindCityPharmacy:
				combined++
			case KindZone:
				zones++
			}
		}
	}
	if combined > zones {
		return interieurLayout{}
	}
	return abidjanLayout{}
}

func pickLayout(pages []string, hint LayoutHint) Layout {
	switch hint {
	case HintAbidjan:
		return abidjanLayout{}
	case HintInterieur:
		return interieurLayout{}
	default:
		return DetectLayout(pages)
	}
}

// state is the document-scoped accumulator shared by the page walk and
// the layouts.
type state struct {
	weeks      []*roster.Week
	week       *roster.Week
	area       *roster.Area
	areaByName map[string]*roster.Area
	entries    int
	diags      []roster.Diagnostic
}

// startWeek opens a new week section unless the header repeats the
// current one, which the bulletins do on every page.
func (st *state) startWeek(line string, contextYear int) error {
	start, end, err := dateparse.WeekRange(line, contextYear)
	if err != nil {
		return err
	}
	if st.week != nil && sameDay(st.week.Start, start) && sameDay(st.week.End, end) {
		return nil
	}
	st.week = &roster.Week{Start: start, End: end}
	st.weeks = append(st.weeks, st.week)
	st.area = nil
	st.areaByName = map[string]*roster.Area{}
	return nil
}

// openArea returns the area for label within the current week, creating
// it on first sight. The Interieur edition interleaves cities, so areas
// are keyed, not strictly sequential.
func (st *state) openArea(label string) *roster.Area {
	key := strings.ToUpper(strings.TrimSpace(label))
	if a, ok := st.areaByName[key]; ok {
		st.area = a
		return a
	}
	a := &roster.Area{Label: strings.TrimSpace(label)}
	st.week.Areas = append(st.week.Areas, a)
	st.areaByName[key] = a
	st.area = a
	return a
}

func (st *state) addEntry(area *roster.Area, name string, phones []string) {
	area.Pharmacies = append(area.Pharmacies, roster.RawPharmacyEntry{
		NameRaw:   name,
		PhonesRaw: phones,
		AreaRaw:   area.Label,
	})
	st.entries++
}

func (st *state) lastEntry() *roster.RawPharmacyEntry {
	if st.area == nil || len(st.area.Pharmacies) == 0 {
		return nil
	}
	return &st.area.Pharmacies[len(st.area.Pharmacies)-1]
}

func (st *state) diag(code, detail string, page int) {
	st.diags = append(st.diags, roster.Diagnostic{Code: code, Detail: detail, Page: page})
}

func sameDay(a, b time.Time) bool {
	return a.Equal(b)
}
