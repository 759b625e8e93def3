// Package annuaire extracts the weekly duty roster from the HTML
// directory page. The page lays zones out as level-3 headings, each
// followed by level-4 pharmacy headings with address and phone text, and
// announces the week as "Semaine du DD/MM/YYYY au DD/MM/YYYY" near the
// top.
package annuaire

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/sagakore/pharmagarde/internal/dateparse"
	"github.com/sagakore/pharmagarde/internal/normalize"
	"github.com/sagakore/pharmagarde/internal/roster"
)

// StructureError reports that the page no longer matches the structure
// this extractor was tuned for. In strict mode the caller aborts the
// document; otherwise extraction continues best-effort with the alerts
// attached as diagnostics.
type StructureError struct {
	Alerts []string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("annuaire: page structure changed: %s", strings.Join(e.Alerts, "; "))
}

// anchorText opens the roster section; stopTitles close it.
const anchorText = "Liste des pharmacies de garde"

var stopTitles = map[string]struct{}{
	"Urgence":                  {},
	"Horaires":                 {},
	"Localisation":             {},
	"Rechercher une pharmacie": {},
	"Questions fréquentes":     {},
}

// Directory is the extracted page: one announced week and its
// zone-grouped raw entries.
type Directory struct {
	WeekStart   time.Time
	WeekEnd     time.Time
	Areas       []*roster.Area
	Diagnostics []roster.Diagnostic
}

// Extract parses the directory page. Strict mode promotes structure
// alerts to a *StructureError before any parsing happens.
func Extract(page []byte, strict bool) (*Directory, error) {
	alerts := ValidateStructure(page)
	if strict && len(alerts) > 0 {
		return nil, &StructureError{Alerts: alerts}
	}

	items, err := linearize(page)
	if err != nil {
		return nil, fmt.Errorf("annuaire: parse html: %w", err)
	}

	dir := &Directory{}
	for _, a := range alerts {
		dir.Diagnostics = append(dir.Diagnostics, roster.Diagnostic{Code: roster.DiagStructure, Detail: a})
	}

	weekStart, weekEnd, err := findWeek(items)
	if err != nil {
		return nil, err
	}
	dir.WeekStart, dir.WeekEnd = weekStart, weekEnd

	start := anchorIndex(items)
	if start < 0 {
		return nil, &StructureError{Alerts: []string{"anchor heading not found"}}
	}

	var area *roster.Area
	var entry *roster.RawPharmacyEntry
	for _, it := range items[start+1:] {
		switch it.kind {
		case itemH2, itemH3:
			if _, stop := stopTitles[it.text]; stop {
				return dir, nil
			}
			if it.kind == itemH3 {
				area = &roster.Area{Label: it.text}
				dir.Areas = append(dir.Areas, area)
				entry = nil
			}
		case itemH4:
			if area == nil {
				dir.Diagnostics = append(dir.Diagnostics, roster.Diagnostic{
					Code: roster.DiagSkippedEntry, Detail: it.text,
				})
				continue
			}
			area.Pharmacies = append(area.Pharmacies, roster.RawPharmacyEntry{
				NameRaw: it.text,
				AreaRaw: area.Label,
			})
			entry = &area.Pharmacies[len(area.Pharmacies)-1]
		case itemText:
			if entry == nil {
				continue
			}
			if normalize.PhoneLikeRe.MatchString(it.text) {
				for _, p := range normalize.ExtractPhones(it.text) {
					entry.PhonesRaw = appendUnique(entry.PhonesRaw, p)
				}
			} else {
				if entry.AddressRaw == "" {
					entry.AddressRaw = it.text
				} else {
					entry.AddressRaw = normalize.Clean(entry.AddressRaw + " " + it.text)
				}
			}
		}
	}
	return dir, nil
}

// ValidateStructure scans for the markers the extractor depends on and
// returns one alert per missing marker. An empty slice means the page
// still looks the way it did when this was written.
func ValidateStructure(page []byte) []string {
	var alerts []string
	text := string(page)
	if !weekMarkerRe.MatchString(text) {
		alerts = append(alerts, "week caption 'Semaine du … au …' not found")
	}
	if !anchorMarkerRe.MatchString(text) {
		alerts = append(alerts, "anchor 'Liste des pharmacies de garde' not found")
	}
	h3, h4 := countHeadings(page)
	if h3 == 0 {
		alerts = append(alerts, "no <h3> zone headings found")
	}
	if h4 == 0 {
		alerts = append(alerts, "no <h4> pharmacy headings found")
	}
	return alerts
}

func findWeek(items []item) (time.Time, time.Time, error) {
	for _, it := range items {
		if it.kind != itemH2 && it.kind != itemH3 {
			continue
		}
		if start, end, err := dateparse.WeekRange(it.text, 0); err == nil {
			return start, end, nil
		}
	}
	return time.Time{}, time.Time{}, &dateparse.ParseError{
		Line: "", Reason: "no week caption found on page",
	}
}

func anchorIndex(items []item) int {
	for i, it := range items {
		if (it.kind == itemH2 || it.kind == itemH3) && strings.Contains(it.text, anchorText) {
			return i
		}
	}
	return -1
}

func appendUnique(have []string, p string) []string {
	for _, h := range have {
		if h == p {
			return have
		}
	}
	return append(have, p)
}

var (
	weekMarkerRe   = mustCI(`Semaine\s+du\s+\d{2}/\d{2}/\d{4}\s+au\s+\d{2}/\d{2}/\d{4}`)
	anchorMarkerRe = mustCI(`Liste\s+des\s+pharmacies\s+de\s+garde`)
)

func countHeadings(page []byte) (h3, h4 int) {
	node, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return 0, 0
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				h3++
			case "h4":
				h4++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return h3, h4
}
