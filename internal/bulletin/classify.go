package bulletin

import (
	"regexp"
	"strings"

	"github.com/sagakore/pharmagarde/internal/dateparse"
	"github.com/sagakore/pharmagarde/internal/normalize"
)

// LineKind tags one line of extracted bulletin text. Classification is
// shape-driven: uppercase ratio, digit content, and a few keyword lists,
// evaluated in priority order by Classify.
type LineKind int

const (
	KindNoise LineKind = iota
	KindWeek
	KindBoilerplate
	KindZone
	KindCityPharmacy
	KindPharmacy
	KindPhone
	KindAddress
)

func (k LineKind) String() string {
	switch k {
	case KindWeek:
		return "week"
	case KindBoilerplate:
		return "boilerplate"
	case KindZone:
		return "zone"
	case KindCityPharmacy:
		return "city-pharmacy"
	case KindPharmacy:
		return "pharmacy"
	case KindPhone:
		return "phone"
	case KindAddress:
		return "address"
	default:
		return "noise"
	}
}

// pharmRe catches an entry line in the Abidjan layout, which always opens
// with the pharmacy designator.
var pharmRe = regexp.MustCompile(`(?i)^(PHCIE|PHARMACIE)\s+(.+)$`)

// cityPharmRe catches the Interieur layout's combined lines, where an
// upper-case city token precedes the designator:
// "ABENGOUROU PHCIE DU MARCHE / MME ...".
var cityPharmRe = regexp.MustCompile(`(?i)^([A-Z][A-Z\s-]{2,}?)\s+(PHCIE|PHARMACIE)\s+(.+)$`)

// nameCutRe marks where a pharmacy name ends: co-tenant separators and
// inline phone labels.
var nameCutRe = regexp.MustCompile(`(?i)\s*[–—]\s*|\s+-\s*|\s*/\s*|\bTEL\b`)

// addressKeywords exclude street-ish all-caps lines from being taken for
// zone headers.
var addressKeywords = map[string]struct{}{
	"ROUTE": {}, "CARREFOUR": {}, "AVENUE": {}, "BD": {}, "BOULEVARD": {},
	"FACE": {}, "PRES": {}, "PRÈS": {}, "DERRIERE": {}, "DERRIÈRE": {},
	"ARRÊT": {}, "ARRET": {}, "RUE": {}, "LOT": {}, "IMMEUBLE": {},
	"VILLA": {}, "CITÉ": {}, "CITE": {}, "CAMP": {}, "MARCHE": {},
	"STATION": {}, "QUARTIER": {}, "PLACE": {}, "ROND": {}, "ENTRE": {},
	"APRES": {}, "APRÈS": {}, "DEVANT": {},
}

// headerPrefixes exclude page titles and label lines from the zone
// heuristic. Consulted only there: a "TEL.:" or "N°" line is not a zone,
// but it must still reach the phone and address fallbacks.
var headerPrefixes = []string{
	"UNION", "GARDE", "SEMAINE", "PERMANENCE", "SECTION", "TOUR", "TEL",
	"N°", "N  ",
}

// boilerplatePrefixes mark section headers the layouts skip outright.
var boilerplatePrefixes = []string{"SECTION", "PERMANENCE", "TOUR DE GARDE"}

var wordRe = regexp.MustCompile(`[A-ZÉÈÊËÂÀÎÏÔÖÛÜÇ]+`)

// Classify tags a cleaned line. Predicates run most-specific first so the
// result is deterministic regardless of how layouts consume it.
func Classify(line string) LineKind {
	switch {
	case line == "":
		return KindNoise
	case isWeekHeader(line):
		return KindWeek
	case isBoilerplate(line):
		return KindBoilerplate
	case looksLikeZone(line):
		return KindZone
	case isCityPharmacy(line):
		return KindCityPharmacy
	case pharmRe.MatchString(line):
		return KindPharmacy
	case normalize.PhoneLikeRe.MatchString(line):
		return KindPhone
	}
	return KindAddress
}

func isWeekHeader(line string) bool {
	return dateparse.Matches(line)
}

func isBoilerplate(line string) bool {
	up := strings.ToUpper(line)
	for _, p := range boilerplatePrefixes {
		if strings.HasPrefix(up, p) {
			return true
		}
	}
	return false
}

// looksLikeZone detects a standalone geographic header: fully upper-case,
// reasonably short, no pharmacy designator, no address keyword, and not
// just phone digits.
func looksLikeZone(line string) bool {
	if line == "" || len(line) > 50 {
		return false
	}
	up := strings.ToUpper(line)
	if line != up {
		return false
	}
	if strings.Contains(up, "PHCIE") || strings.Contains(up, "PHARMACIE") {
		return false
	}
	for _, p := range headerPrefixes {
		if strings.HasPrefix(up, p) {
			return false
		}
	}
	for _, w := range wordRe.FindAllString(up, -1) {
		if _, bad := addressKeywords[w]; bad {
			return false
		}
	}
	if normalize.IsPureDigits(line) {
		return false
	}
	return true
}

// isCityPharmacy requires a plausible city prefix: at least three
// characters and no address keyword, so "RUE DU COMMERCE PHCIE..." does
// not spawn a bogus zone.
func isCityPharmacy(line string) bool {
	m := cityPharmRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	prefix := strings.ToUpper(strings.TrimSpace(m[1]))
	if len(prefix) < 3 {
		return false
	}
	for _, w := range strings.Fields(prefix) {
		if _, bad := addressKeywords[w]; bad {
			return false
		}
	}
	return true
}

// cutName trims a pharmacy line down to the name proper, dropping
// co-tenant text and phone tails.
func cutName(s string) string {
	parts := nameCutRe.Split(s, 2)
	return normalize.Clean(parts[0])
}
