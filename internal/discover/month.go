package discover

import (
	"fmt"
	"regexp"
	"time"
)

// monthLabels maps time.Month to the uppercase French label the bulletin
// titles use, without accents (the site writes FEVRIER, not FÉVRIER).
var monthLabels = map[time.Month]string{
	time.January:   "JANVIER",
	time.February:  "FEVRIER",
	time.March:     "MARS",
	time.April:     "AVRIL",
	time.May:       "MAI",
	time.June:      "JUIN",
	time.July:      "JUILLET",
	time.August:    "AOUT",
	time.September: "SEPTEMBRE",
	time.October:   "OCTOBRE",
	time.November:  "NOVEMBRE",
	time.December:  "DECEMBRE",
}

// MonthLabel returns the French bulletin label for t's month.
func MonthLabel(t time.Time) string {
	return monthLabels[t.Month()]
}

// FilterCurrentMonth keeps only the two expected documents for the month
// of now: "GARDE <MOIS> <ANNEE>" and "GARDE INTERIEUR <MOIS> <ANNEE>".
// Fewer than two matches usually means the month's article is not
// published yet; the caller decides whether that is fatal.
func FilterCurrentMonth(links []PDFLink, now time.Time) []PDFLink {
	month, year := MonthLabel(now), now.Year()
	principal := regexp.MustCompile(fmt.Sprintf(`(?i)^\s*GARDE\s+%s\s+%d\s*$`, month, year))
	interieur := regexp.MustCompile(fmt.Sprintf(`(?i)^\s*GARDE\s+INTERIEUR\s+%s\s+%d\s*$`, month, year))

	var out []PDFLink
	for _, l := range links {
		if principal.MatchString(l.Label) || interieur.MatchString(l.Label) {
			out = append(out, l)
		}
	}
	return out
}

var interieurLabelRe = regexp.MustCompile(`(?i)\bINTERIEUR\b`)

// IsInterieur reports whether a link's label names the interior-cities
// bulletin, which uses the combined city-and-pharmacy line layout.
func IsInterieur(l PDFLink) bool {
	return interieurLabelRe.MatchString(l.Label)
}
