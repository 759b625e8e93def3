// Package normalize canonicalizes the free text found in duty-roster
// sources: pharmacy names, addresses, zone labels, and phone numbers.
// Everything here is pure and deterministic; identity keys are derived
// from these outputs, so any change to the rules changes the keys.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes, removes combining marks, and recomposes, which
// maps accented letters to their base form (É -> E, ç -> c).
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Text transliterates s to ASCII, lowercases it, and keeps only
// alphanumeric runs separated by single spaces. It is total and
// idempotent: Text(Text(s)) == Text(s) for any input.
func Text(s string) string {
	ascii, _, err := transform.String(stripAccents, s)
	if err != nil {
		ascii = s
	}
	ascii = strings.ToLower(ascii)

	var b strings.Builder
	b.Grow(len(ascii))
	pendingSpace := false
	for _, r := range ascii {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Clean collapses whitespace runs (including non-breaking spaces, which
// PDF extraction produces liberally) to single spaces and trims the ends.
// It also repairs page-break concatenations like "...BUS 04SEMAINE".
func Clean(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return pageBreakRe.ReplaceAllString(s, "$1 SEMAINE")
}

var pageBreakRe = regexp.MustCompile(`(?i)(\d)SEMAINE`)

var nonDigitRe = regexp.MustCompile(`\D+`)

// ivorianPrefixes are the two-digit operator/region prefixes introduced by
// the 2021 numbering reform: 01/05/07 mobile, 21/25/27 fixed.
var ivorianPrefixes = map[string]struct{}{
	"01": {}, "05": {}, "07": {},
	"21": {}, "25": {}, "27": {},
}

// PhoneE164CI converts a raw Ivorian phone string to E.164.
// Ten digits with a recognized prefix map directly under +225; eight
// digits are legacy pre-reform numbers carried forward as +22501 followed
// by the original eight digits, matching how the published rosters were
// migrated. Any other shape yields ok=false: partial and malformed
// numbers are common in the sources and are simply excluded.
func PhoneE164CI(raw string) (string, bool) {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	switch len(digits) {
	case 10:
		if _, known := ivorianPrefixes[digits[:2]]; !known {
			return "", false
		}
		return "+225" + digits, true
	case 8:
		return "+22501" + digits, true
	}
	return "", false
}

// Phones converts a slice of raw digit strings to E.164, dropping
// unconvertible entries and deduplicating while preserving first-seen
// order.
func Phones(raws []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		e164, ok := PhoneE164CI(raw)
		if !ok {
			continue
		}
		if _, dup := seen[e164]; dup {
			continue
		}
		seen[e164] = struct{}{}
		out = append(out, e164)
	}
	return out
}

// sectorRe matches a trailing "Secteur N" (or abbreviated "Sect. N" /
// "Sect N") on a zone label, case-insensitively.
var sectorRe = regexp.MustCompile(`(?i)^(.*?)\s+sect(?:eur|\.)?\s+(\d+)\s*$`)

// Area splits a raw zone label into a normalized city and an optional
// numeric sector. "YOPOUGON Secteur 9" yields ("yopougon", 9, true);
// "ABENGOUROU" yields ("abengourou", 0, false).
func Area(raw string) (city string, sector int, ok bool) {
	trimmed := strings.TrimSpace(raw)
	// Match on the accent-stripped form so "SECTÉUR"-style OCR noise still
	// splits; the city half goes through Text anyway.
	ascii, _, err := transform.String(stripAccents, trimmed)
	if err != nil {
		ascii = trimmed
	}
	if m := sectorRe.FindStringSubmatch(ascii); m != nil {
		n, convErr := strconv.Atoi(m[2])
		if convErr == nil {
			return Text(m[1]), n, true
		}
	}
	return Text(trimmed), 0, false
}
