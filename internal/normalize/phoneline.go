package normalize

import (
	"regexp"
	"strings"
)

// PhoneLikeRe matches digit groups separated by spaces, dots, slashes, or
// dashes, e.g. "07 69 35 39 09". Shared by the extractors to decide
// whether a line carries phone numbers at all.
var PhoneLikeRe = regexp.MustCompile(`\d{2}(?:[\s./-]?\d{2}){3,}`)

var (
	phoneSplitRe = regexp.MustCompile(`[/|,;]`)
	pureDigitsRe = regexp.MustCompile(`^[\d\s./-]+$`)
	sepEdgeRe    = regexp.MustCompile(`^\s*[/|;,]|[/|;,]\s*$`)
	telResidueRe = regexp.MustCompile(`(?i)\bTEL\s*[.:]*\s*`)
)

// ExtractPhones pulls raw digit strings out of a text fragment. The
// fragment is split on the separators the sources use between numbers,
// each part is reduced to digits, and 8- or 10-digit results are kept.
// Longer runs (two numbers printed without a separator) are cut into
// 10-digit blocks first, then an 8-digit block for the remainder.
// Deduplicates while preserving order.
func ExtractPhones(text string) []string {
	var phones []string
	for _, part := range phoneSplitRe.Split(text, -1) {
		digits := nonDigitRe.ReplaceAllString(part, "")
		switch {
		case len(digits) == 8 || len(digits) == 10:
			phones = append(phones, digits)
		case len(digits) > 10:
			phones = splitLongNumber(digits, phones)
		}
	}
	seen := map[string]struct{}{}
	out := phones[:0]
	for _, p := range phones {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func splitLongNumber(digits string, acc []string) []string {
	pos := 0
	for pos < len(digits) {
		remaining := len(digits) - pos
		switch {
		case remaining >= 10:
			acc = append(acc, digits[pos:pos+10])
			pos += 10
		case remaining == 8:
			acc = append(acc, digits[pos:pos+8])
			pos += 8
		default:
			// fragment too short for a valid number
			return acc
		}
	}
	return acc
}

// StripPhones removes phone-shaped segments and "TEL." residue from a
// line, returning the leftover address part.
func StripPhones(line string) string {
	cleaned := PhoneLikeRe.ReplaceAllString(line, " ")
	cleaned = sepEdgeRe.ReplaceAllString(cleaned, "")
	cleaned = telResidueRe.ReplaceAllString(cleaned, " ")
	return Clean(cleaned)
}

// IsPureDigits reports whether the line holds nothing but digits and
// phone separators.
func IsPureDigits(line string) bool {
	return pureDigitsRe.MatchString(strings.TrimSpace(line)) && strings.TrimSpace(line) != ""
}
