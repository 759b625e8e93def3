package bulletin

import (
	"github.com/sagakore/pharmagarde/internal/normalize"
	"github.com/sagakore/pharmagarde/internal/roster"
)

// abidjanLayout handles the main edition: a standalone all-caps line
// opens a zone, each following PHCIE/PHARMACIE line opens an entry, and
// everything else until the next header accretes onto the last entry as
// address or phone material.
type abidjanLayout struct{}

func (abidjanLayout) Name() string { return "abidjan" }

func (abidjanLayout) consume(st *state, kind LineKind, line string, page int) {
	switch kind {
	case KindZone:
		st.openArea(line)

	case KindPharmacy, KindCityPharmacy:
		// A combined line is unusual in this edition; keep the full text
		// as the name rather than inventing a zone from its prefix.
		if st.area == nil {
			st.diag(roster.DiagSkippedEntry, line, page)
			return
		}
		st.addEntry(st.area, cutName(line), normalize.ExtractPhones(line))

	case KindPhone:
		entry := st.lastEntry()
		if entry == nil {
			st.diag(roster.DiagUnclassifiableLine, line, page)
			return
		}
		entry.PhonesRaw = mergePhones(entry.PhonesRaw, normalize.ExtractPhones(line))
		// a phone line often carries the tail of the address too
		if part := normalize.StripPhones(line); part != "" && !normalize.IsPureDigits(part) {
			entry.AddressRaw = joinAddress(entry.AddressRaw, part)
		}

	case KindAddress:
		entry := st.lastEntry()
		if entry == nil {
			st.diag(roster.DiagUnclassifiableLine, line, page)
			return
		}
		entry.AddressRaw = joinAddress(entry.AddressRaw, line)
	}
}

func mergePhones(have, add []string) []string {
	for _, p := range add {
		dup := false
		for _, h := range have {
			if h == p {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, p)
		}
	}
	return have
}

func joinAddress(have, add string) string {
	if have == "" {
		return normalize.Clean(add)
	}
	return normalize.Clean(have + " " + add)
}
