package bulletin

import (
	"strings"

	"github.com/sagakore/pharmagarde/internal/normalize"
	"github.com/sagakore/pharmagarde/internal/roster"
)

// interieurLayout handles the countryside edition: no standalone zone
// headers, each data line leads with the city and carries the pharmacy
// name (and often a co-tenant and phone) on the same line.
type interieurLayout struct{}

func (interieurLayout) Name() string { return "interieur" }

func (interieurLayout) consume(st *state, kind LineKind, line string, page int) {
	switch kind {
	case KindCityPharmacy:
		m := cityPharmRe.FindStringSubmatch(line)
		if m == nil {
			st.diag(roster.DiagUnclassifiableLine, line, page)
			return
		}
		city := strings.ToUpper(strings.TrimSpace(m[1]))
		area := st.openArea(city)
		// name keeps the designator but loses the co-tenant tail
		name := cutName(m[2] + " " + m[3])
		st.addEntry(area, name, normalize.ExtractPhones(line))

	case KindZone:
		// occasional standalone city line between entries
		st.openArea(line)

	case KindPharmacy:
		// designator line without a city prefix: belongs to the zone in
		// effect, if any
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
