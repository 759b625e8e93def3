package bulletin

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want LineKind
	}{
		{"SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026", KindWeek},
		{"YOPOUGON SECTEUR 1", KindZone},
		{"ABENGOUROU", KindZone},
		{"PHCIE DE L'ESPERANCE", KindPharmacy},
		{"PHARMACIE SAINTE THERESE", KindPharmacy},
		{"BOUAKE PHCIE BEL AIR / M. KONE", KindCityPharmacy},
		{"07 69 35 39 09", KindPhone},
		{"Av. de la Paix", KindAddress},
		{"SECTION ABIDJAN", KindBoilerplate},
		{"TOUR DE GARDE DES PHARMACIES", KindBoilerplate},
		{"", KindNoise},
		// masthead falls through; with no open entry the layouts drop it
		{"UNION NATIONALE DES PHARMACIENS", KindAddress},
		// label lines must reach the phone and address fallbacks
		{"TEL.: 07 69 35 39 09", KindPhone},
		{"N° 15 Av. de la Paix", KindAddress},
		// all-caps but address-flavored: not a zone
		{"CARREFOUR DUNCAN", KindAddress},
		// all-caps digit line is a phone, not a zone
		{"05 44 33 22 11", KindPhone},
	}
	for _, c := range cases {
		if got := Classify(c.line); got != c.want {
			t.Fatalf("Classify(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestExtract_AbidjanLayout(t *testing.T) {
	page := `GARDE FEVRIER 2026
SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026
YOPOUGON SECTEUR 1
PHCIE DE L'ESPERANCE
Av. de la Paix
07 69 35 39 09
PHCIE DU BONHEUR / M. DIALLO
COCODY
PHARMACIE SAINTE THERESE
Bd. Latrille, face station 21 35 42 10`

	res, err := Extract([]string{page}, HintAbidjan, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Weeks) != 1 {
		t.Fatalf("expected 1 week, got %d", len(res.Weeks))
	}
	wk := res.Weeks[0]
	if !wk.Start.Equal(time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week start = %v", wk.Start)
	}
	if len(wk.Areas) != 2 {
		t.Fatalf("expected 2 areas, got %d", len(wk.Areas))
	}

	yop := wk.Areas[0]
	if yop.Label != "YOPOUGON SECTEUR 1" {
		t.Fatalf("area label = %q", yop.Label)
	}
	if len(yop.Pharmacies) != 2 {
		t.Fatalf("expected 2 pharmacies in first area, got %d", len(yop.Pharmacies))
	}
	esp := yop.Pharmacies[0]
	if esp.NameRaw != "PHCIE DE L'ESPERANCE" {
		t.Fatalf("name = %q", esp.NameRaw)
	}
	if esp.AddressRaw != "Av. de la Paix" {
		t.Fatalf("address = %q", esp.AddressRaw)
	}
	if !reflect.DeepEqual(esp.PhonesRaw, []string{"0769353909"}) {
		t.Fatalf("phones = %v", esp.PhonesRaw)
	}
	if esp.AreaRaw != "YOPOUGON SECTEUR 1" {
		t.Fatalf("area raw = %q", esp.AreaRaw)
	}
	// co-tenant text after the slash is cut from the name
	if got := yop.Pharmacies[1].NameRaw; got != "PHCIE DU BONHEUR" {
		t.Fatalf("second name = %q", got)
	}

	// phone line with an address tail splits into both fields
	ste := wk.Areas[1].Pharmacies[0]
	if ste.AddressRaw != "Bd. Latrille, face station" {
		t.Fatalf("address tail = %q", ste.AddressRaw)
	}
	if !reflect.DeepEqual(ste.PhonesRaw, []string{"21354210"}) {
		t.Fatalf("phones = %v", ste.PhonesRaw)
	}
}

// Labelled phone and numbered address lines carry entry data and must
// accrete onto the open entry, not vanish as page furniture.
func TestExtract_LabelledPhoneAndAddressAccrete(t *testing.T) {
	page := `SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026
YOPOUGON SECTEUR 1
PHCIE DE L'ESPERANCE
N° 15 Av. de la Paix
TEL.: 07 69 35 39 09`

	res, err := Extract([]string{page}, HintAbidjan, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := res.Weeks[0].Areas[0].Pharmacies
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if !reflect.DeepEqual(e.PhonesRaw, []string{"0769353909"}) {
		t.Fatalf("phones = %v", e.PhonesRaw)
	}
	if e.AddressRaw != "N° 15 Av. de la Paix" {
		t.Fatalf("address = %q", e.AddressRaw)
	}
}

func TestExtract_RepeatedWeekHeaderContinues(t *testing.T) {
	page1 := `SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026
YOPOUGON SECTEUR 1
PHCIE DE L'ESPERANCE`
	page2 := `SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026
COCODY
PHCIE DES DEUX PLATEAUX`

	res, err := Extract([]string{page1, page2}, HintAbidjan, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Weeks) != 1 {
		t.Fatalf("expected the repeated header to continue the week, got %d weeks", len(res.Weeks))
	}
	if len(res.Weeks[0].Areas) != 2 {
		t.Fatalf("expected 2 areas, got %d", len(res.Weeks[0].Areas))
	}
}

func TestExtract_NewWeekHeaderStartsSection(t *testing.T) {
	page := `SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026
YOPOUGON SECTEUR 1
PHCIE DE L'ESPERANCE
SEMAINE DU SAMEDI 14 AU VENDREDI 20 FEVRIER 2026
YOPOUGON SECTEUR 1
PHCIE DU ROND POINT`

	res, err := Extract([]string{page}, HintAbidjan, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Weeks) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(res.Weeks))
	}
	if res.Weeks[1].Areas[0].Pharmacies[0].NameRaw != "PHCIE DU ROND POINT" {
		t.Fatalf("second week entry = %q", res.Weeks[1].Areas[0].Pharmacies[0].NameRaw)
	}
}

func TestExtract_MinimalBlockWithoutWeekHeader(t *testing.T) {
	page := "YOPOUGON SECTEUR 1\nPHCIE DE L'ESPERANCE\nAv. de la Paix\n07 69 35 39 09"

	res, err := Extract([]string{page}, HintAbidjan, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Weeks) != 1 || !res.Weeks[0].Start.IsZero() {
		t.Fatalf("expected a single undated week")
	}
	entries := res.Weeks[0].Areas[0].Pharmacies
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.NameRaw != "PHCIE DE L'ESPERANCE" ||
		e.AddressRaw != "Av. de la Paix" ||
		e.AreaRaw != "YOPOUGON SECTEUR 1" ||
		!reflect.DeepEqual(e.PhonesRaw, []string{"0769353909"}) {
		t.Fatalf("entry = %+v", e)
	}
}

func TestExtract_InterieurLayout(t *testing.T) {
	page := `GARDE INTERIEUR FEVRIER 2026
SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026
ABENGOUROU PHCIE DU MARCHE / MME AKA JEANNE 07 69 35 39 09
BOUAKE PHCIE BEL AIR / M. KONE 05 44 33 22 11
ABENGOUROU PHARMACIE DE LA GARE TEL. 21 35 42 10`

	res, err := Extract([]string{page}, HintInterieur, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wk := res.Weeks[0]
	if len(wk.Areas) != 2 {
		t.Fatalf("expected 2 areas (cities interleave), got %d", len(wk.Areas))
	}
	abengourou := wk.Areas[0]
	if abengourou.Label != "ABENGOUROU" {
		t.Fatalf("area = %q", abengourou.Label)
	}
	if len(abengourou.Pharmacies) != 2 {
		t.Fatalf("expected interleaved city to reuse its area, got %d entries", len(abengourou.Pharmacies))
	}
	if abengourou.Pharmacies[0].NameRaw != "PHCIE DU MARCHE" {
		t.Fatalf("name = %q", abengourou.Pharmacies[0].NameRaw)
	}
	if !reflect.DeepEqual(abengourou.Pharmacies[0].PhonesRaw, []string{"0769353909"}) {
		t.Fatalf("phones = %v", abengourou.Pharmacies[0].PhonesRaw)
	}
	if abengourou.Pharmacies[1].NameRaw != "PHARMACIE DE LA GARE" {
		t.Fatalf("name = %q", abengourou.Pharmacies[1].NameRaw)
	}
}

func TestDetectLayout(t *testing.T) {
	abidjan := []string{"YOPOUGON SECTEUR 1\nPHCIE DE L'ESPERANCE\nAv. de la Paix"}
	if got := DetectLayout(abidjan).Name(); got != "abidjan" {
		t.Fatalf("detected %q", got)
	}
	interieur := []string{"ABENGOUROU PHCIE DU MARCHE / MME AKA\nBOUAKE PHCIE BEL AIR / M. KONE"}
	if got := DetectLayout(interieur).Name(); got != "interieur" {
		t.Fatalf("detected %q", got)
	}
}

func TestExtract_NoiseOnlyDocumentFails(t *testing.T) {
	pages := []string{"Page 1 sur 4\n\n   \nwww.unppci.org"}
	_, err := Extract(pages, HintAuto, 2026)
	var empty *EmptyExtractionError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyExtractionError, got %v", err)
	}
}

func TestExtract_EmptyDocumentIsNotAnError(t *testing.T) {
	res, err := Extract([]string{"", "   \n  "}, HintAuto, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Weeks) != 0 {
		t.Fatalf("expected no weeks, got %d", len(res.Weeks))
	}
}
