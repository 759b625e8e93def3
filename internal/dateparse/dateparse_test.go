package dateparse

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekRange_SharedMonthAndYear(t *testing.T) {
	start, end, err := WeekRange("SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2026, time.February, 7)) || !end.Equal(date(2026, time.February, 13)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_CrossMonthSharedYear(t *testing.T) {
	start, end, err := WeekRange("SEMAINE DU SAMEDI 28 FEVRIER AU VENDREDI 06 MARS 2026", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2026, time.February, 28)) || !end.Equal(date(2026, time.March, 6)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_FullySpecifiedBothSides(t *testing.T) {
	start, end, err := WeekRange("SEMAINE DU SAMEDI 02 MARS 2019 AU VENDREDI 08 MARS 2019", 2019)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2019, time.March, 2)) || !end.Equal(date(2019, time.March, 8)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_StartMonthInferredBackward(t *testing.T) {
	// Only the end side names a month; start day 28 > end day 06 puts the
	// start in the prior month.
	start, end, err := WeekRange("SEMAINE DU SAMEDI 28 AU VENDREDI 06 MARS 2026", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2026, time.February, 28)) || !end.Equal(date(2026, time.March, 6)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_JanuaryRollsBackYear(t *testing.T) {
	start, end, err := WeekRange("SEMAINE DU 28 AU 03 JANVIER 2026", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2025, time.December, 28)) || !end.Equal(date(2026, time.January, 3)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_CrossYearSharedTrailingYear(t *testing.T) {
	start, end, err := WeekRange("SEMAINE DU SAMEDI 27 DECEMBRE AU VENDREDI 02 JANVIER 2026", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2025, time.December, 27)) || !end.Equal(date(2026, time.January, 2)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_ContextYearFillsIn(t *testing.T) {
	start, end, err := WeekRange("SEMAINE DU 07 AU 13 FEVRIER", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2026, time.February, 7)) || !end.Equal(date(2026, time.February, 13)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_Numeric(t *testing.T) {
	start, end, err := WeekRange("Semaine du 07/02/2026 au 13/02/2026", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2026, time.February, 7)) || !end.Equal(date(2026, time.February, 13)) {
		t.Fatalf("got %v -> %v", start, end)
	}
}

func TestWeekRange_AccentedMonth(t *testing.T) {
	start, _, err := WeekRange("SEMAINE DU SAMEDI 07 AU VENDREDI 13 FÉVRIER 2026", 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(date(2026, time.February, 7)) {
		t.Fatalf("got start %v", start)
	}
}

func TestWeekRange_Failures(t *testing.T) {
	lines := []string{
		"",
		"TOUR DE GARDE DES PHARMACIES",
		"SEMAINE DU PREMIER AU DERNIER JOUR",      // no digits at all
		"SEMAINE DU 31 FEVRIER AU 06 MARS 2026",   // impossible date
		"SEMAINE DU 10 MARS 2026 AU 02 MARS 2026", // inverted, fully specified
	}
	for _, line := range lines {
		_, _, err := WeekRange(line, 2026)
		if err == nil {
			t.Fatalf("expected error for %q", line)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *ParseError for %q, got %T", line, err)
		}
	}
}

func TestMatches(t *testing.T) {
	if !Matches("SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026") {
		t.Fatal("week header not matched")
	}
	if Matches("PHCIE DE L'ESPERANCE") {
		t.Fatal("pharmacy line matched as week header")
	}
}
