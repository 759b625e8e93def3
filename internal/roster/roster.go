// Package roster defines the value objects flowing through the ingestion
// pipeline and the derived identity keys external storage uses for
// deduplication. Nothing here persists across runs; cross-run identity is
// carried entirely by the keys.
package roster

import (
	"time"
)

// Source identifies which of the two known origins produced a record.
type Source string

const (
	// SourceAnnuaire is the weekly HTML directory page.
	SourceAnnuaire Source = "annuaireci"
	// SourceUNPPCI is the monthly PDF bulletin set.
	SourceUNPPCI Source = "unppci"
)

// RawPharmacyEntry is one sighting of a pharmacy inside one source
// document, exactly as printed. Constructed by an extractor, consumed
// once by normalization.
type RawPharmacyEntry struct {
	NameRaw    string   `json:"name_raw"`
	AddressRaw string   `json:"address_raw"`
	PhonesRaw  []string `json:"phones_raw"`
	AreaRaw    string   `json:"area_raw"`
}

// Area groups the entries printed under one zone label.
type Area struct {
	Label      string             `json:"area"`
	Pharmacies []RawPharmacyEntry `json:"pharmacies"`
}

// Week is one announced duty period with its zone groupings. The HTML
// directory has exactly one; a PDF bulletin usually carries four or five.
type Week struct {
	Start time.Time `json:"week_start"`
	End   time.Time `json:"week_end"`
	Areas []*Area   `json:"areas"`
}

// NormalizedPharmacy is the identity-bearing projection of a raw entry.
// Key depends only on CityNorm and NameNorm so the pharmacy keeps its
// identity when an address or phone number drifts between editions.
type NormalizedPharmacy struct {
	Key         string   `json:"pharmacy_key"`
	NameRaw     string   `json:"name_raw"`
	NameNorm    string   `json:"name_norm"`
	AddressRaw  string   `json:"address_raw"`
	AddressNorm string   `json:"address_norm"`
	AreaRaw     string   `json:"area_raw"`
	CityNorm    string   `json:"city_norm"`
	Sector      int      `json:"sector,omitempty"`
	HasSector   bool     `json:"-"`
	PhonesRaw   []string `json:"phones_raw"`
	PhonesE164  []string `json:"phones_e164"`
}

// DutyPeriod asserts that the referenced pharmacy is on duty between
// Start and End inclusive, as announced by Source.
type DutyPeriod struct {
	Key         string    `json:"duty_key"`
	PharmacyKey string    `json:"pharmacy_key"`
	Start       time.Time `json:"start_date"`
	End         time.Time `json:"end_date"`
	Source      Source    `json:"source"`
	SourceURL   string    `json:"source_url"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Diagnostic records a non-fatal anomaly observed during extraction, such
// as a line no classifier recognized or a structure-validation alert.
type Diagnostic struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Page   int    `json:"page,omitempty"`
}

const (
	DiagUnclassifiableLine = "unclassifiable_line"
	DiagStructure          = "structure"
	DiagSkippedEntry       = "skipped_entry"
)
