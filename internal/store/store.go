// Package store persists normalized facts to Postgres. Pharmacies and
// duty periods are upserted in chunks keyed on pharmacy_key and duty_key,
// so reloading the same document is a no-op. Duty rows reference
// pharmacies by database id, resolved after the pharmacy upsert.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/sagakore/pharmagarde/internal/roster"
)

const (
	pharmacyChunkSize = 200
	dutyChunkSize     = 500
	maxRetries        = 3
	retryBackoff      = 2 * time.Second
)

// querier is the subset of pgxpool.Pool the store needs. Tests substitute
// a fake.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store writes facts into the pharmacies and duty_periods tables.
type Store struct {
	db      querier
	log     zerolog.Logger
	backoff time.Duration
}

// Connect opens a pgx pool against the given database URL.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// New wraps an open pool.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{db: pool, log: log, backoff: retryBackoff}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// LoadCounts summarizes one document load.
type LoadCounts struct {
	Pharmacies int
	Duties     int
}

// Load upserts all facts from one processed document. Pharmacies go
// first; duty rows are then linked through the key-to-id mapping. Facts
// whose pharmacy failed to resolve an id are skipped with a warning.
func (s *Store) Load(ctx context.Context, facts []Fact) (LoadCounts, error) {
	var counts LoadCounts
	if len(facts) == 0 {
		return counts, nil
	}

	pharms := dedupePharmacies(facts)
	n, err := s.upsertPharmacies(ctx, pharms)
	if err != nil {
		return counts, err
	}
	counts.Pharmacies = n

	keys := make([]string, 0, len(pharms))
	for _, p := range pharms {
		keys = append(keys, p.Key)
	}
	ids, err := s.PharmacyIDs(ctx, keys)
	if err != nil {
		return counts, err
	}

	duties := dedupeDuties(facts)
	linked := make([]dutyRow, 0, len(duties))
	for _, d := range duties {
		id, ok := ids[d.PharmacyKey]
		if !ok {
			s.log.Warn().Str("pharmacy_key", d.PharmacyKey).
				Msg("no id after pharmacy upsert, duty skipped")
			continue
		}
		linked = append(linked, dutyRow{DutyPeriod: d, pharmacyID: id})
	}
	n, err = s.upsertDuties(ctx, linked)
	if err != nil {
		return counts, err
	}
	counts.Duties = n
	return counts, nil
}

// Fact mirrors engine.Fact without importing it; the store only needs
// the two value objects.
type Fact struct {
	Pharmacy roster.NormalizedPharmacy
	Duty     roster.DutyPeriod
}

type dutyRow struct {
	roster.DutyPeriod
	pharmacyID int64
}

// dedupePharmacies keeps the last sighting per pharmacy_key. Within one
// document later weeks carry fresher addresses.
func dedupePharmacies(facts []Fact) []roster.NormalizedPharmacy {
	byKey := map[string]int{}
	var out []roster.NormalizedPharmacy
	for _, f := range facts {
		if i, seen := byKey[f.Pharmacy.Key]; seen {
			out[i] = f.Pharmacy
			continue
		}
		byKey[f.Pharmacy.Key] = len(out)
		out = append(out, f.Pharmacy)
	}
	return out
}

func dedupeDuties(facts []Fact) []roster.DutyPeriod {
	seen := map[string]bool{}
	var out []roster.DutyPeriod
	for _, f := range facts {
		if seen[f.Duty.Key] {
			continue
		}
		seen[f.Duty.Key] = true
		out = append(out, f.Duty)
	}
	return out
}

func (s *Store) upsertPharmacies(ctx context.Context, rows []roster.NormalizedPharmacy) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += pharmacyChunkSize {
		chunk := rows[start:min(start+pharmacyChunkSize, len(rows))]
		sql, args, err := pharmacyUpsertSQL(chunk)
		if err != nil {
			return total, fmt.Errorf("build pharmacy upsert: %w", err)
		}
		if err := s.execWithRetry(ctx, "pharmacies", sql, args); err != nil {
			return total, err
		}
		total += len(chunk)
	}
	return total, nil
}

func (s *Store) upsertDuties(ctx context.Context, rows []dutyRow) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += dutyChunkSize {
		chunk := rows[start:min(start+dutyChunkSize, len(rows))]
		sql, args, err := dutyUpsertSQL(chunk)
		if err != nil {
			return total, fmt.Errorf("build duty upsert: %w", err)
		}
		if err := s.execWithRetry(ctx, "duty_periods", sql, args); err != nil {
			return total, err
		}
		total += len(chunk)
	}
	return total, nil
}

// pharmacyUpsertSQL builds one chunk's multi-row upsert. Conflicting
// rows are refreshed in place so address and phone drift follows the
// latest edition.
func pharmacyUpsertSQL(rows []roster.NormalizedPharmacy) (string, []any, error) {
	b := psql.Insert("pharmacies").Columns(
		"pharmacy_key", "name_raw", "name_norm",
		"address_raw", "address_norm", "area_raw",
		"city_norm", "sector", "phones_raw", "phones_e164",
	)
	for _, p := range rows {
		var sector any
		if p.HasSector {
			sector = p.Sector
		}
		b = b.Values(
			p.Key, p.NameRaw, p.NameNorm,
			p.AddressRaw, p.AddressNorm, p.AreaRaw,
			p.CityNorm, sector, p.PhonesRaw, p.PhonesE164,
		)
	}
	return b.Suffix(`ON CONFLICT (pharmacy_key) DO UPDATE SET
		name_raw = EXCLUDED.name_raw,
		name_norm = EXCLUDED.name_norm,
		address_raw = EXCLUDED.address_raw,
		address_norm = EXCLUDED.address_norm,
		area_raw = EXCLUDED.area_raw,
		city_norm = EXCLUDED.city_norm,
		sector = EXCLUDED.sector,
		phones_raw = EXCLUDED.phones_raw,
		phones_e164 = EXCLUDED.phones_e164,
		updated_at = now()`).ToSql()
}

func dutyUpsertSQL(rows []dutyRow) (string, []any, error) {
	b := psql.Insert("duty_periods").Columns(
		"duty_key", "pharmacy_id", "start_date", "end_date",
		"source", "source_url", "scraped_at",
	)
	for _, d := range rows {
		b = b.Values(
			d.Key, d.pharmacyID,
			d.Start.Format(time.DateOnly), d.End.Format(time.DateOnly),
			string(d.Source), d.SourceURL, d.ScrapedAt,
		)
	}
	return b.Suffix(`ON CONFLICT (duty_key) DO UPDATE SET
		source_url = EXCLUDED.source_url,
		scraped_at = EXCLUDED.scraped_at`).ToSql()
}

// PharmacyIDs resolves pharmacy keys to database ids.
func (s *Store) PharmacyIDs(ctx context.Context, keys []string) (map[string]int64, error) {
	if len(keys) == 0 {
		return map[string]int64{}, nil
	}
	sql, args, err := psql.Select("pharmacy_key", "id").
		From("pharmacies").
		Where(sq.Eq{"pharmacy_key": keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build id lookup: %w", err)
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, len(keys))
	for rows.Next() {
		var key string
		var id int64
		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("scan id row: %w", err)
		}
		out[key] = id
	}
	return out, rows.Err()
}

// AlreadyIngested reports whether any duty row from source_url exists,
// which lets a run skip documents loaded by a previous run.
func (s *Store) AlreadyIngested(ctx context.Context, source roster.Source, sourceURL string) (bool, error) {
	sql, args, err := psql.Select("1").
		From("duty_periods").
		Where(sq.Eq{"source": string(source), "source_url": sourceURL}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build ingestion check: %w", err)
	}
	var one int
	switch err := s.db.QueryRow(ctx, sql, args...).Scan(&one); {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("ingestion check: %w", err)
	}
}

// execWithRetry retries transient failures with doubling backoff, the
// same discipline the fetcher applies to the sources.
func (s *Store) execWithRetry(ctx context.Context, table, sql string, args []any) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err := s.db.Exec(ctx, sql, args...)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}
		wait := s.backoff
		if wait <= 0 {
			wait = retryBackoff
		}
		wait *= time.Duration(1 << (attempt - 1))
		s.log.Warn().Err(err).Str("table", table).Int("attempt", attempt).
			Dur("retry_in", wait).Msg("upsert failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("upsert %s: %w", table, lastErr)
}
