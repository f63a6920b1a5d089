package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/i474232898/weather-dashboard/internal/weather"

	_ "modernc.org/sqlite"
)

const (
	prefLastLocation = "last_location"
	prefSettings     = "settings"
)

const schema = `
CREATE TABLE IF NOT EXISTS weather_cache (
	key TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	place_name TEXT NOT NULL,
	region TEXT NOT NULL,
	country TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	cached_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS weather_cache_cached_at ON weather_cache(cached_at);

CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_locations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	region TEXT NOT NULL,
	country TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	sort_order INTEGER NOT NULL,
	is_current INTEGER NOT NULL DEFAULT 0,
	added_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS saved_locations_one_current
	ON saved_locations(is_current) WHERE is_current = 1;
`

// SQLiteStore persists the cache, preferences and saved locations in a
// single SQLite file using the pure Go modernc.org/sqlite driver.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serialises writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Printf("WARN: could not set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		log.Printf("WARN: could not set busy timeout: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return newSQLiteStore(db), nil
}

func newSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCached returns the row for key or weather.ErrCacheMiss.
func (s *SQLiteStore) GetCached(ctx context.Context, key string) (weather.CachedSnapshot, error) {
	var (
		entry    weather.CachedSnapshot
		cachedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, payload, place_name, region, country, latitude, longitude, cached_at
		FROM weather_cache WHERE key = ?`, key).
		Scan(&entry.Key, &entry.RawPayload, &entry.PlaceName, &entry.Region, &entry.Country,
			&entry.Latitude, &entry.Longitude, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.CachedSnapshot{}, weather.ErrCacheMiss
	}
	if err != nil {
		return weather.CachedSnapshot{}, fmt.Errorf("read cache %s: %w", key, err)
	}
	entry.CachedAt = time.UnixMilli(cachedAt)
	return entry, nil
}

// PutCached replaces the row for entry.Key.
func (s *SQLiteStore) PutCached(ctx context.Context, entry weather.CachedSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO weather_cache(key, payload, place_name, region, country, latitude, longitude, cached_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		entry.Key, entry.RawPayload, entry.PlaceName, entry.Region, entry.Country,
		entry.Latitude, entry.Longitude, entry.CachedAtMillis())
	if err != nil {
		return fmt.Errorf("write cache %s: %w", entry.Key, err)
	}
	return nil
}

// PruneOlderThan deletes rows cached before the cutoff.
func (s *SQLiteStore) PruneOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM weather_cache WHERE cached_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) LastLocation(ctx context.Context) (*weather.LastLocation, error) {
	var loc weather.LastLocation
	ok, err := s.getPref(ctx, prefLastLocation, &loc)
	if err != nil || !ok {
		return nil, err
	}
	return &loc, nil
}

func (s *SQLiteStore) SaveLastLocation(ctx context.Context, loc weather.LastLocation) error {
	return s.putPref(ctx, prefLastLocation, loc)
}

// Settings returns the saved settings, or the defaults if none were saved.
func (s *SQLiteStore) Settings(ctx context.Context) (weather.Settings, error) {
	settings := weather.DefaultSettings()
	if _, err := s.getPref(ctx, prefSettings, &settings); err != nil {
		return weather.Settings{}, err
	}
	return settings, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, settings weather.Settings) error {
	return s.putPref(ctx, prefSettings, settings)
}

func (s *SQLiteStore) getPref(ctx context.Context, key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read preference %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("%w: preference %s: %v", weather.ErrDecode, key, err)
	}
	return true, nil
}

func (s *SQLiteStore) putPref(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO preferences(key, value) VALUES(?, ?)`, key, string(raw)); err != nil {
		return fmt.Errorf("write preference %s: %w", key, err)
	}
	return nil
}

const savedLocationColumns = `id, name, region, country, latitude, longitude, sort_order, is_current, added_at`

// ListSavedLocations returns the pager order: the current-location entry
// first, then by sort order and insertion time.
func (s *SQLiteStore) ListSavedLocations(ctx context.Context) ([]weather.SavedLocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+savedLocationColumns+` FROM saved_locations ORDER BY sort_order, added_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list saved locations: %w", err)
	}
	defer rows.Close()

	out := make([]weather.SavedLocation, 0)
	for rows.Next() {
		loc, err := scanSavedLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// AddSavedLocation stores loc at the end of the pager with a fresh ID.
func (s *SQLiteStore) AddSavedLocation(ctx context.Context, loc weather.SavedLocation) (weather.SavedLocation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return weather.SavedLocation{}, err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM saved_locations WHERE is_current = 0`).Scan(&next); err != nil {
		return weather.SavedLocation{}, fmt.Errorf("next sort order: %w", err)
	}

	loc.ID = uuid.NewString()
	loc.SortOrder = next
	loc.IsCurrentLocation = false
	loc.AddedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := insertSavedLocation(ctx, tx, loc); err != nil {
		return weather.SavedLocation{}, err
	}
	if err := tx.Commit(); err != nil {
		return weather.SavedLocation{}, err
	}
	return loc, nil
}

// UpsertCurrentLocation creates or moves the single current-location entry.
func (s *SQLiteStore) UpsertCurrentLocation(ctx context.Context, c weather.Coordinates, name string) (weather.SavedLocation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return weather.SavedLocation{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+savedLocationColumns+` FROM saved_locations WHERE is_current = 1 LIMIT 1`)
	loc, err := scanSavedLocation(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		loc = weather.SavedLocation{
			ID:                uuid.NewString(),
			Name:              name,
			Latitude:          c.Latitude,
			Longitude:         c.Longitude,
			SortOrder:         weather.CurrentLocationSortOrder,
			IsCurrentLocation: true,
			AddedAt:           s.now().UTC().Truncate(time.Millisecond),
		}
		if err := insertSavedLocation(ctx, tx, loc); err != nil {
			return weather.SavedLocation{}, err
		}
	case err != nil:
		return weather.SavedLocation{}, err
	default:
		loc.Name = name
		loc.Latitude = c.Latitude
		loc.Longitude = c.Longitude
		if _, err := tx.ExecContext(ctx,
			`UPDATE saved_locations SET name = ?, latitude = ?, longitude = ? WHERE id = ?`,
			loc.Name, loc.Latitude, loc.Longitude, loc.ID); err != nil {
			return weather.SavedLocation{}, fmt.Errorf("update current location: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return weather.SavedLocation{}, err
	}
	return loc, nil
}

// RemoveSavedLocation deletes id or returns weather.ErrNotFound.
func (s *SQLiteStore) RemoveSavedLocation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove saved location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("saved location %q: %w", id, weather.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedLocation(row rowScanner) (weather.SavedLocation, error) {
	var (
		loc       weather.SavedLocation
		isCurrent int
		addedAt   int64
	)
	if err := row.Scan(&loc.ID, &loc.Name, &loc.Region, &loc.Country, &loc.Latitude, &loc.Longitude,
		&loc.SortOrder, &isCurrent, &addedAt); err != nil {
		return weather.SavedLocation{}, err
	}
	loc.IsCurrentLocation = isCurrent == 1
	loc.AddedAt = time.UnixMilli(addedAt).UTC()
	return loc, nil
}

func insertSavedLocation(ctx context.Context, tx *sql.Tx, loc weather.SavedLocation) error {
	isCurrent := 0
	if loc.IsCurrentLocation {
		isCurrent = 1
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO saved_locations(`+savedLocationColumns+`) VALUES(?,?,?,?,?,?,?,?,?)`,
		loc.ID, loc.Name, loc.Region, loc.Country, loc.Latitude, loc.Longitude,
		loc.SortOrder, isCurrent, loc.AddedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert saved location: %w", err)
	}
	return nil
}
