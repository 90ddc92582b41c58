package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
)

//go:embed sql/get-all-stops.sql
var getAllStopsSQL string

//go:embed sql/search-stops.sql
var searchStopsSQL string

//go:embed sql/get-stop.sql
var getStopSQL string

//go:embed sql/count-stops.sql
var countStopsSQL string

//go:embed sql/delete-stops.sql
var deleteStopsSQL string

//go:embed sql/insert-stop.sql
var insertStopSQL string

//go:embed sql/last-refreshed.sql
var lastRefreshedSQL string

//go:embed sql/upsert-metadata.sql
var upsertMetadataSQL string

// CatalogRepository persists the bus-stop catalog and its refresh metadata.
type CatalogRepository interface {
	// LastRefreshedAt returns the refresh timestamp and whether the catalog
	// has ever been populated.
	LastRefreshedAt() (time.Time, bool, error)
	// ReplaceAll swaps the whole catalog and records the refresh time in one
	// transaction. Stops removed upstream disappear locally.
	ReplaceAll(stops []types.BusStop, refreshedAt time.Time) error
	// Search matches query case-insensitively against description first,
	// then road name, then code. An empty query returns the full catalog.
	// Ordering is rank, then description, then code.
	Search(query string) ([]types.BusStop, error)
	GetStop(code string) (types.BusStop, bool, error)
	CountStops() (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) CatalogRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) LastRefreshedAt() (time.Time, bool, error) {
	var ms int64
	err := r.db.QueryRow(lastRefreshedSQL).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cache metadata: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

func (r *repositoryImpl) ReplaceAll(stops []types.BusStop, refreshedAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback catalog replace", "error", err)
		}
	}()

	if _, err := tx.Exec(deleteStopsSQL); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	stmt, err := tx.Prepare(insertStopSQL)
	if err != nil {
		return fmt.Errorf("prepare catalog insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close catalog insert stmt", "error", err)
		}
	}()

	for _, s := range stops {
		if _, err := stmt.Exec(s.Code, s.RoadName, s.Description, s.Latitude, s.Longitude); err != nil {
			return fmt.Errorf("insert stop %q: %w", s.Code, err)
		}
	}

	if _, err := tx.Exec(upsertMetadataSQL, refreshedAt.UnixMilli()); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}

	return tx.Commit()
}

func (r *repositoryImpl) Search(query string) ([]types.BusStop, error) {
	var rows *sql.Rows
	var err error
	if query == "" {
		rows, err = r.db.Query(getAllStopsSQL)
	} else {
		rows, err = r.db.Query(searchStopsSQL, "%"+query+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("search stops: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stops rows", "error", err)
		}
	}()
	return scanStops(rows)
}

func (r *repositoryImpl) GetStop(code string) (types.BusStop, bool, error) {
	var s types.BusStop
	err := r.db.QueryRow(getStopSQL, code).Scan(&s.Code, &s.RoadName, &s.Description, &s.Latitude, &s.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return types.BusStop{}, false, nil
	}
	if err != nil {
		return types.BusStop{}, false, fmt.Errorf("get stop %q: %w", code, err)
	}
	return s, true, nil
}

func (r *repositoryImpl) CountStops() (int, error) {
	var n int
	err := r.db.QueryRow(countStopsSQL).Scan(&n)
	return n, err
}

func scanStops(rows *sql.Rows) ([]types.BusStop, error) {
	var out []types.BusStop
	for rows.Next() {
		var s types.BusStop
		if err := rows.Scan(&s.Code, &s.RoadName, &s.Description, &s.Latitude, &s.Longitude); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
