package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/favorites/types"
)

//go:embed sql/load-favorites.sql
var loadFavoritesSQL string

//go:embed sql/favorite-exists.sql
var favoriteExistsSQL string

//go:embed sql/insert-favorite.sql
var insertFavoriteSQL string

//go:embed sql/delete-favorite.sql
var deleteFavoriteSQL string

//go:embed sql/update-position.sql
var updatePositionSQL string

//go:embed sql/clear-favorites.sql
var clearFavoritesSQL string

// FavoritesRepository owns the durable favorites set. All mutations go through
// it; concurrent toggles from other processes resolve last-writer-wins.
type FavoritesRepository interface {
	// LoadFavorites returns favorite stop codes ordered by position, ties
	// broken by newest first. It also hydrates the in-memory set backing
	// IsFavorited.
	LoadFavorites() ([]string, error)
	// IsFavorited reflects the latest completed mutation.
	IsFavorited(code string) bool
	// ToggleFavorite adds the code if absent (position = max+1) and removes
	// it if present. Returns whether the code is favorited afterward.
	ToggleFavorite(code string) (bool, error)
	// Reorder assigns position = index for each listed code. Codes not in
	// the input keep their positions.
	Reorder(codes []string) error
	ClearAllFavorites() error
	// Subscribe registers an observer called with the ordered code list
	// after every completed mutation. Returns an unsubscribe func.
	Subscribe(fn func(codes []string)) func()
}

type repositoryImpl struct {
	db *sql.DB

	mu          sync.RWMutex
	favorited   map[string]bool
	hydrated    bool
	nextSubID   int
	subscribers map[int]func(codes []string)

	now func() time.Time
}

func NewRepository(db *sql.DB) FavoritesRepository {
	return &repositoryImpl{
		db:          db,
		favorited:   make(map[string]bool),
		subscribers: make(map[int]func(codes []string)),
		now:         time.Now,
	}
}

func (r *repositoryImpl) LoadFavorites() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	favs, err := r.loadAllLocked()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(favs))
	codes := make([]string, 0, len(favs))
	for _, f := range favs {
		set[f.BusStopCode] = true
		codes = append(codes, f.BusStopCode)
	}
	r.favorited = set
	r.hydrated = true
	return codes, nil
}

func (r *repositoryImpl) IsFavorited(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.favorited[code]
}

func (r *repositoryImpl) ToggleFavorite(code string) (bool, error) {
	if code == "" {
		return false, errors.New("bus stop code required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The row is the source of truth so a toggle before LoadFavorites (or
	// after a write from another process) still reverses correctly.
	var one int
	err := r.db.QueryRow(favoriteExistsSQL, code).Scan(&one)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("check favorite %q: %w", code, err)
	}

	if exists {
		if _, err := r.db.Exec(deleteFavoriteSQL, code); err != nil {
			return false, fmt.Errorf("remove favorite %q: %w", code, err)
		}
		delete(r.favorited, code)
	} else {
		createdAt := r.now().UnixMilli()
		if _, err := r.db.Exec(insertFavoriteSQL, code, createdAt); err != nil {
			return false, fmt.Errorf("add favorite %q: %w", code, err)
		}
		r.favorited[code] = true
	}

	r.notifyLocked()
	return !exists, nil
}

func (r *repositoryImpl) Reorder(codes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	for i, code := range codes {
		if _, err := tx.Exec(updatePositionSQL, i, code); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("rollback reorder", "error", rbErr)
			}
			return fmt.Errorf("reorder %q: %w", code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}

	r.notifyLocked()
	return nil
}

func (r *repositoryImpl) ClearAllFavorites() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec(clearFavoritesSQL); err != nil {
		return fmt.Errorf("clear favorites: %w", err)
	}
	r.favorited = make(map[string]bool)
	r.hydrated = true

	r.notifyLocked()
	return nil
}

func (r *repositoryImpl) Subscribe(fn func(codes []string)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}
}

// notifyLocked invokes subscribers with the post-mutation order. Callers hold
// the write lock, which keeps notifications in mutation order.
func (r *repositoryImpl) notifyLocked() {
	if len(r.subscribers) == 0 {
		return
	}
	favs, err := r.loadAllLocked()
	if err != nil {
		slog.Error("load favorites for notify", "error", err)
		return
	}
	codes := make([]string, 0, len(favs))
	for _, f := range favs {
		codes = append(codes, f.BusStopCode)
	}
	for _, fn := range r.subscribers {
		fn(codes)
	}
}

func (r *repositoryImpl) loadAllLocked() ([]types.Favorite, error) {
	rows, err := r.db.Query(loadFavoritesSQL)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close favorites rows", "error", err)
		}
	}()

	var out []types.Favorite
	for rows.Next() {
		var f types.Favorite
		var createdAt int64
		if err := rows.Scan(&f.BusStopCode, &createdAt, &f.Position); err != nil {
			return nil, err
		}
		f.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, f)
	}
	return out, rows.Err()
}
