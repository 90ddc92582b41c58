package repository

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/db/migrate"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	if err := migrate.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestLoadFavorites_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	codes, err := repo.LoadFavorites()
	if err != nil {
		t.Fatalf("LoadFavorites: %v", err)
	}
	if len(codes) != 0 {
		t.Fatalf("LoadFavorites: got %d codes, want 0", len(codes))
	}
}

func TestToggleFavorite_AddThenRemove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	favorited, err := repo.ToggleFavorite("01012")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !favorited {
		t.Fatal("first toggle: want favorited=true")
	}
	if !repo.IsFavorited("01012") {
		t.Fatal("IsFavorited after add: want true")
	}

	favorited, err = repo.ToggleFavorite("01012")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if favorited {
		t.Fatal("second toggle: want favorited=false")
	}
	if repo.IsFavorited("01012") {
		t.Fatal("IsFavorited after remove: want false")
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM favorites`).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if n != 0 {
		t.Fatalf("row count after toggle symmetry: got %d, want 0", n)
	}
}

func TestToggleFavorite_AssignsIncreasingPositions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	for _, code := range []string{"01012", "55281", "83139"} {
		if _, err := repo.ToggleFavorite(code); err != nil {
			t.Fatalf("toggle %s: %v", code, err)
		}
	}

	codes, err := repo.LoadFavorites()
	if err != nil {
		t.Fatalf("LoadFavorites: %v", err)
	}
	want := []string{"01012", "55281", "83139"}
	if len(codes) != len(want) {
		t.Fatalf("got %d codes, want %d", len(codes), len(want))
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("codes[%d] = %q, want %q", i, codes[i], want[i])
		}
	}
}

func TestToggleFavorite_EmptyCode(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if _, err := repo.ToggleFavorite(""); err == nil {
		t.Fatal("toggle with empty code: want error")
	}
}

func TestReorder(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for _, code := range []string{"a1", "b2"} {
		if _, err := repo.ToggleFavorite(code); err != nil {
			t.Fatalf("toggle %s: %v", code, err)
		}
	}
	if err := repo.Reorder([]string{"b2", "a1"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	codes, err := repo.LoadFavorites()
	if err != nil {
		t.Fatalf("LoadFavorites: %v", err)
	}
	if len(codes) != 2 || codes[0] != "b2" || codes[1] != "a1" {
		t.Fatalf("after reorder: got %v, want [b2 a1]", codes)
	}
}

func TestReorder_AbsentCodesUntouched(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for _, code := range []string{"a1", "b2", "c3"} {
		if _, err := repo.ToggleFavorite(code); err != nil {
			t.Fatalf("toggle %s: %v", code, err)
		}
	}
	// Only reorder two of the three; c3 keeps position 2.
	if err := repo.Reorder([]string{"b2", "a1"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	codes, err := repo.LoadFavorites()
	if err != nil {
		t.Fatalf("LoadFavorites: %v", err)
	}
	if len(codes) != 3 || codes[0] != "b2" || codes[1] != "a1" || codes[2] != "c3" {
		t.Fatalf("after partial reorder: got %v, want [b2 a1 c3]", codes)
	}
}

func TestLoadFavorites_TiesBrokenByNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	// Same position, different creation times.
	older := time.Now().Add(-time.Hour).UnixMilli()
	newer := time.Now().UnixMilli()
	if _, err := db.Exec(
		`INSERT INTO favorites (bus_stop_code, created_at, position) VALUES (?, ?, 0), (?, ?, 0)`,
		"old", older, "new", newer,
	); err != nil {
		t.Fatalf("insert rows: %v", err)
	}

	codes, err := repo.LoadFavorites()
	if err != nil {
		t.Fatalf("LoadFavorites: %v", err)
	}
	if len(codes) != 2 || codes[0] != "new" || codes[1] != "old" {
		t.Fatalf("tie order: got %v, want [new old]", codes)
	}
}

func TestClearAllFavorites(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	if _, err := repo.ToggleFavorite("01012"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := repo.ClearAllFavorites(); err != nil {
		t.Fatalf("ClearAllFavorites: %v", err)
	}
	if repo.IsFavorited("01012") {
		t.Fatal("IsFavorited after clear: want false")
	}
	codes, err := repo.LoadFavorites()
	if err != nil {
		t.Fatalf("LoadFavorites: %v", err)
	}
	if len(codes) != 0 {
		t.Fatalf("after clear: got %d codes, want 0", len(codes))
	}
}

func TestSubscribe_NotifiedOnMutation(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	var got [][]string
	unsubscribe := repo.Subscribe(func(codes []string) {
		got = append(got, codes)
	})

	if _, err := repo.ToggleFavorite("01012"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 1 || got[0][0] != "01012" {
		t.Fatalf("after toggle: notifications %v, want [[01012]]", got)
	}

	unsubscribe()
	if _, err := repo.ToggleFavorite("55281"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("after unsubscribe: got %d notifications, want 1", len(got))
	}
}
