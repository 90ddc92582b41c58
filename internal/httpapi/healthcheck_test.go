package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
)

type fakeStateReporter struct {
	state types.State
	err   error
}

func (f *fakeStateReporter) State() (types.State, error) { return f.state, f.err }

func Test_handleHealthz(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	t.Run("reports ok and the catalog state", func(t *testing.T) {
		mux := NewMux(db, &fakeStateReporter{state: types.StateFresh})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["status"] != "ok" || body["catalog"] != "fresh" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("fails when the store is gone", func(t *testing.T) {
		closed, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		if err := closed.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
		mux := NewMux(closed, &fakeStateReporter{state: types.StateFresh})

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}
