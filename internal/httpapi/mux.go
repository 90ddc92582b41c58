package httpapi

import (
	"database/sql"
	"net/http"
)

func NewMux(db *sql.DB, catalog catalogStateReporter) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, catalog)
	return mux
}
