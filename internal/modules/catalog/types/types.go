package types

import "time"

// BusStop is one catalog entry. Code is the stable primary key; entries are
// only replaced wholesale on catalog refresh.
type BusStop struct {
	Code        string  `json:"code"`
	RoadName    string  `json:"roadName"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// CacheMetadata records when the catalog was last populated. The row exists
// iff the catalog has been successfully populated at least once.
type CacheMetadata struct {
	LastRefreshedAt time.Time `json:"lastRefreshedAt"`
}

// State of the catalog cache.
type State string

const (
	StateEmpty      State = "empty"
	StatePopulating State = "populating"
	StateFresh      State = "fresh"
	StateStale      State = "stale"
)
