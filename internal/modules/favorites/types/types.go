package types

import "time"

// Favorite is a user-pinned bus stop. Position is the explicit display rank;
// CreatedAt breaks ties (newest first) and is the default sort key.
type Favorite struct {
	BusStopCode string    `json:"busStopCode"`
	CreatedAt   time.Time `json:"createdAt"`
	Position    int       `json:"position"`
}
