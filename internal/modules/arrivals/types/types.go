package types

import "time"

// NextBus is one predicted arrival for a service at a stop.
type NextBus struct {
	EstimatedArrival time.Time `json:"estimatedArrival"`
	Load             string    `json:"load,omitempty"`
	Feature          string    `json:"feature,omitempty"`
	Type             string    `json:"type,omitempty"`
}

// Service groups the next few arrivals of one bus service.
type Service struct {
	ServiceNo string    `json:"serviceNo"`
	Operator  string    `json:"operator,omitempty"`
	NextBuses []NextBus `json:"nextBuses"`
}

// StopArrivals is the live-arrivals snapshot for a single stop.
type StopArrivals struct {
	BusStopCode string    `json:"busStopCode"`
	RetrievedAt time.Time `json:"retrievedAt"`
	Services    []Service `json:"services"`
}

// WatchSession describes the active auto-refresh watch, if any.
type WatchSession struct {
	BusStopCode string `json:"busStopCode"`
	IntervalMS  int64  `json:"intervalMs"`
	Paused      bool   `json:"paused"`
}
