package domain

import (
	"time"
)

// CountdownSeconds is the length of one refresh cycle.
const CountdownSeconds = 15

// Stop is a transit station returned by a proximity search.
type Stop struct {
	StopID   string  `json:"stopId"`
	StopName string  `json:"stopName"`
	Distance float64 `json:"distance"`
}

// Train is a single predicted arrival.
type Train struct {
	ArrivalTime string `json:"arrivalTime"`
	TripID      string `json:"tripId"`
	RouteID     string `json:"routeId"`
}

// StationArrivals groups upcoming trains at one stop by direction.
type StationArrivals struct {
	StopID     string  `json:"stopId"`
	Southbound []Train `json:"southbound"`
	Northbound []Train `json:"northbound"`
}

// Empty reports whether no train is expected in either direction.
func (s StationArrivals) Empty() bool {
	return len(s.Southbound) == 0 && len(s.Northbound) == 0
}

// CountdownState is the visible refresh countdown.
type CountdownState struct {
	SecondsRemaining int    `json:"secondsRemaining"`
	RefreshEpoch     uint64 `json:"refreshEpoch"`
}

// Snapshot is the read model a presentation layer renders.
// Arrivals is nil while the first fetch for the current stations is pending.
type Snapshot struct {
	SessionID          string            `json:"sessionId"`
	Location           *Coordinate       `json:"location"`
	LocationSource     LocationSource    `json:"locationSource"`
	UsedFallbackDenied bool              `json:"usedFallbackDenied"`
	UsedIPFallback     bool              `json:"usedIpFallback"`
	Radius             Radius            `json:"radius"`
	Stations           []Stop            `json:"stations"`
	NoTrainsFound      bool              `json:"noTrainsFound"`
	Arrivals           []StationArrivals `json:"arrivals"`
	Countdown          CountdownState    `json:"countdown"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// StopIDs returns the ids of stops in order.
func StopIDs(stops []Stop) []string {
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.StopID
	}
	return ids
}
