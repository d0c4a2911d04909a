// Package store defines the tour aggregates shared by the data store and the search index
package store

import "time"

// Tour is a recorded tour with its markers and waypoints.
// Text fields are pointers, nil means the value is absent in the data store.
type Tour struct {
	ID          int64      `json:"id"`
	StartTime   int64      `json:"start_time"` // epoch millis
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartPlace  *string    `json:"start_place,omitempty"`
	EndPlace    *string    `json:"end_place,omitempty"`
	Weather     *string    `json:"weather,omitempty"`
	Markers     []Marker   `json:"markers,omitempty"`
	Waypoints   []Waypoint `json:"waypoints,omitempty"`
}

// Marker is a labeled point of a tour
type Marker struct {
	ID          int64   `json:"id"`
	TourID      int64   `json:"tour_id"`
	Label       *string `json:"label,omitempty"`
	Description *string `json:"description,omitempty"`
	Time        int64   `json:"time"` // epoch millis
}

// Waypoint is a named waypoint of a tour. Time 0 means the waypoint has no time.
type Waypoint struct {
	ID          int64   `json:"id"`
	TourID      int64   `json:"tour_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Time        int64   `json:"time"` // epoch millis
}

// Str returns pointer to s, handy for literals
func Str(s string) *string {
	return &s
}

// Val dereferences optional text, nil gives empty string
func Val(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StartedAt returns tour start as time.Time
func (t Tour) StartedAt() time.Time {
	return time.Unix(0, t.StartTime*int64(time.Millisecond))
}

// Normalize sets TourID of all markers and waypoints to the tour id.
// Slices are copied, caller's aggregate is not changed.
func (t *Tour) Normalize() {
	if t.Markers != nil {
		markers := make([]Marker, len(t.Markers))
		copy(markers, t.Markers)
		for i := range markers {
			markers[i].TourID = t.ID
		}
		t.Markers = markers
	}
	if t.Waypoints != nil {
		waypoints := make([]Waypoint, len(t.Waypoints))
		copy(waypoints, t.Waypoints)
		for i := range waypoints {
			waypoints[i].TourID = t.ID
		}
		t.Waypoints = waypoints
	}
}
