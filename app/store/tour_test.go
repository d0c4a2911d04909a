package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTour_Normalize(t *testing.T) {
	tour := Tour{ID: 42, Markers: []Marker{{ID: 1}, {ID: 2, TourID: 7}}, Waypoints: []Waypoint{{ID: 3}}}
	tour.Normalize()
	assert.Equal(t, int64(42), tour.Markers[0].TourID)
	assert.Equal(t, int64(42), tour.Markers[1].TourID)
	assert.Equal(t, int64(42), tour.Waypoints[0].TourID)
}

func TestTour_StartedAt(t *testing.T) {
	ts := time.Date(2020, 6, 1, 10, 0, 0, 0, time.UTC)
	tour := Tour{StartTime: ts.UnixNano() / int64(time.Millisecond)}
	assert.True(t, ts.Equal(tour.StartedAt()))
}

func TestStrVal(t *testing.T) {
	assert.Equal(t, "", Val(nil))
	assert.Equal(t, "abc", Val(Str("abc")))
	assert.Equal(t, "", Val(Str("")))
}

func TestTour_NormalizeCopies(t *testing.T) {
	markers := []Marker{{ID: 1}}
	tour := Tour{ID: 5, Markers: markers}
	tour.Normalize()
	assert.Equal(t, int64(5), tour.Markers[0].TourID)
	assert.Equal(t, int64(0), markers[0].TourID, "original slice untouched")
	assert.Nil(t, tour.Waypoints)
}
