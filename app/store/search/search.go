// Package search provides full-text search over tours, tour markers and waypoints.
// Each kind lives in its own bleve index, all three are opened together as IndexBundle
// and queried through one index alias.
package search

import (
	"fmt"
	"time"
)

// DocSource is the kind of indexed document, value stored in docSource fields
type DocSource int

// enum of document kinds
const (
	DocSourceTour     DocSource = 1
	DocSourceMarker   DocSource = 2
	DocSourceWaypoint DocSource = 3
)

var docSources = []DocSource{DocSourceTour, DocSourceMarker, DocSourceWaypoint}

// Table returns name of the source table, also used as index directory name
func (d DocSource) Table() string {
	switch d {
	case DocSourceTour:
		return "TOUR_DATA"
	case DocSourceMarker:
		return "TOUR_MARKER"
	case DocSourceWaypoint:
		return "TOUR_WAYPOINT"
	}
	panic(fmt.Sprintf("unknown doc source %d", d))
}

func (d DocSource) String() string {
	switch d {
	case DocSourceTour:
		return "tour"
	case DocSourceMarker:
		return "marker"
	case DocSourceWaypoint:
		return "waypoint"
	}
	return fmt.Sprintf("DocSource(%d)", int(d))
}

// Field is a searchable text field of the indexed document
type Field int

// enum of searchable fields, order defines highlight and display order
const (
	FieldTitle Field = iota
	FieldDescription
	FieldStartLocation
	FieldEndLocation
	FieldWeather
)

var allFields = []Field{FieldTitle, FieldDescription, FieldStartLocation, FieldEndLocation, FieldWeather}

// Name returns field name in the index
func (f Field) Name() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldDescription:
		return "description"
	case FieldStartLocation:
		return "startLocation"
	case FieldEndLocation:
		return "endLocation"
	case FieldWeather:
		return "weather"
	}
	panic(fmt.Sprintf("unknown field %d", f))
}

func (f Field) String() string {
	return f.Name()
}

// assign puts field value into result item
func (f Field) assign(item *ResultItem, value string) {
	switch f {
	case FieldTitle:
		item.Title = value
	case FieldDescription:
		item.Description = value
	case FieldStartLocation:
		item.LocationStart = value
	case FieldEndLocation:
		item.LocationEnd = value
	case FieldWeather:
		item.Weather = value
	default:
		panic(fmt.Sprintf("unknown field %d", f))
	}
}

// Request is the input for Search, From and To are absolute inclusive positions in the ranked hits
type Request struct {
	Text string
	From int
	To   int
}

// ResultItem is one search hit. MarkerID holds waypoint id for waypoint hits.
type ResultItem struct {
	ItemNumber    int       `json:"itemNumber"` // absolute position in ranked hits, starts from 1
	DocID         string    `json:"docId"`
	DocSource     DocSource `json:"docSource"`
	TourID        int64     `json:"tourId,string"`
	MarkerID      int64     `json:"markerId,string,omitempty"`
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	LocationStart string    `json:"locationStart,omitempty"`
	LocationEnd   string    `json:"locationEnd,omitempty"`
	Weather       string    `json:"weather,omitempty"`
	TourStartTime int64     `json:"tourStartTime,omitempty"`
}

// Result returned from Search. Error is set on parse or execution failure, no hits reported in this case.
type Result struct {
	TotalHits  int           `json:"totalHits"`
	Items      []ResultItem  `json:"items"`
	Error      string        `json:"error,omitempty"`
	SearchTime time.Duration `json:"-"`
}

// Monitor receives progress of index creation, may be called from several goroutines
type Monitor interface {
	Progress(kind DocSource, created int)
}

// MonitorFunc is an adapter to use ordinary function as Monitor
type MonitorFunc func(kind DocSource, created int)

// Progress calls f(kind, created)
func (f MonitorFunc) Progress(kind DocSource, created int) {
	f(kind, created)
}
