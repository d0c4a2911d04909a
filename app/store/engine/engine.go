// Package engine defines the tour data store consumed by the search index.
// RowSource is a read-only stream of flat rows used to bootstrap the index,
// Interface adds persistence of whole tour aggregates.
package engine

//go:generate mockery -inpkg -name Interface -case snake

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/store"
)

// ErrTourNotFound returned by GetTour and DeleteTour for unknown tour id
var ErrTourNotFound = errors.New("tour not found")

// TourRow is a flat tour record without markers and waypoints
type TourRow struct {
	ID          int64
	StartTime   int64
	Title       *string
	Description *string
	StartPlace  *string
	EndPlace    *string
	Weather     *string
}

// RowSource streams rows of the three source tables. Callback error stops the iteration and returned as is.
type RowSource interface {
	ListTours(ctx context.Context, fn func(TourRow) error) error
	ListMarkers(ctx context.Context, fn func(store.Marker) error) error
	ListWaypoints(ctx context.Context, fn func(store.Waypoint) error) error
}

// Interface combines row source with tour persistence
type Interface interface {
	RowSource
	SaveTour(tour store.Tour) error         // create or replace tour with markers and waypoints
	GetTour(tourID int64) (store.Tour, error) // get tour aggregate
	DeleteTour(tourID int64) error           // delete tour with markers and waypoints
	Close() error                            // close storage engine
}

// RowFromTour makes flat row of the tour aggregate
func RowFromTour(t store.Tour) TourRow {
	return TourRow{
		ID:          t.ID,
		StartTime:   t.StartTime,
		Title:       t.Title,
		Description: t.Description,
		StartPlace:  t.StartPlace,
		EndPlace:    t.EndPlace,
		Weather:     t.Weather,
	}
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
