package engine

import (
	"context"
	"database/sql"
	"os"

	log "github.com/go-pkgz/lgr"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers "sqlite" driver

	"github.com/mytourbook/mytourbook-sub068/app/store"
)

const (
	sqlListTours = `SELECT tourId, tourStartTime, tourTitle, tourDescription, tourStartPlace, tourEndPlace, weather
		FROM TOUR_DATA ORDER BY tourId`
	sqlListMarkers = `SELECT markerId, TOURDATA_TOURID, label, description, tourTime
		FROM TOUR_MARKER ORDER BY markerId`
	sqlListWaypoints = `SELECT TOURWAYPOINTID, TOURDATA_TOURID, name, description, time
		FROM TOUR_WAYPOINT ORDER BY TOURWAYPOINTID`
)

// SQLite is a read-only RowSource over the relational tour tables
type SQLite struct {
	db   *sql.DB
	file string
}

// NewSQLite opens existing database file in read-only mode
func NewSQLite(file string) (*SQLite, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, errors.Wrapf(err, "can't access %s", file)
	}
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open sqlite %s", file)
	}
	db.SetMaxOpenConns(1) // query_only pragma is per connection
	if _, err = db.Exec("PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "can't set read-only mode for %s", file)
	}
	log.Printf("[INFO] sqlite row source %s", file)
	return &SQLite{db: db, file: file}, nil
}

// ListTours streams TOUR_DATA rows
func (s *SQLite) ListTours(ctx context.Context, fn func(TourRow) error) error {
	return s.query(ctx, sqlListTours, func(rows *sql.Rows) error {
		var r TourRow
		var start sql.NullInt64
		var title, descr, startPlace, endPlace, weather sql.NullString
		if err := rows.Scan(&r.ID, &start, &title, &descr, &startPlace, &endPlace, &weather); err != nil {
			return errors.Wrap(err, "can't scan tour row")
		}
		r.StartTime = start.Int64
		r.Title, r.Description = strPtr(title), strPtr(descr)
		r.StartPlace, r.EndPlace, r.Weather = strPtr(startPlace), strPtr(endPlace), strPtr(weather)
		return fn(r)
	})
}

// ListMarkers streams TOUR_MARKER rows
func (s *SQLite) ListMarkers(ctx context.Context, fn func(store.Marker) error) error {
	return s.query(ctx, sqlListMarkers, func(rows *sql.Rows) error {
		var m store.Marker
		var tourID, tm sql.NullInt64
		var label, descr sql.NullString
		if err := rows.Scan(&m.ID, &tourID, &label, &descr, &tm); err != nil {
			return errors.Wrap(err, "can't scan marker row")
		}
		m.TourID, m.Time = tourID.Int64, tm.Int64
		m.Label, m.Description = strPtr(label), strPtr(descr)
		return fn(m)
	})
}

// ListWaypoints streams TOUR_WAYPOINT rows
func (s *SQLite) ListWaypoints(ctx context.Context, fn func(store.Waypoint) error) error {
	return s.query(ctx, sqlListWaypoints, func(rows *sql.Rows) error {
		var w store.Waypoint
		var tourID, tm sql.NullInt64
		var name, descr sql.NullString
		if err := rows.Scan(&w.ID, &tourID, &name, &descr, &tm); err != nil {
			return errors.Wrap(err, "can't scan waypoint row")
		}
		w.TourID, w.Time = tourID.Int64, tm.Int64
		w.Name, w.Description = strPtr(name), strPtr(descr)
		return fn(w)
	})
}

// Tours loads all tours with markers and waypoints, used to import into another store
func (s *SQLite) Tours(ctx context.Context) ([]store.Tour, error) {
	tours := []store.Tour{}
	idx := map[int64]int{}
	err := s.ListTours(ctx, func(r TourRow) error {
		idx[r.ID] = len(tours)
		tours = append(tours, store.Tour{ID: r.ID, StartTime: r.StartTime, Title: r.Title, Description: r.Description,
			StartPlace: r.StartPlace, EndPlace: r.EndPlace, Weather: r.Weather})
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = s.ListMarkers(ctx, func(m store.Marker) error {
		if i, ok := idx[m.TourID]; ok {
			tours[i].Markers = append(tours[i].Markers, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = s.ListWaypoints(ctx, func(w store.Waypoint) error {
		if i, ok := idx[w.TourID]; ok {
			tours[i].Waypoints = append(tours[i].Waypoints, w)
		}
		return nil
	})
	return tours, err
}

// Close database
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) query(ctx context.Context, q string, scan func(rows *sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return errors.Wrapf(err, "query failed for %s", s.file)
	}
	defer rows.Close() // nolint

	for rows.Next() {
		if err = checkCtx(ctx); err != nil {
			return err
		}
		if err = scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
