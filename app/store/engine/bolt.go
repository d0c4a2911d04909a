package engine

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/mytourbook/mytourbook-sub068/app/store"
)

const toursBucketName = "tours"

// BoltDB implements engine.Interface, tours stored as json aggregates keyed by big-endian tour id
type BoltDB struct {
	db   *bolt.DB
	file string
}

// NewBoltDB makes persistent boltdb-based store
func NewBoltDB(file string, options bolt.Options) (*BoltDB, error) {
	log.Printf("[INFO] bolt store for %s, %+v", file, options)
	if options.Timeout == 0 {
		options.Timeout = 30 * time.Second
	}
	db, err := bolt.Open(file, 0o600, &options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to make boltdb for %s", file)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists([]byte(toursBucketName))
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to create top level bucket %s", toursBucketName)
	}
	return &BoltDB{db: db, file: file}, nil
}

// SaveTour creates or replaces tour aggregate
func (b *BoltDB) SaveTour(tour store.Tour) error {
	tour.Normalize()
	data, err := json.Marshal(tour)
	if err != nil {
		return errors.Wrapf(err, "can't marshal tour %d", tour.ID)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(toursBucketName)).Put(tourKey(tour.ID), data)
	})
}

// GetTour returns tour aggregate by id
func (b *BoltDB) GetTour(tourID int64) (tour store.Tour, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(toursBucketName)).Get(tourKey(tourID))
		if data == nil {
			return errors.Wrapf(ErrTourNotFound, "tour %d", tourID)
		}
		return json.Unmarshal(data, &tour)
	})
	return tour, err
}

// DeleteTour removes tour with all its markers and waypoints
func (b *BoltDB) DeleteTour(tourID int64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(toursBucketName))
		if bkt.Get(tourKey(tourID)) == nil {
			return errors.Wrapf(ErrTourNotFound, "tour %d", tourID)
		}
		return bkt.Delete(tourKey(tourID))
	})
}

// ListTours streams tour rows ordered by id
func (b *BoltDB) ListTours(ctx context.Context, fn func(TourRow) error) error {
	return b.forEach(ctx, func(t store.Tour) error {
		return fn(RowFromTour(t))
	})
}

// ListMarkers streams markers of all tours
func (b *BoltDB) ListMarkers(ctx context.Context, fn func(store.Marker) error) error {
	return b.forEach(ctx, func(t store.Tour) error {
		for _, m := range t.Markers {
			if err := fn(m); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListWaypoints streams waypoints of all tours
func (b *BoltDB) ListWaypoints(ctx context.Context, fn func(store.Waypoint) error) error {
	return b.forEach(ctx, func(t store.Tour) error {
		for _, w := range t.Waypoints {
			if err := fn(w); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close boltdb store
func (b *BoltDB) Close() error {
	if err := b.db.Close(); err != nil {
		return errors.Wrapf(err, "can't close store %s", b.file)
	}
	return nil
}

func (b *BoltDB) forEach(ctx context.Context, fn func(store.Tour) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(toursBucketName)).ForEach(func(k, v []byte) error {
			if err := checkCtx(ctx); err != nil {
				return err
			}
			tour := store.Tour{}
			if err := json.Unmarshal(v, &tour); err != nil {
				return errors.Wrapf(err, "can't unmarshal tour %d", int64(binary.BigEndian.Uint64(k)))
			}
			return fn(tour)
		})
	})
}

func tourKey(id int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}
