package search

import (
	log "github.com/go-pkgz/lgr"

	"github.com/mytourbook/mytourbook-sub068/app/store"
	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
)

// Indexer receives tour changes, implemented by Service
type Indexer interface {
	Queue(tours ...store.Tour) error
	QueueDelete(tourIDs ...int64) error
}

// StoreEngineDecorator proxies requests to store/engine.Interface and index incoming data
type StoreEngineDecorator struct {
	engine.Interface
	searcher Indexer
}

// WrapEngine decorates engine with StoreEngineDecorator
func WrapEngine(e engine.Interface, s Indexer) engine.Interface {
	return &StoreEngineDecorator{
		Interface: e,
		searcher:  s,
	}
}

// SaveTour saves tour and reindexes it with markers and waypoints
func (e *StoreEngineDecorator) SaveTour(tour store.Tour) error {
	if err := e.Interface.SaveTour(tour); err != nil {
		return err
	}
	tour.Normalize()
	if err := e.searcher.Queue(tour); err != nil {
		log.Printf("[WARN] failed to update tour %d in index, %v", tour.ID, err)
	}
	return nil
}

// DeleteTour deletes tour from storage and index
func (e *StoreEngineDecorator) DeleteTour(tourID int64) error {
	if err := e.Interface.DeleteTour(tourID); err != nil {
		return err
	}
	if err := e.searcher.QueueDelete(tourID); err != nil {
		log.Printf("[WARN] failed to delete tour %d from index, %v", tourID, err)
	}
	return nil
}
