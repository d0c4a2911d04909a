package cmd

import (
	"context"

	log "github.com/go-pkgz/lgr"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

// ImportCommand set of flags and command for import
type ImportCommand struct {
	Search SearchGroup `group:"search" namespace:"search" env-namespace:"SEARCH"`
	SQLite string      `long:"sqlite" env:"SQLITE" required:"true" description:"sqlite database with tour tables"`

	CommonOpts
}

// Execute copies tours from sqlite database to the data store, every tour is reindexed.
// Called by flag parser.
func (ic *ImportCommand) Execute(_ []string) error {
	ctx := context.Background()
	log.Printf("[INFO] import tours from %s", ic.SQLite)

	src, err := engine.NewSQLite(ic.SQLite)
	if err != nil {
		return errors.Wrap(err, "can't open import source")
	}
	defer src.Close()

	tours, err := src.Tours(ctx)
	if err != nil {
		return errors.Wrap(err, "can't read tours")
	}

	dataStore, err := ic.makeDataStore()
	if err != nil {
		return errors.Wrap(err, "can't open data store")
	}
	defer dataStore.Close()

	svc, err := ic.makeSearch(ctx, ic.Search)
	if err != nil {
		return err
	}
	defer func() {
		if e := svc.Close(); e != nil {
			log.Printf("[WARN] can't close search service, %v", e)
		}
	}()
	if err = svc.Init(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "can't start search service")
	}

	store := search.WrapEngine(dataStore, svc)
	for _, t := range tours {
		if err = store.SaveTour(t); err != nil {
			return errors.Wrapf(err, "can't save tour %d", t.ID)
		}
	}
	if err = svc.Flush(); err != nil {
		return errors.Wrap(err, "can't index imported tours")
	}
	log.Printf("[INFO] imported %d tours", len(tours))
	return nil
}
