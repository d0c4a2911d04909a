package cmd

import (
	"context"

	log "github.com/go-pkgz/lgr"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
)

// RebuildCommand set of flags and command for index rebuild
type RebuildCommand struct {
	Search SearchGroup `group:"search" namespace:"search" env-namespace:"SEARCH"`
	SQLite string      `long:"sqlite" env:"SQLITE" description:"rebuild from sqlite tour tables instead of the data store"`

	CommonOpts
}

// Execute runs index rebuild from the data store or sqlite database, called by flag parser
func (rc *RebuildCommand) Execute(_ []string) error {
	ctx := context.Background()
	var src engine.RowSource
	if rc.SQLite != "" {
		sq, err := engine.NewSQLite(rc.SQLite)
		if err != nil {
			return errors.Wrap(err, "can't open row source")
		}
		defer sq.Close()
		src = sq
	} else {
		ds, err := rc.makeDataStore()
		if err != nil {
			return errors.Wrap(err, "can't open data store")
		}
		defer ds.Close()
		src = ds
	}

	svc, err := rc.makeSearch(ctx, rc.Search)
	if err != nil {
		return err
	}
	defer func() {
		if e := svc.Close(); e != nil {
			log.Printf("[WARN] can't close search service, %v", e)
		}
	}()

	if err = svc.Rebuild(ctx, src, progressLogger()); err != nil {
		return errors.Wrap(err, "can't rebuild search index")
	}
	log.Printf("[INFO] search index rebuilt in %s", rc.DBRoot)
	return nil
}

// DeleteCommand set of flags and command for removing tours from index
type DeleteCommand struct {
	Search SearchGroup `group:"search" namespace:"search" env-namespace:"SEARCH"`
	Tours  []int64     `long:"tour" description:"tour id to remove, repeat for many"`
	All    bool        `long:"all" description:"remove all documents"`

	CommonOpts
}

// Execute removes tours with their markers and waypoints from index, called by flag parser
func (dc *DeleteCommand) Execute(_ []string) error {
	if len(dc.Tours) == 0 && !dc.All {
		return errors.New("nothing to delete, use --tour or --all")
	}
	svc, err := dc.makeSearch(context.Background(), dc.Search)
	if err != nil {
		return err
	}
	defer func() {
		if e := svc.Close(); e != nil {
			log.Printf("[WARN] can't close search service, %v", e)
		}
	}()

	if dc.All {
		if err = svc.DeleteAll(); err != nil {
			return errors.Wrap(err, "can't clear search index")
		}
		log.Print("[INFO] all documents removed from search index")
		return nil
	}
	if err = svc.DeleteTour(dc.Tours...); err != nil {
		return errors.Wrapf(err, "can't delete tours %v", dc.Tours)
	}
	log.Printf("[INFO] tours %v removed from search index", dc.Tours)
	return nil
}
