// Package cmd has all top-level commands dispatched by main's flag.Parse
// The entry point for each command is Execute function
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

// CommonOptionsCommander extends flags.Commander with SetCommon
// All commands should implement this interfaces
type CommonOptionsCommander interface {
	SetCommon(commonOpts CommonOpts)
	Execute(args []string) error
}

// CommonOpts sets externally from main, shared across all commands
type CommonOpts struct {
	DBRoot   string
	Revision string
}

// SearchGroup defines options of the search index, shared by commands working with it
type SearchGroup struct {
	BatchSize  int           `long:"batch" env:"BATCH" default:"1000" description:"documents per batch on index creation"`
	CacheSize  int           `long:"cache" env:"CACHE" default:"100" description:"max number of cached queries"`
	FlushEvery time.Duration `long:"flush-every" env:"FLUSH_EVERY" default:"2s" description:"how often queued tours are indexed"`
	FlushCount int           `long:"flush-count" env:"FLUSH_COUNT" default:"100" description:"number of queued tours forcing indexing"`
	Snippet    int           `long:"snippet" env:"SNIPPET" default:"160" description:"max length of highlighted snippet"`
}

// SetCommon satisfies CommonOptionsCommander interface and sets common option fields
// The method called by main for each command
func (c *CommonOpts) SetCommon(commonOpts CommonOpts) {
	c.DBRoot = commonOpts.DBRoot
	c.Revision = commonOpts.Revision
}

// dataFile is the bolt file with tours
func (c *CommonOpts) dataFile() string {
	return filepath.Join(c.DBRoot, "tours.db")
}

func (c *CommonOpts) makeDataStore() (*engine.BoltDB, error) {
	if err := makeDirs(c.DBRoot); err != nil {
		return nil, err
	}
	return engine.NewBoltDB(c.dataFile(), bolt.Options{Timeout: 30 * time.Second})
}

func (c *CommonOpts) makeSearch(ctx context.Context, grp SearchGroup) (*search.Service, error) {
	if err := makeDirs(c.DBRoot); err != nil {
		return nil, err
	}
	hl := search.DefaultHighlighter()
	if grp.Snippet > 0 {
		hl.FragmentSize = grp.Snippet
	}
	svc, err := search.NewService(ctx, search.ServiceParams{
		DBRoot:       c.DBRoot,
		OptionsStore: search.NewOptionsStore(filepath.Join(c.DBRoot, "search-options.yml")),
		Highlighter:  hl,
		CacheSize:    grp.CacheSize,
		BatchSize:    grp.BatchSize,
		FlushEvery:   grp.FlushEvery,
		FlushCount:   grp.FlushCount,
	})
	return svc, errors.Wrap(err, "can't make search service")
}

// progressLogger reports index creation progress
func progressLogger() search.Monitor {
	return search.MonitorFunc(func(kind search.DocSource, created int) {
		log.Printf("[INFO] %s index, %d documents", kind, created)
	})
}

// mkdir -p for all dirs
func makeDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrapf(err, "can't make directory %s", dir)
		}
	}
	return nil
}
