package search

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/go-pkgz/repeater"
	log "github.com/go-pkgz/lgr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// IndexDirName is the directory under database root holding all three indexes
const IndexDirName = "lucene-index"

// formatVersion is bumped on any incompatible mapping change, stores with other version are recreated
const formatVersion = "2"

var formatKey = []byte("ft_format")

var (
	errIncompatibleFormat = errors.New("incompatible index format")
	errNotRecoverable     = errors.New("index can't be recovered")
)

// IndexBundle owns tour, marker and waypoint indexes. They are opened and closed together.
type IndexBundle struct {
	root   string
	stores map[DocSource]bleve.Index
}

// OpenBundle opens or creates all three indexes under <dbRoot>/lucene-index.
// Indexes opened before a failure are closed.
func OpenBundle(ctx context.Context, dbRoot string) (*IndexBundle, error) {
	b := &IndexBundle{root: filepath.Join(dbRoot, IndexDirName), stores: map[DocSource]bleve.Index{}}
	complete := false
	defer func() {
		if !complete {
			if err := b.Close(); err != nil {
				log.Printf("[WARN] failed to release partially opened index, %v", err)
			}
		}
	}()

	for _, kind := range docSources {
		idx, err := openStore(ctx, b.Path(kind))
		if err != nil {
			return nil, errors.Wrapf(err, "can't open %s index", kind)
		}
		b.stores[kind] = idx
	}
	complete = true
	return b, nil
}

// Path returns directory of the index for given kind
func (b *IndexBundle) Path(kind DocSource) string {
	return filepath.Join(b.root, kind.Table())
}

// Store returns index of given kind
func (b *IndexBundle) Store(kind DocSource) bleve.Index {
	return b.stores[kind]
}

// DocCount returns number of documents in all indexes
func (b *IndexBundle) DocCount() (uint64, error) {
	var total uint64
	for _, kind := range docSources {
		cnt, err := b.stores[kind].DocCount()
		if err != nil {
			return 0, errors.Wrapf(err, "can't count %s documents", kind)
		}
		total += cnt
	}
	return total, nil
}

// alias combines all indexes into one searchable reader
func (b *IndexBundle) alias() bleve.IndexAlias {
	return bleve.NewIndexAlias(b.stores[DocSourceTour], b.stores[DocSourceMarker], b.stores[DocSourceWaypoint])
}

// Close all indexes
func (b *IndexBundle) Close() error {
	errs := new(multierror.Error)
	for kind, idx := range b.stores {
		if idx == nil {
			continue
		}
		if err := idx.Close(); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "can't close %s index", kind))
		}
		delete(b.stores, kind)
	}
	return errs.ErrorOrNil()
}

// openStore opens index, incompatible index is removed and created again, once
func openStore(ctx context.Context, indexPath string) (bleve.Index, error) {
	var index bleve.Index
	var openErr error
	err := repeater.NewDefault(2, 10*time.Millisecond).Do(ctx, func() error {
		index, openErr = openOrCreate(indexPath)
		if openErr == nil {
			return nil
		}
		if !isIncompatible(openErr) {
			return errNotRecoverable
		}
		log.Printf("[ERROR] search index %s is not usable, %v. removing it", indexPath, openErr)
		if e := os.RemoveAll(indexPath); e != nil {
			openErr = errors.Wrapf(e, "can't remove index %s", indexPath)
			return errNotRecoverable
		}
		return openErr
	}, errNotRecoverable)
	if err != nil {
		if openErr != nil {
			return nil, openErr
		}
		return nil, err
	}
	return index, nil
}

func openOrCreate(indexPath string) (bleve.Index, error) {
	st, errOpen := os.Stat(indexPath)
	switch {
	case os.IsNotExist(errOpen):
		log.Printf("[INFO] creating new search index %s", indexPath)
		m, err := createIndexMapping()
		if err != nil {
			return nil, err
		}
		index, err := bleve.New(indexPath, m)
		if err != nil {
			return nil, errors.Wrap(err, "cannot create index")
		}
		if err = index.SetInternal(formatKey, []byte(formatVersion)); err != nil {
			_ = index.Close()
			return nil, errors.Wrap(err, "cannot set index format")
		}
		return index, nil
	case errOpen == nil:
		if !st.IsDir() {
			return nil, errors.Wrapf(errIncompatibleFormat, "index path %s should be a directory", indexPath)
		}
		log.Printf("[DEBUG] opening existing search index %s", indexPath)
		index, err := bleve.Open(indexPath)
		if err != nil {
			return nil, errors.Wrap(err, "cannot open index")
		}
		ver, err := index.GetInternal(formatKey)
		if err != nil || string(ver) != formatVersion {
			_ = index.Close()
			return nil, errors.Wrapf(errIncompatibleFormat, "format %q, expected %q", string(ver), formatVersion)
		}
		return index, nil
	default:
		return nil, errors.Wrap(errOpen, "cannot open index")
	}
}

func isIncompatible(err error) bool {
	switch errors.Cause(err) {
	case errIncompatibleFormat, bleve.ErrorIndexMetaMissing, bleve.ErrorIndexMetaCorrupt,
		bleve.ErrorUnknownIndexType:
		return true
	}
	return false
}
