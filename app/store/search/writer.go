package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/store"
	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
)

// defaultBatchSize is number of documents sent to index at once during bootstrap
const defaultBatchSize = 1000

// progress reporting intervals, marker rows come faster so they are reported more often
var progressEvery = map[DocSource]time.Duration{
	DocSourceTour:     200 * time.Millisecond,
	DocSourceMarker:   50 * time.Millisecond,
	DocSourceWaypoint: 200 * time.Millisecond,
}

// SetupIndex creates all documents from src if tour index is empty.
// Returns false if index already has tours and nothing was done.
func (b *IndexBundle) SetupIndex(ctx context.Context, src engine.RowSource, monitor Monitor, batchSize int) (bool, error) {
	cnt, err := b.stores[DocSourceTour].DocCount()
	if err != nil {
		return false, errors.Wrap(err, "can't count tours in index")
	}
	if cnt > 0 {
		return false, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	log.Printf("[INFO] creating search index in %s", b.root)
	st := time.Now()
	counts := sync.Map{}
	grp := syncs.NewErrSizedGroup(len(docSources))

	grp.Go(func() error {
		return b.bootstrap(DocSourceTour, batchSize, monitor, &counts, func(add func(string, *Document) error) error {
			return src.ListTours(ctx, func(r engine.TourRow) error { return add(DocFromTour(r)) })
		})
	})
	grp.Go(func() error {
		return b.bootstrap(DocSourceMarker, batchSize, monitor, &counts, func(add func(string, *Document) error) error {
			return src.ListMarkers(ctx, func(m store.Marker) error { return add(DocFromMarker(m)) })
		})
	})
	grp.Go(func() error {
		return b.bootstrap(DocSourceWaypoint, batchSize, monitor, &counts, func(add func(string, *Document) error) error {
			return src.ListWaypoints(ctx, func(w store.Waypoint) error { return add(DocFromWaypoint(w)) })
		})
	})

	if err = grp.Wait(); err != nil {
		return true, errors.Wrap(err, "failed to create search index")
	}
	tours, _ := counts.Load(DocSourceTour)
	markers, _ := counts.Load(DocSourceMarker)
	waypoints, _ := counts.Load(DocSourceWaypoint)
	log.Printf("[INFO] search index created in %v, tours: %v, markers: %v, waypoints: %v",
		time.Since(st), tours, markers, waypoints)
	return true, nil
}

// bootstrap streams rows of one kind into its index with batches of batchSize documents
func (b *IndexBundle) bootstrap(kind DocSource, batchSize int, monitor Monitor, counts *sync.Map,
	list func(add func(string, *Document) error) error) error {

	index := b.stores[kind]
	batch := index.NewBatch()
	created := 0
	lastReport := time.Now()

	report := func(force bool) {
		if monitor == nil {
			return
		}
		if force || time.Since(lastReport) >= progressEvery[kind] {
			monitor.Progress(kind, created)
			lastReport = time.Now()
		}
	}

	err := list(func(id string, doc *Document) error {
		if err := batch.Index(id, doc); err != nil {
			return errors.Wrapf(err, "can't add %s to indexing batch", id)
		}
		created++
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return errors.Wrapf(err, "can't index %s batch", kind)
			}
			batch.Reset()
		}
		report(false)
		return nil
	})
	if err != nil {
		return err
	}
	if batch.Size() > 0 {
		if err = index.Batch(batch); err != nil {
			return errors.Wrapf(err, "can't index %s batch", kind)
		}
	}
	report(true)
	counts.Store(kind, created)
	return nil
}

// UpdateIndex replaces all documents of the tours with documents made from the aggregates.
// Deletes and additions of one index are committed in a single batch, indexes are updated one by one.
func (b *IndexBundle) UpdateIndex(tours []store.Tour) error {
	if len(tours) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(tours))
	docs := map[DocSource]map[string]*Document{}
	for _, t := range tours {
		ids = append(ids, t.ID)
		for kind, kindDocs := range tourDocuments(t) {
			if docs[kind] == nil {
				docs[kind] = map[string]*Document{}
			}
			for id, doc := range kindDocs {
				docs[kind][id] = doc
			}
		}
	}

	for _, kind := range docSources {
		if err := b.replaceTours(kind, ids, docs[kind]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTours removes documents of all kinds for given tours. Unknown tour ids are ignored.
func (b *IndexBundle) DeleteTours(tourIDs ...int64) error {
	for _, kind := range docSources {
		if err := b.replaceTours(kind, tourIDs, nil); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes all documents from all indexes
func (b *IndexBundle) DeleteAll() error {
	for _, kind := range docSources {
		index := b.stores[kind]
		ids, err := matchingIDs(index, bleve.NewMatchAllQuery())
		if err != nil {
			return errors.Wrapf(err, "can't list %s documents", kind)
		}
		if len(ids) == 0 {
			continue
		}
		batch := index.NewBatch()
		for _, id := range ids {
			batch.Delete(id)
		}
		if err = index.Batch(batch); err != nil {
			return errors.Wrapf(err, "can't delete %s documents", kind)
		}
		log.Printf("[INFO] %d %s documents deleted from search index", len(ids), kind)
	}
	return nil
}

// replaceTours deletes documents of tours from the index of given kind and adds docs, as one batch.
// Deletes go first, so document with the same id is replaced.
func (b *IndexBundle) replaceTours(kind DocSource, tourIDs []int64, docs map[string]*Document) error {
	index := b.stores[kind]
	batch := index.NewBatch()

	if len(tourIDs) > 0 {
		old, err := matchingIDs(index, tourQuery(tourIDs))
		if err != nil {
			return errors.Wrapf(err, "can't find %s documents of tours %v", kind, tourIDs)
		}
		for _, id := range old {
			batch.Delete(id)
		}
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := batch.Index(id, docs[id]); err != nil {
			return errors.Wrapf(err, "can't add %s to indexing batch", id)
		}
	}

	if batch.Size() == 0 {
		return nil
	}
	if err := index.Batch(batch); err != nil {
		return errors.Wrapf(err, "can't update %s index", kind)
	}
	return nil
}

// tourQuery matches documents of any of the tours
func tourQuery(tourIDs []int64) query.Query {
	qs := make([]query.Query, 0, len(tourIDs))
	inclusive := true
	for _, id := range tourIDs {
		v := float64(id)
		q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
		q.SetField(fieldTourID)
		qs = append(qs, q)
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// matchingIDs returns ids of all documents matching q
func matchingIDs(index bleve.Index, q query.Query) ([]string, error) {
	cnt, err := index.DocCount()
	if err != nil {
		return nil, err
	}
	if cnt == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(q, int(cnt), 0, false)
	res, err := index.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
