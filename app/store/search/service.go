package search

import (
	"context"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/go-pkgz/lcw"
	log "github.com/go-pkgz/lgr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/store"
	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
)

// ServiceParams contains configuration for search service
type ServiceParams struct {
	DBRoot       string        // indexes are kept in <DBRoot>/lucene-index
	OptionsStore *OptionsStore // nil keeps options in memory
	Highlighter  Highlighter
	CacheSize    int // max number of cached ranked queries
	BatchSize    int // documents per batch on bootstrap
	FlushEvery   time.Duration
	FlushCount   int
}

// Service provides search, suggestions and index maintenance
type Service struct {
	params ServiceParams
	bundle *IndexBundle
	worker *bufferedEngine

	writeLock sync.Mutex // serializes index writes

	readLock sync.RWMutex
	rd       *reader // nil after invalidation, made on demand

	optLock sync.RWMutex
	state   State
}

// reader is the cached read state, dropped after every index write
type reader struct {
	alias       bleve.IndexAlias
	hits        lcw.LoadingCache
	suggestOnce sync.Once
	suggest     *suggester
}

// NewService opens indexes and loads persisted options
func NewService(ctx context.Context, params ServiceParams) (*Service, error) {
	if params.OptionsStore == nil {
		params.OptionsStore = NewOptionsStore("")
	}
	if params.Highlighter == (Highlighter{}) {
		params.Highlighter = DefaultHighlighter()
	}
	if params.CacheSize <= 0 {
		params.CacheSize = 100
	}
	if params.FlushEvery <= 0 {
		params.FlushEvery = 2 * time.Second
	}
	if params.FlushCount <= 0 {
		params.FlushCount = 100
	}

	bundle, err := OpenBundle(ctx, params.DBRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open search index")
	}
	state, err := params.OptionsStore.Load()
	if err != nil {
		log.Printf("[WARN] search options not loaded, defaults used, %v", err)
	}

	s := &Service{params: params, bundle: bundle, state: state}
	s.worker = newBufferedEngine(s, bundle.root, params.FlushEvery, params.FlushCount)
	return s, nil
}

// Init creates index from src if it is empty, starts update worker and applies updates saved on last shutdown
func (s *Service) Init(ctx context.Context, src engine.RowSource, monitor Monitor) error {
	if src != nil {
		s.writeLock.Lock()
		created, err := s.bundle.SetupIndex(ctx, src, monitor, s.params.BatchSize)
		s.writeLock.Unlock()
		if created {
			s.Invalidate()
		}
		if err != nil {
			return err
		}
	}
	s.worker.Start()
	if _, err := s.worker.Init(ctx); err != nil {
		return errors.Wrap(err, "failed to restore index updates")
	}
	return nil
}

// Search runs query and returns requested slice of ranked hits
func (s *Service) Search(req Request) *Result {
	st := time.Now()
	opts := s.Options()
	res := &Result{Items: []ResultItem{}}
	defer func() { res.SearchTime = time.Since(st) }()

	err := s.withReader(func(rd *reader) error {
		cnt, err := rd.alias.DocCount()
		if err != nil {
			return errors.Wrap(err, "can't count documents")
		}
		if cnt == 0 {
			return nil
		}

		text := prepareText(req.Text, opts.EaseSearching)
		q, err := buildQuery(text, opts)
		if err != nil {
			return err
		}

		ids, err := rd.ranked(text, opts, q, int(cnt))
		if err != nil {
			return err
		}
		res.TotalHits = len(ids)

		from, to, ok := pageRange(req.From, req.To, len(ids))
		if !ok {
			return nil
		}
		page := ids[from:to]

		serp, err := rd.alias.Search(pageRequest(q, page))
		if err != nil {
			return errors.Wrap(err, "can't load search page")
		}
		if err = statusError(serp); err != nil {
			return err
		}
		byID := make(map[string]int, len(serp.Hits))
		for i, h := range serp.Hits {
			byID[h.ID] = i
		}
		hits := serp.Hits[:0:0]
		for _, id := range page {
			if i, found := byID[id]; found {
				hits = append(hits, serp.Hits[i])
			}
		}

		fields := opts.Fields()
		docs := newHitDocs(hits, s.loadDocument)
		highlights := s.params.Highlighter.highlightFields(docs, fields)
		res.Items = pivot(highlights, fields, docs, opts, from)
		return docs.err
	})
	if err != nil {
		log.Printf("[WARN] search for %q failed, %v", req.Text, err)
		return &Result{Items: []ResultItem{}, Error: err.Error(), SearchTime: time.Since(st)}
	}
	log.Printf("[DEBUG] found %d hits for %q in %v", res.TotalHits, req.Text, time.Since(st))
	return res
}

// statusError reports failure of any index, alias returns partial result in this case
func statusError(serp *bleve.SearchResult) error {
	if serp.Status == nil || serp.Status.Failed == 0 {
		return nil
	}
	for name, err := range serp.Status.Errors {
		return errors.Wrapf(err, "search failed in %s", name)
	}
	return errors.Errorf("search failed in %d indexes", serp.Status.Failed)
}

// loadDocument reads stored fields of the document from the index of its kind
func (s *Service) loadDocument(id string) (index.Document, error) {
	kind, ok := kindOf(id)
	if !ok {
		return nil, errors.Errorf("unknown document kind of %s", id)
	}
	return s.bundle.Store(kind).Document(id)
}

// Suggest returns completions of the text, empty if there is nothing to suggest
func (s *Service) Suggest(text string) []string {
	var res []string
	err := s.withReader(func(rd *reader) error {
		rd.suggestOnce.Do(func() {
			sg, err := newSuggester(rd.alias, s.bundle.Store(DocSourceTour).Mapping())
			if err != nil {
				log.Printf("[DEBUG] suggestions not available, %v", err)
				return
			}
			rd.suggest = sg
		})
		res = rd.suggest.Lookup(text, suggestLimit)
		return nil
	})
	if err != nil || res == nil {
		return []string{}
	}
	return res
}

// UpdateIndex replaces documents of the tours
func (s *Service) UpdateIndex(tours ...store.Tour) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	defer s.Invalidate()
	return s.bundle.UpdateIndex(tours)
}

// DeleteTour removes tours with their markers and waypoints from index
func (s *Service) DeleteTour(tourIDs ...int64) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	defer s.Invalidate()
	return s.bundle.DeleteTours(tourIDs...)
}

// DeleteAll removes all documents from index
func (s *Service) DeleteAll() error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	defer s.Invalidate()
	return s.bundle.DeleteAll()
}

// Rebuild deletes all documents and creates index from src again
func (s *Service) Rebuild(ctx context.Context, src engine.RowSource, monitor Monitor) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	defer s.Invalidate()

	if err := s.bundle.DeleteAll(); err != nil {
		return errors.Wrap(err, "can't clear index")
	}
	_, err := s.bundle.SetupIndex(ctx, src, monitor, s.params.BatchSize)
	return err
}

// Queue tours for reindexing by background worker
func (s *Service) Queue(tours ...store.Tour) error {
	for _, t := range tours {
		if err := s.worker.Queue(t); err != nil {
			return err
		}
	}
	return nil
}

// QueueDelete queues deletion of tours by background worker
func (s *Service) QueueDelete(tourIDs ...int64) error {
	for _, id := range tourIDs {
		if err := s.worker.QueueDelete(id); err != nil {
			return err
		}
	}
	return nil
}

// Flush waits till queued changes are applied
func (s *Service) Flush() error {
	return s.worker.Flush()
}

// Invalidate drops cached reader, ranked hits and suggester. Safe to call many times.
func (s *Service) Invalidate() {
	s.readLock.Lock()
	defer s.readLock.Unlock()
	if s.rd == nil {
		return
	}
	s.rd.hits.Purge()
	if err := s.rd.alias.Close(); err != nil {
		log.Printf("[WARN] can't close index reader, %v", err)
	}
	s.rd = nil
}

// Options returns current search options
func (s *Service) Options() Options {
	s.optLock.RLock()
	defer s.optLock.RUnlock()
	return s.state.Options
}

// State returns current options and last search text
func (s *Service) State() State {
	s.optLock.RLock()
	defer s.optLock.RUnlock()
	return s.state
}

// SetOptions replaces and persists options
func (s *Service) SetOptions(opts Options) error {
	s.optLock.Lock()
	defer s.optLock.Unlock()
	s.state.Options = opts
	return s.params.OptionsStore.Save(s.state)
}

// ResetOptions restores and persists default options
func (s *Service) ResetOptions() (Options, error) {
	return DefaultOptions(), s.SetOptions(DefaultOptions())
}

// SetSearchText remembers last search text
func (s *Service) SetSearchText(text string) error {
	s.optLock.Lock()
	defer s.optLock.Unlock()
	if s.state.SearchText == text {
		return nil
	}
	s.state.SearchText = text
	return s.params.OptionsStore.Save(s.state)
}

// Close stops update worker and closes indexes
func (s *Service) Close() error {
	log.Print("[INFO] closing search service...")
	errs := new(multierror.Error)
	if err := s.worker.Close(); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "cannot stop indexer worker"))
	}
	s.Invalidate()
	if err := s.bundle.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	log.Print("[INFO] search service closed")
	return errs.ErrorOrNil()
}

// withReader runs fn with current reader, reader is made if missing
func (s *Service) withReader(fn func(rd *reader) error) error {
	for {
		done, err := s.tryReader(fn)
		if done {
			return err
		}
		if err = s.openReader(); err != nil {
			return err
		}
	}
}

func (s *Service) tryReader(fn func(rd *reader) error) (bool, error) {
	s.readLock.RLock()
	defer s.readLock.RUnlock()
	if s.rd == nil {
		return false, nil
	}
	return true, fn(s.rd)
}

func (s *Service) openReader() error {
	s.readLock.Lock()
	defer s.readLock.Unlock()
	if s.rd != nil {
		return nil
	}
	hits, err := lcw.NewLruCache(lcw.MaxKeys(s.params.CacheSize))
	if err != nil {
		return errors.Wrap(err, "can't make hits cache")
	}
	s.rd = &reader{alias: s.bundle.alias(), hits: hits}
	return nil
}

// ranked returns ids of all hits in sort order, cached by text and options
func (rd *reader) ranked(text string, opts Options, q query.Query, size int) ([]string, error) {
	val, err := rd.hits.Get(text+"|"+opts.fingerprint(), func() (lcw.Value, error) {
		serp, err := rd.alias.Search(rankedRequest(q, size, opts.SortDateAscending))
		if err != nil {
			return nil, errors.Wrap(err, "search failed")
		}
		if err = statusError(serp); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(serp.Hits))
		for _, h := range serp.Hits {
			ids = append(ids, h.ID)
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]string), nil
}
