package search

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gammazero/deque"
	log "github.com/go-pkgz/lgr"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/store"
)

const aheadLogFname = ".ahead.log"

// indexer applies tour changes to the index
type indexer interface {
	UpdateIndex(tours ...store.Tour) error
	DeleteTour(tourIDs ...int64) error
}

type idxFlusher struct {
	notifier chan error
}

// tourEvent is a queued change, Tour is nil for deletion
type tourEvent struct {
	Tour   *store.Tour `json:"tour,omitempty"`
	TourID int64       `json:"tour_id"`
}

// bufferedEngine collects modified and deleted tours and applies them to index in background,
// every flushEvery or as soon as flushCount events queued
type bufferedEngine struct {
	queueLock     sync.RWMutex
	docQueue      deque.Deque[interface{}]
	queueNotifier chan bool
	startOnce     sync.Once
	shutdownWait  sync.WaitGroup
	index         indexer
	flushEvery    time.Duration
	flushCount    int
	indexPath     string
}

func newBufferedEngine(index indexer, indexPath string, flushEvery time.Duration, flushCount int) *bufferedEngine {
	return &bufferedEngine{
		index:         index,
		queueNotifier: make(chan bool),
		flushEvery:    flushEvery,
		flushCount:    flushCount,
		indexPath:     indexPath,
	}
}

// Start indexing worker, once
func (s *bufferedEngine) Start() {
	s.startOnce.Do(func() {
		s.shutdownWait.Add(1)
		go s.indexDocumentWorker()
	})
}

// Queue tour for reindexing
func (s *bufferedEngine) Queue(tour store.Tour) error {
	return s.push(&tourEvent{Tour: &tour, TourID: tour.ID})
}

// QueueDelete queues deletion of the tour from index
func (s *bufferedEngine) QueueDelete(tourID int64) error {
	return s.push(&tourEvent{TourID: tourID})
}

func (s *bufferedEngine) push(ev *tourEvent) error {
	s.queueLock.Lock()
	s.docQueue.PushBack(ev)
	s.queueLock.Unlock()
	s.queueNotifier <- false
	return nil
}

// indexBatch applies queued events in order, consecutive updates are sent as one call
func (s *bufferedEngine) indexBatch() {
	s.queueLock.Lock()

	evCount := s.docQueue.Len()
	if evCount == 0 {
		s.queueLock.Unlock()
		return
	}

	notifiers := []*idxFlusher{}
	events := make([]*tourEvent, 0, evCount)
	for i := 0; i < evCount; i++ {
		switch val := s.docQueue.PopFront().(type) {
		case *tourEvent:
			events = append(events, val)
		case *idxFlusher:
			notifiers = append(notifiers, val)
		default:
			s.queueLock.Unlock()
			panic(fmt.Sprintf("unknown type %T", val))
		}
	}

	s.queueLock.Unlock()

	var err error
	for len(events) > 0 {
		n := 1
		if events[0].Tour != nil {
			tours := []store.Tour{*events[0].Tour}
			for n < len(events) && events[n].Tour != nil {
				tours = append(tours, *events[n].Tour)
				n++
			}
			if e := s.index.UpdateIndex(tours...); e != nil {
				log.Printf("[ERROR] error while indexing %d tours, %v", len(tours), e)
				err = e
			}
		} else {
			ids := []int64{events[0].TourID}
			for n < len(events) && events[n].Tour == nil {
				ids = append(ids, events[n].TourID)
				n++
			}
			if e := s.index.DeleteTour(ids...); e != nil {
				log.Printf("[ERROR] error while deleting tours %v from index, %v", ids, e)
				err = e
			}
		}
		events = events[n:]
	}
	for _, notifier := range notifiers {
		notifier.notifier <- err
	}
}

func (s *bufferedEngine) indexDocumentWorker() {
	log.Printf("[INFO] start search indexer worker")
	defer s.shutdownWait.Done()

	tmr := time.NewTimer(s.flushEvery)
	defer tmr.Stop()
	cont := true
	for cont {
		var force bool
		select {
		case <-tmr.C:
			s.indexBatch()
			tmr.Reset(s.flushEvery)
		case force, cont = <-s.queueNotifier:
			s.queueLock.RLock()
			full := s.docQueue.Len() >= s.flushCount
			s.queueLock.RUnlock()
			if force || full {
				s.indexBatch()
			}
		}
	}
	log.Printf("[INFO] shutdown search indexer worker")

	s.dumpAheadLog()
}

func (s *bufferedEngine) getAheadLogPath() string {
	return filepath.Join(s.indexPath, aheadLogFname)
}

// dumpEvent writes event to file separated with \0
func dumpEvent(f *os.File, ev *tourEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data = append(data, 0x0)
	_, err = f.Write(data)
	return err
}

// dumpAheadLog saves not yet indexed events, they are replayed by Init on next start
func (s *bufferedEngine) dumpAheadLog() {
	s.queueLock.Lock()
	defer s.queueLock.Unlock()

	if s.docQueue.Len() == 0 {
		return
	}

	aheadLogPath := s.getAheadLogPath()
	if _, errOpen := os.Stat(aheadLogPath); !os.IsNotExist(errOpen) {
		log.Printf("[WARN] file %q already exists and would be rewritten", aheadLogPath)
	}

	f, err := os.Create(filepath.Clean(aheadLogPath))
	if err != nil {
		log.Printf("[ERROR] error %v opening log file %q", err, aheadLogPath)
	}
	defer func() {
		if f == nil {
			return
		}
		if errClose := f.Close(); errClose != nil {
			log.Printf("[ERROR] error %v closing log file %q", errClose, aheadLogPath)
		}
	}()

	notifiers := []*idxFlusher{}
	for s.docQueue.Len() > 0 {
		switch val := s.docQueue.PopFront().(type) {
		case *tourEvent:
			if err != nil {
				// keep draining to collect all waiters
				continue
			}
			err = dumpEvent(f, val)
		case *idxFlusher:
			notifiers = append(notifiers, val)
		default:
			panic(fmt.Sprintf("unknown type %T", val))
		}
	}
	if err != nil {
		log.Printf("[ERROR] error %v writing log file", err)
	}

	for _, notifier := range notifiers {
		notifier.notifier <- errors.Errorf("indexer closing")
	}
}

// Init replays events from ahead log saved on previous shutdown, worker should be started.
// Returns true if ahead log was found.
func (s *bufferedEngine) Init(ctx context.Context) (bool, error) {
	aheadLogPath := s.getAheadLogPath()
	f, err := os.Open(filepath.Clean(aheadLogPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = s.readAheadLog(ctx, bufio.NewReader(f))
	if errClose := f.Close(); errClose != nil {
		log.Printf("[ERROR] error %v closing log file %q", errClose, aheadLogPath)
	}
	if err != nil {
		return true, errors.Wrapf(err, "can't replay %s", aheadLogPath)
	}
	if err = os.Remove(aheadLogPath); err != nil {
		log.Printf("[ERROR] error %v deleting log file %q", err, aheadLogPath)
	}
	log.Printf("[INFO] search index updates restored from %s", aheadLogPath)
	return true, nil
}

func (s *bufferedEngine) readAheadLog(ctx context.Context, reader *bufio.Reader) error {
	for {
		select {
		case <-ctx.Done():
			return errors.Errorf("reading ahead log interrupted")
		default:
		}
		// events separated with \0
		data, err := reader.ReadBytes(0x0)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		ev := tourEvent{}
		if err = json.Unmarshal(data[:len(data)-1], &ev); err != nil {
			return err
		}
		if err = s.push(&ev); err != nil {
			return err
		}
	}
}

// Flush blocks till all events queued before are applied
func (s *bufferedEngine) Flush() error {
	// worker may pop the flusher before queueNotifier is read, it must not block on reply
	flusher := &idxFlusher{make(chan error, 1)}

	s.queueLock.Lock()
	s.docQueue.PushBack(flusher)
	s.queueLock.Unlock()

	s.queueNotifier <- true

	return <-flusher.notifier
}

// Close stops the worker, pending events are saved to ahead log
func (s *bufferedEngine) Close() error {
	close(s.queueNotifier)
	s.shutdownWait.Wait()
	return nil
}
