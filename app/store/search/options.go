package search

import (
	"crypto/sha1" //nolint:gosec // fingerprint only
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/go-pkgz/lgr"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Options defines what is searched and how results are shown
type Options struct {
	EaseSearching           bool `json:"isEaseSearching" yaml:"ease_searching"`
	SearchAll               bool `json:"isSearch_All" yaml:"search_all"`
	SearchTour              bool `json:"isSearch_Tour" yaml:"search_tour"`
	SearchTourLocationStart bool `json:"isSearch_Tour_LocationStart" yaml:"search_tour_location_start"`
	SearchTourLocationEnd   bool `json:"isSearch_Tour_LocationEnd" yaml:"search_tour_location_end"`
	SearchTourWeather       bool `json:"isSearch_Tour_Weather" yaml:"search_tour_weather"`
	SearchMarker            bool `json:"isSearch_Marker" yaml:"search_marker"`
	SearchWaypoint          bool `json:"isSearch_Waypoint" yaml:"search_waypoint"`
	ShowDate                bool `json:"isShowDate" yaml:"show_date"`
	ShowTime                bool `json:"isShowTime" yaml:"show_time"`
	ShowDescription         bool `json:"isShowDescription" yaml:"show_description"`
	ShowItemNumber          bool `json:"isShowItemNumber" yaml:"show_item_number"`
	ShowDocID               bool `json:"isShowLuceneID" yaml:"show_doc_id"`
	SortDateAscending       bool `json:"isSortByDateAscending" yaml:"sort_date_ascending"`
}

// DefaultOptions returns options used when nothing persisted
func DefaultOptions() Options {
	return Options{
		EaseSearching:           true,
		SearchAll:               true,
		SearchTour:              true,
		SearchTourLocationStart: true,
		SearchTourLocationEnd:   true,
		SearchTourWeather:       true,
		SearchMarker:            true,
		SearchWaypoint:          true,
		ShowDescription:         true,
	}
}

// Fields returns text fields to query
func (o Options) Fields() []Field {
	if o.SearchAll {
		return allFields
	}
	res := []Field{}
	if o.SearchTour || o.SearchMarker || o.SearchWaypoint {
		res = append(res, FieldTitle, FieldDescription)
	}
	if o.SearchTourLocationStart {
		res = append(res, FieldStartLocation)
	}
	if o.SearchTourLocationEnd {
		res = append(res, FieldEndLocation)
	}
	if o.SearchTourWeather {
		res = append(res, FieldWeather)
	}
	return res
}

// Sources returns document kinds to search, nil means no filtering
func (o Options) Sources() []DocSource {
	if o.SearchAll {
		return nil
	}
	res := []DocSource{}
	if o.SearchTour || o.SearchTourLocationStart || o.SearchTourLocationEnd || o.SearchTourWeather {
		res = append(res, DocSourceTour)
	}
	if o.SearchMarker {
		res = append(res, DocSourceMarker)
	}
	if o.SearchWaypoint {
		res = append(res, DocSourceWaypoint)
	}
	return res
}

// fingerprint of options affecting ranked hits, display toggles excluded
func (o Options) fingerprint() string {
	key := fmt.Sprintf("%t|%t|%t|%t|%t|%t|%t|%t|%t", o.EaseSearching, o.SearchAll, o.SearchTour,
		o.SearchTourLocationStart, o.SearchTourLocationEnd, o.SearchTourWeather, o.SearchMarker,
		o.SearchWaypoint, o.SortDateAscending)
	h := sha1.Sum([]byte(key)) //nolint:gosec // fingerprint only
	return hex.EncodeToString(h[:])[:16]
}

// State is persisted search state
type State struct {
	SearchText string  `yaml:"search_text"`
	Options    Options `yaml:"options"`
}

// OptionsStore keeps options and last search text in yaml file.
// Empty path makes memory-only store.
type OptionsStore struct {
	path string
	lock sync.Mutex
}

// NewOptionsStore makes store for given yaml file
func NewOptionsStore(path string) *OptionsStore {
	return &OptionsStore{path: path}
}

// Load reads state, defaults returned if file doesn't exist
func (s *OptionsStore) Load() (State, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	state := State{Options: DefaultOptions()}
	if s.path == "" {
		return state, nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return state, errors.Wrapf(err, "can't read search options %s", s.path)
	}
	if err = yaml.Unmarshal(data, &state); err != nil {
		return State{Options: DefaultOptions()}, errors.Wrapf(err, "can't parse search options %s", s.path)
	}
	return state, nil
}

// Save writes state to file
func (s *OptionsStore) Save(state State) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "can't marshal search options")
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrapf(err, "can't make directory for %s", s.path)
	}
	if err = os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrapf(err, "can't write search options %s", s.path)
	}
	return nil
}

// Reset restores default options, search text kept
func (s *OptionsStore) Reset() (State, error) {
	state, err := s.Load()
	if err != nil {
		log.Printf("[WARN] can't load search options, %v", err)
	}
	state.Options = DefaultOptions()
	return state, s.Save(state)
}
