package search

import (
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodeTokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/store"
	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
)

// index field names
const (
	fieldDocSourceIndex = "docSource_Index"
	fieldDocSourceSaved = "docSource_Saved"
	fieldTourID         = "tourID"
	fieldMarkerID       = "markerID"
	fieldWaypointID     = "wayPointID"
	fieldTime           = "time"
)

const tourDocType = "docTour"

// Document is indexed tour, marker or waypoint. Bridge between store rows and bleve index.
// Nil pointers are not indexed, docSource is kept twice because
// docSource_Index is searchable only and docSource_Saved is stored only.
type Document struct {
	SourceIndex   int     `json:"docSource_Index"`
	SourceSaved   int     `json:"docSource_Saved"`
	TourID        int64   `json:"tourID"`
	MarkerID      *int64  `json:"markerID,omitempty"`
	WaypointID    *int64  `json:"wayPointID,omitempty"`
	Time          *int64  `json:"time,omitempty"`
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	StartLocation *string `json:"startLocation,omitempty"`
	EndLocation   *string `json:"endLocation,omitempty"`
	Weather       *string `json:"weather,omitempty"`
}

// Type implements bleve.Classifier
func (d Document) Type() string {
	return tourDocType
}

// docID makes document id unique across all three indexes
func docID(kind DocSource, id int64) string {
	return kind.String() + "-" + strconv.FormatInt(id, 10)
}

// kindOf returns kind of the document from its id
func kindOf(id string) (DocSource, bool) {
	for _, kind := range docSources {
		if strings.HasPrefix(id, kind.String()+"-") {
			return kind, true
		}
	}
	return 0, false
}

// DocFromTour converts tour row to Document
func DocFromTour(t engine.TourRow) (string, *Document) {
	tm := t.StartTime
	return docID(DocSourceTour, t.ID), &Document{
		SourceIndex:   int(DocSourceTour),
		SourceSaved:   int(DocSourceTour),
		TourID:        t.ID,
		Time:          &tm,
		Title:         t.Title,
		Description:   t.Description,
		StartLocation: t.StartPlace,
		EndLocation:   t.EndPlace,
		Weather:       t.Weather,
	}
}

// DocFromMarker converts tour marker to Document
func DocFromMarker(m store.Marker) (string, *Document) {
	id, tm := m.ID, m.Time
	return docID(DocSourceMarker, m.ID), &Document{
		SourceIndex: int(DocSourceMarker),
		SourceSaved: int(DocSourceMarker),
		TourID:      m.TourID,
		MarkerID:    &id,
		Time:        &tm,
		Title:       m.Label,
		Description: m.Description,
	}
}

// DocFromWaypoint converts waypoint to Document, zero time is not indexed
func DocFromWaypoint(w store.Waypoint) (string, *Document) {
	id := w.ID
	doc := &Document{
		SourceIndex: int(DocSourceWaypoint),
		SourceSaved: int(DocSourceWaypoint),
		TourID:      w.TourID,
		WaypointID:  &id,
		Title:       w.Name,
		Description: w.Description,
	}
	if w.Time != 0 {
		tm := w.Time
		doc.Time = &tm
	}
	return docID(DocSourceWaypoint, w.ID), doc
}

// tourDocuments makes documents of the tour aggregate grouped by kind
func tourDocuments(t store.Tour) map[DocSource]map[string]*Document {
	res := map[DocSource]map[string]*Document{
		DocSourceTour:     {},
		DocSourceMarker:   {},
		DocSourceWaypoint: {},
	}
	id, doc := DocFromTour(engine.RowFromTour(t))
	res[DocSourceTour][id] = doc
	for _, m := range t.Markers {
		m.TourID = t.ID
		id, doc = DocFromMarker(m)
		res[DocSourceMarker][id] = doc
	}
	for _, w := range t.Waypoints {
		w.TourID = t.ID
		id, doc = DocFromWaypoint(w)
		res[DocSourceWaypoint][id] = doc
	}
	return res
}

func textMapping(analyzer string) *mapping.FieldMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Store = true
	textFieldMapping.Analyzer = analyzer
	textFieldMapping.IncludeTermVectors = true
	textFieldMapping.IncludeInAll = false
	return textFieldMapping
}

func numericMapping(index, doStore, docValues bool) *mapping.FieldMapping {
	numFieldMapping := bleve.NewNumericFieldMapping()
	numFieldMapping.Index = index
	numFieldMapping.Store = doStore
	numFieldMapping.DocValues = docValues
	numFieldMapping.IncludeInAll = false
	return numFieldMapping
}

// textAnalyzer is the standard analyzer without stop words, "the" or "and" stay searchable
const textAnalyzer = "tourText"

func createIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(textAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodeTokenizer.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't register text analyzer")
	}
	indexMapping.DefaultAnalyzer = textAnalyzer

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false
	docMapping.AddFieldMappingsAt(fieldDocSourceIndex, numericMapping(true, false, false))
	docMapping.AddFieldMappingsAt(fieldDocSourceSaved, numericMapping(false, true, false))
	docMapping.AddFieldMappingsAt(fieldTourID, numericMapping(true, true, false))
	docMapping.AddFieldMappingsAt(fieldMarkerID, numericMapping(false, true, false))
	docMapping.AddFieldMappingsAt(fieldWaypointID, numericMapping(false, true, false))
	docMapping.AddFieldMappingsAt(fieldTime, numericMapping(true, true, true))
	for _, f := range allFields {
		docMapping.AddFieldMappingsAt(f.Name(), textMapping(textAnalyzer))
	}

	indexMapping.AddDocumentMapping(Document{}.Type(), docMapping)
	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}
