package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight"
	htmlFormat "github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simpleFragmenter "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simpleHighlighter "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/pkg/errors"
)

// Highlighter configures snippets made from term locations of hits
type Highlighter struct {
	Pre          string
	Post         string
	Ellipsis     string // marks text cut before or after a passage
	MaxPassages  int    // passages per field
	FragmentSize int    // passage length in characters
}

// DefaultHighlighter marks matches with span element
func DefaultHighlighter() Highlighter {
	return Highlighter{
		Pre:          `<span class="search-match">`,
		Post:         `</span>`,
		Ellipsis:     " … ",
		MaxPassages:  1,
		FragmentSize: 160,
	}
}

func (h Highlighter) highlighter() highlight.Highlighter {
	size := h.FragmentSize
	if size <= 0 {
		size = 160
	}
	return simpleHighlighter.NewHighlighter(simpleFragmenter.NewFragmenter(size),
		htmlFormat.NewFragmentFormatter(h.Pre, h.Post), h.Ellipsis)
}

func (h Highlighter) maxPassages() int {
	if h.MaxPassages <= 0 {
		return 1
	}
	return h.MaxPassages
}

// snippet joins best passages of the field, adjacent ellipses are merged
func (h Highlighter) snippet(hl highlight.Highlighter, hit *search.DocumentMatch, doc index.Document, field string) string {
	if doc == nil {
		return ""
	}
	res := strings.Join(hl.BestFragmentsInField(hit, doc, field, h.maxPassages()), "")
	if h.Ellipsis != "" {
		for strings.Contains(res, h.Ellipsis+h.Ellipsis) {
			res = strings.ReplaceAll(res, h.Ellipsis+h.Ellipsis, h.Ellipsis)
		}
	}
	return res
}

// highlightFields returns snippets per field for every hit, field-major
func (h Highlighter) highlightFields(docs *hitDocs, fields []Field) map[Field][]string {
	hl := h.highlighter()
	res := make(map[Field][]string, len(fields))
	for _, f := range fields {
		snippets := make([]string, len(docs.hits))
		for i, hit := range docs.hits {
			snippets[i] = h.snippet(hl, hit, docs.doc(i), f.Name())
		}
		res[f] = snippets
	}
	return res
}

// hitDocs reads stored document of every hit once
type hitDocs struct {
	hits   []*search.DocumentMatch
	load   func(id string) (index.Document, error)
	docs   []index.Document
	isRead []bool
	err    error
}

func newHitDocs(hits []*search.DocumentMatch, load func(id string) (index.Document, error)) *hitDocs {
	return &hitDocs{hits: hits, load: load, docs: make([]index.Document, len(hits)), isRead: make([]bool, len(hits))}
}

// doc returns stored document of i-th hit, nil if it can't be loaded
func (d *hitDocs) doc(i int) index.Document {
	if d.isRead[i] {
		return d.docs[i]
	}
	d.isRead[i] = true
	doc, err := d.load(d.hits[i].ID)
	if err != nil {
		if d.err == nil {
			d.err = errors.Wrapf(err, "can't load document %s", d.hits[i].ID)
		}
		return nil
	}
	d.docs[i] = doc
	return doc
}

// pivot turns field-major snippets into result items,
// identity and raw fields come from documents already loaded for highlighting
func pivot(highlights map[Field][]string, fields []Field, docs *hitDocs, opts Options, from int) []ResultItem {
	items := make([]ResultItem, len(docs.hits))
	for _, f := range fields {
		for i, snippet := range highlights[f] {
			f.assign(&items[i], snippet)
		}
	}

	queried := map[Field]bool{}
	for _, f := range fields {
		queried[f] = true
	}
	for i := range items {
		stored := storedValues(docs.doc(i))
		items[i].ItemNumber = from + i + 1
		items[i].DocID = docs.hits[i].ID
		items[i].DocSource = DocSource(numField(stored, fieldDocSourceSaved))
		items[i].TourID = numField(stored, fieldTourID)
		items[i].TourStartTime = numField(stored, fieldTime)
		if id := numField(stored, fieldMarkerID); id != 0 {
			items[i].MarkerID = id
		}
		if id := numField(stored, fieldWaypointID); id != 0 {
			items[i].MarkerID = id
		}
		for _, f := range allFields {
			if queried[f] {
				continue
			}
			if (f == FieldTitle || f == FieldDescription) && !opts.ShowDescription {
				continue
			}
			if v, ok := stored[f.Name()].(string); ok {
				f.assign(&items[i], v)
			}
		}
	}
	return items
}

// storedValues returns text fields as strings and numeric fields as float64
func storedValues(doc index.Document) map[string]interface{} {
	res := map[string]interface{}{}
	if doc == nil {
		return res
	}
	doc.VisitFields(func(f index.Field) {
		switch field := f.(type) {
		case index.TextField:
			res[f.Name()] = field.Text()
		case index.NumericField:
			if v, err := field.Number(); err == nil {
				res[f.Name()] = v
			}
		}
	})
	return res
}

// numField reads numeric stored field
func numField(doc map[string]interface{}, name string) int64 {
	if v, ok := doc[name].(float64); ok {
		return int64(v)
	}
	return 0
}
