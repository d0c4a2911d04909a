package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/pkg/errors"
)

// prepareText trims text and, with ease searching, makes the last term a prefix
func prepareText(text string, easeSearching bool) string {
	text = strings.TrimSpace(text)
	if easeSearching && !strings.HasSuffix(text, "*") {
		text += "*"
	}
	return text
}

// buildQuery parses query string and applies it to every active field.
// Unless all kinds are searched, the result is restricted to the enabled kinds.
func buildQuery(text string, opts Options) (query.Query, error) {
	parsed, err := bleve.NewQueryStringQuery(text).Parse()
	if err != nil {
		return nil, errors.Wrapf(err, "can't parse %q", text)
	}
	fields := opts.Fields()
	if len(fields) == 0 {
		return bleve.NewMatchNoneQuery(), nil
	}
	textQuery := expandFields(parsed, fields)

	sources := opts.Sources()
	if sources == nil {
		return textQuery, nil
	}
	if len(sources) == 0 {
		return bleve.NewMatchNoneQuery(), nil
	}
	facets := make([]query.Query, 0, len(sources))
	inclusive := true
	for _, src := range sources {
		v := float64(src)
		q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
		q.SetField(fieldDocSourceIndex)
		facets = append(facets, q)
	}
	return bleve.NewConjunctionQuery(textQuery, bleve.NewDisjunctionQuery(facets...)), nil
}

// expandFields replaces every leaf without field by disjunction of the leaf over all fields.
// Wildcard and prefix terms are not analyzed, so they are lowercased the way the index is.
func expandFields(q query.Query, fields []Field) query.Query {
	switch q := q.(type) {
	case *query.BooleanQuery:
		if q.Must != nil {
			q.Must = expandFields(q.Must, fields)
		}
		if q.Should != nil {
			q.Should = expandFields(q.Should, fields)
		}
		if q.MustNot != nil {
			q.MustNot = expandFields(q.MustNot, fields)
		}
		return q
	case *query.ConjunctionQuery:
		for i := range q.Conjuncts {
			q.Conjuncts[i] = expandFields(q.Conjuncts[i], fields)
		}
		return q
	case *query.DisjunctionQuery:
		for i := range q.Disjuncts {
			q.Disjuncts[i] = expandFields(q.Disjuncts[i], fields)
		}
		return q
	case *query.MatchQuery:
		return perField(q, fields, func(f string) query.Query { c := *q; c.SetField(f); return &c })
	case *query.MatchPhraseQuery:
		return perField(q, fields, func(f string) query.Query { c := *q; c.SetField(f); return &c })
	case *query.FuzzyQuery:
		return perField(q, fields, func(f string) query.Query { c := *q; c.SetField(f); return &c })
	case *query.RegexpQuery:
		return perField(q, fields, func(f string) query.Query { c := *q; c.SetField(f); return &c })
	case *query.TermQuery:
		return perField(q, fields, func(f string) query.Query { c := *q; c.SetField(f); return &c })
	case *query.WildcardQuery:
		q.Wildcard = strings.ToLower(q.Wildcard)
		return perField(q, fields, func(f string) query.Query { c := *q; c.SetField(f); return &c })
	case *query.PrefixQuery:
		q.Prefix = strings.ToLower(q.Prefix)
		return perField(q, fields, func(f string) query.Query { c := *q; c.SetField(f); return &c })
	}
	return q
}

func perField(q query.FieldableQuery, fields []Field, withField func(f string) query.Query) query.Query {
	if q.Field() != "" {
		return q
	}
	if len(fields) == 1 {
		return withField(fields[0].Name())
	}
	qs := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		qs = append(qs, withField(f.Name()))
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// rankedRequest returns request for ids of all hits ordered by time
func rankedRequest(q query.Query, size int, ascending bool) *bleve.SearchRequest {
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Score = "none"
	req.SortByCustom(search.SortOrder{
		&search.SortField{
			Field:   fieldTime,
			Type:    search.SortFieldAsNumber,
			Desc:    !ascending,
			Missing: search.SortFieldMissingLast,
		},
		&search.SortDocID{},
	})
	return req
}

// pageRequest returns request loading term locations of given documents
func pageRequest(q query.Query, ids []string) *bleve.SearchRequest {
	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(q, bleve.NewDocIDQuery(ids)), len(ids), 0, false)
	req.IncludeLocations = true
	return req
}

// pageRange clamps inclusive [from, to] to hits count, ok is false if nothing left
func pageRange(from, to, total int) (start, end int, ok bool) {
	if from < 0 {
		from = 0
	}
	if to >= total {
		to = total - 1
	}
	if from > to {
		return 0, 0, false
	}
	return from, to + 1, true
}
