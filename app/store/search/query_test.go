package search

import (
	"testing"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareText(t *testing.T) {
	assert.Equal(t, "alp*", prepareText("  alp ", true))
	assert.Equal(t, "alp*", prepareText("alp*", true))
	assert.Equal(t, "alp", prepareText("alp", false))
}

func TestPageRange(t *testing.T) {
	tbl := []struct {
		from, to, total int
		start, end      int
		ok              bool
	}{
		{0, 9, 20, 0, 10, true},
		{5, 9, 20, 5, 10, true},
		{15, 30, 20, 15, 20, true},
		{-3, 2, 20, 0, 3, true},
		{20, 30, 20, 0, 0, false},
		{0, 9, 0, 0, 0, false},
		{5, 4, 20, 0, 0, false},
	}
	for _, tt := range tbl {
		start, end, ok := pageRange(tt.from, tt.to, tt.total)
		assert.Equal(t, tt.ok, ok, "%+v", tt)
		if tt.ok {
			assert.Equal(t, [2]int{tt.start, tt.end}, [2]int{start, end}, "%+v", tt)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	q, err := buildQuery("zebra", Options{})
	require.NoError(t, err)
	assert.IsType(t, &query.MatchNoneQuery{}, q, "no fields enabled")

	q, err = buildQuery("zebra", DefaultOptions())
	require.NoError(t, err)
	_, isConj := q.(*query.ConjunctionQuery)
	assert.False(t, isConj, "no kind filter when all searched")

	q, err = buildQuery("zebra", Options{SearchMarker: true})
	require.NoError(t, err)
	conj, ok := q.(*query.ConjunctionQuery)
	require.True(t, ok)
	require.Len(t, conj.Conjuncts, 2)
	facets, ok := conj.Conjuncts[1].(*query.DisjunctionQuery)
	require.True(t, ok)
	assert.Len(t, facets.Disjuncts, 1)

	_, err = buildQuery("title:", DefaultOptions())
	assert.Error(t, err)
}

func TestExpandFields(t *testing.T) {
	wq := query.NewWildcardQuery("ZEB*")
	res := expandFields(wq, []Field{FieldTitle, FieldWeather})
	dis, ok := res.(*query.DisjunctionQuery)
	require.True(t, ok)
	require.Len(t, dis.Disjuncts, 2)
	first := dis.Disjuncts[0].(*query.WildcardQuery)
	assert.Equal(t, "zeb*", first.Wildcard)
	assert.Equal(t, "title", first.Field())
	assert.Equal(t, "weather", dis.Disjuncts[1].(*query.WildcardQuery).Field())

	mq := query.NewMatchQuery("zebra")
	mq.SetField("description")
	assert.Same(t, mq, expandFields(mq, allFields), "field query kept as is")

	single := expandFields(query.NewMatchQuery("zebra"), []Field{FieldTitle})
	assert.Equal(t, "title", single.(*query.MatchQuery).Field())
}
