package search

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/pkg/errors"
)

const (
	suggestMaxOrder = 4    // longest n-gram
	suggestBackoff  = 0.4  // stupid backoff penalty per dropped context token
	suggestLimit    = 10000
)

var errNoSuggestions = errors.New("need at least one suggestion")

type gram struct {
	text  string
	count int
}

// suggester is a free-text n-gram model predicting the last, possibly partial, token of the text
type suggester struct {
	mapping mapping.IndexMapping
	grams   [suggestMaxOrder][]gram // sorted by text, index is order-1
	tokens  int                     // total number of unigrams
}

// newSuggester builds model from stored text fields of all documents in index
func newSuggester(index bleve.Index, m mapping.IndexMapping) (*suggester, error) {
	cnt, err := index.DocCount()
	if err != nil {
		return nil, errors.Wrap(err, "can't count documents")
	}
	if cnt == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(cnt), 0, false)
	for _, f := range allFields {
		req.Fields = append(req.Fields, f.Name())
	}
	res, err := index.Search(req)
	if err != nil {
		return nil, errors.Wrap(err, "can't load documents for suggestions")
	}

	counts := [suggestMaxOrder]map[string]int{}
	for i := range counts {
		counts[i] = map[string]int{}
	}
	s := &suggester{mapping: m}
	for _, hit := range res.Hits {
		for _, f := range allFields {
			value, ok := hit.Fields[f.Name()].(string)
			if !ok || value == "" {
				continue
			}
			tokens := s.analyze(value)
			for i := range tokens {
				for n := 1; n <= suggestMaxOrder && i+n <= len(tokens); n++ {
					counts[n-1][strings.Join(tokens[i:i+n], " ")]++
				}
			}
			s.tokens += len(tokens)
		}
	}
	if s.tokens == 0 {
		return nil, errNoSuggestions
	}

	for n := range counts {
		grams := make([]gram, 0, len(counts[n]))
		for text, c := range counts[n] {
			grams = append(grams, gram{text: text, count: c})
		}
		sort.Slice(grams, func(i, j int) bool { return grams[i].text < grams[j].text })
		s.grams[n] = grams
	}
	return s, nil
}

func (s *suggester) analyze(text string) []string {
	analyzer := s.mapping.AnalyzerNamed(textAnalyzer)
	if analyzer == nil {
		return nil
	}
	tokens := analyzer.Analyze([]byte(text))
	res := make([]string, 0, len(tokens))
	for _, t := range tokens {
		res = append(res, string(t.Term))
	}
	return res
}

// Lookup returns up to limit texts completing the last token of text, best first
func (s *suggester) Lookup(text string, limit int) []string {
	if s == nil || strings.TrimSpace(text) == "" {
		return []string{}
	}

	// partial is the token being typed, empty if text ends with a space
	head, partial := text, ""
	if last, _ := utf8.DecodeLastRuneInString(text); !unicode.IsSpace(last) {
		i := strings.LastIndexFunc(text, unicode.IsSpace)
		head, partial = text[:i+1], strings.ToLower(text[i+1:])
	}
	history := s.analyze(head)
	if len(history) > suggestMaxOrder-1 {
		history = history[len(history)-(suggestMaxOrder-1):]
	}

	scores := map[string]float64{}
	for n := len(history) + 1; n >= 1; n-- {
		seed := strings.Join(history[len(history)-(n-1):], " ")
		prefix := partial
		if seed != "" {
			prefix = seed + " " + partial
		}
		denominator := s.tokens
		if n > 1 {
			denominator = s.count(seed, n-1)
		}
		if denominator == 0 {
			continue
		}
		penalty := math.Pow(suggestBackoff, float64(len(history)+1-n))
		for _, g := range s.prefixed(prefix, n) {
			word := g.text[strings.LastIndexByte(g.text, ' ')+1:]
			if word == "" {
				continue
			}
			score := penalty * float64(g.count) / float64(denominator)
			if score > scores[word] {
				scores[word] = score
			}
		}
	}

	words := make([]string, 0, len(scores))
	for w := range scores {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if scores[words[i]] != scores[words[j]] {
			return scores[words[i]] > scores[words[j]]
		}
		return words[i] < words[j]
	})
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}

	res := make([]string, 0, len(words))
	for _, w := range words {
		res = append(res, head+w)
	}
	return res
}

// prefixed returns n-grams starting with prefix, binary search over sorted grams
func (s *suggester) prefixed(prefix string, n int) []gram {
	grams := s.grams[n-1]
	from := sort.Search(len(grams), func(i int) bool { return grams[i].text >= prefix })
	to := from
	for to < len(grams) && strings.HasPrefix(grams[to].text, prefix) {
		to++
	}
	return grams[from:to]
}

func (s *suggester) count(text string, n int) int {
	grams := s.grams[n-1]
	i := sort.Search(len(grams), func(i int) bool { return grams[i].text >= text })
	if i < len(grams) && grams[i].text == text {
		return grams[i].count
	}
	return 0
}
