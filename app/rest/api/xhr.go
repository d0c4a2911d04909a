package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/render"
	R "github.com/go-pkgz/rest"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/rest"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

// xhr actions of the web view
const (
	actionSearch           = "search"
	actionProposals        = "proposals"
	actionGetSearchOptions = "getSearchOptions"
	actionSetSearchOptions = "setSearchOptions"
	actionGetState         = "getState"
)

const contentRangeZero = "0-0/0"

var rangeRe = regexp.MustCompile(`^items=(\d+)-(\d+)$`)

// searchItem is a hit sent to the web view, text fields are sanitized html snippets
type searchItem struct {
	ID string `json:"id"`
	search.ResultItem
	IsTour     bool `json:"isTour"`
	IsMarker   bool `json:"isMarker"`
	IsWaypoint bool `json:"isWaypoint"`
}

type optionsResponse struct {
	search.Options
	IsDefault bool `json:"isSearchOptionsDefault"`
}

// GET /xhrSearch?action=search|proposals|getSearchOptions|setSearchOptions|getState
func (s *Rest) xhrSearchCtrl(w http.ResponseWriter, r *http.Request) {
	switch action := r.URL.Query().Get("action"); action {
	case actionSearch:
		s.searchCtrl(w, r)
	case actionProposals:
		s.proposalsCtrl(w, r)
	case actionGetSearchOptions:
		render.JSON(w, r, optionsResponse{Options: s.Search.Options(), IsDefault: s.Search.Options() == search.DefaultOptions()})
	case actionSetSearchOptions:
		s.setOptionsCtrl(w, r)
	case actionGetState:
		render.JSON(w, r, R.JSON{"searchText": s.Search.State().SearchText})
	default:
		rest.SendErrorJSON(w, r, http.StatusBadRequest, errors.Errorf("unknown action %q", action), "can't handle request", rest.ErrUnknownAction)
	}
}

// GET /xhrSearch?action=search&searchText=alpine with "Range: items=0-9" header
func (s *Rest) searchCtrl(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r.Header.Get("Range"))
	if err != nil {
		rest.SendErrorJSON(w, r, http.StatusBadRequest, err, "bad range", rest.ErrBadRequest)
		return
	}

	resp := struct {
		Items      []searchItem `json:"items"`
		SearchTime string       `json:"searchTime"`
		TotalHits  int          `json:"totalHits"`
		Error      string       `json:"error,omitempty"`
	}{Items: []searchItem{}}

	contentRange := contentRangeZero
	st := time.Now()
	if q := r.URL.Query(); q.Has("searchText") {
		text := q.Get("searchText")
		if e := s.Search.SetSearchText(text); e != nil {
			rest.SendErrorJSON(w, r, http.StatusInternalServerError, e, "can't save search text", rest.ErrOptionsFailed)
			return
		}
		res := s.Search.Search(search.Request{Text: text, From: from, To: to})
		// failed query is reported in the result, view shows it in place of hits
		resp.Error = res.Error
		for _, item := range res.Items {
			resp.Items = append(resp.Items, s.makeItem(item))
		}
		resp.TotalHits = res.TotalHits
		if len(resp.Items) > 0 {
			contentRange = fmt.Sprintf("items %d-%d/%d", from, from+len(resp.Items)-1, res.TotalHits)
		}
	}
	resp.SearchTime = searchTime(time.Since(st))

	w.Header().Set("Content-Range", contentRange)
	render.JSON(w, r, resp)
}

// GET /xhrSearch?action=proposals&searchText=alp, empty body if nothing to propose
func (s *Rest) proposalsCtrl(w http.ResponseWriter, r *http.Request) {
	proposals := s.Search.Suggest(r.URL.Query().Get("searchText"))
	if len(proposals) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}
	type proposal struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	items := make([]proposal, 0, len(proposals))
	for _, p := range proposals {
		items = append(items, proposal{ID: p, Name: p})
	}
	render.JSON(w, r, R.JSON{"items": items})
}

// GET /xhrSearch?action=setSearchOptions&searchOptions={...}
// {"isRestoreDefaults": true} resets options to defaults.
func (s *Rest) setOptionsCtrl(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("searchOptions")
	keys := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		rest.SendErrorJSON(w, r, http.StatusBadRequest, err, "can't parse search options", rest.ErrBadRequest)
		return
	}

	if v, ok := keys["isRestoreDefaults"]; ok && string(v) != "null" {
		opts, err := s.Search.ResetOptions()
		if err != nil {
			rest.SendErrorJSON(w, r, http.StatusInternalServerError, err, "can't restore search options", rest.ErrOptionsFailed)
			return
		}
		render.JSON(w, r, optionsResponse{Options: opts, IsDefault: true})
		return
	}

	opts := s.Search.Options()
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		rest.SendErrorJSON(w, r, http.StatusBadRequest, err, "can't parse search options", rest.ErrBadRequest)
		return
	}
	if err := s.Search.SetOptions(opts); err != nil {
		rest.SendErrorJSON(w, r, http.StatusInternalServerError, err, "can't save search options", rest.ErrOptionsFailed)
		return
	}
	render.JSON(w, r, R.JSON{"isSearchOptionsDefault": false})
}

func (s *Rest) makeItem(item search.ResultItem) searchItem {
	item.Title = s.sanitizer.Sanitize(item.Title)
	item.Description = s.sanitizer.Sanitize(item.Description)
	item.LocationStart = s.sanitizer.Sanitize(item.LocationStart)
	item.LocationEnd = s.sanitizer.Sanitize(item.LocationEnd)
	item.Weather = s.sanitizer.Sanitize(item.Weather)
	return searchItem{
		ID:         item.DocID,
		ResultItem: item,
		IsTour:     item.DocSource == search.DocSourceTour,
		IsMarker:   item.DocSource == search.DocSourceMarker,
		IsWaypoint: item.DocSource == search.DocSourceWaypoint,
	}
}

// parseRange parses "items=from-to", missing header is the first item only
func parseRange(header string) (from, to int, err error) {
	if header == "" {
		return 0, 0, nil
	}
	m := rangeRe.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, errors.Errorf("invalid range %q", header)
	}
	if from, err = strconv.Atoi(m[1]); err != nil {
		return 0, 0, errors.Wrapf(err, "invalid range start %q", m[1])
	}
	if to, err = strconv.Atoi(m[2]); err != nil {
		return 0, 0, errors.Wrapf(err, "invalid range end %q", m[2])
	}
	if to < from {
		return 0, 0, errors.Errorf("invalid range %q, end before start", header)
	}
	return from, to, nil
}

func searchTime(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	switch {
	case ms < 1:
		return fmt.Sprintf("%.2f ms", ms)
	case ms < 10:
		return fmt.Sprintf("%.1f ms", ms)
	default:
		return fmt.Sprintf("%.0f ms", ms)
	}
}
