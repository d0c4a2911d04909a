package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/mytourbook/mytourbook-sub068/app/store"
	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

func TestRest_Ping(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	body, code := get(t, ts.URL+"/ping", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", body)
}

func TestRest_Search(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	resp := xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"zebra"}}, "items=0-9")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "items 0-1/2", resp.Header.Get("Content-Range"))

	res := struct {
		Items []struct {
			ID         string           `json:"id"`
			DocSource  search.DocSource `json:"docSource"`
			TourID     string           `json:"tourId"`
			Title      string           `json:"title"`
			ItemNumber int              `json:"itemNumber"`
			IsMarker   bool             `json:"isMarker"`
			IsWaypoint bool             `json:"isWaypoint"`
		} `json:"items"`
		SearchTime string `json:"searchTime"`
		TotalHits  int    `json:"totalHits"`
	}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 2, res.TotalHits)
	assert.True(t, strings.HasSuffix(res.SearchTime, " ms"), res.SearchTime)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "marker-1001", res.Items[0].ID, "timed marker goes first")
	assert.True(t, res.Items[0].IsMarker)
	assert.Equal(t, "101", res.Items[0].TourID)
	assert.Contains(t, res.Items[0].Title, "zebra")
	assert.Equal(t, 1, res.Items[0].ItemNumber)
	assert.Equal(t, "waypoint-2001", res.Items[1].ID)
	assert.True(t, res.Items[1].IsWaypoint)

	resp2 := xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"zebra"}}, "items=1-1")
	defer resp2.Body.Close()
	assert.Equal(t, "items 1-1/2", resp2.Header.Get("Content-Range"))
}

func TestRest_SearchNothing(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	for _, params := range []url.Values{
		{"action": {"search"}},
		{"action": {"search"}, "searchText": {"nomatch"}},
	} {
		resp := xhr(t, ts.URL, params, "items=0-9")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "0-0/0", resp.Header.Get("Content-Range"))
		assert.Contains(t, string(body), `"items":[]`)
		assert.Contains(t, string(body), `"totalHits":0`)
	}
}

func TestRest_SearchErrors(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	resp := xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"zebra"}}, "bytes=0-9")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"zebra"}}, "items=9-0")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = xhr(t, ts.URL, url.Values{"action": {"itemAction"}}, "")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"code":2`)
}

func TestRest_SearchFailureInResult(t *testing.T) {
	ts, svc, teardown := startupT(t)
	defer teardown()
	require.NoError(t, svc.SetOptions(search.Options{SearchAll: true}))

	resp := xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"title:"}}, "items=0-9")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0-0/0", resp.Header.Get("Content-Range"))

	var res struct {
		Items     []json.RawMessage `json:"items"`
		TotalHits int               `json:"totalHits"`
		Error     string            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 0, res.TotalHits)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)

	resp = xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"zebra"}}, "items=0-9")
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotContains(t, string(body), `"error"`)
}

func TestRest_SearchTextRemembered(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	resp := xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"alpine"}}, "items=0-9")
	resp.Body.Close()

	body, code := get(t, ts.URL+"/xhrSearch?action=getState", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"searchText":"alpine"}`, body)
}

func TestRest_Proposals(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	body, code := get(t, ts.URL+"/xhrSearch?action=proposals&searchText=alp", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items":[{"id":"alpine","name":"alpine"}]}`, body)

	body, code = get(t, ts.URL+"/xhrSearch?action=proposals&searchText=qqq", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", body)
}

func TestRest_SearchOptions(t *testing.T) {
	ts, svc, teardown := startupT(t)
	defer teardown()

	opts := struct {
		IsEaseSearching bool `json:"isEaseSearching"`
		IsSearchAll     bool `json:"isSearch_All"`
		IsDefault       bool `json:"isSearchOptionsDefault"`
	}{}
	body, code := get(t, ts.URL+"/xhrSearch?action=getSearchOptions", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal([]byte(body), &opts))
	assert.True(t, opts.IsEaseSearching)
	assert.True(t, opts.IsSearchAll)
	assert.True(t, opts.IsDefault)

	set := url.Values{"action": {"setSearchOptions"}, "searchOptions": {`{"isEaseSearching":false,"isShowItemNumber":true}`}}
	body, code = get(t, ts.URL+"/xhrSearch?"+set.Encode(), "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"isSearchOptionsDefault":false}`, body)
	assert.False(t, svc.Options().EaseSearching)
	assert.True(t, svc.Options().ShowItemNumber)
	assert.True(t, svc.Options().SearchAll, "not sent options kept")

	restore := url.Values{"action": {"setSearchOptions"}, "searchOptions": {`{"isRestoreDefaults":true}`}}
	body, code = get(t, ts.URL+"/xhrSearch?"+restore.Encode(), "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal([]byte(body), &opts))
	assert.True(t, opts.IsDefault)
	assert.True(t, opts.IsEaseSearching)
	assert.Equal(t, search.DefaultOptions(), svc.Options())

	bad := url.Values{"action": {"setSearchOptions"}, "searchOptions": {`{bad`}}
	_, code = get(t, ts.URL+"/xhrSearch?"+bad.Encode(), "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRest_AdminDeleteAndRebuild(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/admin/tour/101", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"zebra"}}, "items=0-9")
	resp.Body.Close()
	assert.Equal(t, "0-0/0", resp.Header.Get("Content-Range"))

	resp, err = http.Post(ts.URL+"/api/v1/admin/rebuild", "application/json", http.NoBody)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"tours":1,"markers":1,"waypoints":1}`, string(body))

	resp = xhr(t, ts.URL, url.Values{"action": {"search"}, "searchText": {"zebra"}}, "items=0-9")
	resp.Body.Close()
	assert.Equal(t, "items 0-1/2", resp.Header.Get("Content-Range"))
}

func TestRest_AdminRebuildAfterClientGone(t *testing.T) {
	_, svc, teardown := startupT(t)
	defer teardown()

	dataStore, err := engine.NewBoltDB(filepath.Join(t.TempDir(), "tours.db"), bolt.Options{})
	require.NoError(t, err)
	defer dataStore.Close()
	require.NoError(t, dataStore.SaveTour(alpineTour()))
	srv := &Rest{Version: "test", Search: svc, DataStore: dataStore, RateLimit: 1000}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rebuild", http.NoBody).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.rebuildCtrl(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tours":1,"markers":1,"waypoints":1}`, rec.Body.String())
	assert.Equal(t, 2, svc.Search(search.Request{Text: "zebra", To: 9}).TotalHits)
}

func TestRest_AdminBadID(t *testing.T) {
	ts, _, teardown := startupT(t)
	defer teardown()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/admin/tour/abc", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRest_SanitizeItem(t *testing.T) {
	srv := Rest{sanitizer: snippetPolicy()}
	item := srv.makeItem(search.ResultItem{
		DocID:       "tour-1",
		DocSource:   search.DocSourceTour,
		Title:       `<script>alert(1)</script><span class="search-match">loop</span>`,
		Description: `<span onclick="x()" class="search-match">pass</span> <b>bold</b>`,
	})
	assert.Equal(t, "tour-1", item.ID)
	assert.True(t, item.IsTour)
	assert.Equal(t, `<span class="search-match">loop</span>`, item.Title)
	assert.Equal(t, `<span class="search-match">pass</span> bold`, item.Description)
}

func TestParseRange(t *testing.T) {
	tbl := []struct {
		header   string
		from, to int
		err      bool
	}{
		{"", 0, 0, false},
		{"items=0-24", 0, 24, false},
		{"items=25-49", 25, 49, false},
		{"items=5", 0, 0, true},
		{"items=a-b", 0, 0, true},
		{"items=10-2", 0, 0, true},
	}
	for _, tt := range tbl {
		from, to, err := parseRange(tt.header)
		if tt.err {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, [2]int{tt.from, tt.to}, [2]int{from, to}, tt.header)
	}
}

func TestSearchTime(t *testing.T) {
	assert.Equal(t, "0.50 ms", searchTime(500*time.Microsecond))
	assert.Equal(t, "2.5 ms", searchTime(2500*time.Microsecond))
	assert.Equal(t, "42 ms", searchTime(42*time.Millisecond))
}

func startupT(t *testing.T) (ts *httptest.Server, svc *search.Service, teardown func()) {
	tmp := t.TempDir()
	dataStore, err := engine.NewBoltDB(filepath.Join(tmp, "tours.db"), bolt.Options{})
	require.NoError(t, err)

	svc, err = search.NewService(context.Background(), search.ServiceParams{
		DBRoot:       tmp,
		OptionsStore: search.NewOptionsStore(filepath.Join(tmp, "search.yml")),
		FlushEvery:   time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Init(context.Background(), nil, nil))

	decorated := search.WrapEngine(dataStore, svc)
	require.NoError(t, decorated.SaveTour(alpineTour()))
	require.NoError(t, svc.Flush())

	srv := &Rest{Version: "test", Search: svc, DataStore: dataStore, RateLimit: 1000}
	ts = httptest.NewServer(srv.routes())
	teardown = func() {
		ts.Close()
		assert.NoError(t, svc.Close())
		assert.NoError(t, dataStore.Close())
	}
	return ts, svc, teardown
}

func alpineTour() store.Tour {
	return store.Tour{
		ID:          101,
		StartTime:   1_590_000_000_000,
		Title:       store.Str("Alpine Loop"),
		Description: store.Str("climb over the pass"),
		StartPlace:  store.Str("Zermatt"),
		EndPlace:    store.Str("Täsch"),
		Markers: []store.Marker{
			{ID: 1001, Label: store.Str("Summit zebra"), Time: 1_590_000_100_000},
		},
		Waypoints: []store.Waypoint{
			{ID: 2001, Name: store.Str("Hut zebra")},
		},
	}
}

func xhr(t *testing.T, base string, params url.Values, rng string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, base+"/xhrSearch?"+params.Encode(), http.NoBody)
	require.NoError(t, err)
	if rng != "" {
		req.Header.Set("Range", rng)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, u, rng string) (body string, code int) {
	resp := doGet(t, u, rng)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b), resp.StatusCode
}

func doGet(t *testing.T, u, rng string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, u, http.NoBody)
	require.NoError(t, err)
	if rng != "" {
		req.Header.Set("Range", rng)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}
