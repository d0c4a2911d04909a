package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	_ "modernc.org/sqlite"

	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

const testSchema = `
CREATE TABLE TOUR_DATA (tourId INTEGER PRIMARY KEY, tourStartTime INTEGER, tourTitle TEXT, tourDescription TEXT,
	tourStartPlace TEXT, tourEndPlace TEXT, weather TEXT);
CREATE TABLE TOUR_MARKER (markerId INTEGER PRIMARY KEY, TOURDATA_TOURID INTEGER, label TEXT, description TEXT, tourTime INTEGER);
CREATE TABLE TOUR_WAYPOINT (TOURWAYPOINTID INTEGER PRIMARY KEY, TOURDATA_TOURID INTEGER, name TEXT, description TEXT, time INTEGER);
INSERT INTO TOUR_DATA VALUES (1, 1000, 'Alpine Loop', NULL, 'Zermatt', 'Zermatt', 'sunny');
INSERT INTO TOUR_DATA VALUES (2, 2000, 'River ride', 'flat and fast', NULL, NULL, NULL);
INSERT INTO TOUR_MARKER VALUES (11, 1, 'summit', 'top of the loop', 1500);
INSERT INTO TOUR_WAYPOINT VALUES (21, 2, 'bridge', NULL, NULL);
`

func TestRebuild_FromSQLite(t *testing.T) {
	dbRoot := t.TempDir()
	cmd := RebuildCommand{SQLite: prepSQLite(t), Search: testSearchGroup()}
	cmd.SetCommon(CommonOpts{DBRoot: dbRoot})
	require.NoError(t, cmd.Execute(nil))
	require.NoError(t, cmd.Execute(nil), "rebuild is repeatable")

	assert.Equal(t, 1, hits(t, dbRoot, "alpine"))
	assert.Equal(t, 1, hits(t, dbRoot, "summit"))
	assert.Equal(t, 1, hits(t, dbRoot, "bridge"))
}

func TestRebuild_NoSource(t *testing.T) {
	cmd := RebuildCommand{SQLite: filepath.Join(t.TempDir(), "nope.db"), Search: testSearchGroup()}
	cmd.SetCommon(CommonOpts{DBRoot: t.TempDir()})
	assert.Error(t, cmd.Execute(nil))
}

func TestImport_AndDelete(t *testing.T) {
	dbRoot := t.TempDir()
	imp := ImportCommand{SQLite: prepSQLite(t), Search: testSearchGroup()}
	imp.SetCommon(CommonOpts{DBRoot: dbRoot})
	require.NoError(t, imp.Execute(nil))

	ds, err := engine.NewBoltDB(filepath.Join(dbRoot, "tours.db"), bolt.Options{})
	require.NoError(t, err)
	tour, err := ds.GetTour(1)
	require.NoError(t, err)
	assert.Equal(t, "Alpine Loop", *tour.Title)
	require.Len(t, tour.Markers, 1)
	require.NoError(t, ds.Close())

	assert.Equal(t, 1, hits(t, dbRoot, "alpine"))
	assert.Equal(t, 1, hits(t, dbRoot, "river"))

	del := DeleteCommand{Search: testSearchGroup()}
	del.SetCommon(CommonOpts{DBRoot: dbRoot})
	assert.Error(t, del.Execute(nil), "nothing to delete")

	del.Tours = []int64{1}
	require.NoError(t, del.Execute(nil))
	assert.Equal(t, 0, hits(t, dbRoot, "alpine"))
	assert.Equal(t, 0, hits(t, dbRoot, "summit"), "markers removed with tour")
	assert.Equal(t, 1, hits(t, dbRoot, "river"))

	del = DeleteCommand{Search: testSearchGroup(), All: true}
	del.SetCommon(CommonOpts{DBRoot: dbRoot})
	require.NoError(t, del.Execute(nil))
	assert.Equal(t, 0, hits(t, dbRoot, "river"))
}

func TestServerApp(t *testing.T) {
	port := chooseRandomUnusedPort(t)
	cmd := ServerCommand{Address: "127.0.0.1", Port: port, RateLimit: 100, Search: testSearchGroup()}
	cmd.SetCommon(CommonOpts{DBRoot: t.TempDir(), Revision: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	app, err := cmd.newServerApp(ctx)
	require.NoError(t, err)
	go func() { _ = app.run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/ping", port)
	assert.Eventually(t, func() bool {
		resp, e := http.Get(url) //nolint:gosec // test url
		if e != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/xhrSearch?action=getState", port)) //nolint:gosec // test url
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", resp.Header.Get("App-Version"))

	cancel()
	app.Wait()
}

func testSearchGroup() SearchGroup {
	return SearchGroup{BatchSize: 10, CacheSize: 10, FlushEvery: time.Hour, FlushCount: 100, Snippet: 160}
}

func prepSQLite(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "tourbook.db")
	db, err := sql.Open("sqlite", file)
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return file
}

func hits(t *testing.T, dbRoot, text string) int {
	svc, err := search.NewService(context.Background(), search.ServiceParams{DBRoot: dbRoot})
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()
	res := svc.Search(search.Request{Text: text, To: 99})
	require.Empty(t, res.Error)
	return res.TotalHits
}

func chooseRandomUnusedPort(t *testing.T) (port int) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port = ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}
