package api

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	log "github.com/go-pkgz/lgr"
	R "github.com/go-pkgz/rest"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/rest"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

// POST /api/v1/admin/rebuild, recreates index from the data store and reports number of indexed documents
func (s *Rest) rebuildCtrl(w http.ResponseWriter, r *http.Request) {
	if s.DataStore == nil {
		rest.SendErrorJSON(w, r, http.StatusServiceUnavailable, errors.New("no data store"), "rebuild is not available", rest.ErrIndexingFailed)
		return
	}

	var created [4]int64
	monitor := search.MonitorFunc(func(kind search.DocSource, n int) {
		atomic.StoreInt64(&created[kind], int64(n))
	})
	// index is cleared first, client disconnect must not leave it half filled
	ctx := context.WithoutCancel(r.Context())
	if err := s.Search.Rebuild(ctx, s.DataStore, monitor); err != nil {
		rest.SendErrorJSON(w, r, http.StatusInternalServerError, err, "can't rebuild index", rest.ErrIndexingFailed)
		return
	}
	res := R.JSON{
		"tours":     atomic.LoadInt64(&created[search.DocSourceTour]),
		"markers":   atomic.LoadInt64(&created[search.DocSourceMarker]),
		"waypoints": atomic.LoadInt64(&created[search.DocSourceWaypoint]),
	}
	log.Printf("[INFO] search index rebuilt, %v", res)
	render.JSON(w, r, res)
}

// DELETE /api/v1/admin/tour/{id}, removes tour with markers and waypoints from index
func (s *Rest) deleteTourCtrl(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		rest.SendErrorJSON(w, r, http.StatusBadRequest, err, "bad tour id", rest.ErrBadRequest)
		return
	}
	if err = s.Search.DeleteTour(id); err != nil {
		rest.SendErrorJSON(w, r, http.StatusInternalServerError, err, "can't delete tour from index", rest.ErrIndexingFailed)
		return
	}
	render.JSON(w, r, R.JSON{"id": id, "deleted": true})
}
