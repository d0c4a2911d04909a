// Package api implements the http bridge between search service and the embedded web view
package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth_chi"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	log "github.com/go-pkgz/lgr"
	R "github.com/go-pkgz/rest"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

// Rest is the http server of the search bridge
type Rest struct {
	Version   string
	Search    *search.Service
	DataStore engine.RowSource // source for index rebuild, rebuild is disabled if nil
	Address   string           // listen address, loopback if empty
	Port      int
	RateLimit float64 // requests per second per client, 0 for default

	sanitizer  *bluemonday.Policy
	httpServer *http.Server
	lock       sync.Mutex
}

// Run the listener and request's router, activate rest server
func (s *Rest) Run() {
	addr := s.Address
	if addr == "" {
		addr = "127.0.0.1"
	}
	log.Printf("[INFO] activate search bridge on %s:%d", addr, s.Port)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", addr, s.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
		ErrorLog:          log.ToStdLogger(log.Default(), "WARN"),
	}
	s.lock.Unlock()

	err := s.httpServer.ListenAndServe()
	log.Printf("[WARN] http server terminated, %s", err)
}

// Shutdown rest http server
func (s *Rest) Shutdown() {
	log.Print("[WARN] shutdown rest server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[DEBUG] rest shutdown error, %s", err)
		}
	}
	log.Print("[DEBUG] shutdown rest server completed")
}

func (s *Rest) routes() chi.Router {
	s.sanitizer = snippetPolicy()
	limit := s.RateLimit
	if limit <= 0 {
		limit = 50
	}

	router := chi.NewRouter()
	router.Use(middleware.Throttle(1000), middleware.RealIP, R.Recoverer(log.Default()))
	router.Use(R.AppInfo("tour-search", "mytourbook", s.Version), R.Ping)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Range", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Range"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	router.Use(corsMiddleware.Handler)

	router.Group(func(rxhr chi.Router) {
		rxhr.Use(tollbooth_chi.LimitHandler(tollbooth.NewLimiter(limit, nil)))
		rxhr.Use(middleware.NoCache)
		rxhr.Get("/xhrSearch", s.xhrSearchCtrl)
	})

	router.Route("/api/v1/admin", func(radmin chi.Router) {
		radmin.Use(tollbooth_chi.LimitHandler(tollbooth.NewLimiter(limit, nil)))
		radmin.Post("/rebuild", s.rebuildCtrl)
		radmin.Delete("/tour/{id}", s.deleteTourCtrl)
	})

	return router
}

var matchClass = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// snippetPolicy keeps highlight spans only, everything else escaped or dropped
func snippetPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("class").Matching(matchClass).OnElements("span")
	return p
}
