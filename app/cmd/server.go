package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/go-pkgz/lgr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mytourbook/mytourbook-sub068/app/rest/api"
	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
	"github.com/mytourbook/mytourbook-sub068/app/store/search"
)

// ServerCommand with command line flags and env
type ServerCommand struct {
	Search    SearchGroup `group:"search" namespace:"search" env-namespace:"SEARCH"`
	Address   string      `long:"address" env:"ADDRESS" default:"127.0.0.1" description:"listening address"`
	Port      int         `long:"port" env:"PORT" default:"8080" description:"port"`
	RateLimit float64     `long:"rate-limit" env:"RATE_LIMIT" default:"50" description:"requests per second per client"`

	CommonOpts
}

// serverApp holds all active objects
type serverApp struct {
	*ServerCommand
	restSrv    *api.Rest
	dataStore  *engine.BoltDB
	search     *search.Service
	terminated chan struct{}
}

// Execute is the entry point for "server" command, called by flag parser
func (s *ServerCommand) Execute(_ []string) error {
	log.Printf("[INFO] start server on %s:%d", s.Address, s.Port)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	app, err := s.newServerApp(ctx)
	if err != nil {
		log.Printf("[ERROR] failed to setup application, %+v", err)
		return err
	}
	if err = app.run(ctx); err != nil {
		log.Printf("[ERROR] search server terminated with error %+v", err)
		return err
	}
	log.Printf("[INFO] search server terminated")
	return nil
}

// newServerApp prepares application and return it with all active parts
// doesn't start anything
func (s *ServerCommand) newServerApp(ctx context.Context) (*serverApp, error) {
	dataStore, err := s.makeDataStore()
	if err != nil {
		return nil, errors.Wrap(err, "failed to make data store")
	}

	searchService, err := s.makeSearch(ctx, s.Search)
	if err != nil {
		_ = dataStore.Close()
		return nil, err
	}
	if err = searchService.Init(ctx, dataStore, progressLogger()); err != nil {
		_ = searchService.Close()
		_ = dataStore.Close()
		return nil, errors.Wrap(err, "failed to init search index")
	}

	restSrv := &api.Rest{
		Version:   s.Revision,
		Search:    searchService,
		DataStore: dataStore,
		Address:   s.Address,
		Port:      s.Port,
		RateLimit: s.RateLimit,
	}

	return &serverApp{
		ServerCommand: s,
		restSrv:       restSrv,
		dataStore:     dataStore,
		search:        searchService,
		terminated:    make(chan struct{}),
	}, nil
}

// run all application objects, blocks till ctx canceled
func (a *serverApp) run(ctx context.Context) error {
	errs := new(multierror.Error)
	go func() {
		// shutdown on context cancellation
		<-ctx.Done()
		log.Print("[INFO] shutdown initiated")
		a.restSrv.Shutdown()
	}()

	a.restSrv.Run()

	// rest server stopped, index updates are flushed or saved to ahead log on close
	if err := a.search.Close(); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "failed to close search service"))
	}
	if err := a.dataStore.Close(); err != nil {
		errs = multierror.Append(errs, errors.Wrap(err, "failed to close data store"))
	}
	close(a.terminated)
	return errs.ErrorOrNil()
}

// Wait for application completion (termination)
func (a *serverApp) Wait() {
	<-a.terminated
}
