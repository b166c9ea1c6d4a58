// Package server provides an HTTP REST server that compiles grammars, stores
// them, and parses text with them on behalf of clients.
//
// Routes, all under /api/v1:
//
//	POST   /login                 - accepts username and password and returns a jwt.
//	DELETE /login/{id}            - invalidates every token of a user (auth required).
//	POST   /tokens                - refreshes the token without requiring credentials (auth required).
//	POST   /grammars              - compiles and stores a grammar (auth required).
//	GET    /grammars              - lists stored grammars (auth required).
//	GET    /grammars/{id}         - gets a grammar with its source (auth required).
//	DELETE /grammars/{id}         - deletes a grammar (auth required, creator or admin).
//	POST   /grammars/{id}/parse   - parses text into a tree (auth required).
//	POST   /grammars/{id}/lex     - splits text into tokens (auth required).
//	GET    /info                  - gets version info on the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dekarrin/plyfin/cache"
	"github.com/dekarrin/plyfin/cache/inmem"
	"github.com/dekarrin/plyfin/cache/sqlite"
	"github.com/dekarrin/plyfin/server/api"
	"github.com/dekarrin/plyfin/server/dao"
	"github.com/dekarrin/plyfin/server/svc"
)

// Server is an HTTP REST server that provides plyfin grammars and parsing.
// The zero-value of a Server should not be used directly; call New() to get
// one ready for use.
type Server struct {
	router http.Handler
	db     dao.Store
	cache  cache.Cache
	log    logrus.FieldLogger
	api    api.API
	http   *http.Server
}

// New creates a new Server from cfg, which has FillDefaults applied before it
// is validated. If log is nil, the standard logrus logger is used.
func New(cfg Config, log logrus.FieldLogger) (*Server, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	db, err := cfg.Storage.open()
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var c cache.Cache
	if cfg.CachePath != "" {
		c, err = sqlite.Open(cfg.CachePath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open grammar cache: %w", err)
		}
	} else {
		c = inmem.New()
	}

	backend := svc.New(db, c)
	backend.HashCost = cfg.PasswordHashCost
	backend.Defaults = *cfg.Grammars.Defaults
	backend.Limits = cfg.Grammars.limits()

	srv := &Server{
		db:    db,
		cache: c,
		log:   log,
		api: api.API{
			Backend:     backend,
			UnauthDelay: cfg.unauthDelay(),
			Secret:      cfg.TokenSecret,
			Log:         log,
		},
	}
	srv.router = newRouter(srv.api)

	log.WithFields(logrus.Fields{
		"storage": cfg.Storage.String(),
		"cache":   cfg.CachePath,
	}).Debug("storage opened")

	ctx := context.Background()
	admin, generated, err := backend.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("set up admin user: %w", err)
	}
	if generated != "" {
		log.WithFields(logrus.Fields{
			"user":     admin.Username,
			"password": generated,
		}).Warn("created admin user with generated password")
	} else {
		log.WithField("user", admin.Username).Info("admin user ready")
	}

	if cfg.Grammars.Preload {
		n, err := backend.Preload(ctx)
		if err != nil {
			// a grammar that no longer compiles fails only its own requests
			log.WithError(err).Warn("some stored grammars were not preloaded")
		}
		log.WithField("grammars", n).Info("preloaded grammars")
	}

	return srv, nil
}

// Handler returns the HTTP handler that serves the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Service returns the backend the server's API calls into.
func (s *Server) Service() svc.Service {
	return s.api.Backend
}

// ServeForever begins listening on the given address for HTTP REST client
// requests. If address is "", it defaults to "localhost:8080". It returns once
// the server is shut down.
func (s *Server) ServeForever(address string) error {
	if address == "" {
		address = "localhost:8080"
	}

	s.http = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.WithField("address", address).Info("listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops a server started with ServeForever, waiting for active
// requests to finish until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Close releases the server's database and cache.
func (s *Server) Close() error {
	var err error

	if nextErr := s.db.Close(); nextErr != nil {
		err = fmt.Errorf("close DB: %w", nextErr)
	}
	if nextErr := s.cache.Close(); nextErr != nil {
		if err != nil {
			err = fmt.Errorf("%s\nadditionally, close cache: %w", err, nextErr)
		} else {
			err = fmt.Errorf("close cache: %w", nextErr)
		}
	}

	return err
}
