package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"csvchat/internal/config"
	"csvchat/internal/dataset"
	"csvchat/internal/observability"
	"csvchat/internal/pipeline"
	"csvchat/internal/session"
)

const sessionGaugeInterval = 15 * time.Second

// Server holds the shared state behind the browser UI and the JSON API.
type Server struct {
	cfg          *config.Config
	logger       *slog.Logger
	sessions     *session.Manager
	pipeline     *pipeline.Pipeline
	sessionStore *sessions.CookieStore
}

// NewServer builds the server from configuration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	secret := []byte(cfg.Server.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		logger.Warn("no session secret configured, cookies will not survive a restart")
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(int(cfg.Session.TTL / time.Second))
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	// browsers never return a Secure cookie over plain http
	sessionStore.Options.Secure = cfg.Server.SecureCookies

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		pipeline:     p,
		sessionStore: sessionStore,
	}
	s.sessions = session.NewManager(cfg.Session.TTL, pipeline.SessionOptions(cfg), logger)
	s.sessions.OnClose = func(string) {
		observability.SetLiveSessions(s.sessions.Count())
	}
	return s, nil
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(observability.TraceMiddleware)
	r.Use(observability.LoggingMiddleware(s.logger))
	r.Use(observability.MetricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Web handlers (HTML form posts, redirect back to /)
	web := NewWebHandler(s)
	r.Get("/", web.ChatPage)
	r.Post("/upload", web.Upload)
	r.Post("/query", web.Query)
	r.Post("/apikey", web.APIKey)
	r.Post("/filter", web.Filter)
	r.Post("/reset", web.Reset)

	// API handlers (JSON responses)
	api := &APIHandler{server: s}
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", api.GetSession)
		r.Delete("/session", api.DeleteSession)
		r.Post("/upload", api.Upload)
		r.Post("/query", api.Query)
		r.Get("/history", api.History)
		r.Get("/schema", api.Schema)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Close drops every session and releases its store.
func (s *Server) Close() {
	s.sessions.Flush()
	observability.SetLiveSessions(0)
}

// StartServer serves the UI until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, err := NewServer(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	s.logger.Info("starting server", "addr", cfg.Server.Addr, "engine", cfg.Store.Engine, "provider", cfg.LLM.Provider)

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		ticker := time.NewTicker(sessionGaugeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egctx.Done():
				return nil
			case <-ticker.C:
				observability.SetLiveSessions(s.sessions.Count())
			}
		}
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

const (
	sessionIDKey  = "id"
	sessionHeader = "X-Session-ID"
)

// browserSession returns the chat session named by the request's cookie,
// creating one when the cookie is missing or its session has expired. The
// caller must save the returned cookie session before writing a response.
func (s *Server) browserSession(r *http.Request) (*session.Session, *sessions.Session) {
	cs, err := s.sessionStore.Get(r, s.cfg.Session.CookieName)
	if err != nil {
		s.logger.Debug("discarding invalid session cookie", "error", err)
	}
	id, _ := cs.Values[sessionIDKey].(string)
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		s.seedSession(sess)
		cs.Values[sessionIDKey] = sess.ID
	}
	return sess, cs
}

// apiSession resolves the session for a JSON request: the X-Session-ID
// header when present, the cookie otherwise.
func (s *Server) apiSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if id := r.Header.Get(sessionHeader); id != "" {
		return s.sessions.Get(id)
	}
	sess, cs := s.browserSession(r)
	if err := cs.Save(r, w); err != nil {
		s.logger.Error("failed to save session cookie", "error", err)
	}
	return sess, nil
}

func (s *Server) seedSession(sess *session.Session) {
	if s.cfg.LLM.APIKey != "" {
		sess.SetAPIKey(s.cfg.LLM.APIKey)
	}
	observability.SetLiveSessions(s.sessions.Count())
}

var errNoFile = errors.New("no file uploaded")

// uploadFromRequest loads a CSV into sess from a multipart "file" field or,
// for other content types, from the raw request body.
func (s *Server) uploadFromRequest(w http.ResponseWriter, r *http.Request, sess *session.Session) (*dataset.Dataset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
			return nil, fmt.Errorf("invalid upload: %w", err)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, errNoFile
		}
		defer file.Close()
		return sess.Upload(r.Context(), header.Filename, file)
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.csv"
	}
	return sess.Upload(r.Context(), name, r.Body)
}
