package rest

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed templates
var templatesFS embed.FS

const shutdownTimeout = 5 * time.Second

type Server struct {
	log        *logrus.Entry
	app        App
	address    string
	version    string
	secret     []byte
	sessionTTL time.Duration
	pages      *template.Template
	now        func() time.Time
}

func New(log *logrus.Logger, app App, address, version, secret string, sessionTTL time.Duration) *Server {
	return &Server{
		log:        log.WithField("component", "rest"),
		app:        app,
		address:    address,
		version:    version,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		pages:      template.Must(template.ParseFS(templatesFS, "templates/*.html")),
		now:        time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/version", s.versionHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.uiAuth)
		r.Get("/", s.homeHandler)
		r.Get("/links", s.linksHandler)
	})
	r.Group(func(r chi.Router) {
		r.Use(s.guestOnly)
		r.Get("/login", s.loginPageHandler)
		r.Post("/login", s.loginFormHandler)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.loginHandler)
			r.With(s.apiAuth).Get("/infos", s.infosHandler)
		})
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/ics", s.icsHandler)
			r.Group(func(r chi.Router) {
				r.Use(s.apiAuth)
				r.Get("/", s.calendarHandler)
				r.Post("/ics-token", s.createTokenHandler)
				r.Delete("/ics-token", s.deleteTokenHandler)
			})
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()
	s.log.Infof("listening on %s", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("err during shutdown: %w", err)
	}
	return nil
}
