package main

import (
	"context"
	"net/http"
	"time"

	"locallibrary/internal/auth"
	"locallibrary/internal/catalog"
	"locallibrary/internal/httpx"
	"locallibrary/internal/loan"
	"locallibrary/internal/manage"
	"locallibrary/internal/visit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// server holds everything the router needs.
type server struct {
	catalog     *catalog.HTTPHandler
	loans       *loan.HTTPHandler
	manage      *manage.HTTPHandler
	jwtSecret   string
	maxBody     int64
	sessionTTL  time.Duration
	cookieTLS   bool
	corsOrigins []string
	writeLimit  *httpx.RateLimitMiddleware
	ready       func(ctx context.Context) error
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.AccessLogMiddleware)
	r.Use(httpx.RecoveryMiddleware)
	r.Use(httpx.SecurityHeadersMiddleware)
	if len(s.corsOrigins) > 0 {
		r.Use(httpx.CORSMiddleware(s.corsOrigins))
	}
	r.Use(httpx.RequestSizeLimitMiddleware(s.maxBody))
	r.Use(httpx.AuthMiddleware(s.jwtSecret))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.readyz)

	sessions := visit.Middleware(s.sessionTTL, s.cookieTLS)
	r.With(sessions).Get("/", s.catalog.Index)

	r.Route("/catalog", func(r chi.Router) {
		r.With(sessions).Get("/", s.catalog.Index)
		r.Get("/books", s.catalog.ListBooks)
		r.Get("/book/{id}", s.catalog.GetBook)
		r.Get("/authors", s.catalog.ListAuthors)
		r.Get("/author/{id}", s.catalog.GetAuthor)
		r.Get("/genres", s.catalog.ListGenres)
		r.Get("/languages", s.catalog.ListLanguages)
		r.Get("/bookinstances", s.catalog.ListInstances)
		r.Get("/bookinstance/{id}", s.catalog.GetInstance)

		r.With(httpx.RequireLogin).Get("/mybooks", s.catalog.ListMyLoans)

		r.Group(func(r chi.Router) {
			r.Use(httpx.RequirePermission(auth.PermMarkReturned))
			r.Get("/book/{id}/renew", s.loans.Renew)
			r.With(s.writeLimit.Middleware).Post("/book/{id}/renew", s.loans.Renew)
		})

		r.Group(func(r chi.Router) {
			r.Use(httpx.RequireLogin)

			r.Get("/author/{id}/update", s.manage.AuthorForm)
			r.Get("/book/{id}/update", s.manage.BookForm)
			r.Get("/bookinstance/{id}/update", s.manage.InstanceForm)

			r.Group(func(r chi.Router) {
				r.Use(s.writeLimit.Middleware)

				r.Post("/author/create", s.manage.CreateAuthor)
				r.Post("/author/{id}/update", s.manage.UpdateAuthor)
				r.Post("/author/{id}/delete", s.manage.DeleteAuthor)

				r.Post("/book/create", s.manage.CreateBook)
				r.Post("/book/{id}/update", s.manage.UpdateBook)
				r.Post("/book/{id}/delete", s.manage.DeleteBook)

				r.Post("/bookinstance/create", s.manage.CreateInstance)
				r.Post("/bookinstance/{id}/update", s.manage.UpdateInstance)
				r.Post("/bookinstance/{id}/delete", s.manage.DeleteInstance)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

func (s *server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.ready(r.Context()); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
