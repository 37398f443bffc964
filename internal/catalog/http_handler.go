package catalog

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"locallibrary/internal/httpx"
	"locallibrary/internal/platform/weather"
	"locallibrary/internal/visit"

	"github.com/go-chi/chi/v5"
)

type HTTPHandler struct {
	svc     *Service
	visits  VisitCounter
	weather WeatherSource
}

// NewHTTPHandler wires the catalog views. weather may be nil, in which case
// the index page is rendered without conditions.
func NewHTTPHandler(svc *Service, visits VisitCounter, weather WeatherSource) *HTTPHandler {
	return &HTTPHandler{svc: svc, visits: visits, weather: weather}
}

type IndexPage struct {
	Summary
	NumVisits int             `json:"num_visits"`
	Weather   *weather.Report `json:"weather,omitempty"`
}

// Index handles GET /
func (h *HTTPHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.svc.Summary(ctx)
	if err != nil {
		log.Printf("index: %v", err)
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	page := IndexPage{Summary: summary}

	if s, ok := visit.FromContext(ctx); ok {
		n, err := h.visits.Count(ctx, s.ID)
		if err != nil {
			log.Printf("index: %v", err)
			httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
			return
		}
		page.NumVisits = n
	}

	if h.weather != nil {
		report, err := h.weather.Current(ctx)
		if err != nil {
			log.Printf("index: weather skipped: %v", err)
		} else {
			page.Weather = &report
		}
	}

	httpx.JSONSuccess(w, page, nil)
}

// ListBooks handles GET /catalog/books
func (h *HTTPHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	books, total, err := h.svc.ListBooks(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, nonNil(books), pageMeta(page, total))
}

// GetBook handles GET /catalog/book/{id}
func (h *HTTPHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, book, nil)
}

// ListAuthors handles GET /catalog/authors
func (h *HTTPHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	authors, total, err := h.svc.ListAuthors(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, nonNil(authors), pageMeta(page, total))
}

// GetAuthor handles GET /catalog/author/{id}
func (h *HTTPHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	author, err := h.svc.GetAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, author, nil)
}

// ListGenres handles GET /catalog/genres
func (h *HTTPHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.svc.ListGenres(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, nonNil(genres), nil)
}

// ListLanguages handles GET /catalog/languages
func (h *HTTPHandler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	languages, err := h.svc.ListLanguages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, nonNil(languages), nil)
}

// ListInstances handles GET /catalog/bookinstances
func (h *HTTPHandler) ListInstances(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	instances, total, err := h.svc.ListInstances(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, nonNil(instances), pageMeta(page, total))
}

// GetInstance handles GET /catalog/bookinstance/{id}
func (h *HTTPHandler) GetInstance(w http.ResponseWriter, r *http.Request) {
	instance, err := h.svc.GetInstance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, instance, nil)
}

// ListMyLoans handles GET /catalog/mybooks
func (h *HTTPHandler) ListMyLoans(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	page := pageParam(r)
	instances, total, err := h.svc.ListOnLoanTo(r.Context(), userID, page)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONSuccess(w, Loans(instances, time.Now()), pageMeta(page, total))
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	log.Printf("catalog: %v", err)
	httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
}

func pageParam(r *http.Request) int {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	return page
}

func pageMeta(page, total int) map[string]any {
	return map[string]any{
		"page":        page,
		"page_size":   PageSize,
		"total":       total,
		"total_pages": (total + PageSize - 1) / PageSize,
	}
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
