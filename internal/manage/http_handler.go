package manage

import (
	"context"
	"errors"
	"log"
	"net/http"

	"locallibrary/internal/catalog"
	"locallibrary/internal/httpx"

	"github.com/go-chi/chi/v5"
)

// Redirect targets after a successful write.
const (
	AuthorsPath   = "/catalog/authors"
	BooksPath     = "/catalog/books"
	InstancesPath = "/catalog/bookinstances"
)

func authorPath(id string) string   { return "/catalog/author/" + id }
func bookPath(id string) string     { return "/catalog/book/" + id }
func instancePath(id string) string { return "/catalog/bookinstance/" + id }

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

type created struct {
	ID string `json:"id"`
}

// AuthorForm handles GET /catalog/author/{id}/update
func (h *HTTPHandler) AuthorForm(w http.ResponseWriter, r *http.Request) {
	showForm(w, r, h.svc.AuthorForm)
}

// CreateAuthor handles POST /catalog/author/create
func (h *HTTPHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	create(w, r, h.svc.CreateAuthor, func(string) string { return AuthorsPath })
}

// UpdateAuthor handles POST /catalog/author/{id}/update
func (h *HTTPHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	update(w, r, h.svc.UpdateAuthor, authorPath)
}

// DeleteAuthor handles POST /catalog/author/{id}/delete
func (h *HTTPHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	remove(w, r, h.svc.DeleteAuthor, AuthorsPath)
}

// BookForm handles GET /catalog/book/{id}/update
func (h *HTTPHandler) BookForm(w http.ResponseWriter, r *http.Request) {
	showForm(w, r, h.svc.BookForm)
}

// CreateBook handles POST /catalog/book/create
func (h *HTTPHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	create(w, r, h.svc.CreateBook, func(string) string { return BooksPath })
}

// UpdateBook handles POST /catalog/book/{id}/update
func (h *HTTPHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	update(w, r, h.svc.UpdateBook, bookPath)
}

// DeleteBook handles POST /catalog/book/{id}/delete
func (h *HTTPHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	remove(w, r, h.svc.DeleteBook, BooksPath)
}

// InstanceForm handles GET /catalog/bookinstance/{id}/update
func (h *HTTPHandler) InstanceForm(w http.ResponseWriter, r *http.Request) {
	showForm(w, r, h.svc.InstanceForm)
}

// CreateInstance handles POST /catalog/bookinstance/create. New copies are
// shown from the book list.
func (h *HTTPHandler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	create(w, r, h.svc.CreateInstance, func(string) string { return BooksPath })
}

// UpdateInstance handles POST /catalog/bookinstance/{id}/update
func (h *HTTPHandler) UpdateInstance(w http.ResponseWriter, r *http.Request) {
	update(w, r, h.svc.UpdateInstance, instancePath)
}

// DeleteInstance handles POST /catalog/bookinstance/{id}/delete
func (h *HTTPHandler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	remove(w, r, h.svc.DeleteInstance, InstancesPath)
}

func showForm[T any](w http.ResponseWriter, r *http.Request, load func(context.Context, string) (T, error)) {
	form, err := load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	httpx.JSONSuccess(w, form, nil)
}

func create[T any](w http.ResponseWriter, r *http.Request, run func(context.Context, T) (string, error), location func(id string) string) {
	var in T
	if err := httpx.DecodeJSON(r, &in); err != nil {
		writeError(w, err, nil)
		return
	}
	id, err := run(r.Context(), in)
	if err != nil {
		writeError(w, err, in)
		return
	}
	httpx.SeeOther(w, location(id), created{ID: id})
}

func update[T any](w http.ResponseWriter, r *http.Request, run func(context.Context, string, T) error, location func(id string) string) {
	id := chi.URLParam(r, "id")
	var patch T
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		writeError(w, err, nil)
		return
	}
	if err := run(r.Context(), id, patch); err != nil {
		writeError(w, err, patch)
		return
	}
	httpx.SeeOther(w, location(id), created{ID: id})
}

func remove(w http.ResponseWriter, r *http.Request, run func(context.Context, string) error, location string) {
	if err := run(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, nil)
		return
	}
	httpx.SeeOther(w, location, nil)
}

// writeError maps service errors onto responses. form, when set, is echoed
// back with validation failures.
func writeError(w http.ResponseWriter, err error, form any) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		httpx.JSONFormError(w, verrs, form)
	case errors.Is(err, httpx.ErrBadRequest):
		httpx.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	case errors.Is(err, catalog.ErrInUse):
		httpx.JSONError(w, http.StatusConflict, "CONFLICT", "Record is still referenced and cannot be deleted", nil)
	case errors.Is(err, catalog.ErrInvalidReference):
		httpx.JSONFormError(w, []httpx.ErrorDetail{{Message: catalog.ErrInvalidReference.Error()}}, form)
	case errors.Is(err, catalog.ErrBorrowerNotOnLoan):
		httpx.JSONFormError(w, []httpx.ErrorDetail{{Field: "borrower_id", Message: catalog.ErrBorrowerNotOnLoan.Error()}}, form)
	default:
		log.Printf("manage: %v", err)
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
