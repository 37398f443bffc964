package loan

import (
	"errors"
	"log"
	"mime"
	"net/http"
	"time"

	"locallibrary/internal/auth"
	"locallibrary/internal/catalog"
	"locallibrary/internal/httpx"

	"github.com/go-chi/chi/v5"
)

// MyLoansPath is where a successful renewal sends the caller.
const MyLoansPath = "/catalog/mybooks"

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// RenewForm is the renewal form state.
type RenewForm struct {
	Instance catalog.BookInstance `json:"instance"`
	DueBack  string               `json:"due_back"`
}

type renewRequest struct {
	DueBack string `json:"due_back"`
}

// Renew handles GET and POST /catalog/book/{id}/renew. The route is guarded
// by httpx.RequirePermission; the service checks the permission again.
func (h *HTTPHandler) Renew(w http.ResponseWriter, r *http.Request) {
	req := RenewRequest{
		InstanceID: chi.URLParam(r, "id"),
		Caller:     httpx.CallerFrom(r),
		Method:     r.Method,
	}

	var raw string
	if r.Method == http.MethodPost {
		var err error
		raw, err = readDueBack(r)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
			return
		}
		if raw != "" {
			d, err := httpx.ParseDate(raw)
			if err != nil {
				h.formError(w, r, req, raw)
				return
			}
			req.DueBack = &d
		}
	}

	res, err := h.svc.Renew(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(res.Errors) > 0 {
		form := RenewForm{Instance: res.Instance, DueBack: raw}
		httpx.JSONFormError(w, details(res.Errors), form)
		return
	}
	if res.Renewed {
		httpx.SeeOther(w, MyLoansPath, res.Instance)
		return
	}

	httpx.JSONSuccess(w, RenewForm{Instance: res.Instance, DueBack: formatDate(res.DueBack)}, nil)
}

// formError answers an unparseable date. The copy is still looked up so an
// unknown id stays a 404.
func (h *HTTPHandler) formError(w http.ResponseWriter, r *http.Request, req RenewRequest, raw string) {
	req.Method = http.MethodGet
	res, err := h.svc.Renew(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSONFormError(w, []httpx.ErrorDetail{{
		Field:   "due_back",
		Message: "due_back must be a date formatted YYYY-MM-DD",
	}}, RenewForm{Instance: res.Instance, DueBack: raw})
}

// readDueBack accepts either a form post or a JSON body.
func readDueBack(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return r.PostFormValue("due_back"), nil
	}

	if r.ContentLength == 0 {
		return "", nil
	}
	var body renewRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return "", err
	}
	return body.DueBack, nil
}

func details(errs ValidationErrors) []httpx.ErrorDetail {
	out := make([]httpx.ErrorDetail, len(errs))
	for i, fe := range errs {
		out[i] = httpx.ErrorDetail{Field: fe.Field, Message: fe.Message}
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(httpx.DateLayout)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book instance not found", nil)
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrPermissionDenied):
		httpx.WriteAuthError(w, err)
	default:
		log.Printf("renew: %v", err)
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
