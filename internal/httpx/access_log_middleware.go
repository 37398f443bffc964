package httpx

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// AccessLogMiddleware logs one line per request with its chi request id.
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("access method=%s path=%s status=%d bytes=%d duration_ms=%d request_id=%s remote=%s",
			r.Method,
			r.URL.Path,
			status,
			ww.BytesWritten(),
			time.Since(start).Milliseconds(),
			middleware.GetReqID(r.Context()),
			r.RemoteAddr,
		)
	})
}
