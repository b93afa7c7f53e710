package server

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const maxAuditBodyBytes = 2048

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		vars := mux.Vars(r)
		entry := AuditLogEntry{
			Timestamp: time.Now().UTC(),
			Method:    r.Method,
			Route:     routeTemplate(r),
			Path:      r.URL.Path,
			OrderID:   vars["id"],
			Date:      vars["date"],
		}

		contentType := r.Header.Get("Content-Type")
		if r.Body != nil && !strings.Contains(contentType, "multipart/form-data") {
			requestBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
			if err != nil {
				s.respondError(w, r, errBodyTooLarge)
				entry.StatusCode = http.StatusRequestEntityTooLarge
				s.AuditManager.LogEntry(r.Context(), entry)
				return
			}
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			entry.Request = truncate(requestBody)
		}

		wrw := newResponseWriterWrapper(w, true)

		next.ServeHTTP(wrw, r)

		entry.StatusCode = wrw.GetStatusCode()
		entry.Response = truncate(wrw.GetBody())

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}

func truncate(b []byte) string {
	if len(b) > maxAuditBodyBytes {
		return string(b[:maxAuditBodyBytes]) + "...(truncated)"
	}
	return strings.TrimSpace(string(b))
}
