package server

import (
	"bytes"
	"net/http"
)

// responseWriterWrapper records the status code and, when capture is set,
// a copy of the body.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
	capture    bool
	buffer     bytes.Buffer
}

func newResponseWriterWrapper(w http.ResponseWriter, capture bool) *responseWriterWrapper {
	return &responseWriterWrapper{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		capture:        capture,
	}
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if w.capture {
		w.buffer.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *responseWriterWrapper) GetStatusCode() int {
	return w.statusCode
}

func (w *responseWriterWrapper) GetBody() []byte {
	return w.buffer.Bytes()
}
