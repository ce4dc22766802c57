package middleware

import (
	"bytes"
	"net/http"
)

// bufferedWriter captures a complete response. Nothing reaches the client
// until flushTo is called.
type bufferedWriter struct {
	statusCode  int
	wroteHeader bool
	header      http.Header
	body        bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{
		statusCode: http.StatusOK,
		header:     make(http.Header),
	}
}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

// WriteHeader latches the first final status. Informational 1xx
// responses other than 101 are dropped.
func (w *bufferedWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.body.Write(b)
}

// Flush is a no-op so streaming handlers stay buffered.
func (w *bufferedWriter) Flush() {}

func (w *bufferedWriter) flushTo(dst http.ResponseWriter) error {
	h := dst.Header()
	for k, vs := range w.header {
		h[k] = append(h[k][:0:0], vs...)
	}

	dst.WriteHeader(w.statusCode)
	if w.body.Len() == 0 {
		return nil
	}

	_, err := dst.Write(w.body.Bytes())
	return err
}
