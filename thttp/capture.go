package thttp

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// Recorder wraps a http.ResponseWriter and remembers what has been sent
// through it: the status code, whether the header is already on the wire and
// the number of body bytes.
//
// The Recorder keeps the http.Hijacker and http.Flusher functionality of the
// original ResponseWriter available through its methods.
type Recorder struct {
	http.ResponseWriter
	status  int
	written int64
}

// Record wraps w into a Recorder. Wrapping a Recorder returns it as is.
func Record(w http.ResponseWriter) *Recorder {
	if r, ok := w.(*Recorder); ok {
		return r
	}
	return &Recorder{ResponseWriter: w}
}

// Status returns the status code sent, or 0 if the header is not sent yet
func (r *Recorder) Status() int {
	return r.status
}

// HeaderSent tells whether the response header has been written
func (r *Recorder) HeaderSent() bool {
	return r.status != 0
}

// Written returns the number of body bytes written so far
func (r *Recorder) Written() int64 {
	return r.written
}

// WriteHeader implements http.ResponseWriter
func (r *Recorder) WriteHeader(statusCode int) {
	if r.status == 0 {
		r.status = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

// Write implements http.ResponseWriter
func (r *Recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// Flush implements http.Flusher if the underlying writer does
func (r *Recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		if r.status == 0 {
			r.status = http.StatusOK
		}
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *Recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack implements http.Hijacker if the underlying writer does
func (r *Recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}
