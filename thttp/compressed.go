package thttp

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kevinpollet/nego"
)

func gzipCompress(r io.Reader) ([]byte, error) {
	compressed := bytes.NewBuffer(nil)
	compressor := gzip.NewWriter(compressed)
	if _, err := io.Copy(compressor, r); err != nil {
		return nil, err
	}
	if err := compressor.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

// ShouldGzip returns if gzip-compression is asked for in HTTP request
func ShouldGzip(r *http.Request) bool {
	// nego.NegotiateContentEncoding(r, "gzip") returns "gzip"
	// if there is no "Accept-Encoding" header there. Guard against it.
	return r.Header.Get("Accept-Encoding") != "" && nego.NegotiateContentEncoding(r, "gzip") == "gzip"
}

// GzipEnabledFileHandler returns HTTP handler that serves the file.
// If the HTTP request asks for gzip Content-Encoding, the handler serves the
// file gzipped. The file is compressed once, when the handler is created.
func GzipEnabledFileHandler(filename string) (http.Handler, error) {
	modTime, compressed, err := compressFile(filename)
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		if !ShouldGzip(r) {
			http.ServeFile(w, r, filename)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		// Without it ServeContent sniffs application/gzip, which some
		// clients refuse to decompress
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(w, r, "", modTime, bytes.NewReader(compressed))
	}), nil
}

func compressFile(filename string) (time.Time, []byte, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return time.Time{}, nil, err
	}
	defer fh.Close()

	st, err := fh.Stat()
	if err != nil {
		return time.Time{}, nil, err
	}
	if st.IsDir() {
		return time.Time{}, nil, fmt.Errorf("%s is a directory", filename)
	}
	compressed, err := gzipCompress(fh)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("failed to compress %s: %w", filename, err)
	}
	return st.ModTime(), compressed, nil
}
