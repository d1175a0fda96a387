// Package preview serves a rendered lecture directory over HTTP and
// reloads connected browsers when the directory changes. It exists for
// authors iterating on an annotated source file: re-render, and every
// open tab refreshes.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/Lectern/core/errors"
	"github.com/FocuswithJustin/Lectern/internal/logging"
)

// reloadScript is injected into served HTML pages. It connects back to
// the reload endpoint and refreshes on any message.
const reloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/__preview__/ws");
  ws.onmessage = function () { location.reload(); };
})();
</script>`

// Server serves one rendered lecture directory.
type Server struct {
	dir      string
	hub      *Hub
	interval time.Duration
}

// NewServer creates a preview server for dir.
func NewServer(dir string) *Server {
	return &Server{
		dir:      dir,
		hub:      NewHub(),
		interval: 500 * time.Millisecond,
	}
}

// Hub exposes the reload hub, mainly for wiring and tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler: static files with the reload
// script injected into HTML, plus the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/__preview__/ws", s.hub.ServeWS)
	mux.HandleFunc("/", s.serveFile)
	return logging.CombinedMiddleware(mux)
}

// serveFile serves a file from the lecture directory, injecting the
// reload script into HTML responses.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := filepath.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	if name == "." || name == "" {
		name = "index.html"
	}
	path := filepath.Join(s.dir, name)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		http.NotFound(w, r)
		return
	}

	if !strings.HasSuffix(path, ".html") {
		http.ServeFile(w, r, path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(injectReload(data))
}

// injectReload inserts the reload script before the closing body tag.
// Pages without one are served unchanged.
func injectReload(page []byte) []byte {
	idx := bytes.LastIndex(page, []byte("</body>"))
	if idx < 0 {
		return page
	}
	var buf bytes.Buffer
	buf.Write(page[:idx])
	buf.WriteString(reloadScript)
	buf.Write(page[idx:])
	return buf.Bytes()
}

// Watch polls the lecture directory and broadcasts a reload whenever
// its fingerprint changes. It returns when ctx is done.
func (s *Server) Watch(ctx context.Context) {
	last, _ := fingerprint(s.dir)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := fingerprint(s.dir)
			if err != nil {
				continue
			}
			if current != last {
				last = current
				logging.PreviewEvent("changed", s.hub.ClientCount(), "dir", s.dir)
				s.hub.Reload(s.dir)
			}
		}
	}
}

// fingerprint summarizes the directory as file count plus newest mtime.
func fingerprint(dir string) (string, error) {
	var count int
	var newest time.Time
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		count++
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", count, newest.UnixNano()), nil
}

// ListenAndServe runs the preview server on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if _, err := os.Stat(s.dir); err != nil {
		return errors.NewNotFound("lecture directory", s.dir)
	}

	go s.hub.Run()
	go s.Watch(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("preview server listening", "addr", addr, "dir", s.dir)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
