package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/mgrewal/ferry"
)

type Service interface {
	Get(ctx context.Context, path string) (ferry.FileInfo, io.ReadSeekCloser, error)
	Create(ctx context.Context, path, contentType string, content io.Reader) (ferry.FileInfo, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context) ([]ferry.FileInfo, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	Mode          ferry.ServerMode
	ChunkSize     int
	HighWaterMark int
	CORS          CORSConfig
}

// ListResponse is the body of the store-mode listing endpoint.
type ListResponse struct {
	Items []ferry.FileInfo `json:"items"`
}

// Handler provides HTTP handlers for file serving operations.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with routes configured based on mode.
// In store mode, GET / returns a list of files.
// In static/SPA modes, GET / is handled by the get handler (serves
// index.html via the service).
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(PathGuard)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	if h.config.Mode == ferry.ModeStore {
		r.Get("/", h.handleList)
	}
	r.Get("/*", h.handleGet)
	r.Put("/*", h.handlePut)
	r.Delete("/*", h.handleDelete)

	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ListResponse{Items: items})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	info, content, err := h.service.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, ferry.ErrNotFound) && h.config.Mode != ferry.ModeStore {
			writeDefaultNotFound(w)
			return
		}
		HandleError(w, err)
		return
	}

	if etagMatches(r.Header.Get("If-None-Match"), info.ETag) {
		_ = content.Close()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", `"`+info.ETag+`"`)
	w.Header().Set("Content-Type", info.ContentType)
	if !info.ModTime.IsZero() {
		w.Header().Set("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}

	h.stream(r.Context(), w, content)
}

// stream copies content to the response through a pull stream, flushing
// after every chunk. The stream is not safe for concurrent use, so the
// pulling goroutine behind Chunks is its sole owner: it closes the file
// handle on end-of-data, error, and cancellation. On early exit the
// handler cancels and drains the channel, which guarantees the goroutine
// has settled and released the handle before this function returns.
func (h *Handler) stream(ctx context.Context, w http.ResponseWriter, content io.ReadSeekCloser) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := ferry.NewStream(content,
		ferry.WithChunkSize(h.config.ChunkSize),
		ferry.WithHighWaterMark(h.config.HighWaterMark),
	)
	chunks := s.Chunks(ctx)
	defer func() {
		cancel()
		for range chunks {
		}
	}()

	flusher, _ := w.(http.Flusher)

	for c := range chunks {
		if c.Err != nil {
			// Headers are already out; all we can do is drop the
			// connection mid-body.
			slog.Error("read failed while streaming response", "error", c.Err)
			return
		}
		if _, err := w.Write(c.Data); err != nil {
			slog.Debug("client went away during streaming", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	if path == "" {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ifMatch := r.Header.Get("If-Match")
	if ifMatch != "" {
		existing, content, err := h.service.Get(r.Context(), path)
		switch {
		case errors.Is(err, ferry.ErrNotFound):
			// If-Match requires a current representation (RFC 7232 §3.1);
			// this holds for "*" and for entity-tag lists alike.
			WriteError(w, http.StatusPreconditionFailed, "precondition_failed", "No current representation")
			return
		case err != nil:
			HandleError(w, err)
			return
		}

		_ = content.Close()
		if !etagMatches(ifMatch, existing.ETag) {
			WriteError(w, http.StatusPreconditionFailed, "precondition_failed", "ETag mismatch")
			return
		}
	}

	info, err := h.service.Create(r.Context(), path, contentType, r.Body)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	if path == "" {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	err := h.service.Delete(r.Context(), path)
	if err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// etagMatches reports whether the given If-Match/If-None-Match header value
// matches etag. The header may carry a comma separated list, quoted or not;
// blanks are stripped before comparison.
func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = string(ferry.StripBlanks([]byte(candidate)))
		if candidate == etag || candidate == `"`+etag+`"` {
			return true
		}
	}
	return false
}
