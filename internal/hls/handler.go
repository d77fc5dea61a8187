package hls

import (
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "application/octet-stream"
)

var segmentContentTypes = map[string]string{
	".aac": "audio/aac",
	".ac3": "audio/ac3",
	".ec3": "audio/eac3",
	".mp3": "audio/mpeg",
	".ts":  "video/mp2t",
}

// Handler serves the playlist document and segment bytes from SharedState.
// It never mutates the state.
type Handler struct {
	cfg   Config
	state *SharedState
	log   *slog.Logger
}

// NewHandler returns a Handler reading from state.
func NewHandler(cfg Config, state *SharedState, log *slog.Logger) *Handler {
	return &Handler{cfg: cfg, state: state, log: log}
}

// Register mounts the playlist and segment routes on r. Unknown paths and
// methods other than GET get 404.
func (h *Handler) Register(r chi.Router) {
	r.Get(h.cfg.playlistPath(), h.GetPlaylist)
	r.Get("/{segment}", h.GetSegment)
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)
}

// GetPlaylist handles GET on the playlist path.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	doc := h.state.Document()

	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.log.Warn("write playlist failed", slog.String("error", err.Error()))
	}
}

// GetSegment handles GET /segment-*. The identifier is the request path without
// its leading slash, used as is.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/")
	if !strings.HasPrefix(id, segmentPrefix) {
		h.NotFound(w, r)
		return
	}

	data, ok := h.state.Segment(id)
	if !ok {
		h.log.Debug("segment not available", slog.String("segment", id))
		h.NotFound(w, r)
		return
	}

	ct, ok := segmentContentTypes[path.Ext(id)]
	if !ok {
		ct = segmentContentType
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if pts, err := ReadTimestamp(data); err == nil {
		w.Header().Set("X-Presentation-Timestamp", strconv.FormatUint(pts, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Warn("write segment failed", slog.String("segment", id), slog.String("error", err.Error()))
	}
}

// NotFound answers every request the server does not route.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
