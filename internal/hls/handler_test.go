package hls

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, cfg Config) (*chi.Mux, *Coordinator, *SharedState, fakeClock) {
	t.Helper()
	c, state, clock := newTestCoordinator(t, cfg, countingProducer())
	r := chi.NewRouter()
	NewHandler(cfg, state, testLogger()).Register(r)
	return r, c, state, clock
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetPlaylist_before_first_tick(t *testing.T) {
	r, _, _, _ := newTestRouter(t, testConfig(3, 8.0))

	rec := serve(r, http.MethodGet, "/stream.m3u8")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/vnd.apple.mpegurl" {
		t.Errorf("expected playlist content type, got %s", rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	if !strings.Contains(body, "#EXT-X-MEDIA-SEQUENCE:0") || strings.Contains(body, "#EXTINF") {
		t.Errorf("unexpected playlist body: %s", body)
	}
}

func TestHandler_GetPlaylist_custom_path(t *testing.T) {
	cfg := testConfig(3, 8.0)
	cfg.PlaylistPath = "/live/radio.m3u8"
	r, _, _, _ := newTestRouter(t, cfg)

	if rec := serve(r, http.MethodGet, "/live/radio.m3u8"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 on configured path, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/stream.m3u8"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on default path, got %d", rec.Code)
	}
}

func TestHandler_GetPlaylist_after_ticks(t *testing.T) {
	r, c, state, clock := newTestRouter(t, testConfig(3, 8.0))
	for i := 0; i < 4; i++ {
		mustTick(t, c)
		clock.Advance(8 * time.Second)
	}

	rec := serve(r, http.MethodGet, "/stream.m3u8")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), state.Document()) {
		t.Errorf("served document differs from state:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "#EXT-X-MEDIA-SEQUENCE:1") {
		t.Errorf("expected media sequence 1: %s", rec.Body.String())
	}
}

func TestHandler_GetSegment(t *testing.T) {
	r, c, state, _ := newTestRouter(t, testConfig(3, 8.0))
	res := mustTick(t, c)

	rec := serve(r, http.MethodGet, "/"+res.Added)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want, _ := state.Segment(res.Added)
	if !bytes.Equal(rec.Body.Bytes(), want) {
		t.Errorf("served bytes differ from stored bytes")
	}
	if rec.Header().Get("Content-Type") != "audio/aac" {
		t.Errorf("expected audio/aac, got %s", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("X-Presentation-Timestamp") != "0" {
		t.Errorf("expected timestamp header 0, got %q", rec.Header().Get("X-Presentation-Timestamp"))
	}
}

func TestHandler_GetSegment_never_produced(t *testing.T) {
	r, c, _, _ := newTestRouter(t, testConfig(3, 8.0))
	mustTick(t, c)

	if rec := serve(r, http.MethodGet, "/segment-1.aac"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_GetSegment_grace_period(t *testing.T) {
	r, c, _, clock := newTestRouter(t, testConfig(1, 4.0))
	first := mustTick(t, c)
	clock.Advance(4 * time.Second)
	second := mustTick(t, c)
	if second.Evicted != first.Added {
		t.Fatalf("expected %s evicted, got %q", first.Added, second.Evicted)
	}

	if rec := serve(r, http.MethodGet, "/"+first.Added); rec.Code != http.StatusOK {
		t.Fatalf("evicted segment during grace period: expected 200, got %d", rec.Code)
	}
	if strings.Contains(serve(r, http.MethodGet, "/stream.m3u8").Body.String(), first.Added) {
		t.Error("evicted segment still in playlist")
	}

	// (1+1)*4s
	clock.Advance(8 * time.Second)
	waitFor(t, "404 after grace period", func() bool {
		return serve(r, http.MethodGet, "/"+first.Added).Code == http.StatusNotFound
	})
}

func TestHandler_not_found(t *testing.T) {
	r, c, _, _ := newTestRouter(t, testConfig(3, 8.0))
	res := mustTick(t, c)

	tests := []struct {
		name   string
		method string
		target string
	}{
		{"unknown path", http.MethodGet, "/index.html"},
		{"root", http.MethodGet, "/"},
		{"nested segment path", http.MethodGet, "/" + res.Added + "/extra"},
		{"segment without prefix", http.MethodGet, "/" + strings.TrimPrefix(res.Added, segmentPrefix)},
		{"post playlist", http.MethodPost, "/stream.m3u8"},
		{"head playlist", http.MethodHead, "/stream.m3u8"},
		{"delete segment", http.MethodDelete, "/" + res.Added},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(r, tt.method, tt.target); rec.Code != http.StatusNotFound {
				t.Errorf("%s %s: expected 404, got %d", tt.method, tt.target, rec.Code)
			}
		})
	}
}

func TestHandler_concurrent_with_run(t *testing.T) {
	cfg := testConfig(2, 0.05)
	state := NewSharedState(cfg, nil, nil)
	c := NewCoordinator(cfg, state, countingProducer(), nil, testLogger(), nil)
	r := chi.NewRouter()
	NewHandler(cfg, state, testLogger()).Register(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		rec := serve(r, http.MethodGet, "/stream.m3u8")
		if rec.Code != http.StatusOK {
			t.Fatalf("playlist: expected 200, got %d", rec.Code)
		}
		for _, line := range strings.Split(rec.Body.String(), "\n") {
			if !strings.HasPrefix(line, cfg.BaseURI) {
				continue
			}
			// Anything listed stays fetchable for at least one more segment duration.
			id := strings.TrimPrefix(line, cfg.BaseURI)
			if seg := serve(r, http.MethodGet, "/"+id); seg.Code != http.StatusOK {
				t.Fatalf("listed segment %s: expected 200, got %d", id, seg.Code)
			}
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
