package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eventsonar/backend/gateways/web/proxy"
)

// testGateway wires the handler to a stub backend and returns the gateway
// router plus a counter of requests that actually reached the backend.
func testGateway(t *testing.T, backend http.HandlerFunc) (http.Handler, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		backend(w, r)
	}))
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := proxy.New(srv.URL, 2*time.Second, 5*time.Second, log)
	h := New(p, log)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return router, &hits
}

func decodeEnvelope(t *testing.T, body []byte) proxy.Envelope {
	t.Helper()
	var env proxy.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("response is not an error envelope: %v\n%s", err, body)
	}
	return env
}

func TestVoiceInput_RejectsNonMultipart(t *testing.T) {
	router, hits := testGateway(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/api/v1/voice-input", strings.NewReader(`{"audio": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if hits.Load() != 0 {
		t.Error("invalid request must be rejected before any forwarding")
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	if env.Error == "" || env.Status != http.StatusUnprocessableEntity {
		t.Errorf("malformed envelope: %+v", env)
	}
}

func TestVoiceInput_ForwardsMultipartVerbatim(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("audio_file", "rec.webm")
	part.Write([]byte{0x01, 0x02, 0x03})
	mw.WriteField("session_id", "s-9")
	mw.Close()
	original := body.Bytes()

	var received []byte
	router, hits := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"status": "received", "session_id": "s-9"}`))
	})

	req := httptest.NewRequest("POST", "/api/v1/voice-input", bytes.NewReader(original))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if hits.Load() != 1 {
		t.Fatalf("backend hits = %d, want 1", hits.Load())
	}
	if !bytes.Equal(received, original) {
		t.Error("multipart payload was modified on the way to the backend")
	}
}

func TestTranscribe_RequiresSessionID(t *testing.T) {
	router, hits := testGateway(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/api/v1/transcribe", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if hits.Load() != 0 {
		t.Error("missing session_id must fail before forwarding")
	}
}

func TestEventDetails_RequiresID(t *testing.T) {
	router, hits := testGateway(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/api/v1/event-details", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if hits.Load() != 0 {
		t.Error("missing id must fail before forwarding")
	}
}

func TestSynthesize_RepointsAudioURL(t *testing.T) {
	router, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		// Backend reports a third-party URL; the gateway must not expose it.
		w.Write([]byte(`{"status": "success", "audio_url": "https://cdn.example.com/f/abc.wav"}`))
	})

	payload := `{"summary": "A panel on applied AI.", "eventId": "ai-panel-42"}`
	req := httptest.NewRequest("POST", "/api/v1/synthesize", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp SynthesizeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AudioURL != "/api/v1/audio?id=ai-panel-42" {
		t.Errorf("audio_url = %q, want gateway-relative URL keyed by event id", resp.AudioURL)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
}

func TestSynthesize_RequiresSummaryAndEventID(t *testing.T) {
	router, hits := testGateway(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, payload := range []string{`{"summary": "x"}`, `{"eventId": "y"}`, `{}`} {
		req := httptest.NewRequest("POST", "/api/v1/synthesize", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("payload %s: status = %d, want 422", payload, rec.Code)
		}
	}
	if hits.Load() != 0 {
		t.Error("incomplete synthesize requests must not reach the backend")
	}
}

func TestAudio_ServesWAVWithCaching(t *testing.T) {
	wav := []byte("RIFFfake-wav-bytes")
	router, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/ai-panel-42.wav" {
			t.Errorf("backend path = %q, want /audio/ai-panel-42.wav", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	})

	req := httptest.NewRequest("GET", "/api/v1/audio?id=ai-panel-42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/wav" {
		t.Errorf("Content-Type = %q, want audio/wav", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q, want public, max-age=3600", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), wav) {
		t.Error("audio bytes were modified in transit")
	}
}

func TestAudio_NotFound(t *testing.T) {
	router, _ := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such file", http.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/api/v1/audio?id=nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	if !strings.Contains(env.Error, "nope") {
		t.Errorf("error message should name the missing event id, got %q", env.Error)
	}
}

func TestCatchAll_ForwardsUnknownPaths(t *testing.T) {
	var gotPath, gotQuery string
	router, hits := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"ok": true}`))
	})

	req := httptest.NewRequest("GET", "/api/v1/health/ready?verbose=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if hits.Load() != 1 {
		t.Fatalf("backend hits = %d, want 1", hits.Load())
	}
	if gotPath != "/health/ready" {
		t.Errorf("backend path = %q, want /health/ready", gotPath)
	}
	if gotQuery != "verbose=1" {
		t.Errorf("backend query = %q, want verbose=1", gotQuery)
	}
}

func TestBackendDown_Returns503(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	origin := srv.URL
	srv.Close()

	p := proxy.New(origin, time.Second, time.Second, log)
	h := New(p, log)
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		h.RegisterRoutes(r)
	})

	req := httptest.NewRequest("GET", "/api/v1/events-list", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	if env.Status != http.StatusServiceUnavailable {
		t.Errorf("envelope status = %d, want 503", env.Status)
	}
}
