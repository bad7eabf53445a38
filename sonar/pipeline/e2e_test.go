package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	webconfig "github.com/eventsonar/backend/config/web"
	web "github.com/eventsonar/backend/gateways/web"
	eventshandler "github.com/eventsonar/backend/services/events/handler"
	"github.com/eventsonar/backend/services/events/storage"
	"github.com/eventsonar/backend/services/events/usecase"
	"github.com/eventsonar/backend/sonar/client"
	"github.com/eventsonar/backend/sonar/pipeline"
)

// startStack brings up the events service and the gateway in front of it,
// returning a client pointed at the gateway.
func startStack(t *testing.T) *client.Client {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mux := http.NewServeMux()
	eventshandler.New(usecase.New(store), log).RegisterRoutes(mux)
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	gw, err := web.New(&webconfig.Config{
		BackendURL:       backend.URL,
		ProxyTimeout:     5 * time.Second,
		SlowProxyTimeout: 10 * time.Second,
	}, log)
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}
	gateway := httptest.NewServer(gw.Router())
	t.Cleanup(gateway.Close)

	return client.New(gateway.URL, log)
}

func TestVoicePipelineEndToEnd(t *testing.T) {
	api := startStack(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.New(api, nil, log)

	recording := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0x01, 0x02}
	s := orch.RunVoice(context.Background(), recording, "audio/webm")

	if !s.Ready() {
		t.Fatalf("stage = %v, err = %v, want ready", s.Stage, s.Err)
	}
	if s.Transcript == "" {
		t.Error("transcript is empty")
	}
	if s.EventID == "" {
		t.Error("no event was matched")
	}
	if s.Details == nil || s.Details.EventData.ExtractedContent == "" {
		t.Error("event details are missing extracted content")
	}
	if s.Summary == nil || *s.Summary == "" {
		t.Fatal("summary is missing")
	}
	if s.AudioURL == nil {
		t.Fatal("audio url is missing")
	}

	audio, err := api.FetchAudio(context.Background(), *s.AudioURL)
	if err != nil {
		t.Fatalf("FetchAudio failed: %v", err)
	}
	if !bytes.Equal(audio[0:4], []byte("RIFF")) {
		t.Error("fetched audio is not a WAV file")
	}
}

func TestTextPipelineEndToEnd(t *testing.T) {
	api := startStack(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.New(api, nil, log)

	s := orch.RunText(context.Background(), "synthwave night")

	if !s.Ready() {
		t.Fatalf("stage = %v, err = %v, want ready", s.Stage, s.Err)
	}
	if s.EventID != "synthwave-night-77" {
		t.Errorf("EventID = %q, want synthwave-night-77", s.EventID)
	}
}

func TestSelectedEventEndToEnd(t *testing.T) {
	api := startStack(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.New(api, nil, log)

	events, err := api.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no seeded events")
	}

	s := orch.RunSelected(context.Background(), events[0].EventURL)
	if !s.Ready() {
		t.Fatalf("stage = %v, err = %v, want ready", s.Stage, s.Err)
	}
}

func TestTranscribeWithoutUploadEndToEnd(t *testing.T) {
	api := startStack(t)

	_, err := api.Transcribe(context.Background(), "never-uploaded")
	if err == nil {
		t.Fatal("transcribe without an upload must fail")
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *client.APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
}
