package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/eventsonar/backend/pkg/gen"
	"github.com/eventsonar/backend/sonar/client"
)

// fakeAPI implements API with per-call hooks and records which stages were
// actually invoked, in order.
type fakeAPI struct {
	calls []string

	uploadErr     error
	uploadSession string

	transcript    string
	transcribeErr error
	transcribeSID string

	eventID   string
	searchErr error

	details    *client.EventDetails
	detailsErr error

	summary      string
	summarizeErr error

	audioURL      string
	synthesizeErr error

	fetchAudioErr error
}

func (f *fakeAPI) UploadRecording(ctx context.Context, sessionID, filename string, data []byte, mimeType string) error {
	f.calls = append(f.calls, "upload")
	f.uploadSession = sessionID
	return f.uploadErr
}

func (f *fakeAPI) Transcribe(ctx context.Context, sessionID string) (string, error) {
	f.calls = append(f.calls, "transcribe")
	f.transcribeSID = sessionID
	return f.transcript, f.transcribeErr
}

func (f *fakeAPI) SearchEvent(ctx context.Context, query string) (string, error) {
	f.calls = append(f.calls, "search")
	return f.eventID, f.searchErr
}

func (f *fakeAPI) EventDetails(ctx context.Context, eventID string) (*client.EventDetails, error) {
	f.calls = append(f.calls, "details")
	return f.details, f.detailsErr
}

func (f *fakeAPI) Summarize(ctx context.Context, eventID string) (string, error) {
	f.calls = append(f.calls, "summarize")
	return f.summary, f.summarizeErr
}

func (f *fakeAPI) Synthesize(ctx context.Context, summary, eventID string) (string, error) {
	f.calls = append(f.calls, "synthesize")
	return f.audioURL, f.synthesizeErr
}

func (f *fakeAPI) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	f.calls = append(f.calls, "fetch-audio")
	return []byte("RIFF"), f.fetchAudioErr
}

func happyAPI() *fakeAPI {
	return &fakeAPI{
		transcript: "find me an AI panel",
		eventID:    "ai-panel-42",
		details: &client.EventDetails{
			Status: "success",
		},
		summary:  "A panel on applied AI.",
		audioURL: "/api/v1/audio?id=ai-panel-42",
	}
}

func newTestOrchestrator(api API) *Orchestrator {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	return New(api, gen.Fixed(id), log)
}

func TestRunText_HappyPath(t *testing.T) {
	api := happyAPI()
	orch := newTestOrchestrator(api)

	s := orch.RunText(context.Background(), "AI panel")

	if !s.Ready() {
		t.Fatalf("stage = %v, err = %v, want ready", s.Stage, s.Err)
	}
	if s.EventID != "ai-panel-42" {
		t.Errorf("EventID = %q, want ai-panel-42", s.EventID)
	}
	if s.Summary == nil || *s.Summary != "A panel on applied AI." {
		t.Errorf("Summary = %v, want the summarize result", s.Summary)
	}
	if s.AudioURL == nil || *s.AudioURL != "/api/v1/audio?id=ai-panel-42" {
		t.Errorf("AudioURL = %v, want the synthesize result", s.AudioURL)
	}

	want := []string{"search", "details", "summarize", "synthesize", "fetch-audio"}
	if got := strings.Join(api.calls, ","); got != strings.Join(want, ",") {
		t.Errorf("call order = %v, want %v", api.calls, want)
	}
}

func TestRunVoice_SameSessionIDForUploadAndTranscribe(t *testing.T) {
	api := happyAPI()
	orch := newTestOrchestrator(api)

	s := orch.RunVoice(context.Background(), []byte{0x01, 0x02}, "audio/webm")

	if !s.Ready() {
		t.Fatalf("stage = %v, err = %v, want ready", s.Stage, s.Err)
	}
	if api.uploadSession == "" {
		t.Fatal("upload never received a session id")
	}
	if api.uploadSession != api.transcribeSID {
		t.Errorf("upload session %q != transcribe session %q; correlation broken",
			api.uploadSession, api.transcribeSID)
	}
	if s.ID != api.uploadSession {
		t.Errorf("session ID %q differs from the id sent to the backend %q", s.ID, api.uploadSession)
	}
	if s.Transcript != "find me an AI panel" {
		t.Errorf("Transcript = %q, want the transcribe result", s.Transcript)
	}
	if s.Query != s.Transcript {
		t.Error("transcript must become the search query")
	}
}

func TestRunVoice_UploadFailureStopsPipeline(t *testing.T) {
	api := happyAPI()
	api.uploadErr = errors.New("backend unreachable")
	orch := newTestOrchestrator(api)

	s := orch.RunVoice(context.Background(), []byte{0x01}, "audio/webm")

	if s.Stage != StageFailed {
		t.Fatalf("stage = %v, want failed", s.Stage)
	}
	if s.Err == nil {
		t.Fatal("failed session must carry the error")
	}
	if got := strings.Join(api.calls, ","); got != "upload" {
		t.Errorf("calls = %v, nothing should run after a failed upload", api.calls)
	}
}

func TestDetailsFailureIsMandatory(t *testing.T) {
	api := happyAPI()
	api.detailsErr = errors.New("extraction failed")
	orch := newTestOrchestrator(api)

	s := orch.RunText(context.Background(), "AI panel")

	if s.Stage != StageFailed {
		t.Fatalf("stage = %v, want failed: details are mandatory", s.Stage)
	}
	for _, call := range api.calls {
		if call == "summarize" || call == "synthesize" {
			t.Errorf("%s must not run after a details failure", call)
		}
	}
}

func TestSummarizeFailureDegrades(t *testing.T) {
	api := happyAPI()
	api.summarizeErr = errors.New("model overloaded")
	orch := newTestOrchestrator(api)

	s := orch.RunText(context.Background(), "AI panel")

	if !s.Ready() {
		t.Fatalf("stage = %v, want ready: summarize is best-effort", s.Stage)
	}
	if s.Summary != nil {
		t.Error("degraded session must not carry a summary")
	}
	if s.Details == nil {
		t.Error("details must survive a summarize failure")
	}
	for _, call := range api.calls {
		if call == "synthesize" || call == "fetch-audio" {
			t.Errorf("%s must not be attempted without a summary", call)
		}
	}
}

func TestSynthesizeFailureDegrades(t *testing.T) {
	api := happyAPI()
	api.synthesizeErr = errors.New("tts quota exceeded")
	orch := newTestOrchestrator(api)

	s := orch.RunText(context.Background(), "AI panel")

	if !s.Ready() {
		t.Fatalf("stage = %v, want ready: synthesize is best-effort", s.Stage)
	}
	if s.Summary == nil {
		t.Error("summary must survive a synthesize failure")
	}
	if s.AudioURL != nil {
		t.Error("degraded session must not carry an audio url")
	}
}

func TestFetchAudioFailureDegrades(t *testing.T) {
	api := happyAPI()
	api.fetchAudioErr = errors.New("connection reset")
	orch := newTestOrchestrator(api)

	s := orch.RunText(context.Background(), "AI panel")

	if !s.Ready() {
		t.Fatalf("stage = %v, want ready: audio fetch is best-effort", s.Stage)
	}
	if s.AudioURL != nil {
		t.Error("audio url must not be set when the file could not be fetched")
	}
}

func TestRunSelected(t *testing.T) {
	api := happyAPI()
	orch := newTestOrchestrator(api)

	s := orch.RunSelected(context.Background(), "https://events.example.com/e/ai-panel-42?ref=list")

	if !s.Ready() {
		t.Fatalf("stage = %v, err = %v, want ready", s.Stage, s.Err)
	}
	if s.EventID != "ai-panel-42" {
		t.Errorf("EventID = %q, want ai-panel-42", s.EventID)
	}
	for _, call := range api.calls {
		if call == "search" {
			t.Error("selecting from a list must skip the search stage")
		}
	}
}

func TestRunSelected_URLWithoutID(t *testing.T) {
	api := happyAPI()
	orch := newTestOrchestrator(api)

	s := orch.RunSelected(context.Background(), "https://events.example.com/")

	if s.Stage != StageFailed {
		t.Fatalf("stage = %v, want failed", s.Stage)
	}
	if !errors.Is(s.Err, ErrNoEventID) {
		t.Errorf("err = %v, want ErrNoEventID", s.Err)
	}
	if len(api.calls) != 0 {
		t.Errorf("calls = %v, nothing should run for an unparseable event url", api.calls)
	}
}

func TestEventIDFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"plain", "https://events.example.com/e/ai-panel-42", "ai-panel-42", false},
		{"trailing slash", "https://events.example.com/e/ai-panel-42/", "ai-panel-42", false},
		{"query ignored", "https://events.example.com/e/ai-panel-42?utm=x&ref=y", "ai-panel-42", false},
		{"deep path", "https://events.example.com/a/b/c/founders-brunch-18", "founders-brunch-18", false},
		{"no path", "https://events.example.com", "", true},
		{"root only", "https://events.example.com/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EventIDFromURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("EventIDFromURL(%q) = %q, want error", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("EventIDFromURL(%q) failed: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("EventIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
