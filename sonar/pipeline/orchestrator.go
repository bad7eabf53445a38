package pipeline

import (
	"context"
	"log/slog"

	"github.com/eventsonar/backend/pkg/gen"
	"github.com/eventsonar/backend/sonar/client"
)

// API is the slice of the gateway client the orchestrator drives. Tests fake
// it to exercise stage transitions without a network.
type API interface {
	UploadRecording(ctx context.Context, sessionID, filename string, data []byte, mimeType string) error
	Transcribe(ctx context.Context, sessionID string) (string, error)
	SearchEvent(ctx context.Context, query string) (string, error)
	EventDetails(ctx context.Context, eventID string) (*client.EventDetails, error)
	Summarize(ctx context.Context, eventID string) (string, error)
	Synthesize(ctx context.Context, summary, eventID string) (string, error)
	FetchAudio(ctx context.Context, audioURL string) ([]byte, error)
}

// Orchestrator sequences the capability calls for one session. Stages run
// strictly one at a time: each backend call depends on server-side state the
// previous stage caused to be written, so there is no speculative
// parallelism. Mandatory stage failures end the session; best-effort stages
// (summarize, synthesize, fetch-audio) degrade it instead.
type Orchestrator struct {
	api   API
	newID gen.UUIDGenerator
	log   *slog.Logger
}

func New(api API, newID gen.UUIDGenerator, log *slog.Logger) *Orchestrator {
	if newID == nil {
		newID = gen.UUID()
	}
	return &Orchestrator{
		api:   api,
		newID: newID,
		log:   log,
	}
}

// RunText resolves a typed query end to end.
func (o *Orchestrator) RunText(ctx context.Context, query string) Session {
	s := Session{
		ID:    o.newID.Next().String(),
		Query: query,
		Stage: StageSearching,
	}

	o.log.Info("searching for event", slog.String("session_id", s.ID), slog.String("query", query))
	eventID, err := o.api.SearchEvent(ctx, query)
	if err != nil {
		return s.fail(err)
	}
	s.EventID = eventID

	return o.resolve(ctx, s)
}

// RunVoice resolves a recorded query: upload, transcribe under the same
// session id, then re-enter the text protocol with the transcript.
func (o *Orchestrator) RunVoice(ctx context.Context, audio []byte, mimeType string) Session {
	s := Session{
		ID:    o.newID.Next().String(),
		Stage: StageUploading,
	}

	filename := s.ID + extensionFor(mimeType)
	o.log.Info("uploading recording",
		slog.String("session_id", s.ID),
		slog.Int("bytes", len(audio)))
	if err := o.api.UploadRecording(ctx, s.ID, filename, audio, mimeType); err != nil {
		return s.fail(err)
	}

	s.Stage = StageTranscribing
	text, err := o.api.Transcribe(ctx, s.ID)
	if err != nil {
		return s.fail(err)
	}
	s.Transcript = text
	s.Query = text

	s.Stage = StageSearching
	o.log.Info("searching for event",
		slog.String("session_id", s.ID),
		slog.String("transcript", text))
	eventID, err := o.api.SearchEvent(ctx, text)
	if err != nil {
		return s.fail(err)
	}
	s.EventID = eventID

	return o.resolve(ctx, s)
}

// RunSelected resolves an event the user already picked from a list,
// skipping search. The event id is parsed from the event URL.
func (o *Orchestrator) RunSelected(ctx context.Context, eventURL string) Session {
	s := Session{
		ID: o.newID.Next().String(),
	}

	eventID, err := EventIDFromURL(eventURL)
	if err != nil {
		return s.fail(err)
	}
	s.EventID = eventID

	return o.resolve(ctx, s)
}

// resolve is the shared tail: details are mandatory, everything after is
// best-effort and never blocks the session from reaching Ready.
func (o *Orchestrator) resolve(ctx context.Context, s Session) Session {
	s.Stage = StageFetchingDetails
	details, err := o.api.EventDetails(ctx, s.EventID)
	if err != nil {
		return s.fail(err)
	}
	s.Details = details

	s.Stage = StageSummarizing
	summary, err := o.api.Summarize(ctx, s.EventID)
	if err != nil {
		// Raw extracted content stands in for the summary; audio is not
		// attempted without one.
		o.log.Warn("summary unavailable, continuing with raw content",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()))
		s.Stage = StageReady
		return s
	}
	s.Summary = &summary

	s.Stage = StageSynthesizing
	audioURL, err := o.api.Synthesize(ctx, summary, s.EventID)
	if err != nil {
		o.log.Warn("audio unavailable",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()))
		s.Stage = StageReady
		return s
	}
	if _, err := o.api.FetchAudio(ctx, audioURL); err != nil {
		o.log.Warn("audio unavailable",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()))
		s.Stage = StageReady
		return s
	}
	s.AudioURL = &audioURL

	s.Stage = StageReady
	return s
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
