package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eventsonar/backend/pkg/logger"
	"github.com/eventsonar/backend/services/events/entity"
	"github.com/eventsonar/backend/services/events/storage"
)

var (
	// ErrNoRecording means a transcription was requested for a session id
	// that never uploaded a recording.
	ErrNoRecording = errors.New("no recording found for session")

	// ErrNoDetails means summarize ran before event details were fetched.
	ErrNoDetails = errors.New("event details have not been fetched")

	ErrUnknownEvent = errors.New("unknown event")
	ErrNoMatch      = errors.New("no event matched the query")
)

type Usecase interface {
	SaveRecording(ctx context.Context, req *entity.SaveRecordingRequest) error
	Transcribe(ctx context.Context, sessionID string) (string, error)
	SearchEvent(ctx context.Context, query string) (string, error)
	ListEvents(ctx context.Context) ([]entity.Event, error)
	EventDetails(ctx context.Context, eventID string) (*entity.EventDetails, error)
	Summarize(ctx context.Context, eventID string) (string, error)
	Synthesize(ctx context.Context, eventID, summary string) error
	Audio(ctx context.Context, eventID string) ([]byte, error)
}

type usecase struct {
	storage storage.Storage
}

func New(storage storage.Storage) Usecase {
	return &usecase{
		storage: storage,
	}
}

func (u *usecase) SaveRecording(ctx context.Context, req *entity.SaveRecordingRequest) error {
	return u.storage.SaveRecording(ctx, &entity.Recording{
		SessionID: req.SessionID,
		Filename:  req.Filename,
		MIME:      req.MIME,
		Data:      req.Data,
	})
}

func (u *usecase) Transcribe(ctx context.Context, sessionID string) (string, error) {
	rec, err := u.storage.GetRecording(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Warn(ctx, "no recording for session", "session_id", sessionID)
		return "", ErrNoRecording
	}
	if err != nil {
		return "", err
	}

	// TODO: call a real speech-to-text service here. Local development
	// returns a canned transcript that matches the seeded events.
	text := "find me an AI panel"
	_ = rec

	if err := u.storage.SaveTranscript(ctx, &entity.Transcript{
		SessionID: sessionID,
		Text:      text,
	}); err != nil {
		return "", err
	}

	return text, nil
}

func (u *usecase) SearchEvent(ctx context.Context, query string) (string, error) {
	events, err := u.storage.ListEvents(ctx)
	if err != nil {
		return "", err
	}

	words := strings.Fields(strings.ToLower(query))
	var best *entity.Event
	bestScore := 0
	for i := range events {
		haystack := strings.ToLower(events[i].Title + " " + events[i].Hosts + " " + events[i].Location)
		score := 0
		for _, w := range words {
			if strings.Contains(haystack, w) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = &events[i]
		}
	}

	if best == nil {
		return "", ErrNoMatch
	}

	logger.Debug(ctx, "query matched event",
		"score", bestScore,
		"title", best.Title)
	return eventIDFromURL(best.EventURL)
}

func (u *usecase) ListEvents(ctx context.Context) ([]entity.Event, error) {
	return u.storage.ListEvents(ctx)
}

// EventDetails extracts the content for one event and caches it so the later
// pipeline stages can read it back.
func (u *usecase) EventDetails(ctx context.Context, eventID string) (*entity.EventDetails, error) {
	events, err := u.storage.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		id, err := eventIDFromURL(ev.EventURL)
		if err != nil || id != eventID {
			continue
		}

		details := &entity.EventDetails{
			EventID: eventID,
			URL:     ev.EventURL,
			ExtractedContent: fmt.Sprintf(
				"%s\nHosted by: %s\nWhen: %s\nWhere: %s\n\nJoin %s for %s at %s.",
				ev.Title, ev.Hosts, ev.DateTime, ev.Location, ev.Hosts, ev.Title, ev.Location,
			),
			Timestamp: time.Now().UTC(),
		}
		if err := u.storage.SaveEventDetails(ctx, details); err != nil {
			logger.Error(ctx, "failed to cache event details", "event_id", eventID, "error", err)
			return nil, err
		}
		logger.Info(ctx, "event details cached", "event_id", eventID)
		return details, nil
	}

	return nil, ErrUnknownEvent
}

func (u *usecase) Summarize(ctx context.Context, eventID string) (string, error) {
	details, err := u.storage.GetEventDetails(ctx, eventID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNoDetails
	}
	if err != nil {
		return "", err
	}

	// TODO: send the extracted content through a real LLM cleanup pass.
	firstLine, _, _ := strings.Cut(details.ExtractedContent, "\n")
	summary := fmt.Sprintf("%s. See %s for full details.", firstLine, details.URL)

	return summary, nil
}

func (u *usecase) Synthesize(ctx context.Context, eventID, summary string) error {
	if strings.TrimSpace(summary) == "" {
		return fmt.Errorf("summary is empty")
	}

	wav := encodeSpeechWAV(summary)
	logger.Debug(ctx, "speech rendered", "event_id", eventID, "bytes", len(wav))
	return u.storage.SaveAudio(ctx, eventID, wav)
}

func (u *usecase) Audio(ctx context.Context, eventID string) ([]byte, error) {
	data, err := u.storage.GetAudio(ctx, eventID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownEvent
	}
	return data, err
}

// eventIDFromURL extracts the identifier as the last non-query path segment
// of the event URL.
func eventIDFromURL(eventURL string) (string, error) {
	parsed, err := url.Parse(eventURL)
	if err != nil {
		return "", fmt.Errorf("invalid event url: %w", err)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", fmt.Errorf("event url has no identifier segment: %s", eventURL)
	}
	return id, nil
}
