package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/eventsonar/backend/sonar/client"
)

type Stage int

const (
	StageIdle Stage = iota
	StageCapturing
	StageUploading
	StageTranscribing
	StageSearching
	StageFetchingDetails
	StageSummarizing
	StageSynthesizing
	StageReady
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCapturing:
		return "capturing"
	case StageUploading:
		return "uploading"
	case StageTranscribing:
		return "transcribing"
	case StageSearching:
		return "searching"
	case StageFetchingDetails:
		return "fetching-details"
	case StageSummarizing:
		return "summarizing"
	case StageSynthesizing:
		return "synthesizing"
	case StageReady:
		return "ready"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Session is the full state of one user-initiated request. It is a value:
// each stage takes a Session and returns an updated copy, so transitions are
// testable without any rendering layer. The ID correlates an uploaded
// recording with its transcription request and must not change mid-session.
type Session struct {
	ID         string
	Stage      Stage
	Query      string
	Transcript string
	EventID    string
	Details    *client.EventDetails
	Summary    *string
	AudioURL   *string
	Err        error
}

func (s Session) fail(err error) Session {
	s.Stage = StageFailed
	s.Err = err
	return s
}

// Ready reports whether the session finished with a usable result, possibly
// degraded (no summary or audio).
func (s Session) Ready() bool {
	return s.Stage == StageReady
}

var ErrNoEventID = errors.New("event url has no identifier segment")

// EventIDFromURL extracts the event identifier as the last non-query path
// segment of an event URL. A URL without one is a validation failure, never
// an empty id flowing downstream.
func EventIDFromURL(eventURL string) (string, error) {
	parsed, err := url.Parse(eventURL)
	if err != nil {
		return "", fmt.Errorf("invalid event url %q: %w", eventURL, err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoEventID, eventURL)
	}
	return id, nil
}
