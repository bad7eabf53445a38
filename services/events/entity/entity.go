package entity

import "time"

type Event struct {
	Title    string `json:"title"`
	Hosts    string `json:"hosts"`
	DateTime string `json:"date_time"`
	Location string `json:"location"`
	ImageURL string `json:"image_url"`
	EventURL string `json:"event_url"`
}

type Recording struct {
	SessionID string
	Filename  string
	MIME      string
	Data      []byte
	CreatedAt time.Time
}

type Transcript struct {
	SessionID string
	Text      string
	CreatedAt time.Time
}

// EventDetails is the content extracted for one event page, cached so later
// stages (summarize, synthesize) can read it without re-fetching.
type EventDetails struct {
	EventID          string
	URL              string
	ExtractedContent string
	Timestamp        time.Time
}

type SaveRecordingRequest struct {
	SessionID string
	Filename  string
	MIME      string
	Data      []byte
}

type TranscribeRequest struct {
	SessionID string `json:"session_id"`
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

type SearchEventRequest struct {
	Query string `json:"query"`
}

type SearchEventResponse struct {
	EventID string `json:"eventId"`
}

type EventDetailsResponse struct {
	Status    string           `json:"status"`
	EventData EventDetailsData `json:"event_data"`
}

type EventDetailsData struct {
	URL              string `json:"url"`
	ExtractedContent string `json:"extracted_content"`
	Timestamp        string `json:"timestamp"`
}

type SummarizeRequest struct {
	EventID string `json:"eventId"`
}

type SummarizeResponse struct {
	Summary string `json:"summary"`
}

type SynthesizeRequest struct {
	Summary string `json:"summary"`
	EventID string `json:"eventId"`
}

type SynthesizeResponse struct {
	Status string `json:"status"`
}
