package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// Client is the typed HTTP client for the gateway's capability routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

type Event struct {
	Title    string `json:"title"`
	Hosts    string `json:"hosts"`
	DateTime string `json:"date_time"`
	Location string `json:"location"`
	ImageURL string `json:"image_url"`
	EventURL string `json:"event_url"`
}

type EventDetails struct {
	Status    string           `json:"status"`
	EventData EventDetailsData `json:"event_data"`
}

type EventDetailsData struct {
	URL              string `json:"url"`
	ExtractedContent string `json:"extracted_content"`
	Timestamp        string `json:"timestamp"`
}

// APIError is a non-success gateway response, carrying the gateway's status
// code and error envelope message.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("gateway returned status %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
}

// Timeout reports whether the gateway gave up waiting on the backend. The
// backend operation may still complete server-side.
func (e *APIError) Timeout() bool {
	return e.StatusCode == http.StatusGatewayTimeout
}

func New(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		log:        log,
	}
}

// UploadRecording submits a captured recording under the given session id.
// The same id must be used for the follow-up transcription call.
func (c *Client) UploadRecording(ctx context.Context, sessionID, filename string, data []byte, mimeType string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio_file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write audio field: %w", err)
	}
	if err := w.WriteField("session_id", sessionID); err != nil {
		return fmt.Errorf("failed to write session_id field: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/voice-input", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice-input request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}

	c.log.Debug("recording uploaded", slog.String("session_id", sessionID))
	return nil
}

func (c *Client) Transcribe(ctx context.Context, sessionID string) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	err := c.postJSON(ctx, "/api/v1/transcribe", map[string]string{"session_id": sessionID}, &res)
	if err != nil {
		return "", err
	}
	if res.Text == "" {
		return "", fmt.Errorf("no transcription text received")
	}
	return res.Text, nil
}

func (c *Client) SearchEvent(ctx context.Context, query string) (string, error) {
	var res struct {
		EventID string `json:"eventId"`
	}
	err := c.postJSON(ctx, "/api/v1/search-event", map[string]string{"query": query}, &res)
	if err != nil {
		return "", err
	}
	if res.EventID == "" {
		return "", fmt.Errorf("search returned no event id")
	}
	return res.EventID, nil
}

func (c *Client) ListEvents(ctx context.Context) ([]Event, error) {
	var res struct {
		Events []Event `json:"events"`
	}
	if err := c.getJSON(ctx, "/api/v1/events-list", &res); err != nil {
		return nil, err
	}
	return res.Events, nil
}

func (c *Client) EventDetails(ctx context.Context, eventID string) (*EventDetails, error) {
	var res EventDetails
	path := "/api/v1/event-details?id=" + eventID
	if err := c.getJSON(ctx, path, &res); err != nil {
		return nil, err
	}
	if res.Status == "error" {
		return nil, fmt.Errorf("failed to retrieve event details")
	}
	return &res, nil
}

func (c *Client) Summarize(ctx context.Context, eventID string) (string, error) {
	var res struct {
		Summary string `json:"summary"`
	}
	err := c.postJSON(ctx, "/api/v1/summarize", map[string]string{"eventId": eventID}, &res)
	if err != nil {
		return "", err
	}
	if res.Summary == "" {
		return "", fmt.Errorf("no summary received")
	}
	return res.Summary, nil
}

// Synthesize requests speech for a summary and returns the gateway-relative
// audio URL for the synthesized file.
func (c *Client) Synthesize(ctx context.Context, summary, eventID string) (string, error) {
	var res struct {
		Status   string `json:"status"`
		AudioURL string `json:"audio_url"`
	}
	err := c.postJSON(ctx, "/api/v1/synthesize", map[string]string{
		"summary": summary,
		"eventId": eventID,
	}, &res)
	if err != nil {
		return "", err
	}
	if res.Status != "success" || res.AudioURL == "" {
		return "", fmt.Errorf("synthesis did not produce an audio url")
	}
	return res.AudioURL, nil
}

// FetchAudio downloads synthesized audio bytes. audioURL may be
// gateway-relative, as returned by Synthesize.
func (c *Client) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	target := audioURL
	if strings.HasPrefix(audioURL, "/") {
		target = c.baseURL + audioURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/wav, audio/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio body: %w", err)
	}

	c.log.Debug("audio fetched", slog.Int("bytes", len(data)))
	return data, nil
}

// ResolveAudioURL makes a gateway-relative audio URL absolute, for handing to
// an external player.
func (c *Client) ResolveAudioURL(audioURL string) string {
	if strings.HasPrefix(audioURL, "/") {
		return c.baseURL + audioURL
	}
	return audioURL
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	var envelope struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.Details = envelope.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}
