package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"log/slog"

	"github.com/eventsonar/backend/pkg/json"
	"github.com/eventsonar/backend/services/events/entity"
	"github.com/eventsonar/backend/services/events/usecase"
)

type Handler struct {
	usecase usecase.Usecase
	log     *slog.Logger
}

func New(usecase usecase.Usecase, log *slog.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /voice-input", h.VoiceInput)
	mux.HandleFunc("POST /transcribe", h.Transcribe)
	mux.HandleFunc("POST /search-event", h.SearchEvent)
	mux.HandleFunc("GET /events-list", h.EventsList)
	mux.HandleFunc("GET /event-details", h.EventDetails)
	mux.HandleFunc("POST /summarize", h.Summarize)
	mux.HandleFunc("POST /synthesize", h.Synthesize)
	mux.HandleFunc("GET /audio/{file}", h.Audio)
	mux.HandleFunc("GET /health", h.HealthCheck)
	h.log.Info("all routes registered")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (h *Handler) VoiceInput(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.log.Warn("invalid multipart form", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("invalid multipart form"))
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("missing required parameter: session_id"))
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("missing required field: audio_file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		json.WriteError(w, http.StatusInternalServerError, fmt.Errorf("failed to read audio"))
		return
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/webm"
	}

	err = h.usecase.SaveRecording(r.Context(), &entity.SaveRecordingRequest{
		SessionID: sessionID,
		Filename:  header.Filename,
		MIME:      mime,
		Data:      data,
	})
	if err != nil {
		h.log.Error("failed to save recording", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.Info("recording saved",
		slog.String("session_id", sessionID),
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(data)))

	json.WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "received",
		"session_id": sessionID,
	})
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req entity.TranscribeRequest
	if err := json.ParseJSON(r, &req); err != nil {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("invalid request body"))
		return
	}
	if req.SessionID == "" {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("missing required parameter: session_id"))
		return
	}

	text, err := h.usecase.Transcribe(r.Context(), req.SessionID)
	if errors.Is(err, usecase.ErrNoRecording) {
		json.WriteError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.log.Error("transcription failed", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.Info("transcription produced", slog.String("session_id", req.SessionID))
	json.WriteJSON(w, http.StatusOK, entity.TranscribeResponse{Text: text})
}

func (h *Handler) SearchEvent(w http.ResponseWriter, r *http.Request) {
	var req entity.SearchEventRequest
	if err := json.ParseJSON(r, &req); err != nil {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("missing required parameter: query"))
		return
	}

	eventID, err := h.usecase.SearchEvent(r.Context(), req.Query)
	if errors.Is(err, usecase.ErrNoMatch) {
		json.WriteError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.log.Error("search failed", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.Info("search matched event",
		slog.String("query", req.Query),
		slog.String("event_id", eventID))
	json.WriteJSON(w, http.StatusOK, entity.SearchEventResponse{EventID: eventID})
}

func (h *Handler) EventsList(w http.ResponseWriter, r *http.Request) {
	events, err := h.usecase.ListEvents(r.Context())
	if err != nil {
		h.log.Error("failed to list events", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, map[string][]entity.Event{"events": events})
}

func (h *Handler) EventDetails(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("missing required parameter: id"))
		return
	}

	details, err := h.usecase.EventDetails(r.Context(), id)
	if errors.Is(err, usecase.ErrUnknownEvent) {
		json.WriteError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.log.Error("failed to extract event details", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, entity.EventDetailsResponse{
		Status: "success",
		EventData: entity.EventDetailsData{
			URL:              details.URL,
			ExtractedContent: details.ExtractedContent,
			Timestamp:        details.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req entity.SummarizeRequest
	if err := json.ParseJSON(r, &req); err != nil {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("invalid request body"))
		return
	}
	if req.EventID == "" {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("missing required parameter: eventId"))
		return
	}

	summary, err := h.usecase.Summarize(r.Context(), req.EventID)
	if errors.Is(err, usecase.ErrNoDetails) {
		json.WriteError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		h.log.Error("summarize failed", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, entity.SummarizeResponse{Summary: summary})
}

func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req entity.SynthesizeRequest
	if err := json.ParseJSON(r, &req); err != nil {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("invalid request body"))
		return
	}
	if req.Summary == "" || req.EventID == "" {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("missing required parameters: summary and eventId"))
		return
	}

	if err := h.usecase.Synthesize(r.Context(), req.EventID, req.Summary); err != nil {
		h.log.Error("synthesis failed", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.Info("audio synthesized", slog.String("event_id", req.EventID))
	json.WriteJSON(w, http.StatusOK, entity.SynthesizeResponse{Status: "success"})
}

func (h *Handler) Audio(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	id := strings.TrimSuffix(file, ".wav")
	if id == "" || id == file {
		json.WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("expected an audio file path like /audio/<id>.wav"))
		return
	}

	data, err := h.usecase.Audio(r.Context(), id)
	if errors.Is(err, usecase.ErrUnknownEvent) {
		json.WriteError(w, http.StatusNotFound, fmt.Errorf("audio file not found for event id: %s", id))
		return
	}
	if err != nil {
		h.log.Error("failed to load audio", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	json.WriteBytes(w, http.StatusOK, "audio/wav", data)
}
