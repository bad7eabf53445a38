package handler

import (
	"fmt"
	"net/http"

	"log/slog"

	"github.com/eventsonar/backend/gateways/web/proxy"
	"github.com/eventsonar/backend/pkg/json"
)

type SynthesizeRequest struct {
	Summary string `json:"summary"`
	EventID string `json:"eventId"`
}

type SynthesizeResponse struct {
	Status   string `json:"status"`
	AudioURL string `json:"audio_url"`
	Message  string `json:"message"`
}

// SynthesizeHandler asks the backend to synthesize speech for a summary. On
// success the returned audio URL points at this gateway's own audio endpoint
// keyed by event id, never at the third-party file directly.
func (h *Handler) SynthesizeHandler(w http.ResponseWriter, r *http.Request) {
	var req SynthesizeRequest
	if err := json.ParseJSON(r, &req); err != nil {
		h.writeError(w, proxy.Validation("invalid request body"))
		return
	}
	if req.Summary == "" || req.EventID == "" {
		h.writeError(w, proxy.Validation("missing required parameters: summary and eventId"))
		return
	}

	fwd, gerr := proxy.JSONRequest(http.MethodPost, req, "synthesize")
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}
	fwd.Slow = true

	if _, gerr := h.proxy.Forward(r.Context(), fwd); gerr != nil {
		h.writeError(w, gerr)
		return
	}

	h.log.Info("speech synthesized", slog.String("event_id", req.EventID))
	json.WriteJSON(w, http.StatusOK, SynthesizeResponse{
		Status:   "success",
		AudioURL: fmt.Sprintf("/api/v1/audio?id=%s", req.EventID),
		Message:  "Audio generated successfully",
	})
}

// AudioHandler serves the synthesized audio file for an event id.
func (h *Handler) AudioHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, proxy.Validation("missing required parameter: id"))
		return
	}

	fwd := proxy.ForwardRequest{
		Method:       http.MethodGet,
		PathSegments: []string{"audio", id + ".wav"},
	}

	res, gerr := h.proxy.Forward(r.Context(), fwd)
	if gerr != nil {
		if gerr.Kind == proxy.KindUpstream {
			h.writeError(w, &proxy.Error{
				Kind:    proxy.KindUpstream,
				Status:  http.StatusNotFound,
				Message: fmt.Sprintf("audio file not found for event id: %s", id),
			})
			return
		}
		h.writeError(w, gerr)
		return
	}

	h.log.Debug("serving synthesized audio",
		slog.String("event_id", id),
		slog.Int("bytes", len(res.Body)))

	w.Header().Set("Cache-Control", "public, max-age=3600")
	json.WriteBytes(w, http.StatusOK, "audio/wav", res.Body)
}
