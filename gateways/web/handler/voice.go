package handler

import (
	"net/http"

	"log/slog"

	"github.com/eventsonar/backend/gateways/web/proxy"
	"github.com/eventsonar/backend/pkg/json"
)

type TranscribeRequest struct {
	SessionID string `json:"session_id"`
}

// VoiceInputHandler forwards a recorded audio upload to the backend. The
// multipart payload is streamed through untouched so the original field
// bytes, filename and session id survive the hop.
func (h *Handler) VoiceInputHandler(w http.ResponseWriter, r *http.Request) {
	fwd, gerr := proxy.ParseInbound(r, "voice-input")
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}

	if fwd.ContentKind != proxy.ContentMultipart {
		h.writeError(w, proxy.Validation("voice-input requires a multipart form upload"))
		return
	}

	res, gerr := h.proxy.Forward(r.Context(), fwd)
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}

	h.log.Info("voice input uploaded")
	h.writeResult(w, res)
}

// TranscribeHandler asks the backend to transcribe a previously uploaded
// recording. The session id must match the one used for the upload.
func (h *Handler) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req TranscribeRequest
	if err := json.ParseJSON(r, &req); err != nil {
		h.writeError(w, proxy.Validation("invalid request body"))
		return
	}
	if req.SessionID == "" {
		h.writeError(w, proxy.Validation("missing required parameter: session_id"))
		return
	}

	fwd, gerr := proxy.JSONRequest(http.MethodPost, req, "transcribe")
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}
	fwd.Slow = true

	res, gerr := h.proxy.Forward(r.Context(), fwd)
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}

	h.log.Info("transcription completed", slog.String("session_id", req.SessionID))
	h.writeResult(w, res)
}
