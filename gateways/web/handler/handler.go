package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventsonar/backend/gateways/web/proxy"
	"github.com/eventsonar/backend/pkg/json"
)

type Handler struct {
	proxy *proxy.Proxy
	log   *slog.Logger
}

func New(p *proxy.Proxy, log *slog.Logger) *Handler {
	return &Handler{
		proxy: p,
		log:   log,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/voice-input", h.VoiceInputHandler)
	router.Post("/transcribe", h.TranscribeHandler)
	router.Post("/search-event", h.SearchEventHandler)
	router.Get("/events-list", h.EventsListHandler)
	router.Get("/event-details", h.EventDetailsHandler)
	router.Post("/summarize", h.SummarizeHandler)
	router.Post("/synthesize", h.SynthesizeHandler)
	router.Get("/audio", h.AudioHandler)

	// Everything else under the API prefix is forwarded as-is.
	router.Get("/*", h.ProxyHandler)
	router.Post("/*", h.ProxyHandler)
}

// writeError normalizes any failure into the gateway envelope. Errors raised
// outside the proxy come out as internal.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	gerr := proxy.AsError(err)
	if gerr.Err != nil {
		h.log.Error("gateway request failed",
			slog.String("kind", gerr.Kind.String()),
			slog.Int("status", gerr.Status),
			slog.String("error", gerr.Err.Error()))
	} else {
		h.log.Warn("gateway request failed",
			slog.String("kind", gerr.Kind.String()),
			slog.Int("status", gerr.Status),
			slog.String("message", gerr.Message))
	}
	json.WriteJSON(w, gerr.Status, gerr.Envelope())
}

// writeResult passes a backend response through unchanged.
func (h *Handler) writeResult(w http.ResponseWriter, res *proxy.ForwardResult) {
	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}
