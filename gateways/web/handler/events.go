package handler

import (
	"net/http"
	"net/url"

	"log/slog"

	"github.com/eventsonar/backend/gateways/web/proxy"
	"github.com/eventsonar/backend/pkg/json"
)

type SearchEventRequest struct {
	Query string `json:"query"`
}

type SummarizeRequest struct {
	EventID string `json:"eventId"`
}

func (h *Handler) SearchEventHandler(w http.ResponseWriter, r *http.Request) {
	var req SearchEventRequest
	if err := json.ParseJSON(r, &req); err != nil {
		h.writeError(w, proxy.Validation("invalid request body"))
		return
	}
	if req.Query == "" {
		h.writeError(w, proxy.Validation("missing required parameter: query"))
		return
	}

	fwd, gerr := proxy.JSONRequest(http.MethodPost, req, "search-event")
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

	h.log.Info("event search completed", slog.String("query", req.Query))
	h.writeResult(w, res)
}

func (h *Handler) EventsListHandler(w http.ResponseWriter, r *http.Request) {
	fwd, gerr := proxy.ParseInbound(r, "events-list")
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}

	res, gerr := h.proxy.Forward(r.Context(), fwd)
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}

	h.writeResult(w, res)
}

func (h *Handler) EventDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, proxy.Validation("missing required parameter: id"))
		return
	}

	fwd := proxy.ForwardRequest{
		Method:       http.MethodGet,
		PathSegments: []string{"event-details"},
		RawQuery:     url.Values{"id": {id}}.Encode(),
		Slow:         true,
	}

	res, gerr := h.proxy.Forward(r.Context(), fwd)
	if gerr != nil {
		h.writeError(w, gerr)
		return
	}

	h.log.Info("event details fetched", slog.String("event_id", id))
	h.writeResult(w, res)
}

func (h *Handler) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.ParseJSON(r, &req); err != nil {
		h.writeError(w, proxy.Validation("invalid request body"))
		return
	}
	if req.EventID == "" {
		h.writeError(w, proxy.Validation("missing required parameter: eventId"))
		return
	}

	fwd, gerr := proxy.JSONRequest(http.MethodPost, req, "summarize")
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

	h.log.Info("summary generated", slog.String("event_id", req.EventID))
	h.writeResult(w, res)
}
