package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eventsonar/backend/gateways/web/proxy"
)

// ProxyHandler is the generic passthrough for backend routes without a
// dedicated capability endpoint. The wildcard path and query string are
// forwarded verbatim.
func (h *Handler) ProxyHandler(w http.ResponseWriter, r *http.Request) {
	rest := chi.URLParam(r, "*")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		h.writeError(w, proxy.Validation("missing backend path"))
		return
	}

	fwd, gerr := proxy.ParseInbound(r, segments...)
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
