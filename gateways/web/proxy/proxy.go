package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

type ContentKind int

const (
	ContentJSON ContentKind = iota
	ContentMultipart
)

// ForwardRequest is one inbound request reshaped for forwarding. ContentKind
// is decided exactly once, at ingress, from the inbound Content-Type header;
// forwarding sites never re-inspect the body.
type ForwardRequest struct {
	Method       string
	PathSegments []string
	RawQuery     string
	ContentKind  ContentKind

	// JSONBody holds the re-encoded JSON payload when ContentKind is
	// ContentJSON. Nil for bodyless requests.
	JSONBody []byte

	// FormBody streams the untouched multipart payload when ContentKind is
	// ContentMultipart. FormContentType carries the original header so the
	// boundary survives.
	FormBody        io.Reader
	FormContentType string

	// Slow selects the long timeout for endpoints that invoke external AI
	// tooling on the backend.
	Slow bool
}

type ForwardResult struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

type Proxy struct {
	origin      string
	client      *http.Client
	timeout     time.Duration
	slowTimeout time.Duration
	log         *slog.Logger
}

func New(origin string, timeout, slowTimeout time.Duration, log *slog.Logger) *Proxy {
	return &Proxy{
		origin:      strings.TrimRight(origin, "/"),
		client:      &http.Client{},
		timeout:     timeout,
		slowTimeout: slowTimeout,
		log:         log,
	}
}

// ParseInbound builds a ForwardRequest from an inbound gateway request. The
// path segments are supplied by the caller, not taken from the inbound URL,
// so capability endpoints can retarget a request at a fixed backend route.
func ParseInbound(r *http.Request, pathSegments ...string) (ForwardRequest, *Error) {
	fwd := ForwardRequest{
		Method:       r.Method,
		PathSegments: pathSegments,
		RawQuery:     r.URL.RawQuery,
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "multipart/form-data") {
		fwd.ContentKind = ContentMultipart
		fwd.FormBody = r.Body
		fwd.FormContentType = contentType
		return fwd, nil
	}

	fwd.ContentKind = ContentJSON
	if r.Method == http.MethodGet || r.Body == nil || r.Body == http.NoBody {
		return fwd, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return fwd, Internal(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fwd, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fwd, Validation("request body is not valid JSON")
	}
	encoded, err := json.Marshal(parsed)
	if err != nil {
		return fwd, Internal(err)
	}
	fwd.JSONBody = encoded

	return fwd, nil
}

// JSONRequest builds a ForwardRequest carrying v as a JSON body, for
// capability endpoints that reshape the inbound payload before forwarding.
func JSONRequest(method string, v any, pathSegments ...string) (ForwardRequest, *Error) {
	body, err := json.Marshal(v)
	if err != nil {
		return ForwardRequest{}, Internal(err)
	}
	return ForwardRequest{
		Method:       method,
		PathSegments: pathSegments,
		ContentKind:  ContentJSON,
		JSONBody:     body,
	}, nil
}

func (p *Proxy) targetURL(req ForwardRequest) string {
	target := p.origin + "/" + strings.Join(req.PathSegments, "/")
	if req.RawQuery != "" {
		// The raw query is re-attached verbatim so key order and values
		// survive the hop.
		target += "?" + req.RawQuery
	}
	return target
}

// Forward sends one request to the backend origin and returns the backend's
// response. All failures come back as *Error; a timeout cancels the in-flight
// call and the outcome of the backend operation is unknown.
func (p *Proxy) Forward(ctx context.Context, req ForwardRequest) (*ForwardResult, *Error) {
	timeout := p.timeout
	if req.Slow {
		timeout = p.slowTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := p.targetURL(req)

	var body io.Reader
	var contentType string
	switch req.ContentKind {
	case ContentMultipart:
		body = req.FormBody
		contentType = req.FormContentType
	default:
		if req.JSONBody != nil {
			body = bytes.NewReader(req.JSONBody)
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, Internal(err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	p.log.Debug("forwarding request",
		slog.String("method", req.Method),
		slog.String("target", target),
		slog.Duration("timeout", timeout))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Warn("backend returned non-success status",
			slog.String("target", target),
			slog.Int("status", resp.StatusCode))
		return nil, Upstream(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return &ForwardResult{
		StatusCode:  resp.StatusCode,
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (p *Proxy) classify(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout(err)
	case isTimeout(err):
		return Timeout(err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return Unavailable(err)
	default:
		return Internal(err)
	}
}

func isTimeout(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
