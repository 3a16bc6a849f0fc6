package nest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/muurk/nestctl/internal/logging"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
)

// Response is a fully buffered reply from the service
type Response struct {
	StatusCode int
	Header     http.Header
	// Body is the raw JSON reply, nil when the service sent nothing
	Body json.RawMessage
}

// Empty reports whether the service sent no body, or a JSON null
func (r *Response) Empty() bool {
	if r == nil {
		return true
	}
	body := bytes.TrimSpace(r.Body)
	return len(body) == 0 || bytes.Equal(body, []byte("null"))
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	if r.Empty() {
		return NewParseError("empty response body", nil)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewParseError("failed to decode response body", err)
	}
	return nil
}

// PostRequest describes an authenticated POST
type PostRequest struct {
	// BaseURL overrides the session's transport endpoint (e.g. "https://host:9443")
	BaseURL string

	// Path is appended to the base URL
	Path string

	// Body is sent verbatim as JSON when it is a string, []byte or
	// json.RawMessage; form-encoded when it is url.Values or
	// map[string]string; JSON-marshalled otherwise.
	Body any

	// Header entries override the defaults
	Header http.Header
}

// request is one round trip as send sees it
type request struct {
	method      string
	url         string
	body        []byte
	contentType string
	header      http.Header
	// anonymous suppresses the session headers (login)
	anonymous bool
	// deadline applies Client.RequestTimeout
	deadline bool
}

// Post issues an authenticated POST and returns the decoded reply.
// HTTP status >= 400 is returned as a KindHTTP *Error that still carries the headers.
func (c *Client) Post(ctx context.Context, req PostRequest) (*Response, error) {
	return c.post(ctx, req, true)
}

func (c *Client) post(ctx context.Context, req PostRequest, deadline bool) (*Response, error) {
	base := req.BaseURL
	if base == "" {
		s, err := c.requireSession("post")
		if err != nil {
			return nil, err
		}
		base = s.Transport.URL()
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		url:         joinURL(base, req.Path),
		body:        body,
		contentType: contentType,
		header:      req.Header,
		deadline:    deadline,
	})
	if err != nil {
		return nil, err
	}
	return checkResponse(resp)
}

// Get issues an authenticated GET against the session's transport endpoint.
// An empty reply yields a Response with a nil Body rather than an error.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	s, err := c.requireSession("get")
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, request{
		method:   http.MethodGet,
		url:      joinURL(s.Transport.URL(), path),
		deadline: true,
	})
	if err != nil {
		return nil, err
	}
	return checkResponse(resp)
}

// send performs one round trip and buffers the body. Only transport-level
// failures are errors here; status handling is left to the caller.
func (c *Client) send(ctx context.Context, r request) (*Response, error) {
	if r.deadline && c.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
	}

	var reader io.Reader
	if r.body != nil {
		reader = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, reader)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", r.method), err, nil)
	}

	req.Header.Set("User-Agent", c.UserAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.anonymous {
		if s := c.Session(); s != nil && s.AccessToken != "" {
			req.Header.Set("X-nl-user-id", s.UserID)
			req.Header.Set("X-nl-protocol-version", ProtocolVersion)
			req.Header.Set("Accept-Language", AcceptLanguage)
			req.Header.Set("Authorization", "Basic "+s.AccessToken)
		}
	}
	for name, values := range r.header {
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	logging.LogHTTPRequest(r.method, r.url, req.Header)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("%s request failed", r.method), err, nil)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	logging.LogHTTPResponse(r.method, r.url, resp.StatusCode, len(data), time.Since(start))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err, resp.Header)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if len(bytes.TrimSpace(data)) > 0 {
		out.Body = data
	}
	return out, nil
}

// checkResponse maps error statuses and validates the JSON body
func checkResponse(resp *Response) (*Response, error) {
	if resp.StatusCode >= 400 {
		return nil, NewHTTPError(resp.StatusCode, resp.Header, string(resp.Body))
	}
	if !resp.Empty() && !json.Valid(resp.Body) {
		e := NewParseError("response body is not JSON", nil)
		e.Header = resp.Header
		return nil, e
	}
	return resp, nil
}

// encodeBody picks the wire encoding for a PostRequest body
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return []byte{}, contentTypeForm, nil
	case string:
		return []byte(b), contentTypeJSON, nil
	case []byte:
		return b, contentTypeJSON, nil
	case json.RawMessage:
		return b, contentTypeJSON, nil
	case url.Values:
		return []byte(b.Encode()), contentTypeForm, nil
	case map[string]string:
		form := url.Values{}
		for k, v := range b {
			form.Set(k, v)
		}
		return []byte(form.Encode()), contentTypeForm, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", NewInvalidArgumentError(fmt.Sprintf("failed to marshal request body: %v", err))
		}
		return data, contentTypeJSON, nil
	}
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
