package nest

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/nestctl/internal/logging"
)

// Endpoint is a resolved transport host
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// URL returns the base URL for requests against the endpoint
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s://%s", e.Scheme, net.JoinHostPort(e.Host, strconv.Itoa(e.Port)))
}

// String implements fmt.Stringer
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint resolves a transport URL such as "https://frontdoor.nest.com/"
// into host and port. A missing port defaults from the scheme.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid transport url %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("transport url %q has no host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid port in transport url %q: %w", raw, err)
		}
	} else if scheme == "http" {
		port = 80
	} else {
		port = 443
	}

	return Endpoint{Scheme: scheme, Host: u.Hostname(), Port: port}, nil
}

// Session is the state returned by a successful login
type Session struct {
	// UserID is the numeric account id ("userid" in the login payload)
	UserID string

	// User is the qualified user key, e.g. "user.12345"
	User string

	// Email is the account email
	Email string

	// AccessToken authorizes every transport request
	AccessToken string

	// Expires is when the access token stops being accepted (zero if unknown)
	Expires time.Time

	// Transport is where status, subscribe and put requests go
	Transport Endpoint

	// Raw is the unparsed login payload
	Raw json.RawMessage
}

// UserKey returns the "user.<id>" key used by the status endpoint
func (s *Session) UserKey() string {
	if s.User != "" {
		return s.User
	}
	return "user." + s.UserID
}

// loginPayload is the bootstrap endpoint's JSON reply
type loginPayload struct {
	AccessToken      string          `json:"access_token"`
	UserID           json.RawMessage `json:"userid"`
	User             string          `json:"user"`
	Email            string          `json:"email"`
	ExpiresIn        string          `json:"expires_in"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	URLs             struct {
		TransportURL string `json:"transport_url"`
	} `json:"urls"`
}

// ParseSession builds a Session from a login response body
func ParseSession(body []byte) (*Session, error) {
	var p loginPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, NewParseError("failed to parse login response", err)
	}
	if p.AccessToken == "" {
		return nil, NewAuthError(p.describeError("login response carried no access token"), 0)
	}

	endpoint, err := ParseEndpoint(p.URLs.TransportURL)
	if err != nil {
		return nil, NewParseError("failed to parse login response", err)
	}

	s := &Session{
		UserID:      unquote(p.UserID),
		User:        p.User,
		Email:       p.Email,
		AccessToken: p.AccessToken,
		Transport:   endpoint,
		Raw:         append(json.RawMessage(nil), body...),
	}
	if p.ExpiresIn != "" {
		if t, err := time.Parse(time.RFC1123, p.ExpiresIn); err == nil {
			s.Expires = t
		}
	}
	return s, nil
}

func (p *loginPayload) describeError(fallback string) string {
	switch {
	case p.ErrorDescription != "":
		return p.ErrorDescription
	case p.Error != "":
		return p.Error
	default:
		return fallback
	}
}

// unquote accepts the user id as either a JSON string or a JSON number
func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Login authenticates against the bootstrap endpoint and replaces any prior
// session. The status cache is cleared because it belonged to the old session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	// The bootstrap call is made without auth headers even when a session exists.
	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		url:         c.LoginURL,
		body:        []byte(form.Encode()),
		contentType: contentTypeForm,
		anonymous:   true,
		deadline:    true,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var p loginPayload
		_ = json.Unmarshal(resp.Body, &p)
		description := p.describeError(http.StatusText(resp.StatusCode))
		logging.Warn("Login rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("description", description),
		)
		return nil, NewAuthError(description, resp.StatusCode)
	}

	session, err := ParseSession(resp.Body)
	if err != nil {
		return nil, err
	}

	c.SetSession(session)
	logging.Info("Logged in",
		zap.String("user_id", session.UserID),
		zap.String("transport", session.Transport.String()),
	)
	return session, nil
}
