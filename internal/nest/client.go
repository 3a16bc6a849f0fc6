package nest

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultLoginURL is the bootstrap endpoint every session starts from
	DefaultLoginURL = "https://home.nest.com/user/login"

	// DefaultUserAgent emulates the iPad app build the mobile API was captured from
	DefaultUserAgent = "Nest/3.0.15 (iOS) os=6.0 platform=iPad3,1"

	// DefaultRequestTimeout bounds every request except the subscription long-poll
	DefaultRequestTimeout = 30 * time.Second

	// ProtocolVersion is sent as X-nl-protocol-version on authenticated requests
	ProtocolVersion = "1"

	// AcceptLanguage is sent on authenticated requests
	AcceptLanguage = "en-us"
)

// Client talks to the Nest mobile API on behalf of one authenticated session.
//
// A Client owns its Session and its status Cache; separate Clients share nothing.
type Client struct {
	// LoginURL is the bootstrap endpoint used by Login
	LoginURL string

	// UserAgent is sent on every request
	UserAgent string

	// HTTPClient is the underlying HTTP client. It must not carry a Timeout
	// shorter than the subscription long-poll budget.
	HTTPClient *http.Client

	// RequestTimeout is applied as a context deadline to every request except
	// Subscribe (0 = none)
	RequestTimeout time.Duration

	// sessionMutex protects session
	sessionMutex sync.RWMutex
	session      *Session

	cache *Cache

	// waiting counts subscription long-polls in flight
	waiting atomic.Int32
}

// NewClient creates a client with default settings and no session
func NewClient() *Client {
	return &Client{
		LoginURL:       DefaultLoginURL,
		UserAgent:      DefaultUserAgent,
		HTTPClient:     &http.Client{},
		RequestTimeout: DefaultRequestTimeout,
		cache:          NewCache(),
	}
}

// SetUserAgent sets the User-Agent header value
func (c *Client) SetUserAgent(userAgent string) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	c.UserAgent = userAgent
}

// SetLoginURL overrides the bootstrap endpoint
func (c *Client) SetLoginURL(loginURL string) {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	c.LoginURL = loginURL
}

// SetRequestTimeout sets the per-request deadline for non-subscribe calls
func (c *Client) SetRequestTimeout(timeout time.Duration) {
	c.RequestTimeout = timeout
}

// Session returns the active session, or nil before Login
func (c *Client) Session() *Session {
	c.sessionMutex.RLock()
	defer c.sessionMutex.RUnlock()
	return c.session
}

// SetSession installs a session obtained elsewhere and clears the status cache,
// which belonged to the previous session.
func (c *Client) SetSession(s *Session) {
	c.sessionMutex.Lock()
	c.session = s
	c.sessionMutex.Unlock()
	c.cache.Reset()
}

// Cache returns the client's status cache
func (c *Client) Cache() *Cache {
	return c.cache
}

// Waiting reports whether a subscription long-poll is currently outstanding
func (c *Client) Waiting() bool {
	return c.waiting.Load() > 0
}

func (c *Client) requireSession(op string) (*Session, error) {
	s := c.Session()
	if s == nil || s.AccessToken == "" {
		return nil, NewPreconditionError(op, ErrNoSession)
	}
	return s, nil
}

func (c *Client) requireStatus(op string) error {
	if !c.cache.Fetched() {
		return NewPreconditionError(op, ErrNoStatus)
	}
	return nil
}
