package nest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testToken = "c.test-token"

// Mock status - one thermostat ABC123 in one structure
const mockStatus = `{
  "user": {"12345": {"name": "test@example.com", "$version": 7, "$timestamp": 1350000000000}},
  "device": {"ABC123": {"fan_mode": "auto", "current_humidity": 41, "$version": 100, "$timestamp": 1350000000100}},
  "shared": {"ABC123": {"name": "Hallway", "current_temperature": 21.5, "target_temperature": 20, "target_temperature_type": "heat", "$version": 200, "$timestamp": 1350000000200}},
  "structure": {"s-1": {"name": "Home", "away": false, "devices": ["device.ABC123"], "$version": 300, "$timestamp": 1350000000300}},
  "track": {"ABC123": {"online": true, "$version": 5}},
  "metadata": "not an entity map"
}`

// capturedRequest is what the fake service saw
type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// fakeNest emulates the login, status, subscribe and put endpoints
type fakeNest struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []capturedRequest

	status     string
	loginFails bool

	// subscribe replies
	subscribeHeader map[string]string
	subscribeBody   string

	putStatus int
}

func newFakeNest(t *testing.T) *fakeNest {
	t.Helper()
	f := &fakeNest{t: t, status: mockStatus, putStatus: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeNest) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	status, loginFails := f.status, f.loginFails
	subscribeHeader, subscribeBody := f.subscribeHeader, f.subscribeBody
	putStatus := f.putStatus
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/user/login":
		f.handleLogin(w, string(body), loginFails)
	case r.Header.Get("Authorization") != "Basic "+testToken:
		w.WriteHeader(http.StatusUnauthorized)
	case r.Method == http.MethodGet && r.URL.Path == "/v2/mobile/user.12345":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(status))
	case r.Method == http.MethodPost && r.URL.Path == "/v2/subscribe":
		for k, v := range subscribeHeader {
			w.Header().Set(k, v)
		}
		_, _ = w.Write([]byte(subscribeBody))
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v2/put/"):
		w.WriteHeader(putStatus)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeNest) handleLogin(w http.ResponseWriter, body string, fails bool) {
	if fails || !strings.Contains(body, "password=secret") {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"access_denied","error_description":"login failed: incorrect password"}`))
		return
	}
	_, _ = fmt.Fprintf(w, `{
  "access_token": %q,
  "userid": "12345",
  "user": "user.12345",
  "email": "test@example.com",
  "expires_in": "Mon, 19 Oct 2026 12:00:00 GMT",
  "urls": {"transport_url": %q}
}`, testToken, f.server.URL)
}

// set changes the fake's replies between calls
func (f *fakeNest) set(change func(f *fakeNest)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	change(f)
}

func (f *fakeNest) Requests() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capturedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsTo returns captured requests whose path starts with prefix
func (f *fakeNest) RequestsTo(prefix string) []capturedRequest {
	var out []capturedRequest
	for _, r := range f.Requests() {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// newTestClient returns a client pointed at the fake service
func (f *fakeNest) newTestClient() *Client {
	c := NewClient()
	c.SetLoginURL(f.server.URL + "/user/login")
	return c
}

// loggedIn returns a client that has logged in and fetched status
func (f *fakeNest) loggedIn(t *testing.T) *Client {
	t.Helper()
	c := f.newTestClient()
	if _, err := c.Login(context.Background(), "test@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := c.FetchStatus(context.Background()); err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	return c
}

func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("body %q is not JSON: %v", s, err)
	}
	return m
}
