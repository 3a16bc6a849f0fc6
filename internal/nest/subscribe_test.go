package nest

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubscribe_RequiresStatus(t *testing.T) {
	f := newFakeNest(t)
	c := f.newTestClient()
	if _, err := c.Login(context.Background(), "test@example.com", "secret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	_, err := c.Subscribe(context.Background())
	if !IsPreconditionError(err) {
		t.Fatalf("Subscribe() error = %v, want precondition error", err)
	}
	if len(f.RequestsTo("/v2/subscribe")) != 0 {
		t.Error("no request should be sent before status is fetched")
	}
}

func TestSubscribe_SendsKeys(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)

	if _, err := c.Subscribe(context.Background(), CategoryShared, CategoryEnergyLatest); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	reqs := f.RequestsTo("/v2/subscribe")
	if len(reqs) != 1 {
		t.Fatalf("got %d subscribe requests, want 1", len(reqs))
	}
	if got := reqs[0].Header.Get("X-nl-subscribe-timeout"); got != "60" {
		t.Errorf("X-nl-subscribe-timeout = %s, want 60", got)
	}

	body := decodeJSON(t, reqs[0].Body)
	keys, ok := body["keys"].([]any)
	if !ok || len(keys) != 2 {
		t.Fatalf("keys = %v, want 2 entries", body["keys"])
	}
	first := keys[0].(map[string]any)
	if first["key"] != "shared.ABC123" || first["version"] != float64(200) {
		t.Errorf("keys[0] = %v, want shared.ABC123 at version 200", first)
	}
	second := keys[1].(map[string]any)
	if second["key"] != "energy_latest.ABC123" || second["version"] != float64(0) || second["timestamp"] != float64(0) {
		t.Errorf("keys[1] = %v, want energy_latest.ABC123 at 0/0", second)
	}
}

func TestSubscribe_AppliesUpdate(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) {
		f.subscribeHeader = map[string]string{
			"X-nl-skv-key":       "shared.ABC123",
			"X-nl-skv-version":   "201",
			"X-nl-skv-timestamp": "1350000000999",
		}
		f.subscribeBody = `{"name": "Hallway", "target_temperature": 22}`
	})

	update, err := c.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if update == nil {
		t.Fatal("Subscribe() returned no update")
	}
	if update.Category != CategoryShared || update.EntityID != "ABC123" {
		t.Errorf("update = %s.%s, want shared.ABC123", update.Category, update.EntityID)
	}
	if update.Record.Version != 201 || update.Record.Timestamp != 1350000000999 {
		t.Errorf("update version/timestamp = %d/%d", update.Record.Version, update.Record.Timestamp)
	}

	r, ok := c.Cache().Record(CategoryShared, "ABC123")
	if !ok {
		t.Fatal("shared.ABC123 missing after update")
	}
	if v, _ := r.Float("target_temperature"); v != 22 {
		t.Errorf("cached target_temperature = %v, want 22", v)
	}
	if r.Version != 201 {
		t.Errorf("cached version = %d, want 201", r.Version)
	}
	if c.Waiting() {
		t.Error("Waiting() should be false once the long-poll returned")
	}
}

func TestSubscribe_NewCategoryCreated(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) {
		f.subscribeHeader = map[string]string{
			"X-nl-skv-key":     "energy_latest.ABC123",
			"X-nl-skv-version": "1",
		}
		f.subscribeBody = `{"days": []}`
	})

	before := time.Now().UnixMilli()
	update, err := c.Subscribe(context.Background(), CategoryEnergyLatest)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if update == nil {
		t.Fatal("Subscribe() returned no update")
	}
	if update.Record.Timestamp < before {
		t.Errorf("timestamp = %d, want defaulted to now", update.Record.Timestamp)
	}
	if !c.Cache().Has(CategoryEnergyLatest, "ABC123") {
		t.Error("energy_latest category should be created on first update")
	}
}

func TestSubscribe_NoKeyHeader(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) { f.subscribeBody = `{"name": "ignored"}` })

	before, _ := c.Snapshot()
	update, err := c.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if update != nil {
		t.Errorf("Subscribe() = %+v, want nil", update)
	}

	after, _ := c.Snapshot()
	r, _ := after.Get(CategoryShared, "ABC123")
	prev, _ := before.Get(CategoryShared, "ABC123")
	if name, _ := r.Text("name"); name != "Hallway" || r.Version != prev.Version {
		t.Error("cache changed after a reply without a key")
	}
}

func TestSubscribe_EmptyBody(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) {
		f.subscribeHeader = map[string]string{"X-nl-skv-key": "shared.ABC123"}
	})

	update, err := c.Subscribe(context.Background())
	if err != nil || update != nil {
		t.Errorf("Subscribe() = %v, %v; want nil, nil", update, err)
	}
}

func TestSubscribe_NullBody(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) {
		f.subscribeHeader = map[string]string{
			"X-nl-skv-key":     "shared.ABC123",
			"X-nl-skv-version": "201",
		}
		f.subscribeBody = `null`
	})

	update, err := c.Subscribe(context.Background())
	if err != nil || update != nil {
		t.Errorf("Subscribe() = %v, %v; want nil, nil", update, err)
	}

	r, ok := c.Cache().Record(CategoryShared, "ABC123")
	if !ok {
		t.Fatal("shared.ABC123 missing from cache")
	}
	if name, _ := r.Text("name"); name != "Hallway" || r.Version != 200 {
		t.Errorf("cached record = %q v%d, want Hallway v200", name, r.Version)
	}
}

func TestWaiting_OverlappingSubscribes(t *testing.T) {
	c := NewClient()
	c.waiting.Add(1)
	c.waiting.Add(1)
	c.waiting.Add(-1)
	if !c.Waiting() {
		t.Error("Waiting() = false while a long-poll is still out")
	}
	c.waiting.Add(-1)
	if c.Waiting() {
		t.Error("Waiting() = true after every long-poll returned")
	}
}

func TestSubscribe_MalformedKey(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) {
		f.subscribeHeader = map[string]string{"X-nl-skv-key": "sharedABC123"}
		f.subscribeBody = `{}`
	})

	update, err := c.Subscribe(context.Background())
	if err != nil || update != nil {
		t.Errorf("Subscribe() = %v, %v; want nil, nil", update, err)
	}
}

func TestSubscribe_UnknownCategory(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)

	_, err := c.Subscribe(context.Background(), "thermostat")
	if !IsInvalidArgumentError(err) {
		t.Fatalf("Subscribe() error = %v, want invalid argument", err)
	}
	if len(f.RequestsTo("/v2/subscribe")) != 0 {
		t.Error("no request should be sent for an unknown category")
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key      string
		category Category
		id       string
		ok       bool
	}{
		{"shared.ABC", CategoryShared, "ABC", true},
		{"structure.a.b", CategoryStructure, "a.b", true},
		{"shared.", "", "", false},
		{".ABC", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		category, id, ok := splitKey(tt.key)
		if category != tt.category || id != tt.id || ok != tt.ok {
			t.Errorf("splitKey(%q) = %s, %s, %v; want %s, %s, %v", tt.key, category, id, ok, tt.category, tt.id, tt.ok)
		}
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) {
		f.subscribeHeader = map[string]string{"X-nl-skv-key": "shared.ABC123", "X-nl-skv-version": "300"}
		f.subscribeBody = `{"name": "Hallway"}`
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []*Update
	err := c.Watch(ctx, WatchOptions{Delay: 10 * time.Millisecond}, func(u *Update) error {
		got = append(got, u)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() error = %v, want context.Canceled", err)
	}
	if len(got) != 2 || got[0] == nil || got[0].Record.Version != 300 {
		t.Errorf("Watch() delivered %v", got)
	}
}

func TestWatch_ReportsTransportErrors(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)
	f.set(func(f *fakeNest) {
		f.subscribeHeader = map[string]string{"X-nl-skv-key": "shared.ABC123"}
		f.subscribeBody = `not json`
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var errs []error
	err := c.Watch(ctx, WatchOptions{
		Delay: 5 * time.Millisecond,
		OnError: func(err error) {
			errs = append(errs, err)
			cancel()
		},
	}, func(*Update) error {
		t.Error("fn should not be called for a failed long-poll")
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() error = %v, want context.Canceled", err)
	}
	if len(errs) != 1 || !IsTransportError(errs[0]) {
		t.Errorf("OnError got %v, want one transport error", errs)
	}
}

func TestWatch_CallbackErrorStops(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)

	stop := errors.New("stop")
	err := c.Watch(context.Background(), WatchOptions{}, func(*Update) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Watch() error = %v, want %v", err, stop)
	}
}

func TestWatch_InvalidCategory(t *testing.T) {
	f := newFakeNest(t)
	c := f.loggedIn(t)

	err := c.Watch(context.Background(), WatchOptions{Categories: []Category{"nope"}}, func(*Update) error {
		return nil
	})
	if !IsInvalidArgumentError(err) {
		t.Errorf("Watch() error = %v, want invalid argument", err)
	}
}
