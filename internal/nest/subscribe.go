package nest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/nestctl/internal/logging"
)

const (
	// SubscribeTimeout is the long-poll budget the server is asked to honour
	SubscribeTimeout = 60 * time.Second

	// DefaultWatchDelay is how long Watch waits before subscribing again
	DefaultWatchDelay = 2 * time.Second

	headerSubscribeTimeout = "X-nl-subscribe-timeout"
	headerSKVKey           = "X-nl-skv-key"
	headerSKVVersion       = "X-nl-skv-version"
	headerSKVTimestamp     = "X-nl-skv-timestamp"
)

// Update is the single change reported by one Subscribe call
type Update struct {
	Category Category
	EntityID string
	Record   *Record
}

// subscribeBody is the long-poll request document
type subscribeBody struct {
	Keys []SubscriptionKey `json:"keys"`
}

// Subscribe issues one long-poll for the given categories (shared when none
// are given) and applies the change the server answers with to the cache.
//
// It returns (nil, nil) when the server answered without a usable change:
// no body, no key header, or a key that is not "<category>.<id>".
// The call has no timeout of its own beyond ctx; the server is asked to
// answer within SubscribeTimeout. Callers re-invoke Subscribe to keep
// receiving updates.
func (c *Client) Subscribe(ctx context.Context, categories ...Category) (*Update, error) {
	if err := c.requireStatus("subscribe"); err != nil {
		return nil, err
	}

	keys, err := c.cache.CollectKeys(categories, time.Now())
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(subscribeBody{Keys: keys})
	if err != nil {
		return nil, NewInvalidArgumentError("failed to encode subscription keys: " + err.Error())
	}

	header := http.Header{}
	header.Set(headerSubscribeTimeout, strconv.Itoa(int(SubscribeTimeout/time.Second)))

	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	logging.Debug("Subscribing", zap.Int("keys", len(keys)))
	resp, err := c.post(ctx, PostRequest{
		Path:   "/v2/subscribe",
		Body:   json.RawMessage(body),
		Header: header,
	}, false)
	if err != nil {
		return nil, err
	}

	return c.applyResponse(resp, time.Now()), nil
}

// applyResponse turns a long-poll reply into a cache update, or nil when the
// reply does not identify exactly one entity
func (c *Client) applyResponse(resp *Response, now time.Time) *Update {
	if resp == nil || resp.Empty() || len(resp.Header) == 0 {
		return nil
	}

	category, entityID, ok := splitKey(resp.Header.Get(headerSKVKey))
	if !ok {
		if key := resp.Header.Get(headerSKVKey); key != "" {
			logging.Warn("Malformed subscription key", zap.String("key", key))
		}
		return nil
	}

	record, err := DecodeRecord(resp.Body)
	if err != nil {
		logging.Warn("Undecodable subscription record",
			zap.String("category", string(category)),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return nil
	}

	version := ParseVersion(resp.Header.Get(headerSKVVersion))
	timestamp, ok := toInt64(resp.Header.Get(headerSKVTimestamp))
	if !ok {
		timestamp = UnixMillis(now)
	}

	stored := c.cache.ApplyUpdate(category, entityID, record, version, timestamp)
	logging.LogUpdate(string(category), entityID, version)

	return &Update{Category: category, EntityID: entityID, Record: stored}
}

// splitKey parses "<category>.<id>"
func splitKey(key string) (Category, string, bool) {
	category, id, found := strings.Cut(key, ".")
	if !found || category == "" || id == "" {
		return "", "", false
	}
	return Category(category), id, true
}

// WatchOptions configures Watch
type WatchOptions struct {
	// Categories to subscribe to (default: shared)
	Categories []Category

	// Delay between one long-poll completing and the next starting
	// (default: DefaultWatchDelay)
	Delay time.Duration

	// OnError is told about transport failures; Watch keeps going after them
	OnError func(error)
}

// Watch subscribes repeatedly, calling fn with each result (nil when the
// long-poll ended without a change), and waits opts.Delay between rounds.
//
// It returns when ctx is done, when fn returns an error, or when Subscribe
// fails for a reason retrying cannot fix (no status, bad category).
func (c *Client) Watch(ctx context.Context, opts WatchOptions, fn func(*Update) error) error {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultWatchDelay
	}

	for {
		update, err := c.Subscribe(ctx, opts.Categories...)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil && (IsPreconditionError(err) || IsInvalidArgumentError(err)):
			return err
		case err != nil:
			logging.Warn("Subscription failed", zap.Error(err))
			if opts.OnError != nil {
				opts.OnError(err)
			}
		default:
			if err := fn(update); err != nil {
				return err
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
