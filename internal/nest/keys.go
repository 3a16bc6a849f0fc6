package nest

import (
	"sort"
	"strings"
	"time"
)

// SubscriptionKey tells the service which version of an entity the client
// last saw, so the long-poll only answers with something newer.
type SubscriptionKey struct {
	Key       string `json:"key"`
	Version   int64  `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

// Category returns the category half of the key
func (k SubscriptionKey) Category() Category {
	c, _, _ := strings.Cut(k.Key, ".")
	return Category(c)
}

// EntityID returns the id half of the key
func (k SubscriptionKey) EntityID() string {
	_, id, _ := strings.Cut(k.Key, ".")
	return id
}

// DefaultCategories is what Subscribe watches when the caller names none
var DefaultCategories = []Category{CategoryShared}

// CollectKeys derives the subscription keys for the requested categories
// from the cached status. now supplies the timestamp for cached records that
// carry none.
//
// Keys are ordered by entity id; for equal ids energy keys come after the
// others and every other tie keeps its request order.
func (c *Cache) CollectKeys(categories []Category, now time.Time) ([]SubscriptionKey, error) {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	for _, category := range categories {
		if !category.Valid() {
			return nil, NewInvalidArgumentError("unknown subscription type: " + string(category))
		}
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if !c.fetched {
		return nil, NewPreconditionError("collect keys", ErrNoStatus)
	}

	nowMillis := UnixMillis(now)
	var keys []SubscriptionKey
	for _, category := range categories {
		own := c.snapshot[category]
		universe := c.snapshot[category.Universe()]

		ids := make([]string, 0, len(universe))
		for id := range universe {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			key := SubscriptionKey{Key: string(category) + "." + id}
			if r, ok := own[id]; ok {
				key.Version = r.Version
				key.Timestamp = r.Timestamp
				if key.Timestamp == 0 {
					key.Timestamp = nowMillis
				}
			}
			keys = append(keys, key)
		}
	}

	sortKeys(keys)
	return keys, nil
}

func sortKeys(keys []SubscriptionKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i].EntityID(), keys[j].EntityID()
		if a != b {
			return a < b
		}
		return !isEnergy(keys[i]) && isEnergy(keys[j])
	})
}

func isEnergy(k SubscriptionKey) bool {
	return strings.HasPrefix(string(k.Category()), "energy")
}

// UnixMillis returns t as UTC milliseconds since the epoch
func UnixMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}
