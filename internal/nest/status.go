package nest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/nestctl/internal/logging"
)

// Category is a named partition of account state in the status snapshot
type Category string

const (
	CategoryUser            Category = "user"
	CategoryShared          Category = "shared"
	CategoryTrack           Category = "track"
	CategoryDevice          Category = "device"
	CategoryStructure       Category = "structure"
	CategoryUserAlertDialog Category = "user_alert_dialog"
	CategoryUserSettings    Category = "user_settings"
	CategoryEnergyLatest    Category = "energy_latest"
)

// Categories lists every category that can be subscribed to, in the order
// the service documents them
var Categories = []Category{
	CategoryUser,
	CategoryShared,
	CategoryTrack,
	CategoryDevice,
	CategoryStructure,
	CategoryUserAlertDialog,
	CategoryUserSettings,
	CategoryEnergyLatest,
}

// ParseCategory validates a category name
func ParseCategory(name string) (Category, error) {
	c := Category(strings.TrimSpace(name))
	if !c.Valid() {
		return "", NewInvalidArgumentError(fmt.Sprintf("unknown subscription type: %s", name))
	}
	return c, nil
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Universe returns the category whose ids define which keys c covers.
// Energy reports exist per device even before any have been fetched.
func (c Category) Universe() Category {
	if c == CategoryEnergyLatest {
		return CategoryDevice
	}
	return c
}

// Snapshot maps category → entity id → record
type Snapshot map[Category]map[string]*Record

// DecodeSnapshot parses the full status document. Top-level members that are
// not objects are skipped, as are single entities that are not objects.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, NewParseError("status is not a JSON object", err)
	}
	if top == nil {
		return nil, NewParseError(ErrEmptyStatus.Error(), ErrEmptyStatus)
	}

	s := make(Snapshot, len(top))
	for name, raw := range top {
		var members map[string]json.RawMessage
		if err := json.Unmarshal(raw, &members); err != nil || members == nil {
			logging.Debug("Skipping status member", zap.String("member", name))
			continue
		}

		entities := make(map[string]*Record, len(members))
		for id, rawRecord := range members {
			r, err := DecodeRecord(rawRecord)
			if err != nil {
				logging.Warn("Skipping undecodable entity",
					zap.String("category", name),
					zap.String("entity_id", id),
					zap.Error(err),
				)
				continue
			}
			entities[id] = r
		}
		s[Category(name)] = entities
	}
	return s, nil
}

// IDs returns the sorted entity ids present under a category
func (s Snapshot) IDs(c Category) []string {
	ids := make([]string, 0, len(s[c]))
	for id := range s[c] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the record at category.id
func (s Snapshot) Get(c Category, id string) (*Record, bool) {
	r, ok := s[c][id]
	return r, ok
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for c, entities := range s {
		m := make(map[string]*Record, len(entities))
		for id, r := range entities {
			m[id] = r.Clone()
		}
		out[c] = m
	}
	return out
}

// Thermostat joins a device's "device" and "shared" records
type Thermostat struct {
	ID                 string
	Name               string
	CurrentTemperature float64 // Celsius
	TargetTemperature  float64 // Celsius
	TargetType         string  // cool, heat, range
	FanMode            string  // auto, on
	Humidity           float64
	HasShared          bool
}

// Devices returns one Thermostat per id under "device", sorted by id
func (s Snapshot) Devices() []Thermostat {
	ids := s.IDs(CategoryDevice)
	out := make([]Thermostat, 0, len(ids))
	for _, id := range ids {
		t := Thermostat{ID: id, Name: id}
		if d, ok := s.Get(CategoryDevice, id); ok {
			t.FanMode, _ = d.Text("fan_mode")
			t.Humidity, _ = d.Float("current_humidity")
		}
		if sh, ok := s.Get(CategoryShared, id); ok {
			t.HasShared = true
			if name, ok := sh.Text("name"); ok && name != "" {
				t.Name = name
			}
			t.CurrentTemperature, _ = sh.Float("current_temperature")
			t.TargetTemperature, _ = sh.Float("target_temperature")
			t.TargetType, _ = sh.Text("target_temperature_type")
		}
		out = append(out, t)
	}
	return out
}

// Structure is a home as the status reports it
type Structure struct {
	ID      string
	Name    string
	Away    bool
	Devices []string // device ids, without the "device." prefix
}

// Structures returns every structure, sorted by id
func (s Snapshot) Structures() []Structure {
	ids := s.IDs(CategoryStructure)
	out := make([]Structure, 0, len(ids))
	for _, id := range ids {
		r, _ := s.Get(CategoryStructure, id)
		st := Structure{ID: id, Name: id}
		if name, ok := r.Text("name"); ok && name != "" {
			st.Name = name
		}
		st.Away, _ = r.Bool("away")
		for _, key := range r.Strings("devices") {
			st.Devices = append(st.Devices, strings.TrimPrefix(key, string(CategoryDevice)+"."))
		}
		out = append(out, st)
	}
	return out
}

// FetchStatus retrieves the full status for the session's user and replaces
// the cached snapshot. An empty reply leaves the previous snapshot in place.
func (c *Client) FetchStatus(ctx context.Context) (Snapshot, error) {
	s, err := c.requireSession("fetch status")
	if err != nil {
		return nil, err
	}

	resp, err := c.Get(ctx, "/v2/mobile/"+s.UserKey())
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		logging.Warn("Unable to retrieve status", zap.String("user", s.UserKey()))
		return nil, &Error{Kind: KindParse, Message: ErrEmptyStatus.Error(), Header: resp.Header, Err: ErrEmptyStatus}
	}

	snapshot, err := DecodeSnapshot(resp.Body)
	if err != nil {
		return nil, err
	}

	c.cache.Replace(snapshot)
	logging.Info("Status fetched",
		zap.String("user_id", s.UserID),
		zap.Int("devices", len(snapshot[CategoryDevice])),
		zap.Int("structures", len(snapshot[CategoryStructure])),
	)
	return snapshot.Clone(), nil
}

// Snapshot returns a copy of the cached status
func (c *Client) Snapshot() (Snapshot, error) {
	if err := c.requireStatus("snapshot"); err != nil {
		return nil, err
	}
	return c.cache.Snapshot(), nil
}

// DeviceIDs enumerates the ids under "device"
func (c *Client) DeviceIDs() ([]string, error) {
	if err := c.requireStatus("device ids"); err != nil {
		return nil, err
	}
	return c.cache.IDs(CategoryDevice), nil
}

// StructureIDs enumerates the ids under "structure"
func (c *Client) StructureIDs() ([]string, error) {
	if err := c.requireStatus("structure ids"); err != nil {
		return nil, err
	}
	return c.cache.IDs(CategoryStructure), nil
}
