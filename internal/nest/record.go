package nest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/nestctl/internal/logging"
)

const (
	versionField   = "$version"
	timestampField = "$timestamp"
)

// Record is one entity (a device, a structure, its shared settings, ...) as
// the service last reported it. Fields holds the entity's JSON object with
// numbers kept as json.Number; Version and Timestamp are lifted out of the
// "$version" and "$timestamp" members.
type Record struct {
	Fields    map[string]any
	Version   int64
	Timestamp int64
}

// NewRecord creates a record from decoded fields
func NewRecord(fields map[string]any, version, timestamp int64) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{Fields: fields, Version: version, Timestamp: timestamp}
}

// DecodeRecord parses a JSON object into a Record
func DecodeRecord(data []byte) (*Record, error) {
	r := &Record{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("record is not a JSON object: %w", err)
	}
	if fields == nil {
		return errors.New("record is null")
	}
	r.Version = 0
	r.Timestamp = 0
	if v, ok := fields[versionField]; ok {
		r.Version = ParseVersion(v)
		delete(fields, versionField)
	}
	if ts, ok := fields[timestampField]; ok {
		r.Timestamp, _ = toInt64(ts)
		delete(fields, timestampField)
	}
	r.Fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler; "$version" and "$timestamp" are
// written back alongside the fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[versionField] = r.Version
	out[timestampField] = r.Timestamp
	return json.Marshal(out)
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		Fields:    cloneValue(r.Fields).(map[string]any),
		Version:   r.Version,
		Timestamp: r.Timestamp,
	}
}

// Text returns the named field as a string
func (r *Record) Text(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}

// Float returns the named field as a float64
func (r *Record) Float(name string) (float64, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Bool returns the named field as a bool
func (r *Record) Bool(name string) (bool, bool) {
	b, ok := r.Fields[name].(bool)
	return b, ok
}

// Strings returns the named field as a string slice
func (r *Record) Strings(name string) []string {
	list, ok := r.Fields[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ParseVersion converts a "$version" value (JSON number, string or header
// text) to an integer. Tokens that are not integers become 0 and are logged;
// the service has only ever been seen to send integers.
func ParseVersion(v any) int64 {
	n, ok := toInt64(v)
	if !ok {
		logging.Warn("Non-numeric version token", zap.Any("version", v))
		return 0
	}
	return n
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		return parseInt(n.String())
	case string:
		return parseInt(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f), true
	}
	return 0, false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
