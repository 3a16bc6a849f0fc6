package nest

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDecodeRecord(t *testing.T) {
	r, err := DecodeRecord([]byte(`{"name":"Hallway","target_temperature":20.5,"$version":"17","$timestamp":1350000000000}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if r.Version != 17 {
		t.Errorf("Version = %d, want 17", r.Version)
	}
	if r.Timestamp != 1350000000000 {
		t.Errorf("Timestamp = %d, want 1350000000000", r.Timestamp)
	}
	if v, ok := r.Float("target_temperature"); !ok || v != 20.5 {
		t.Errorf("Float(target_temperature) = %v, %v", v, ok)
	}
	if _, ok := r.Fields["$version"]; ok {
		t.Error("$version should not remain in Fields")
	}
}

func TestDecodeRecord_NotObject(t *testing.T) {
	if _, err := DecodeRecord([]byte(`[1,2]`)); err == nil {
		t.Error("DecodeRecord() should reject arrays")
	}
}

func TestDecodeRecord_Null(t *testing.T) {
	if _, err := DecodeRecord([]byte(`null`)); err == nil {
		t.Error("DecodeRecord() should reject null")
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	r := NewRecord(map[string]any{"away": true}, 4, 99)
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var m map[string]any
	_ = json.Unmarshal(data, &m)
	want := map[string]any{"away": true, "$version": float64(4), "$timestamp": float64(99)}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("Marshal() = %v, want %v", m, want)
	}
}

func TestRecordAccessors(t *testing.T) {
	r, _ := DecodeRecord([]byte(`{"name":"Home","away":true,"devices":["device.A","device.B",3],"count":2}`))

	if s, ok := r.Text("name"); !ok || s != "Home" {
		t.Errorf("Text(name) = %q, %v", s, ok)
	}
	if s, ok := r.Text("count"); !ok || s != "2" {
		t.Errorf("Text(count) = %q, %v; numbers render as text", s, ok)
	}
	if _, ok := r.Text("away"); ok {
		t.Error("Text(away) should fail for a bool")
	}
	if b, ok := r.Bool("away"); !ok || !b {
		t.Errorf("Bool(away) = %v, %v", b, ok)
	}
	if got := r.Strings("devices"); !reflect.DeepEqual(got, []string{"device.A", "device.B"}) {
		t.Errorf("Strings(devices) = %v", got)
	}
	if _, ok := r.Float("missing"); ok {
		t.Error("Float(missing) should report false")
	}
}

func TestRecordClone(t *testing.T) {
	r, _ := DecodeRecord([]byte(`{"devices":["device.A"],"nested":{"k":"v"}}`))
	c := r.Clone()

	c.Fields["devices"].([]any)[0] = "device.Z"
	c.Fields["nested"].(map[string]any)["k"] = "changed"

	if r.Strings("devices")[0] != "device.A" {
		t.Error("Clone shares the devices slice")
	}
	if r.Fields["nested"].(map[string]any)["k"] != "v" {
		t.Error("Clone shares nested maps")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{json.Number("42"), 42},
		{"43", 43},
		{" 44 ", 44},
		{float64(45), 45},
		{"46.0", 46},
		{"abc", 0},
		{nil, 0},
		{true, 0},
	}
	for _, tt := range tests {
		if got := ParseVersion(tt.in); got != tt.want {
			t.Errorf("ParseVersion(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCacheApplyUpdate_Idempotent(t *testing.T) {
	c := NewCache()
	c.Replace(Snapshot{})

	first := NewRecord(map[string]any{"online": true}, 0, 0)
	c.ApplyUpdate(CategoryTrack, "A", first, 9, 1000)
	once := c.Snapshot()

	second := NewRecord(map[string]any{"online": true}, 0, 0)
	c.ApplyUpdate(CategoryTrack, "A", second, 9, 1000)
	twice := c.Snapshot()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("applying the same update twice changed the cache: %v vs %v", once, twice)
	}
	if v, _ := c.Version(CategoryTrack, "A"); v != 9 {
		t.Errorf("Version = %d, want 9", v)
	}
}

func TestCacheApplyUpdate_StoresCopy(t *testing.T) {
	c := NewCache()
	c.Replace(Snapshot{})

	in := NewRecord(map[string]any{"online": true}, 0, 0)
	out := c.ApplyUpdate(CategoryTrack, "A", in, 9, 1000)
	if out.Version != 9 || out.Timestamp != 1000 {
		t.Errorf("returned record = v%d ts%d, want v9 ts1000", out.Version, out.Timestamp)
	}

	in.Fields["online"] = false
	in.Version = 1
	out.Fields["online"] = false

	r, _ := c.Record(CategoryTrack, "A")
	if online, _ := r.Bool("online"); !online {
		t.Error("cached record changed through a caller's pointer")
	}
	if r.Version != 9 {
		t.Errorf("cached Version = %d, want 9", r.Version)
	}
}

func TestCacheReset(t *testing.T) {
	c := NewCache()
	c.Replace(Snapshot{CategoryDevice: {"A": NewRecord(nil, 1, 1)}})
	if !c.Fetched() {
		t.Fatal("Fetched() should be true after Replace")
	}

	c.Reset()
	if c.Fetched() || c.Has(CategoryDevice, "A") {
		t.Error("Reset should forget the snapshot")
	}
}
