package ui

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/muurk/nestctl/internal/config"
	"github.com/muurk/nestctl/internal/nest"
)

const testStatus = `{
  "device": {"ABC123": {"$version": 100, "fan_mode": "auto", "current_humidity": 41}},
  "shared": {"ABC123": {"$version": 200, "name": "Hallway", "current_temperature": 21.5, "target_temperature": 20, "target_temperature_type": "heat"}},
  "structure": {"s-1": {"$version": 300, "name": "Home", "away": false, "devices": ["device.ABC123"]}}
}`

func testSnapshot(t *testing.T) nest.Snapshot {
	t.Helper()
	s, err := nest.DecodeSnapshot([]byte(testStatus))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	return s
}

func TestRenderStatusCompact(t *testing.T) {
	out, err := RenderStatus(testSnapshot(t), StatusOptions{Format: config.FormatCompact})
	if err != nil {
		t.Fatalf("RenderStatus() error = %v", err)
	}

	want := []string{
		`structure s-1 "Home": home, devices [ABC123]`,
		`device ABC123 "Hallway": 21.5°C, target 20.0°C heat, fan auto, humidity 41%`,
	}
	lines := strings.Split(out, "\n")
	if len(lines) != len(want) {
		t.Fatalf("RenderStatus() = %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderStatusCompactFahrenheit(t *testing.T) {
	out, err := RenderStatus(testSnapshot(t), StatusOptions{
		Format:     config.FormatCompact,
		Fahrenheit: true,
		Nicknames:  map[string]string{"ABC123": "hall"},
	})
	if err != nil {
		t.Fatalf("RenderStatus() error = %v", err)
	}
	if !strings.Contains(out, `"Hallway (hall)": 71°F, target 68°F heat`) {
		t.Errorf("RenderStatus() = %q, want Fahrenheit values and nickname", out)
	}
}

func TestRenderStatusJSON(t *testing.T) {
	out, err := RenderStatus(testSnapshot(t), StatusOptions{Format: config.FormatJSON})
	if err != nil {
		t.Fatalf("RenderStatus() error = %v", err)
	}

	var doc statusDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(doc.Thermostats) != 1 {
		t.Fatalf("thermostats = %d, want 1", len(doc.Thermostats))
	}
	th := doc.Thermostats[0]
	if th.ID != "ABC123" || th.Name != "Hallway" {
		t.Errorf("thermostat = %s/%s, want ABC123/Hallway", th.ID, th.Name)
	}
	if th.TargetTemperature != 20 || th.Unit != "C" {
		t.Errorf("target = %v%s, want 20C", th.TargetTemperature, th.Unit)
	}
	if len(doc.Structures) != 1 || doc.Structures[0].Devices[0] != "ABC123" {
		t.Errorf("structures = %+v, want s-1 with ABC123", doc.Structures)
	}
}

func TestRenderStatusJSONEmpty(t *testing.T) {
	out, err := RenderStatus(nest.Snapshot{}, StatusOptions{Format: config.FormatJSON})
	if err != nil {
		t.Fatalf("RenderStatus() error = %v", err)
	}
	if !strings.Contains(out, `"thermostats": []`) {
		t.Errorf("RenderStatus() = %s, want empty thermostats array", out)
	}
}

func TestRenderStatusTable(t *testing.T) {
	out, err := RenderStatus(testSnapshot(t), StatusOptions{Format: config.FormatTable, Width: 120})
	if err != nil {
		t.Fatalf("RenderStatus() error = %v", err)
	}
	for _, want := range []string{"Structures", "Thermostats", "Hallway", "s-1", "21.5°C", "auto", "41%"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatusUnknownFormat(t *testing.T) {
	_, err := RenderStatus(testSnapshot(t), StatusOptions{Format: "xml"})
	if err == nil {
		t.Fatal("RenderStatus() expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "xml") {
		t.Errorf("error = %v, want it to name the format", err)
	}
}

func TestRenderDeviceIDs(t *testing.T) {
	s := testSnapshot(t)

	out, err := RenderDeviceIDs(s, []string{"ABC123"}, StatusOptions{Nicknames: map[string]string{"ABC123": "hall"}})
	if err != nil {
		t.Fatalf("RenderDeviceIDs() error = %v", err)
	}
	if !strings.HasPrefix(out, "ABC123  Hallway") || !strings.Contains(out, "(hall)") {
		t.Errorf("RenderDeviceIDs() = %q", out)
	}

	out, err = RenderDeviceIDs(s, nil, StatusOptions{Format: config.FormatJSON})
	if err != nil {
		t.Fatalf("RenderDeviceIDs() error = %v", err)
	}
	if out != "[]" {
		t.Errorf("RenderDeviceIDs(json, nil) = %q, want []", out)
	}
}
