package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/nestctl/internal/config"
	"github.com/muurk/nestctl/internal/nest"
)

// StatusOptions controls RenderStatus
type StatusOptions struct {
	Format     string            // table, compact or json (empty = table)
	Fahrenheit bool              // Show temperatures in °F
	Nicknames  map[string]string // Device id → nickname
	Width      int               // Terminal width for table output
}

type thermostatView struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Nickname           string  `json:"nickname,omitempty"`
	CurrentTemperature float64 `json:"current_temperature"`
	TargetTemperature  float64 `json:"target_temperature"`
	Unit               string  `json:"unit"`
	TargetType         string  `json:"target_type,omitempty"`
	FanMode            string  `json:"fan_mode,omitempty"`
	Humidity           float64 `json:"humidity"`
}

type structureView struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Away    bool     `json:"away"`
	Devices []string `json:"devices"`
}

type statusDocument struct {
	Structures  []structureView  `json:"structures"`
	Thermostats []thermostatView `json:"thermostats"`
}

// RenderStatus renders the structures and thermostats of a snapshot
func RenderStatus(s nest.Snapshot, opts StatusOptions) (string, error) {
	doc := buildStatus(s, opts)

	switch opts.Format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode status: %w", err)
		}
		return string(data), nil
	case config.FormatCompact:
		return renderCompact(doc), nil
	case config.FormatTable, "":
		return renderTables(doc, opts), nil
	default:
		return "", fmt.Errorf("unknown format %q (want %s)", opts.Format, strings.Join(config.Formats, ", "))
	}
}

func buildStatus(s nest.Snapshot, opts StatusOptions) statusDocument {
	unit := "C"
	if opts.Fahrenheit {
		unit = "F"
	}

	doc := statusDocument{
		Structures:  []structureView{},
		Thermostats: []thermostatView{},
	}
	for _, st := range s.Structures() {
		devices := st.Devices
		if devices == nil {
			devices = []string{}
		}
		doc.Structures = append(doc.Structures, structureView{
			ID:      st.ID,
			Name:    st.Name,
			Away:    st.Away,
			Devices: devices,
		})
	}
	for _, t := range s.Devices() {
		doc.Thermostats = append(doc.Thermostats, thermostatView{
			ID:                 t.ID,
			Name:               t.Name,
			Nickname:           opts.Nicknames[t.ID],
			CurrentTemperature: convert(t.CurrentTemperature, opts.Fahrenheit),
			TargetTemperature:  convert(t.TargetTemperature, opts.Fahrenheit),
			Unit:               unit,
			TargetType:         t.TargetType,
			FanMode:            t.FanMode,
			Humidity:           t.Humidity,
		})
	}
	return doc
}

func convert(celsius float64, fahrenheit bool) float64 {
	if fahrenheit {
		return nest.CelsiusToFahrenheit(celsius)
	}
	return celsius
}

func formatTemperature(v float64, unit string) string {
	if unit == "F" {
		return fmt.Sprintf("%.0f°F", v)
	}
	return fmt.Sprintf("%.1f°C", v)
}

func displayName(t thermostatView) string {
	if t.Nickname != "" && t.Nickname != t.Name {
		return t.Name + " (" + t.Nickname + ")"
	}
	return t.Name
}

func renderCompact(doc statusDocument) string {
	var lines []string
	for _, st := range doc.Structures {
		state := "home"
		if st.Away {
			state = "away"
		}
		lines = append(lines, fmt.Sprintf("structure %s %q: %s, devices [%s]",
			st.ID, st.Name, state, strings.Join(st.Devices, " ")))
	}
	for _, t := range doc.Thermostats {
		line := fmt.Sprintf("device %s %q: %s, target %s",
			t.ID, displayName(t),
			formatTemperature(t.CurrentTemperature, t.Unit),
			formatTemperature(t.TargetTemperature, t.Unit))
		if t.TargetType != "" {
			line += " " + t.TargetType
		}
		if t.FanMode != "" {
			line += ", fan " + t.FanMode
		}
		if t.Humidity > 0 {
			line += fmt.Sprintf(", humidity %.0f%%", t.Humidity)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func newTable(width int) *table.Table {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

func renderTables(doc statusDocument, opts StatusOptions) string {
	var sections []string

	structures := newTable(opts.Width).Headers("ID", "Name", "State", "Devices")
	for _, st := range doc.Structures {
		state := HomeStyle.Render("home")
		if st.Away {
			state = AwayStyle.Render("away")
		}
		structures.Row(st.ID, st.Name, state, strings.Join(st.Devices, ", "))
	}
	sections = append(sections, SectionTitleStyle.Render("Structures"), structures.Render())

	thermostats := newTable(opts.Width).Headers("ID", "Name", "Current", "Target", "Mode", "Fan", "Humidity")
	for _, t := range doc.Thermostats {
		target := formatTemperature(t.TargetTemperature, t.Unit)
		switch t.TargetType {
		case string(nest.TemperatureTypeHeat):
			target = HeatStyle.Render(target)
		case string(nest.TemperatureTypeCool):
			target = CoolStyle.Render(target)
		}
		humidity := ""
		if t.Humidity > 0 {
			humidity = fmt.Sprintf("%.0f%%", t.Humidity)
		}
		thermostats.Row(
			t.ID,
			displayName(t),
			formatTemperature(t.CurrentTemperature, t.Unit),
			target,
			t.TargetType,
			t.FanMode,
			humidity,
		)
	}
	sections = append(sections, SectionTitleStyle.Render("Thermostats"), thermostats.Render())

	return strings.Join(sections, "\n")
}

// RenderDeviceIDs lists device ids, one per line, with their status name
// and nickname. JSON output is an array of ids.
func RenderDeviceIDs(s nest.Snapshot, ids []string, opts StatusOptions) (string, error) {
	if opts.Format == config.FormatJSON {
		if ids == nil {
			ids = []string{}
		}
		data, err := json.MarshalIndent(ids, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode device ids: %w", err)
		}
		return string(data), nil
	}

	names := map[string]string{}
	for _, t := range s.Devices() {
		names[t.ID] = t.Name
	}

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		line := id
		if name := names[id]; name != "" && name != id {
			line += "  " + name
		}
		if nick := opts.Nicknames[id]; nick != "" {
			line += "  " + MutedStyle.Render("("+nick+")")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
