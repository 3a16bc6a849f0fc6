package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/muurk/nestctl/internal/logging"
	"github.com/muurk/nestctl/internal/nest"
)

// CurrentVersion is the only file format version understood
const CurrentVersion = 1

// Output formats accepted by Preferences.Format
const (
	FormatTable   = "table"
	FormatCompact = "compact"
	FormatJSON    = "json"
)

// Formats lists the accepted output formats
var Formats = []string{FormatTable, FormatCompact, FormatJSON}

// Preferences represents the entire configuration file.
type Preferences struct {
	Version   int                `yaml:"version"`
	Username  string             `yaml:"username,omitempty"`   // Account email used when --username is absent
	UserAgent string             `yaml:"user_agent,omitempty"` // Overrides nest.DefaultUserAgent
	LoginURL  string             `yaml:"login_url,omitempty"`  // Overrides nest.DefaultLoginURL
	LogLevel  string             `yaml:"log_level,omitempty"`  // debug, info, warn, error (empty = silent)
	Format    string             `yaml:"format,omitempty"`     // table, compact or json
	Watch     *WatchPrefs        `yaml:"watch,omitempty"`
	Devices   map[string]*Device `yaml:"devices,omitempty"` // Keyed by device id
	// Password is NEVER stored in config file for security reasons
}

// WatchPrefs configures `nestctl watch`.
type WatchPrefs struct {
	Categories []string      `yaml:"categories,omitempty"` // Subscription categories (default: shared)
	Delay      time.Duration `yaml:"delay,omitempty"`      // Pause between long-polls
}

// Device represents user-defined metadata for a single thermostat.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name accepted by --device
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last time a status listed the device
}

// Default creates Preferences with default values.
func Default() *Preferences {
	return &Preferences{
		Version: CurrentVersion,
		Format:  FormatTable,
		Watch: &WatchPrefs{
			Categories: []string{string(nest.CategoryShared)},
			Delay:      nest.DefaultWatchDelay,
		},
		Devices: make(map[string]*Device),
	}
}

// Validate checks values a user may have edited by hand.
func (p *Preferences) Validate() error {
	if p.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", p.Version, CurrentVersion)
	}
	if p.Format != "" && !isFormat(p.Format) {
		return fmt.Errorf("unknown format %q (want %s)", p.Format, strings.Join(Formats, ", "))
	}
	if p.LogLevel != "" {
		if _, err := logging.ParseLevel(p.LogLevel); err != nil {
			return err
		}
	}
	if p.Watch != nil {
		if p.Watch.Delay < 0 {
			return fmt.Errorf("watch delay must not be negative, got %s", p.Watch.Delay)
		}
		if _, err := p.Watch.ParseCategories(); err != nil {
			return err
		}
	}
	return nil
}

// ParseCategories validates and converts the configured categories
func (w *WatchPrefs) ParseCategories() ([]nest.Category, error) {
	if w == nil {
		return nil, nil
	}
	out := make([]nest.Category, 0, len(w.Categories))
	for _, name := range w.Categories {
		c, err := nest.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// WatchDelay returns the configured delay, or the default when unset.
func (p *Preferences) WatchDelay() time.Duration {
	if p.Watch == nil || p.Watch.Delay <= 0 {
		return nest.DefaultWatchDelay
	}
	return p.Watch.Delay
}

// EnsureDevice returns the entry for a device id, creating it if needed.
func (p *Preferences) EnsureDevice(id string) *Device {
	if p.Devices == nil {
		p.Devices = make(map[string]*Device)
	}
	if device, exists := p.Devices[id]; exists {
		return device
	}
	device := &Device{}
	p.Devices[id] = device
	return device
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (p *Preferences) SetDeviceNickname(id, nickname string) {
	p.EnsureDevice(id).Nickname = nickname
}

// UpdateDeviceLastSeen stamps every listed device with now.
func (p *Preferences) UpdateDeviceLastSeen(ids []string, now time.Time) {
	for _, id := range ids {
		p.EnsureDevice(id).LastSeen = now
	}
}

// Nickname returns the nickname of a device, or "" if it has none.
func (p *Preferences) Nickname(id string) string {
	if d := p.Devices[id]; d != nil {
		return d.Nickname
	}
	return ""
}

// ResolveDevice maps a nickname (case-insensitive) to its device id.
// Anything that is not a known nickname is returned unchanged.
func (p *Preferences) ResolveDevice(name string) string {
	if name == "" {
		return ""
	}
	ids := make([]string, 0, len(p.Devices))
	for id := range p.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if d := p.Devices[id]; d != nil && strings.EqualFold(d.Nickname, name) {
			return id
		}
	}
	return name
}

func isFormat(s string) bool {
	for _, f := range Formats {
		if s == f {
			return true
		}
	}
	return false
}
