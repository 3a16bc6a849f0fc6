package nest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/nestctl/internal/logging"
)

const headerBaseVersion = "X-nl-base-version"

// FanMode is the device fan setting
type FanMode string

const (
	FanModeAuto FanMode = "auto"
	FanModeOn   FanMode = "on"
)

// Valid reports whether m is a fan mode the service accepts
func (m FanMode) Valid() bool {
	return m == FanModeAuto || m == FanModeOn
}

// TemperatureType is the thermostat's target temperature mode
type TemperatureType string

const (
	TemperatureTypeCool  TemperatureType = "cool"
	TemperatureTypeHeat  TemperatureType = "heat"
	TemperatureTypeRange TemperatureType = "range"
)

// Valid reports whether t is a temperature type the service accepts
func (t TemperatureType) Valid() bool {
	return t == TemperatureTypeCool || t == TemperatureTypeHeat || t == TemperatureTypeRange
}

// SetTemperatureForDevice sets the target temperature of a thermostat.
// Values above FahrenheitThreshold are taken as Fahrenheit and converted.
// An empty deviceID selects the first device.
func (c *Client) SetTemperatureForDevice(ctx context.Context, deviceID string, temperature float64) error {
	if err := c.requireStatus("set temperature"); err != nil {
		return err
	}
	id, err := c.resolveDevice(deviceID)
	if err != nil {
		return err
	}

	celsius := NormalizeTemperature(temperature)
	return c.put(ctx, CategoryShared, id, map[string]any{
		"target_change_pending": true,
		"target_temperature":    celsius,
	})
}

// SetDefaultDeviceTemperature sets the target temperature of the first device
func (c *Client) SetDefaultDeviceTemperature(ctx context.Context, temperature float64) error {
	return c.SetTemperatureForDevice(ctx, "", temperature)
}

// SetAway marks a structure away (or home). An empty structureID selects the
// first structure.
func (c *Client) SetAway(ctx context.Context, away bool, structureID string) error {
	if err := c.requireStatus("set away"); err != nil {
		return err
	}
	id, err := c.resolveStructure(structureID)
	if err != nil {
		return err
	}

	return c.put(ctx, CategoryStructure, id, map[string]any{
		"away":           away,
		"away_timestamp": UnixMillis(time.Now()),
		"away_setter":    0,
	})
}

// SetHome is SetAway(false)
func (c *Client) SetHome(ctx context.Context, structureID string) error {
	return c.SetAway(ctx, false, structureID)
}

// SetFanMode changes the fan mode of a device. An empty deviceID selects the
// first device.
func (c *Client) SetFanMode(ctx context.Context, deviceID string, mode FanMode) error {
	if !mode.Valid() {
		return NewInvalidArgumentError(fmt.Sprintf("invalid fan mode %q (want auto or on)", mode))
	}
	if err := c.requireStatus("set fan mode"); err != nil {
		return err
	}
	id, err := c.resolveDevice(deviceID)
	if err != nil {
		return err
	}

	return c.put(ctx, CategoryDevice, id, map[string]any{
		"fan_mode": string(mode),
	})
}

// SetFanModeAuto is SetFanMode(deviceID, FanModeAuto)
func (c *Client) SetFanModeAuto(ctx context.Context, deviceID string) error {
	return c.SetFanMode(ctx, deviceID, FanModeAuto)
}

// SetFanModeOn is SetFanMode(deviceID, FanModeOn)
func (c *Client) SetFanModeOn(ctx context.Context, deviceID string) error {
	return c.SetFanMode(ctx, deviceID, FanModeOn)
}

// SetTargetTemperatureType switches a thermostat between cool, heat and range.
// An empty deviceID selects the first device.
func (c *Client) SetTargetTemperatureType(ctx context.Context, deviceID string, typ TemperatureType) error {
	if !typ.Valid() {
		return NewInvalidArgumentError(fmt.Sprintf("invalid temperature type %q (want cool, heat or range)", typ))
	}
	if err := c.requireStatus("set temperature type"); err != nil {
		return err
	}
	id, err := c.resolveDevice(deviceID)
	if err != nil {
		return err
	}

	return c.put(ctx, CategoryShared, id, map[string]any{
		"target_temperature_type": string(typ),
	})
}

func (c *Client) resolveDevice(deviceID string) (string, error) {
	if deviceID == "" {
		ids := c.cache.IDs(CategoryDevice)
		if len(ids) == 0 {
			return "", &Error{Kind: KindInvalidArgument, Message: ErrNoDevices.Error(), Err: ErrNoDevices}
		}
		return ids[0], nil
	}
	if !c.cache.Has(CategoryDevice, deviceID) {
		return "", NewInvalidArgumentError(fmt.Sprintf("unknown device %q", deviceID))
	}
	return deviceID, nil
}

func (c *Client) resolveStructure(structureID string) (string, error) {
	if structureID == "" {
		ids := c.cache.IDs(CategoryStructure)
		if len(ids) == 0 {
			return "", &Error{Kind: KindInvalidArgument, Message: ErrNoStructures.Error(), Err: ErrNoStructures}
		}
		return ids[0], nil
	}
	if !c.cache.Has(CategoryStructure, structureID) {
		return "", NewInvalidArgumentError(fmt.Sprintf("unknown structure %q", structureID))
	}
	return structureID, nil
}

// put sends a conditional update for category.id, echoing the cached version.
// The cache itself is left alone; the next fetch or subscription reconciles it.
func (c *Client) put(ctx context.Context, category Category, id string, fields map[string]any) error {
	version, ok := c.cache.Version(category, id)
	if !ok {
		return &Error{
			Kind:    KindInvalidArgument,
			Message: fmt.Sprintf("%s: %s.%s", ErrUnknownRecord, category, id),
			Err:     ErrUnknownRecord,
		}
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return NewInvalidArgumentError("failed to encode update: " + err.Error())
	}

	header := http.Header{}
	header.Set(headerBaseVersion, strconv.FormatInt(version, 10))

	key := string(category) + "." + id
	if _, err := c.Post(ctx, PostRequest{
		Path:   "/v2/put/" + key,
		Body:   json.RawMessage(body),
		Header: header,
	}); err != nil {
		logging.Warn("Update failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("update %s: %w", key, err)
	}

	logging.Info("Update sent",
		zap.String("key", key),
		zap.Int64("base_version", version),
		zap.Any("fields", fields),
	)
	return nil
}
