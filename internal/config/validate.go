// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/seesaw-poller/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
//
// Unusable bus/device/encoder values are not errors here; they resolve to
// defaults (see Normalize).
func Validate(cfg *Config) error {
	type span struct {
		start   int
		end     int
		channel string
		what    string
	}

	if len(cfg.Channels) == 0 {
		return fmt.Errorf("at least one channel is required")
	}

	// ------------------------------------------------------------
	// CHANNEL IDENTITY
	// ------------------------------------------------------------

	names := make(map[string]bool)
	// key = bus | device | encoder
	owners := make(map[string]string)
	slots := make(map[uint16]string)

	for _, c := range cfg.Channels {
		name := c.Name()
		if names[name] {
			return fmt.Errorf("channel %q: duplicate id", name)
		}
		names[name] = true

		key := fmt.Sprintf("%d|%d|%d", c.BusID(), c.Address(), c.EncoderIndex())
		if prev, ok := owners[key]; ok {
			return fmt.Errorf(
				"channels %q and %q both watch bus=%d device=0x%02x encoder=%d",
				prev, name, c.BusID(), c.Address(), c.EncoderIndex(),
			)
		}
		owners[key] = name

		// device_name sanity (ASCII only)
		for i := 0; i < len(c.DeviceName); i++ {
			if c.DeviceName[i] > 0x7F {
				return fmt.Errorf("channel %q: device_name must contain ASCII characters only", name)
			}
		}

		if c.Slot != nil {
			if prev, ok := slots[*c.Slot]; ok {
				return fmt.Errorf("slot %d used by channels %q and %q", *c.Slot, prev, name)
			}
			slots[*c.Slot] = name
		}
	}

	// ------------------------------------------------------------
	// POLL TIMING
	// ------------------------------------------------------------

	if cfg.Poll.StandardIntervalMs < 0 || cfg.Poll.ShortIntervalMs < 0 {
		return fmt.Errorf("poll intervals must not be negative")
	}
	if cfg.Poll.QueueSize < 0 {
		return fmt.Errorf("poll.queue_size must not be negative")
	}

	// ------------------------------------------------------------
	// TARGET REGISTER GEOMETRY
	// ------------------------------------------------------------

	// key = endpoint | unit_id
	spans := make(map[string][]span)
	seen := make(map[string]uint32)

	add := func(key string, s span) error {
		for _, o := range spans[key] {
			// overlap check (inclusive)
			if !(s.end < o.start || s.start > o.end) {
				return fmt.Errorf(
					"register overlap at %s: %s of channel %q (%d-%d) overlaps %s of channel %q (%d-%d)",
					key, s.what, s.channel, s.start, s.end, o.what, o.channel, o.start, o.end,
				)
			}
		}
		spans[key] = append(spans[key], s)
		return nil
	}

	for _, t := range cfg.Targets {
		if _, err := ParseEndpoint(t.Endpoint); err != nil {
			return fmt.Errorf("target %d: %w", t.ID, err)
		}

		dup := fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID)
		if prev, ok := seen[dup]; ok {
			return fmt.Errorf("targets %d and %d both write endpoint=%s unit_id=%d", prev, t.ID, t.Endpoint, t.UnitID)
		}
		seen[dup] = t.ID

		for _, c := range cfg.Channels {
			if c.Slot == nil {
				continue
			}
			slot := int(*c.Slot)

			start := int(t.BaseAddress) + slot*2
			if start+1 > 0xFFFF {
				return fmt.Errorf("target %d: channel %q position registers exceed address space", t.ID, c.Name())
			}
			if err := add(fmt.Sprintf("%s|%d", t.Endpoint, t.UnitID), span{
				start: start, end: start + 1, channel: c.Name(), what: "position",
			}); err != nil {
				return err
			}

			if t.StatusUnitID == nil {
				continue
			}
			sstart := slot * status.SlotsPerDevice
			if sstart+status.SlotsPerDevice-1 > 0xFFFF {
				return fmt.Errorf("target %d: channel %q status block exceeds address space", t.ID, c.Name())
			}
			if err := add(fmt.Sprintf("%s|%d", t.Endpoint, *t.StatusUnitID), span{
				start: sstart, end: sstart + status.SlotsPerDevice - 1, channel: c.Name(), what: "status",
			}); err != nil {
				return err
			}
		}
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker.Host == "" {
			return fmt.Errorf("mqtt.broker.host required when mqtt is enabled")
		}
		if cfg.MQTT.Broker.Port <= 0 || cfg.MQTT.Broker.Port > 65535 {
			return fmt.Errorf("mqtt.broker.port %d out of range", cfg.MQTT.Broker.Port)
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	return nil
}
