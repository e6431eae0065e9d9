// internal/config/normalize.go
package config

// Fallback records a channel value that was replaced by its default.
type Fallback struct {
	Channel string
	Field   string
	Raw     string
	Used    int
}

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
//
// Returned fallbacks are informational: an unusable bus, device or encoder
// value is never fatal.
func Normalize(cfg *Config) []Fallback {
	if cfg == nil {
		return nil
	}

	// ------------------------------------------------------------
	// POLL DEFAULTS
	// ------------------------------------------------------------

	d := defaultConfig().Poll
	if cfg.Poll.StandardIntervalMs <= 0 {
		cfg.Poll.StandardIntervalMs = d.StandardIntervalMs
	}
	if cfg.Poll.ShortIntervalMs <= 0 {
		cfg.Poll.ShortIntervalMs = d.ShortIntervalMs
	}
	if cfg.Poll.IOTimeoutMs == 0 {
		cfg.Poll.IOTimeoutMs = d.IOTimeoutMs
	}
	if cfg.Poll.QueueSize <= 0 {
		cfg.Poll.QueueSize = d.QueueSize
	}

	// ------------------------------------------------------------
	// CHANNEL RESOLUTION
	// ------------------------------------------------------------

	var out []Fallback
	for i := range cfg.Channels {
		c := &cfg.Channels[i]
		name := c.Name()

		resolve := func(field string, v *Int, used int) {
			// only report values the user actually wrote
			if v.Set && (!v.Valid || v.Value != used) {
				out = append(out, Fallback{Channel: name, Field: field, Raw: v.Raw, Used: used})
			}
			*v = IntOf(used)
		}
		resolve("bus", &c.Bus, c.BusID())
		resolve("device", &c.Device, int(c.Address()))
		resolve("encoder", &c.Encoder, int(c.EncoderIndex()))

		c.ID = name

		// Truncate to max 16 characters
		if len(c.DeviceName) > 16 {
			c.DeviceName = c.DeviceName[:16]
		}
	}

	return out
}
