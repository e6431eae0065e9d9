// internal/config/endpoint.go
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint schemes.
const (
	SchemeTCP    = "tcp"
	SchemeRTU    = "rtu"
	SchemeIngest = "ingest"
)

const defaultRTUBaud = 19200

// Endpoint is a parsed target endpoint.
type Endpoint struct {
	Scheme  string
	Address string // host:port, or serial device path for rtu
	Baud    int    // rtu only
}

// ParseEndpoint accepts "host:port" (tcp), "tcp://host:port",
// "ingest://host:port" and "rtu:///dev/ttyX?baud=N".
func ParseEndpoint(s string) (Endpoint, error) {
	if s == "" {
		return Endpoint{}, fmt.Errorf("endpoint required")
	}
	if !strings.Contains(s, "://") {
		return Endpoint{Scheme: SchemeTCP, Address: s}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("endpoint %q: %w", s, err)
	}

	switch u.Scheme {
	case SchemeTCP, SchemeIngest:
		if u.Host == "" {
			return Endpoint{}, fmt.Errorf("endpoint %q: host:port required", s)
		}
		return Endpoint{Scheme: u.Scheme, Address: u.Host}, nil

	case SchemeRTU:
		if u.Path == "" {
			return Endpoint{}, fmt.Errorf("endpoint %q: serial device path required", s)
		}
		baud := defaultRTUBaud
		if b := u.Query().Get("baud"); b != "" {
			n, err := strconv.Atoi(b)
			if err != nil || n <= 0 {
				return Endpoint{}, fmt.Errorf("endpoint %q: invalid baud %q", s, b)
			}
			baud = n
		}
		return Endpoint{Scheme: SchemeRTU, Address: u.Path, Baud: baud}, nil

	default:
		return Endpoint{}, fmt.Errorf("endpoint %q: unsupported scheme %q", s, u.Scheme)
	}
}
