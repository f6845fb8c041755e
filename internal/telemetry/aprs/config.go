package aprs

import (
	"fmt"
	"strings"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// DefaultBaseURL is the aprs.fi API root.
const DefaultBaseURL = "https://api.aprs.fi/api"

// Config binds an APRS source to one callsign.
type Config struct {
	Callsign string
	telemetry.Endpoint
}

// Validate checks that the config can be used to query aprs.fi.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Callsign) == "" {
		return fmt.Errorf("callsign is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("aprs.fi API key is required")
	}
	return nil
}

func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}
