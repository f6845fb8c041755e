package sondehub

import (
	"fmt"
	"strings"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// DefaultBaseURL is the SondeHub v2 API root.
const DefaultBaseURL = "https://api.v2.sondehub.org"

// Config binds a SondeHub source to one amateur payload callsign.
type Config struct {
	Callsign string
	telemetry.Endpoint
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Callsign) == "" {
		return fmt.Errorf("callsign is required")
	}
	return nil
}

func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}
