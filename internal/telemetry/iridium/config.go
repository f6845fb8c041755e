package iridium

import (
	"fmt"
	"strings"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// DefaultBaseURL is the Borealis flight server.
const DefaultBaseURL = "https://borealis.rci.montana.edu"

// Config binds an Iridium source to one modem.
type Config struct {
	Modem string
	telemetry.Endpoint
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Modem) == "" {
		return fmt.Errorf("modem id is required")
	}
	return nil
}

func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}
