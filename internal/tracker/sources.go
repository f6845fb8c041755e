package tracker

import (
	"fmt"
	"log/slog"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
	"github.com/roman-kulish/balloon-tracker/internal/telemetry/aprs"
	"github.com/roman-kulish/balloon-tracker/internal/telemetry/iridium"
	"github.com/roman-kulish/balloon-tracker/internal/telemetry/sondehub"
)

// NewSource builds the network source of the given kind for identity.
func NewSource(kind telemetry.SourceKind, identity string, ep telemetry.Endpoint, logger *slog.Logger) (telemetry.Source, error) {
	var src telemetry.Source
	var err error
	switch kind {
	case telemetry.KindAPRS:
		if src, err = aprs.New(&aprs.Config{Callsign: identity, Endpoint: ep}, aprs.WithLogger(logger)); err != nil {
			return nil, fmt.Errorf("creating APRS source: %w", err)
		}

	case telemetry.KindIridium:
		if src, err = iridium.New(&iridium.Config{Modem: identity, Endpoint: ep}, iridium.WithLogger(logger)); err != nil {
			return nil, fmt.Errorf("creating Iridium source: %w", err)
		}

	case telemetry.KindSondeHub:
		if src, err = sondehub.New(&sondehub.Config{Callsign: identity, Endpoint: ep}, sondehub.WithLogger(logger)); err != nil {
			return nil, fmt.Errorf("creating SondeHub source: %w", err)
		}

	default:
		return nil, fmt.Errorf("creating source: unknown kind '%s'", kind)
	}

	return src, nil
}
