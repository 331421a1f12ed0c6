package timeutil

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone lookups work on hosts without a tz database
)

// LoadZone resolves a tz database name for display. An empty name or
// "local" means the host zone.
func LoadZone(name string) (*time.Location, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "local":
		return time.Local, nil
	case "utc", "z":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q (want a tz database name such as Europe/London): %w", name, err)
	}
	return loc, nil
}
