package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the planner service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	PollInterval   time.Duration
	OwnerHeader    string
	DefaultOwner   string
	MaxOccurrences int
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// supplied values and reporting every invalid entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:planner.db",
		PollInterval:   time.Minute,
		OwnerHeader:    "X-Planner-Owner",
		DefaultOwner:   "local",
		MaxOccurrences: 0,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PLANNER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "PLANNER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("PLANNER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if intervalValue := strings.TrimSpace(os.Getenv("PLANNER_POLL_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "PLANNER_POLL_INTERVAL")
		} else {
			cfg.PollInterval = interval
		}
	}

	if header := strings.TrimSpace(os.Getenv("PLANNER_OWNER_HEADER")); header != "" {
		cfg.OwnerHeader = header
	}

	if owner := strings.TrimSpace(os.Getenv("PLANNER_DEFAULT_OWNER")); owner != "" {
		cfg.DefaultOwner = owner
	}

	if maxValue := strings.TrimSpace(os.Getenv("PLANNER_MAX_OCCURRENCES")); maxValue != "" {
		max, err := strconv.Atoi(maxValue)
		if err != nil || max < 0 {
			invalid = append(invalid, "PLANNER_MAX_OCCURRENCES")
		} else {
			cfg.MaxOccurrences = max
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
