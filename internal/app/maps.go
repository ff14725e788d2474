package app

import (
	"fmt"
	"strings"
	"time"

	"trigsched/internal/config"
	"trigsched/internal/eventbus"
	"trigsched/internal/storage"
	"trigsched/internal/transport"
	"trigsched/internal/transport/bus"
	"trigsched/internal/transport/webhook"
	logx "trigsched/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// mapLocation resolves scheduler.timezone; empty means time.Local.
func mapLocation(cfg *config.Config) (*time.Location, error) {
	tz := strings.TrimSpace(cfg.Scheduler.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}

// newNode builds the publish capability selected by transport.driver.
func newNode(cfg *config.Config, b eventbus.Bus) (transport.Node, string, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Transport.Driver))
	switch driver {
	case "", "bus":
		return bus.New(b), "bus", nil
	case "webhook":
		w := cfg.Transport.Webhook
		if w == nil {
			return nil, driver, fmt.Errorf("transport.webhook is required for webhook driver")
		}
		timeout, err := config.ParseDurationOrDefault("transport.webhook.timeout", w.Timeout, 10*time.Second)
		if err != nil {
			return nil, driver, err
		}
		n, err := webhook.New(webhook.Config{
			BaseURL:    w.BaseURL,
			Timeout:    timeout,
			RatePerSec: w.RatePerSec,
			Headers:    w.Headers,
		}, nil)
		return n, driver, err
	default:
		return nil, driver, fmt.Errorf("unknown transport.driver: %s", cfg.Transport.Driver)
	}
}
