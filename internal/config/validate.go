package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks settings that would otherwise only fail at wiring time.
// Trigger definitions are not checked here; invalid ones are dropped at
// registration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Transport.Driver)) {
	case "", "bus":
	case "webhook":
		w := cfg.Transport.Webhook
		if w == nil {
			errs = append(errs, errors.New("transport.webhook is required for webhook driver"))
			break
		}
		if u, err := url.Parse(strings.TrimSpace(w.BaseURL)); err != nil || !u.IsAbs() {
			errs = append(errs, fmt.Errorf("transport.webhook.base_url: must be an absolute URL, got %q", w.BaseURL))
		}
		if _, err := ParseDurationField("transport.webhook.timeout", w.Timeout); err != nil {
			errs = append(errs, err)
		}
		if w.RatePerSec < 0 {
			errs = append(errs, errors.New("transport.webhook.rate_per_sec must be >= 0"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport.driver: unknown driver %q", cfg.Transport.Driver))
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, errors.New("storage.path is required"))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
