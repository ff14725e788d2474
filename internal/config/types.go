package config

import (
	"trigsched/internal/trigger"
)

// Config is the on-disk configuration (JSON, or YAML coerced to JSON).
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Transport TransportConfig `json:"transport"`
	Storage   *StorageConfig  `json:"storage,omitempty"`

	// Triggers uses the camelCase keys of the trigger definition format.
	Triggers trigger.Definitions `json:"triggers"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls how triggers are registered.
type SchedulerConfig struct {
	// Group every trigger is registered under. Empty is a valid group.
	Group string `json:"group"`
	// Timezone used to place range triggers on the wall clock (IANA name).
	// Empty means the process local zone.
	Timezone string `json:"timezone,omitempty"`
}

// TransportConfig selects the publish capability.
//
// Driver values:
//   - "bus" (default): in-process event bus
//   - "webhook": HTTP POST per firing
type TransportConfig struct {
	Driver  string         `json:"driver,omitempty"`
	Webhook *WebhookConfig `json:"webhook,omitempty"`
}

// WebhookConfig is used when transport.driver is "webhook".
//
// Example:
//
//	"webhook": { "base_url": "http://127.0.0.1:8080/hooks", "timeout": "5s", "rate_per_sec": 10 }
type WebhookConfig struct {
	BaseURL    string            `json:"base_url"`
	Timeout    string            `json:"timeout,omitempty"` // Go duration string
	RatePerSec float64           `json:"rate_per_sec,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// StorageConfig controls the optional firing journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./trigsched_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
