package config

import (
	"reflect"
	"sort"
	"strings"

	logx "trigsched/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (header values are never included).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Scheduler.Group != newCfg.Scheduler.Group ||
		strings.TrimSpace(oldCfg.Scheduler.Timezone) != strings.TrimSpace(newCfg.Scheduler.Timezone) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.group", newCfg.Scheduler.Group),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Transport, newCfg.Transport) {
		changed = append(changed, "transport")
		attrs = append(attrs, logx.String("transport.driver", driverOr(newCfg.Transport.Driver, "bus")))
		if w := newCfg.Transport.Webhook; w != nil {
			attrs = append(attrs,
				logx.String("transport.webhook.base_url", strings.TrimSpace(w.BaseURL)),
				logx.String("transport.webhook.headers", strings.Join(headerNames(w.Headers), ",")),
			)
		}
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		d := "none"
		if newCfg.Storage != nil {
			d = driverOr(newCfg.Storage.Driver, "none")
		}
		attrs = append(attrs, logx.String("storage.driver", d))
	}

	if !reflect.DeepEqual(oldCfg.Triggers, newCfg.Triggers) {
		changed = append(changed, "triggers")
		attrs = append(attrs,
			logx.Int("triggers.interval", len(newCfg.Triggers.IntervalTriggers)),
			logx.Int("triggers.range", len(newCfg.Triggers.RangeTriggers)),
		)
	}

	return changed, attrs
}

func driverOr(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

func headerNames(h map[string]string) []string {
	out := make([]string, 0, len(h))
	for k := range h {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
