// Package module hosts a schedule: it turns trigger definitions into
// registered jobs, starts the schedule and reports the module state to its
// sinks (log, systemd).
package module
