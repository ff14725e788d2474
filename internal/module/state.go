package module

import (
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "trigsched/pkg/logx"
)

// State is the externally reported module state.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StateError   State = "ERROR"
	StateStopped State = "STOPPED"
)

// StopReason is used for structured shutdown tracing.
type StopReason string

const (
	StopUnknown      StopReason = "unknown"
	StopSIGINT       StopReason = "sigint"
	StopSIGTERM      StopReason = "sigterm"
	StopFatalError   StopReason = "fatal_error"
	StopAppStop      StopReason = "app_stop"
	StopConfigReload StopReason = "config_reload"
)

// StateSink receives every state change. Implementations must not block.
type StateSink interface {
	SetState(s State, detail string)
}

type StateSinkFunc func(s State, detail string)

func (f StateSinkFunc) SetState(s State, detail string) { f(s, detail) }

// LogSink logs state changes; ERROR is logged at error level.
type LogSink struct{ Log logx.Logger }

func (l LogSink) SetState(s State, detail string) {
	fields := []logx.Field{logx.String("state", string(s)), logx.String("detail", detail)}
	if s == StateError {
		l.Log.Error("module state", fields...)
		return
	}
	l.Log.Info("module state", fields...)
}

// SystemdSink reports state through sd_notify. Outside systemd (no
// NOTIFY_SOCKET) it is a no-op. A stop for config_reload is reported as
// RELOADING=1; the next RUNNING state sends READY=1 again.
type SystemdSink struct {
	log    logx.Logger
	notify func(unsetEnv bool, state string) (bool, error)
}

func NewSystemdSink(log logx.Logger) *SystemdSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &SystemdSink{log: log, notify: daemon.SdNotify}
}

func (s *SystemdSink) SetState(st State, detail string) {
	lines := make([]string, 0, 2)
	switch st {
	case StateRunning:
		lines = append(lines, daemon.SdNotifyReady)
	case StateStopped:
		if detail == string(StopConfigReload) {
			lines = append(lines, daemon.SdNotifyReloading)
		} else {
			lines = append(lines, daemon.SdNotifyStopping)
		}
	}
	status := string(st)
	if detail != "" {
		status = fmt.Sprintf("%s: %s", st, detail)
	}
	lines = append(lines, "STATUS="+status)

	sent, err := s.notify(false, strings.Join(lines, "\n"))
	if err != nil {
		s.log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		s.log.Debug("sd_notify sent", logx.String("state", string(st)))
	}
}
