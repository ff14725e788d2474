package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// FiringRecord is one journal line. Keep it compact and schema-stable.
type FiringRecord struct {
	ID          string    `json:"id"`
	TriggerID   string    `json:"trigger"`
	Group       string    `json:"group"`
	Destination string    `json:"dest"`
	Command     string    `json:"cmd,omitempty"`
	FiredAt     time.Time `json:"fired_at"`
	NextAt      time.Time `json:"next_at,omitempty"`
	OK          bool      `json:"ok"`
	Error       string    `json:"err,omitempty"`
}
