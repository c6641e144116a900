package models

import "time"

// Alert represents a price alert on an entity.
type Alert struct {
	ID          string
	EntityID    string
	Symbol      string
	Condition   string // above, below, percent_change
	Threshold   float64
	Enabled     bool
	Triggered   bool
	CreatedAt   time.Time
	TriggeredAt *time.Time
}

// Severity represents the severity of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification represents a transient user-visible notice.
// Notifications self-remove after AutoHide elapses.
type Notification struct {
	ID        string
	Severity  Severity
	Title     string
	Message   string
	AutoHide  time.Duration
	CreatedAt time.Time
}
