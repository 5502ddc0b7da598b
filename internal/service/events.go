package service

import "time"

// StatusEvent announces a report status change.
type StatusEvent struct {
	ReportID string    `json:"report_id"`
	Name     string    `json:"name"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Actor    string    `json:"actor"`
	At       time.Time `json:"at"`
}

// Notifier receives status events. Implementations must not block.
type Notifier interface {
	NotifyStatus(event StatusEvent)
}

type noopNotifier struct{}

func (noopNotifier) NotifyStatus(StatusEvent) {}
