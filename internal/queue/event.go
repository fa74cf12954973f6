// Package queue defines message payloads exchanged over the message broker.
package queue

// SOSAlertEvent is published when a user raises an SOS. It carries everything
// the consumer needs to notify the chosen contacts without querying the
// primary database for the alert itself.
type SOSAlertEvent struct {
	AlertID  uint64        `json:"alert_id"`
	UserID   uint64        `json:"user_id"`
	UserName string        `json:"user_name"`
	Message  string        `json:"message"`
	Lat      float64       `json:"lat"`
	Lng      float64       `json:"lng"`
	Contacts []AlertTarget `json:"contacts"`
	RaisedAt string        `json:"raised_at"`
}

// AlertTarget is one contact to notify.
type AlertTarget struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
