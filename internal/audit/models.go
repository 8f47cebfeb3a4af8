// Package audit records who did what to whom. Events are published to Kafka
// fire-and-forget; losing one never fails a business operation.
package audit

import (
	"context"
	"time"
)

// Action names an auditable event.
type Action string

const (
	ActionUserRegistered    Action = "user_registered"
	ActionDocumentReviewed  Action = "document_status_changed"
	ActionUserVerified      Action = "user_verified"
	ActionPaymentSucceeded  Action = "payment_succeeded"
	ActionRentalExtended    Action = "rental_extended"
	ActionRegistrationError Action = "registration_commit_failed"
)

// Event is one audit record. TelegramID identifies the subject; ActorID the
// staff member acting on them, when distinct.
type Event struct {
	Action     Action    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	TelegramID int64     `json:"telegram_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	ActorID    int64     `json:"actor_id,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Publisher emits audit events. Implementations must be safe for concurrent use.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// NopPublisher discards events; used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) error { return nil }
