package models

import "time"

// Статусы исходящих EDI-сообщений.
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

const (
	MessagePriorityNormal = "normal"
	MessagePriorityHigh   = "high"
	MessagePriorityUrgent = "urgent"
)

// Transaction kinds (EDI-style).
const (
	TransactionStatusUpdate = "status_update"
	TransactionLoadTender   = "load_tender"
	TransactionInvoice      = "invoice"
)

// MaxRetryCount caps redelivery attempts. A failed message at the cap is terminal.
const MaxRetryCount = 3

type OutboundMessage struct {
	ID              uint64    `json:"id"`
	TransactionKind string    `json:"transactionKind"`
	PartnerID       uint64    `json:"partnerId"`
	Status          string    `json:"status"`
	RetryCount      int32     `json:"retryCount"`
	Priority        string    `json:"priority"`
	NextAttemptAt   time.Time `json:"nextAttemptAt"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type MessageCreateInput struct {
	TransactionKind string `json:"transactionKind"`
	PartnerID       uint64 `json:"partnerId"`
	Priority        string `json:"priority,omitempty"`
}
