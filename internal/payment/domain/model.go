package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment is the single gateway payment attempt behind an order.
type Payment struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID          snowflake.ID `json:"order_id" gorm:"not null;uniqueIndex:ux_payments_order"`
	Provider         string       `json:"provider" gorm:"type:text;not null"`
	GatewayOrderID   string       `json:"gateway_order_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_gateway_order"`
	GatewayPaymentID *string      `json:"gateway_payment_id,omitempty" gorm:"type:text"`
	GatewaySignature *string      `json:"-" gorm:"type:text"`
	AmountMinor      int64        `json:"amount_minor" gorm:"not null"`
	Currency         string       `json:"currency" gorm:"type:text;not null"`
	Status           Status       `json:"status" gorm:"type:text;not null"`
	FailureReason    *string      `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
	PaidAt           *time.Time   `json:"paid_at,omitempty"`
}

func (Payment) TableName() string { return "payments" }

// EventRecord is a received gateway webhook, kept for de-duplication.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:varchar(191);not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypePaymentCaptured = "payment_captured"
	EventTypePaymentFailed   = "payment_failed"
)

// PaymentEvent is the canonical webhook event produced by adapters.
type PaymentEvent struct {
	Provider         string
	ProviderEventID  string
	Type             string
	GatewayOrderID   string
	GatewayPaymentID string
	AmountMinor      int64
	Currency         string
	FailureReason    string
	OccurredAt       time.Time
	RawPayload       []byte
}

// Failure reasons stored on FAILED payments.
const (
	ReasonSignatureInvalid    = "signature_invalid"
	ReasonNotCaptured         = "payment_not_captured"
	ReasonAmountMismatch      = "amount_mismatch"
	ReasonOrderMismatch       = "order_mismatch"
	ReasonGatewayRejected     = "gateway_verification_failed"
	ReasonProductUnavailable  = "product_unavailable"
	ReasonAlreadyOwned        = "already_owned"
	ReasonGatewayReportFailed = "gateway_reported_failure"
)
