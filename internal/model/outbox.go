package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusRetry     OutboxStatus = "retry"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

const (
	EventAppointmentCreated       = "appointment.created"
	EventAppointmentPaid          = "appointment.paid"
	EventAppointmentStatusChanged = "appointment.status_changed"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"eventType"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregateId"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retryCount"`
	RetryAt      *time.Time      `db:"retry_at" json:"retryAt,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processedAt,omitempty"`
}

// AppointmentEvent is the payload of every appointment.* event.
type AppointmentEvent struct {
	AppointmentID uuid.UUID         `json:"appointmentId"`
	PatientID     uuid.UUID         `json:"patientId"`
	DentistID     uuid.UUID         `json:"dentistId"`
	Status        AppointmentStatus `json:"status"`
	TotalAmount   float64           `json:"totalAmount"`
	SettledAmount float64           `json:"settledAmount,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}
