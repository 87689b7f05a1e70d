package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	ActorRole  Role            `json:"actor_role" db:"actor_role"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Result     string          `json:"result" db:"result"`
	Reason     string          `json:"reason,omitempty" db:"reason"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	RequestID  string          `json:"request_id,omitempty" db:"request_id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	AuditResultAccepted = "accepted"
	AuditResultRejected = "rejected"

	// Entity types
	AuditEntityBooking  = "booking"
	AuditEntitySchedule = "schedule"
	AuditEntityWorkDate = "work_date"
)

type AuditFilters struct {
	ActorID    uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Since      time.Time
	Pagination
}
