// Package audit keeps the append-only access trail for sensitive resources.
// Entries are written by the medical-record and identity services on every
// read and write; the application never mutates or deletes them.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/urbancare/urbancare/internal/platform/auth"
)

// Action classifies what the actor did.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
)

// Outcome records whether the access was allowed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
)

// Entry is one audit log row.
type Entry struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ActorID      uuid.UUID `db:"actor_id" json:"actor_id"`
	ActorRole    auth.Role `db:"actor_role" json:"actor_role"`
	Action       Action    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   string    `db:"resource_id" json:"resource_id"`
	Outcome      Outcome   `db:"outcome" json:"outcome"`
	IPAddress    string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string    `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Filter narrows audit queries.
type Filter struct {
	ActorID      *uuid.UUID
	ResourceType string
	ResourceID   string
	Action       Action
	From         *time.Time
	To           *time.Time
}
