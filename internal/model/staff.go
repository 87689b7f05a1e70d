package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleFrontDesk Role = "front_desk"
	RoleDoctor    Role = "doctor"
	RoleNurse     Role = "nurse"
	RoleAdmin     Role = "admin"
	// RolePayment is held by the payment collaborator when it confirms a charge.
	RolePayment Role = "payment"
	// RoleSystem is used by background jobs acting on behalf of the clinic.
	RoleSystem Role = "system"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleFrontDesk, RoleDoctor, RoleNurse, RoleAdmin, RolePayment, RoleSystem:
		return true
	}
	return false
}

type Staff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email,omitempty"`
	Role      Role      `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Actor identifies who issues a command. It is built from verified credentials
// and handed to every service call.
type Actor struct {
	StaffID uuid.UUID `json:"staff_id"`
	Role    Role      `json:"role"`
}

func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
