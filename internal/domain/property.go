package domain

import "time"

// Unit status constants
const (
	UnitStatusVacant   = "vacant"
	UnitStatusOccupied = "occupied"
)

// Tenant status constants
const (
	TenantStatusProspect = "prospect"
	TenantStatusActive   = "active"
	TenantStatusFormer   = "former"
)

// Unit is the rental unit a lease is attached to. Unit CRUD lives outside
// this service; only the occupancy fields the completion cascade touches are
// modeled here.
type Unit struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tenant is a renter identity. Tenant CRUD lives outside this service; the
// cascade sets status, current unit and move-in date when a lease activates.
type Tenant struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	CurrentUnitID *string    `json:"current_unit_id,omitempty"`
	MoveInDate    *time.Time `json:"move_in_date,omitempty"`
	UserID        *string    `json:"user_id,omitempty"` // linked portal account
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
