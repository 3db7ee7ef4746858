package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Role of an acting user
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleFieldOfficer Role = "field_officer"
)

// Location is a warehouse, hub or distribution point
type Location struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Item is an aid item type that can appear in predicted or delivered quantities
type Item struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Actor is a user acting on a shipment. Field officers are assigned to one location.
type Actor struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Role       Role       `json:"role"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
}

// CanConfirmAt reports whether the actor may confirm a delivery at location
func (a *Actor) CanConfirmAt(location uuid.UUID) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return a.LocationID != nil && *a.LocationID == location
}

// Repository provides read access to the reference catalog
type Repository interface {
	GetLocation(ctx context.Context, id uuid.UUID) (*Location, error)
	GetActor(ctx context.Context, id uuid.UUID) (*Actor, error)

	// ListItemKeys returns every catalog item key in lower case
	ListItemKeys(ctx context.Context) ([]string, error)
}
