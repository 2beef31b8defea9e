package assets

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an asset.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusInUse       Status = "In Use"
	StatusNeedsRepair Status = "Needs Repair"
	StatusUnknown     Status = "Unknown"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusNeedsRepair, StatusUnknown:
		return true
	}
	return false
}

// ParseStatus converts the stored form of a status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("assets: unknown status %q", raw)
	}
	return s, nil
}

// Asset is a tracked piece of airport equipment.
type Asset struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	Location    *string   `json:"location"`
	Type        *string   `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput is the payload for a new asset.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Status      Status  `json:"status" validate:"omitempty,oneof='Available' 'In Use' 'Needs Repair' 'Unknown'"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	Type        *string `json:"type" validate:"omitempty,max=100"`
}

// UpdateInput carries only the fields being changed.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Status      *Status `json:"status" validate:"omitempty,oneof='Available' 'In Use' 'Needs Repair' 'Unknown'"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	Type        *string `json:"type" validate:"omitempty,max=100"`
}

// Empty reports whether no field is set.
func (u UpdateInput) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Status == nil && u.Location == nil && u.Type == nil
}

// Page selects a slice of the asset list.
type Page struct {
	Skip  int
	Limit int
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

// Normalize clamps p to valid bounds.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
