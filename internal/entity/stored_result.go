package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StoredResult represents a persisted structuring run for data transfer between layers.
type StoredResult struct {
	ID              uuid.UUID       `json:"id"`
	Filename        string          `json:"filename"`
	LayoutSignature string          `json:"layout_signature"`
	VendorGuess     *string         `json:"vendor_guess,omitempty"`
	TotalsStatus    *string         `json:"totals_status,omitempty"`
	Status          string          `json:"status"`
	ResultJSON      json.RawMessage `json:"result_json"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Correction represents a reviewer's edit of a stored result.
type Correction struct {
	ID            uuid.UUID       `json:"id"`
	ResultID      uuid.UUID       `json:"result_id"`
	Corrected     json.RawMessage `json:"corrected_json"`
	ChangedFields []string        `json:"changed_fields"`
	CreatedAt     time.Time       `json:"created_at"`
}
