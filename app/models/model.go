package models

import "time"

// Model is a catalog entry: one motorcycle, scooter or pit bike the dealer
// sells. ID is zero until the backend has stored it.
type Model struct {
	ID              int64      `json:"id,omitempty"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	FullDescription string     `json:"full_description"`
	Features        []string   `json:"features"`
	SalesScript     string     `json:"sales_script,omitempty"`
	IsActive        bool       `json:"is_active"`
	SortOrder       int        `json:"sort_order"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`

	Photos []Photo `json:"photos,omitempty"`
	Specs  []Spec  `json:"specs,omitempty"`
}

// Persisted reports whether the backend has assigned an id.
func (m Model) Persisted() bool { return m.ID != 0 }

// ModelInput is the create/update payload. The backend owns ids, timestamps
// and the attachment lists.
type ModelInput struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	FullDescription string   `json:"full_description"`
	Features        []string `json:"features"`
	SalesScript     string   `json:"sales_script,omitempty"`
	IsActive        bool     `json:"is_active"`
	SortOrder       int      `json:"sort_order"`
}
