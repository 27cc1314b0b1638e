package models

// Category is a catalog section. System categories ship with the portal and
// cannot be renamed or deleted. Count is derived from the model list and is
// never stored.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	System bool   `json:"system,omitempty"`
	Count  int    `json:"-"`
}

// SystemCategories are seeded into an empty category document.
func SystemCategories() []Category {
	return []Category{
		{ID: "motorcycles", Name: "Motorcycles", System: true},
		{ID: "enduro", Name: "Enduro", System: true},
		{ID: "scooters", Name: "Scooters", System: true},
		{ID: "mopeds", Name: "Mopeds", System: true},
		{ID: "pitbikes", Name: "Pit bikes", System: true},
	}
}
