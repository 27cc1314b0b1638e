package models

// DefaultSpecCategory groups specs that carry no category.
const DefaultSpecCategory = "other"

// Spec is one technical characteristic of a Model ("Power", "15", "hp").
// ID is zero for a row that exists only locally.
type Spec struct {
	ID        int64  `json:"id,omitempty"`
	ModelID   int64  `json:"model_id,omitempty"`
	Name      string `json:"spec_name"`
	Value     string `json:"spec_value"`
	Unit      string `json:"spec_unit,omitempty"`
	Category  string `json:"category"`
	SortOrder int    `json:"sort_order"`
}

// GroupKey is the category used for display, "other" when empty.
func (s Spec) GroupKey() string {
	if s.Category == "" {
		return DefaultSpecCategory
	}
	return s.Category
}

// SpecInput is the create/update payload.
type SpecInput struct {
	Name      string `json:"spec_name"`
	Value     string `json:"spec_value"`
	Unit      string `json:"spec_unit,omitempty"`
	Category  string `json:"category"`
	SortOrder int    `json:"sort_order"`
}

// Input converts s to its create/update payload.
func (s Spec) Input() SpecInput {
	return SpecInput{
		Name:      s.Name,
		Value:     s.Value,
		Unit:      s.Unit,
		Category:  s.GroupKey(),
		SortOrder: s.SortOrder,
	}
}

// SpecRow is one imported spreadsheet row. Order is the row's position in
// the source sheet.
type SpecRow struct {
	Name     string
	Value    string
	Unit     string
	Category string
	Order    int
}

// Spec converts the row into an unsaved Spec.
func (r SpecRow) Spec() Spec {
	cat := r.Category
	if cat == "" {
		cat = DefaultSpecCategory
	}
	return Spec{
		Name:      r.Name,
		Value:     r.Value,
		Unit:      r.Unit,
		Category:  cat,
		SortOrder: r.Order,
	}
}
