package models

// Category classifies expenses or incomes. Default categories have no
// family and are shared by everyone; custom ones belong to one family.
type Category struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Icon      string `json:"icon" db:"icon"`
	IsDefault bool   `json:"is_default" db:"is_default"`
	Kind      Kind   `json:"kind" db:"category_type"`
	FamilyID  *int64 `json:"family_id,omitempty" db:"family_id"`
}

// Label returns "icon name", using a bullet when the icon is empty.
func (c *Category) Label() string {
	return CategoryLabel(c.Icon, c.Name)
}

// VisibleTo reports whether transactions of the family may use the category.
func (c *Category) VisibleTo(familyID int64) bool {
	return c.FamilyID == nil || *c.FamilyID == familyID
}

// CategoryLabel joins an icon and a name for display.
func CategoryLabel(icon, name string) string {
	if icon == "" {
		icon = "•"
	}
	return icon + " " + name
}
