// internal/domain/carousel/entity.go
package carousel

import "time"

// Banner templates.
const (
	TemplateFullImage = "full-image"
	TemplateTextLeft  = "text-left"
	TemplateTextRight = "text-right"
	TemplateCentered  = "centered"
)

var validTemplates = map[string]struct{}{
	TemplateFullImage: {},
	TemplateTextLeft:  {},
	TemplateTextRight: {},
	TemplateCentered:  {},
}

// ValidTemplate reports whether t is a known banner template.
func ValidTemplate(t string) bool {
	_, ok := validTemplates[t]
	return ok
}

// Item is a storefront carousel banner.
type Item struct {
	ID           int64      `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Subtitle     string     `json:"subtitle,omitempty" db:"subtitle"`
	ButtonText   string     `json:"buttonText,omitempty" db:"button_text"`
	ButtonLink   string     `json:"buttonLink,omitempty" db:"button_link"`
	ImageURL     string     `json:"imageUrl" db:"image_url"`
	Template     string     `json:"template" db:"template"`
	DisplayOrder int        `json:"displayOrder" db:"display_order"`
	IsPrimary    bool       `json:"isPrimary" db:"is_primary"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	CreatedAt    *time.Time `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// ReorderEntry is one element of the reorder payload.
type ReorderEntry struct {
	ImageID      int64 `json:"imageId"`
	DisplayOrder int   `json:"displayOrder"`
	IsPrimary    bool  `json:"isPrimary"`
}
