// internal/domain/carousel/dto.go
package carousel

import (
	"fmt"
	"strings"
)

// ItemInput is the body of create and update requests.
type ItemInput struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	ButtonText string `json:"buttonText"`
	ButtonLink string `json:"buttonLink"`
	ImageURL   string `json:"imageUrl"`
	Template   string `json:"template"`
	IsActive   *bool  `json:"isActive"`
}

// ReorderRequest lists every item id in the desired order.
type ReorderRequest struct {
	ItemIDs []int64 `json:"itemIds" binding:"required,min=1"`
}

// Normalize trims fields and applies the default template.
func (in *ItemInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	in.ButtonText = strings.TrimSpace(in.ButtonText)
	in.ButtonLink = strings.TrimSpace(in.ButtonLink)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Template = strings.TrimSpace(in.Template)
	if in.Template == "" {
		in.Template = TemplateFullImage
	}
}

// Validate checks the input. A title is required for every template that
// renders text over the image.
func (in *ItemInput) Validate() error {
	if in.ImageURL == "" {
		return fmt.Errorf("image is required")
	}
	if !ValidTemplate(in.Template) {
		return fmt.Errorf("unknown template %q", in.Template)
	}
	if in.Template != TemplateFullImage && in.Title == "" {
		return fmt.Errorf("title is required for template %q", in.Template)
	}
	return nil
}

// ToItem builds the item sent to the backend.
func (in *ItemInput) ToItem() Item {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return Item{
		Title:      in.Title,
		Subtitle:   in.Subtitle,
		ButtonText: in.ButtonText,
		ButtonLink: in.ButtonLink,
		ImageURL:   in.ImageURL,
		Template:   in.Template,
		IsActive:   active,
	}
}

// BuildReorder produces the reorder payload for items in their new order.
// The first item becomes the primary banner.
func BuildReorder(items []Item) []ReorderEntry {
	entries := make([]ReorderEntry, len(items))
	for i, it := range items {
		entries[i] = ReorderEntry{ImageID: it.ID, DisplayOrder: i, IsPrimary: i == 0}
	}
	return entries
}
