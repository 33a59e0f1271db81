package inference

import "fmt"

// ProductDraft is the structured product record produced by the engine.
// Price is kept as a string to avoid float rounding on money values.
type ProductDraft struct {
	Name         string   `json:"name"`
	Price        string   `json:"price"`
	Currency     string   `json:"currency"`
	Tags         []string `json:"tags"`
	ShoppingLink string   `json:"shoppingLink"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}

// SearchContext carries corroborating web-search output into a text inference
// call.
type SearchContext struct {
	Title    string
	Snippet  string
	Link     string
	ImageURL string
}

// FormatError marks a model response that could not be parsed as the expected
// JSON object. Raw holds the unparsed model text for the audit log; it must
// never reach a user-visible field.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("model returned unparseable output (%d bytes)", len(e.Raw))
}
