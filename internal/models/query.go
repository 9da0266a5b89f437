package models

// UserIntent is the coarse purpose of a user message.
type UserIntent string

const (
	IntentShopping UserIntent = "shopping"
	IntentGeneral  UserIntent = "general"
	IntentHelp     UserIntent = "help"
	IntentGreeting UserIntent = "greeting"
)

// QueryFilters holds structured constraints extracted from a message.
// Every field is independently optional; nil means unconstrained, not zero.
type QueryFilters struct {
	Category  string   `json:"category,omitempty"`
	Brand     string   `json:"brand,omitempty"`
	MinPrice  *float64 `json:"minPrice,omitempty"`
	MaxPrice  *float64 `json:"maxPrice,omitempty"`
	MinRating *float64 `json:"minRating,omitempty"`
}

// IsEmpty reports whether no constraint was extracted.
func (f QueryFilters) IsEmpty() bool {
	return f.Category == "" && f.Brand == "" &&
		f.MinPrice == nil && f.MaxPrice == nil && f.MinRating == nil
}

// QueryAnalysis is the immutable result of analyzing one message.
type QueryAnalysis struct {
	SearchTerms    []string     `json:"searchTerms"`
	Filters        QueryFilters `json:"filters"`
	Confidence     float64      `json:"confidence"`
	IsProductQuery bool         `json:"isProductQuery"`
	UserIntent     UserIntent   `json:"userIntent"`
	OriginalQuery  string       `json:"originalQuery"`
}

// StructuredCategoryInfo is the best-effort output of the structured
// extraction call. Every field is nullable; callers treat it as a hint.
type StructuredCategoryInfo struct {
	MainCategory   *string  `json:"main_category"`
	Subcategory    *string  `json:"subcategory"`
	SubSubcategory *string  `json:"sub_subcategory"`
	MinPrice       *float64 `json:"min_price"`
	MaxPrice       *float64 `json:"max_price"`
}

// IsEmpty reports whether extraction produced no usable hint.
func (s StructuredCategoryInfo) IsEmpty() bool {
	return s.MainCategory == nil && s.Subcategory == nil &&
		s.SubSubcategory == nil && s.MinPrice == nil && s.MaxPrice == nil
}
