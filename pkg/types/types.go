package types

import (
	"fmt"
	"time"
)

// Category is one of the seven fixed activity codes
type Category int

const (
	CategoryPhone        Category = 1
	CategoryWorking      Category = 2
	CategoryPhoneAndWork Category = 3
	CategorySleeping     Category = 4
	CategoryEating       Category = 5
	CategoryDrinking     Category = 6
	CategoryOther        Category = 7
)

// CategoryCount is the size of the fixed enumeration
const CategoryCount = 7

// Valid reports whether c is one of the seven codes
func (c Category) Valid() bool {
	return c >= CategoryPhone && c <= CategoryOther
}

// AllCategories returns the codes in ascending order
func AllCategories() []Category {
	return []Category{
		CategoryPhone, CategoryWorking, CategoryPhoneAndWork,
		CategorySleeping, CategoryEating, CategoryDrinking, CategoryOther,
	}
}

// DefaultCategoryNames are the display labels in code order
var DefaultCategoryNames = []string{
	"Phone Usage",
	"Working",
	"Phone + Work",
	"Sleeping",
	"Eating",
	"Drinking",
	"Other",
}

// CategoryTable maps category codes to display labels
type CategoryTable struct {
	names [CategoryCount]string
}

// NewCategoryTable builds a table from seven labels given in code order
func NewCategoryTable(names []string) (CategoryTable, error) {
	var t CategoryTable
	if len(names) != CategoryCount {
		return t, fmt.Errorf("expected %d category names, got %d", CategoryCount, len(names))
	}
	for i, n := range names {
		if n == "" {
			return t, fmt.Errorf("category %d has an empty name", i+1)
		}
		t.names[i] = n
	}
	return t, nil
}

// DefaultCategoryTable returns the table built from DefaultCategoryNames
func DefaultCategoryTable() CategoryTable {
	t, _ := NewCategoryTable(DefaultCategoryNames)
	return t
}

// Name returns the label for c, or "Unknown" when c is out of range
func (t CategoryTable) Name(c Category) string {
	if !c.Valid() {
		return "Unknown"
	}
	return t.names[c-1]
}

// Map returns the table keyed by code, as served to dashboard clients
func (t CategoryTable) Map() map[Category]string {
	out := make(map[Category]string, CategoryCount)
	for _, c := range AllCategories() {
		out[c] = t.names[c-1]
	}
	return out
}

// DefaultConfidence is used when the model does not report one
const DefaultConfidence = 0.5

// Result is the outcome of classifying one captured frame
type Result struct {
	Category    Category  `json:"category"`
	Activity    string    `json:"activity"`
	Description string    `json:"description"`
	RawResponse string    `json:"ai_raw_response"`
	Confidence  float64   `json:"confidence"`
	Method      string    `json:"method"`
	Rule        string    `json:"rule,omitempty"`
	Cached      bool      `json:"cached"`
	Timestamp   time.Time `json:"timestamp"`
}

// GenerationOptions holds the sampling parameters sent with every inference call
type GenerationOptions struct {
	Temperature   float64
	NumPredict    int
	TopP          float64
	TopK          int
	RepeatPenalty float64
	Stop          []string
}
