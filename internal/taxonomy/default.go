package taxonomy

import "github.com/Veraticus/kwisatz/internal/model"

// DefaultCategories returns the built-in taxonomy used when no taxonomy file
// is configured.
func DefaultCategories() []model.Category {
	return []model.Category{
		{ID: "GROCERIES", Name: "Groceries", Keywords: []string{"grocery", "supermarket", "food market"}},
		{ID: "RESTAURANTS", Name: "Restaurants", Keywords: []string{"restaurant", "cafe", "dining", "fast food"}},
		{ID: "TRANSPORT", Name: "Transport", Keywords: []string{"taxi", "ride", "bus", "train", "fuel"}},
		{ID: "UTILITIES", Name: "Utilities", Keywords: []string{"electric bill", "water bill", "gas bill", "utilities"}},
		{ID: "RENT", Name: "Rent & Mortgage", Keywords: []string{"rent", "mortgage"}},
		{ID: "INCOME", Name: "Income", Keywords: []string{"salary", "payroll", "bonus"}},
		{ID: "ENTERTAINMENT", Name: "Entertainment", Keywords: []string{"subscription", "movie", "music"}},
		{ID: "HEALTHCARE", Name: "Healthcare", Keywords: []string{"pharmacy", "hospital", "clinic"}},
		{ID: "SHOPPING", Name: "Shopping", Keywords: []string{"online store", "retail", "shopping"}},
		{ID: "SUBSCRIPTIONS", Name: "Subscriptions", Keywords: []string{"monthly plan", "subscription", "membership"}},
	}
}

// Default returns the built-in taxonomy.
func Default() *model.Taxonomy {
	tax, err := model.NewTaxonomy(DefaultCategories())
	if err != nil {
		// The built-in categories are static; failing here is a programming error.
		panic(err)
	}
	return tax
}
