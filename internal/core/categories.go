package core

import "slices"

// Suggested categories offered to users. Records may carry any category.
var (
	DefaultExpenseCategories = []string{
		"Food", "Transport", "Entertainment", "Bills", "Shopping", "Healthcare", "Other",
	}
	DefaultTransactionCategories = append(slices.Clone(DefaultExpenseCategories),
		"Salary", "Freelance", "Investment",
	)
)

// AllCategories is the filter value that matches every category.
const AllCategories = "All"
