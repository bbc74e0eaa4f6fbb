package core

// Category is one entry of the fixed taxonomy. Categories are keyed by
// transaction type: an EXPENSE transaction can only carry an expense
// category and vice versa.
type Category struct {
	Key  string
	Name string
}

var incomeCategories = []Category{
	{Key: "salary", Name: "Salary"},
	{Key: "freelance", Name: "Freelance"},
	{Key: "investments", Name: "Investments"},
	{Key: "business", Name: "Business"},
	{Key: "rental", Name: "Rental"},
	{Key: "other-income", Name: "Other Income"},
}

var expenseCategories = []Category{
	{Key: "housing", Name: "Housing"},
	{Key: "transportation", Name: "Transportation"},
	{Key: "groceries", Name: "Groceries"},
	{Key: "utilities", Name: "Utilities"},
	{Key: "entertainment", Name: "Entertainment"},
	{Key: "food", Name: "Food"},
	{Key: "shopping", Name: "Shopping"},
	{Key: "healthcare", Name: "Healthcare"},
	{Key: "education", Name: "Education"},
	{Key: "personal", Name: "Personal Care"},
	{Key: "travel", Name: "Travel"},
	{Key: "insurance", Name: "Insurance"},
	{Key: "gifts", Name: "Gifts & Donations"},
	{Key: "bills", Name: "Bills & Fees"},
	{Key: "other-expense", Name: "Other Expenses"},
}

var categoriesByType = map[TransactionType][]Category{
	Income:  incomeCategories,
	Expense: expenseCategories,
}

// CategoriesFor returns the taxonomy entries valid for the given
// transaction type. The returned slice must not be mutated.
func CategoriesFor(t TransactionType) []Category {
	return categoriesByType[t]
}

// ValidCategory reports whether key is a known category for the given
// transaction type.
func ValidCategory(t TransactionType, key string) bool {
	for _, c := range categoriesByType[t] {
		if c.Key == key {
			return true
		}
	}
	return false
}
