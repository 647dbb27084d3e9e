package pricing

const (
	ProblemMissingInvoiceID = "Missing invoice_id"
	ProblemNoItems          = "Invoice must contain items"
)

// Validate returns the structural problems of inv in check order. An empty
// result means the invoice can be priced.
func Validate(inv Invoice) []string {
	var problems []string
	if inv.ID == "" {
		problems = append(problems, ProblemMissingInvoiceID)
	}
	if len(inv.Items) == 0 {
		problems = append(problems, ProblemNoItems)
	}
	return problems
}
