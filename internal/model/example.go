package model

// Example is a labeled corpus entry. Examples are created at corpus load
// and never mutated afterwards.
type Example struct {
	Amount         *float64
	RawText        string
	NormalizedText string
	CategoryID     string
	Merchant       string
}

// HasAmount reports whether the source row carried a parseable amount.
func (e Example) HasAmount() bool {
	return e.Amount != nil
}
