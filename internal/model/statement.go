package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// StatementLine is a single transaction read from a bank or card statement.
type StatementLine struct {
	Date        time.Time
	ID          string
	Description string // raw transaction description
	Merchant    string // cleaned merchant name, may be empty
	AccountID   string
	Type        string // DEBIT, CHECK, PAYMENT, ATM...
	Amount      float64
}

// Hash creates a stable identifier for duplicate detection.
func (l *StatementLine) Hash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		l.Date.Format("2006-01-02"),
		l.Amount,
		l.Description,
		l.AccountID)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

// ClassifyText returns the text fed to the engine. The raw description is
// preferred; the merchant name fills in when the description is blank.
func (l *StatementLine) ClassifyText() string {
	if l.Description != "" {
		return l.Description
	}
	return l.Merchant
}
