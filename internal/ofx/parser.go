// Package ofx reads OFX/QFX bank and card statements into statement lines
// that can be classified in bulk.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags missing their closing bracket at end of line.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// merchantPrefixes are processor boilerplate stripped from merchant names.
var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericDescriptions = []string{
	"DEBIT",
	"CREDIT",
	"PURCHASE",
	"PAYMENT",
	"POS TRANSACTION",
	"CARD PURCHASE",
}

// Statement is the content of one OFX file.
type Statement struct {
	Accounts []string
	Lines    []model.StatementLine
}

// Descriptions returns the text of every line, in statement order.
func (s *Statement) Descriptions() []string {
	out := make([]string, len(s.Lines))
	for i := range s.Lines {
		out[i] = s.Lines[i].ClassifyText()
	}
	return out
}

// Parser reads OFX/QFX files.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ReadStatement parses an OFX/QFX document. Lines repeated across statements
// of the same file (same date, amount, description and account) are kept once.
func (p *Parser) ReadStatement(ctx context.Context, reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidStatement, err)
	}

	stmt := &Statement{}
	seen := make(map[string]bool)
	add := func(accountID string, list *ofxgo.TransactionList) {
		if accountID != "" && !slices.Contains(stmt.Accounts, accountID) {
			stmt.Accounts = append(stmt.Accounts, accountID)
		}
		if list == nil {
			return
		}
		for _, tx := range list.Transactions {
			line := p.convertTransaction(tx, accountID)
			hash := line.Hash()
			if seen[hash] {
				continue
			}
			seen[hash] = true
			stmt.Lines = append(stmt.Lines, line)
		}
	}

	var bankStmts, ccStmts int
	for _, msg := range resp.Bank {
		if s, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			add(string(s.BankAcctFrom.AcctID), s.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if s, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			add(string(s.CCAcctFrom.AcctID), s.BankTranList)
		}
	}

	slog.Info("parsed OFX file",
		"lines", len(stmt.Lines),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return stmt, nil
}

// convertTransaction maps an OFX transaction to a statement line. Amounts
// keep the OFX sign: debits are negative.
func (p *Parser) convertTransaction(tx ofxgo.Transaction, accountID string) model.StatementLine {
	amount, _ := tx.TrnAmt.Float64()

	description := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && (description == "" || isGenericDescription(description)) {
		description = strings.TrimSpace(string(tx.Memo))
	}

	return model.StatementLine{
		ID:          string(tx.FiTID),
		Date:        tx.DtPosted.Time,
		Description: description,
		Merchant:    p.extractMerchantName(tx),
		Amount:      amount,
		AccountID:   accountID,
		Type:        tx.TrnType.String(),
	}
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	return slices.Contains(genericDescriptions, strings.ToUpper(strings.TrimSpace(name)))
}
