package ofx

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type txn struct {
	fitID, posted, kind, amount, name, memo string
}

func (x txn) sgml() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<STMTTRN>\n<TRNTYPE>%s\n<DTPOSTED>%s120000[0:GMT]\n<TRNAMT>%s\n<FITID>%s\n",
		x.kind, x.posted, x.amount, x.fitID)
	if x.name != "" {
		fmt.Fprintf(&b, "<NAME>%s\n", x.name)
	}
	if x.memo != "" {
		fmt.Fprintf(&b, "<MEMO>%s\n", x.memo)
	}
	b.WriteString("</STMTTRN>\n")
	return b.String()
}

const ofxPreamble = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
`

const okStatus = "<STATUS>\n<CODE>0\n<SEVERITY>INFO\n</STATUS>\n"

func tranList(txns []txn) string {
	var b strings.Builder
	b.WriteString("<BANKTRANLIST>\n<DTSTART>20240101120000[0:GMT]\n<DTEND>20240131120000[0:GMT]\n")
	for _, x := range txns {
		b.WriteString(x.sgml())
	}
	b.WriteString("</BANKTRANLIST>\n<LEDGERBAL>\n<BALAMT>1000.00\n<DTASOF>20240131120000[0:GMT]\n</LEDGERBAL>\n")
	return b.String()
}

// bankOFX renders a checking account statement.
func bankOFX(acct string, txns ...txn) string {
	return ofxPreamble +
		"<BANKMSGSRSV1>\n<STMTTRNRS>\n<TRNUID>1\n" + okStatus +
		"<STMTRS>\n<CURDEF>USD\n<BANKACCTFROM>\n<BANKID>123456789\n<ACCTID>" + acct +
		"\n<ACCTTYPE>CHECKING\n</BANKACCTFROM>\n" + tranList(txns) +
		"</STMTRS>\n</STMTTRNRS>\n</BANKMSGSRSV1>\n</OFX>"
}

// cardOFX renders a credit card statement.
func cardOFX(acct string, txns ...txn) string {
	return ofxPreamble +
		"<CREDITCARDMSGSRSV1>\n<CCSTMTTRNRS>\n<TRNUID>1\n" + okStatus +
		"<CCSTMTRS>\n<CURDEF>USD\n<CCACCTFROM>\n<ACCTID>" + acct +
		"\n</CCACCTFROM>\n" + tranList(txns) +
		"</CCSTMTRS>\n</CCSTMTTRNRS>\n</CREDITCARDMSGSRSV1>\n</OFX>"
}

var (
	sampleBankOFX = bankOFX("1234567890",
		txn{fitID: "B1", posted: "20240115", kind: "DEBIT", amount: "-25.50", name: "STARBUCKS STORE #1234"},
		txn{fitID: "B2", posted: "20240120", kind: "DEBIT", amount: "-84.12", name: "PURCHASE", memo: "WALMART SUPERCENTER 5260"},
		// Same line exported twice under a new FITID.
		txn{fitID: "B2-dup", posted: "20240120", kind: "DEBIT", amount: "-84.12", name: "PURCHASE", memo: "WALMART SUPERCENTER 5260"},
		txn{fitID: "B3", posted: "20240125", kind: "CHECK", amount: "-1850.00", name: "CHECK 1042 RENT"},
	)

	sampleCreditCardOFX = cardOFX("4111111111111111",
		txn{fitID: "C1", posted: "20240110", kind: "DEBIT", amount: "-18.40", name: "UBER *TRIP HELP.UBER.COM"},
		txn{fitID: "C2", posted: "20240115", kind: "DEBIT", amount: "-15.49", name: "NETFLIX.COM"},
	)
)

func TestReadStatement(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 3,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := NewParser().ReadStatement(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.ErrorIs(t, err, common.ErrInvalidStatement)
				return
			}
			require.NoError(t, err)
			assert.Len(t, stmt.Lines, tt.expectedCount)
		})
	}
}

func TestReadStatement_BankLines(t *testing.T) {
	stmt, err := NewParser().ReadStatement(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Lines, 3)
	assert.Equal(t, []string{"1234567890"}, stmt.Accounts)

	line := stmt.Lines[0]
	assert.Equal(t, "B1", line.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", line.Description)
	assert.Equal(t, "STARBUCKS STORE #1234", line.Merchant)
	assert.InDelta(t, -25.50, line.Amount, 1e-9)
	assert.Equal(t, "1234567890", line.AccountID)
	assert.Equal(t, "DEBIT", line.Type)
	assert.Equal(t, time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC), line.Date.UTC())

	assert.Equal(t, "WALMART SUPERCENTER 5260", stmt.Lines[1].Description, "generic name falls back to memo")
	assert.Equal(t, "CHECK", stmt.Lines[2].Type)

	assert.Equal(t, []string{
		"STARBUCKS STORE #1234",
		"WALMART SUPERCENTER 5260",
		"CHECK 1042 RENT",
	}, stmt.Descriptions())
}

func TestReadStatement_CreditCardLines(t *testing.T) {
	stmt, err := NewParser().ReadStatement(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Lines, 2)
	assert.Equal(t, []string{"4111111111111111"}, stmt.Accounts)

	assert.Equal(t, "UBER *TRIP HELP.UBER.COM", stmt.Lines[0].Description)
	assert.InDelta(t, -18.40, stmt.Lines[0].Amount, 1e-9)
	assert.Equal(t, "NETFLIX.COM", stmt.Lines[1].Description)
}

func TestReadStatement_LeadingWhitespace(t *testing.T) {
	stmt, err := NewParser().ReadStatement(context.Background(), strings.NewReader("\n\n  "+sampleBankOFX))
	require.NoError(t, err)
	assert.Len(t, stmt.Lines, 3)
}

func TestPreprocessOFX(t *testing.T) {
	p := NewParser()

	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", p.preprocessOFX("  <SEVERITY>Info</SEVERITY>"))
	assert.Equal(t, "<STMTTRN>\n<NAME>X", p.preprocessOFX("<STMTTRN\n<NAME>X"))
}

func TestReadStatement_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ReadStatement(ctx, strings.NewReader(sampleBankOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertTransaction_GenericNameUsesMemo(t *testing.T) {
	tx := ofxgo.Transaction{
		Name: ofxgo.String("PURCHASE"),
		Memo: ofxgo.String("TRADER JOES #552"),
	}

	line := NewParser().convertTransaction(tx, "acct")
	assert.Equal(t, "TRADER JOES #552", line.Description)
	assert.Equal(t, "TRADER JOES #552", line.Merchant)
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE STARBUCKS",
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			input:    "DEBIT CARD PURCHASE WHOLE FOODS",
			expected: "WHOLE FOODS",
		},
		{
			name:     "strip leading date",
			input:    "01/15 SHELL OIL 5742",
			expected: "SHELL OIL 5742",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  AMAZON.COM  ",
			expected: "AMAZON.COM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
			}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}
