// Package normalize canonicalizes transaction descriptions into the form used
// for every comparison in the engine.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// abbreviations are expanded token-wise. No expansion may itself be a key,
// otherwise Text would not be idempotent.
var abbreviations = map[string]string{
	"st":   "street",
	"rd":   "road",
	"ave":  "avenue",
	"dept": "department",
	"pmt":  "payment",
	"pymt": "payment",
	"intl": "international",
	"svc":  "service",
	"mkt":  "market",
}

// Text returns the normalized form of s: accents stripped, lower-cased,
// punctuation replaced by single spaces (digits kept), apostrophes dropped and
// common abbreviations expanded. It never fails; empty input yields "".
func Text(s string) string {
	if s == "" {
		return ""
	}
	// Invalid bytes would stop mark folding part way through the string.
	s = strings.ToValidUTF8(s, " ")

	folded := foldMarks(s)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case r == '\'' || r == '’' || r == '`':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSpace = true
		}
	}

	tokens := strings.Fields(b.String())
	for i, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}

// Tokens splits already-normalized text into tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// UniqueTokens returns the distinct tokens of normalized text in first-seen order.
func UniqueTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func foldMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
