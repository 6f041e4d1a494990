package keyword

import (
	"testing"

	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTaxonomy(t *testing.T) *model.Taxonomy {
	t.Helper()
	tax, err := model.NewTaxonomy([]model.Category{
		{ID: "GROCERIES", Keywords: []string{"Grocery", "food market", "grocery"}},
		{ID: "RESTAURANTS", Keywords: []string{"cafe", "fast-food"}},
		{ID: "ENTERTAINMENT", Keywords: []string{"subscription", "movie"}},
		{ID: "SUBSCRIPTIONS", Keywords: []string{"subscription", "", "!!"}},
		{ID: "UTILITIES", Keywords: []string{"electric bill"}},
	})
	require.NoError(t, err)
	return tax
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(testTaxonomy(t))
	assert.Equal(t, 8, m.Len(), "duplicate and empty keywords are dropped")

	tests := []struct {
		name  string
		query string
		want  Matches
	}{
		{
			name:  "single keyword",
			query: "Walmart Grocery 42",
			want:  Matches{{Keyword: "grocery", CategoryID: "GROCERIES"}},
		},
		{
			name:  "multi word keyword",
			query: "Aldi Food Market",
			want:  Matches{{Keyword: "food market", CategoryID: "GROCERIES"}},
		},
		{
			name:  "punctuated keyword normalized",
			query: "KFC fast food",
			want:  Matches{{Keyword: "fast food", CategoryID: "RESTAURANTS"}},
		},
		{
			name:  "whole tokens only",
			query: "cafeteria groceryland",
			want:  Matches{},
		},
		{
			name:  "ambiguous evidence preserved",
			query: "grocery cafe",
			want: Matches{
				{Keyword: "grocery", CategoryID: "GROCERIES"},
				{Keyword: "cafe", CategoryID: "RESTAURANTS"},
			},
		},
		{
			name:  "shared keyword yields one match per owner",
			query: "netflix subscription",
			want: Matches{
				{Keyword: "subscription", CategoryID: "ENTERTAINMENT"},
				{Keyword: "subscription", CategoryID: "SUBSCRIPTIONS"},
			},
		},
		{
			name:  "partial multi word keyword does not match",
			query: "electric company",
			want:  Matches{},
		},
		{
			name:  "empty query",
			query: "",
			want:  Matches{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(normalize.Text(tt.query))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_ByKeyword(t *testing.T) {
	m := NewMatcher(testTaxonomy(t))
	matches := m.Match(normalize.Text("movie subscription grocery"))

	assert.Equal(t, map[string]string{
		"grocery":      "GROCERIES",
		"subscription": "ENTERTAINMENT",
		"movie":        "ENTERTAINMENT",
	}, matches.ByKeyword())

	assert.True(t, matches.Supports("SUBSCRIPTIONS"))
	assert.False(t, matches.Supports("UTILITIES"))
	assert.Equal(t, []string{"subscription", "movie"}, matches.KeywordsFor("ENTERTAINMENT"))
	assert.Equal(t, []string{"GROCERIES", "ENTERTAINMENT", "SUBSCRIPTIONS"}, matches.Categories())
}

func TestNewMatcher_NilTaxonomy(t *testing.T) {
	m := NewMatcher(nil)
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Match("anything"))
}
