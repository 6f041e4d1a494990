package model

import (
	"testing"
)

func TestCategoryVotes_Sort(t *testing.T) {
	votes := CategoryVotes{
		{CategoryID: "B", Weight: 0.5, BestSimilarity: 0.5},
		{CategoryID: "D", Weight: 0.8, BestSimilarity: 0.4},
		{CategoryID: "A", Weight: 0.8, BestSimilarity: 0.4},
		{CategoryID: "C", Weight: 0.8, BestSimilarity: 0.6},
	}

	votes.Sort()

	expected := []string{"C", "A", "D", "B"}
	for i, want := range expected {
		if votes[i].CategoryID != want {
			t.Errorf("Sort() index %d = %s, want %s", i, votes[i].CategoryID, want)
		}
	}
}

func TestCategoryVotes_Top(t *testing.T) {
	tests := []struct {
		want  *CategoryVote
		name  string
		votes CategoryVotes
	}{
		{
			name:  "empty votes",
			votes: CategoryVotes{},
			want:  nil,
		},
		{
			name:  "single vote",
			votes: CategoryVotes{{CategoryID: "A", Weight: 0.5}},
			want:  &CategoryVote{CategoryID: "A", Weight: 0.5},
		},
		{
			name: "multiple votes",
			votes: CategoryVotes{
				{CategoryID: "B", Weight: 0.5},
				{CategoryID: "A", Weight: 0.9},
				{CategoryID: "C", Weight: 0.3},
			},
			want: &CategoryVote{CategoryID: "A", Weight: 0.9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.votes.Top()
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Top() = %v, want nil", got)
			case tt.want != nil && got == nil:
				t.Errorf("Top() = nil, want %v", tt.want)
			case tt.want != nil && got != nil && (got.CategoryID != tt.want.CategoryID || got.Weight != tt.want.Weight):
				t.Errorf("Top() = %v, want %v", got, tt.want)
			}
		})
	}
}
