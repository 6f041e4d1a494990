package model

import "sort"

// CategoryVote is the similarity-weighted support one category received
// from the nearest neighbors of a query.
type CategoryVote struct {
	CategoryID     string
	Weight         float64 // sum of neighbor similarities
	BestSimilarity float64 // highest single neighbor similarity
	Count          int     // neighbors that voted for the category
}

// CategoryVotes ranks the categories voted for by a query's neighbors.
type CategoryVotes []CategoryVote

// Len implements sort.Interface.
func (v CategoryVotes) Len() int {
	return len(v)
}

// Less implements sort.Interface. Heavier votes come first; equal weights
// fall back to the single nearest neighbor, then to the category id.
func (v CategoryVotes) Less(i, j int) bool {
	if v[i].Weight != v[j].Weight {
		return v[i].Weight > v[j].Weight
	}
	if v[i].BestSimilarity != v[j].BestSimilarity {
		return v[i].BestSimilarity > v[j].BestSimilarity
	}
	return v[i].CategoryID < v[j].CategoryID
}

// Swap implements sort.Interface.
func (v CategoryVotes) Swap(i, j int) {
	v[i], v[j] = v[j], v[i]
}

// Sort sorts the votes, winner first.
func (v CategoryVotes) Sort() {
	sort.Sort(v)
}

// Top sorts the votes in place and returns the winner, or nil if empty.
func (v CategoryVotes) Top() *CategoryVote {
	if len(v) == 0 {
		return nil
	}
	v.Sort()
	return &v[0]
}
