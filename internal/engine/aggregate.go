package engine

import (
	"math"

	"github.com/Veraticus/kwisatz/internal/keyword"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/normalize"
)

// decision is the aggregator's view of one query before abstention.
type decision struct {
	Winner     *model.CategoryVote
	Votes      model.CategoryVotes // sorted, winner first
	Neighbors  int
	Confidence float64
	Boosted    bool
}

// HasEvidence reports whether at least one neighbor had positive similarity.
func (d decision) HasEvidence() bool {
	return d.Winner != nil
}

func normalizeQuery(description string) string {
	return normalize.Text(description)
}

// tally sums neighbor similarities per category, in order of first
// appearance. Neighbors with zero similarity carry no evidence and cast no vote.
func tally(neighbors []model.Neighbor) model.CategoryVotes {
	positions := make(map[string]int)
	votes := model.CategoryVotes{}
	for _, n := range neighbors {
		if n.Similarity <= 0 {
			continue
		}
		i, ok := positions[n.CategoryID]
		if !ok {
			i = len(votes)
			positions[n.CategoryID] = i
			votes = append(votes, model.CategoryVote{CategoryID: n.CategoryID})
		}
		votes[i].Weight += n.Similarity
		votes[i].Count++
		if n.Similarity > votes[i].BestSimilarity {
			votes[i].BestSimilarity = n.Similarity
		}
	}
	return votes
}

// aggregate turns neighbors and keyword matches into a winner and a
// confidence in [0, 1]. The confidence is the winner's share of the maximum
// attainable vote, raised by boost when a keyword agrees with the winner.
func aggregate(neighbors []model.Neighbor, matches keyword.Matches, boost float64) decision {
	votes := tally(neighbors)
	d := decision{Votes: votes, Neighbors: len(neighbors), Winner: votes.Top()}
	if d.Winner == nil {
		return d
	}

	d.Confidence = clamp01(d.Winner.Weight / float64(len(neighbors)))
	if boost > 0 && matches.Supports(d.Winner.CategoryID) {
		d.Confidence = clamp01(d.Confidence + boost)
		d.Boosted = true
	}
	return d
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
