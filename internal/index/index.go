// Package index ranks corpus examples by lexical similarity to a query.
//
// Similarity is the Ochiai coefficient over unique tokens,
// |A∩B| / sqrt(|A|·|B|): identical token sets score 1, disjoint sets score 0
// and the score grows with every shared token.
package index

import (
	"math"
	"sort"

	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/normalize"
)

// DefaultK is the neighbor count used when none is configured.
const DefaultK = 5

// Hit is one ranked search result.
type Hit struct {
	Position   int // insertion position in the corpus
	Similarity float64
}

// Index is an inverted token index over a corpus. It is read-only after
// construction and safe for concurrent use.
type Index struct {
	corpus   *corpus.Corpus
	postings map[string][]int
	sizes    []int
}

// New builds an index over c.
func New(c *corpus.Corpus) *Index {
	n := c.Len()
	idx := &Index{
		corpus:   c,
		postings: make(map[string][]int),
		sizes:    make([]int, n),
	}

	for i := 0; i < n; i++ {
		tokens := normalize.UniqueTokens(c.At(i).NormalizedText)
		idx.sizes[i] = len(tokens)
		for _, tok := range tokens {
			idx.postings[tok] = append(idx.postings[tok], i)
		}
	}

	return idx
}

// Corpus returns the indexed corpus.
func (idx *Index) Corpus() *corpus.Corpus {
	return idx.corpus
}

// Len returns the number of indexed examples.
func (idx *Index) Len() int {
	return len(idx.sizes)
}

// Vocabulary returns the number of distinct indexed tokens.
func (idx *Index) Vocabulary() int {
	return len(idx.postings)
}

// Search returns the min(k, Len()) examples most similar to the normalized
// query, most similar first. Equal scores keep corpus insertion order, and
// examples sharing no token with the query fill the remaining slots in
// insertion order.
func (idx *Index) Search(normalizedQuery string, k int) []Hit {
	n := idx.Len()
	if k <= 0 || n == 0 {
		return []Hit{}
	}
	if k > n {
		k = n
	}

	queryTokens := normalize.UniqueTokens(normalizedQuery)
	overlap := make(map[int]int)
	for _, tok := range queryTokens {
		for _, pos := range idx.postings[tok] {
			overlap[pos]++
		}
	}

	candidates := make([]Hit, 0, len(overlap))
	for pos, shared := range overlap {
		candidates = append(candidates, Hit{
			Position:   pos,
			Similarity: ochiai(shared, len(queryTokens), idx.sizes[pos]),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Position < candidates[j].Position
	})

	if len(candidates) >= k {
		return candidates[:k]
	}

	hits := candidates
	for pos := 0; pos < n && len(hits) < k; pos++ {
		if _, scored := overlap[pos]; scored {
			continue
		}
		hits = append(hits, Hit{Position: pos})
	}
	return hits
}

// Similarity scores two normalized strings directly.
func Similarity(a, b string) float64 {
	ta := normalize.UniqueTokens(a)
	tb := normalize.UniqueTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(ta))
	for _, tok := range ta {
		set[tok] = struct{}{}
	}
	shared := 0
	for _, tok := range tb {
		if _, ok := set[tok]; ok {
			shared++
		}
	}
	return ochiai(shared, len(ta), len(tb))
}

func ochiai(shared, sizeA, sizeB int) float64 {
	if shared == 0 || sizeA == 0 || sizeB == 0 {
		return 0
	}
	if shared == sizeA && shared == sizeB {
		return 1
	}
	s := float64(shared) / math.Sqrt(float64(sizeA)*float64(sizeB))
	if s > 1 {
		return 1
	}
	return s
}
