package services

import (
	"math"

	"github.com/stackpine/ragcell/internal/core/ports/driven"
)

// DefaultLambda balances relevance against diversity in maximal
// marginal relevance selection. 1 is pure relevance, 0 is pure
// diversity.
const DefaultLambda = 0.5

// selectMMR picks up to k candidates by maximal marginal relevance.
// Each round scores every remaining candidate as
//
//	lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// and takes the best one. Ties go to the higher relevance score, then
// to the lower chunk ID. The input order of candidates is not assumed;
// relevance is the similarity already carried by each hit.
func selectMMR(candidates []driven.VectorHit, k int, lambda float64) []driven.VectorHit {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if lambda < 0 {
		lambda = 0
	} else if lambda > 1 {
		lambda = 1
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]driven.VectorHit, 0, k)
	remaining := make([]driven.VectorHit, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		best := -1
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			penalty := 0.0
			for _, sel := range selected {
				if sim := cosine(cand.Embedding, sel.Embedding); sim > penalty {
					penalty = sim
				}
			}
			score := lambda*cand.Similarity - (1-lambda)*penalty
			if best == -1 || score > bestScore ||
				(score == bestScore && better(cand, remaining[best])) {
				best = i
				bestScore = score
			}
		}
		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return selected
}

func better(a, b driven.VectorHit) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	return a.ChunkID < b.ChunkID
}

// cosine returns the cosine similarity of two vectors, 0 when either
// has zero magnitude.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
