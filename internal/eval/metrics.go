// Package eval measures retrieval quality against hand-labelled questions.
package eval

import "math"

// PrecisionAtK is the share of retrieved pages that are relevant.
func PrecisionAtK(retrieved, relevant []int) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(retrieved))
}

// RecallAtK is the share of relevant pages that were retrieved.
func RecallAtK(retrieved, relevant []int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(relevant))
}

// ReciprocalRank is 1/rank of the first relevant page, or 0.
func ReciprocalRank(retrieved, relevant []int) float64 {
	set := toSet(relevant)
	for i, p := range retrieved {
		if set[p] {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// NDCG compares the discounted gain of a ranking with the ideal ordering.
func NDCG(gains, ideal []float64) float64 {
	idcg := dcg(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg(gains) / idcg
}

// BinaryNDCG scores a page ranking where every relevant page has gain 1.
func BinaryNDCG(retrieved, relevant []int) float64 {
	set := toSet(relevant)
	gains := make([]float64, len(retrieved))
	for i, p := range retrieved {
		if set[p] {
			gains[i] = 1
		}
	}
	ideal := make([]float64, min(len(set), len(retrieved)))
	for i := range ideal {
		ideal[i] = 1
	}
	return NDCG(gains, ideal)
}

func dcg(gains []float64) float64 {
	var sum float64
	for i, g := range gains {
		sum += g / math.Log2(float64(i+2))
	}
	return sum
}

func hits(retrieved, relevant []int) int {
	set := toSet(relevant)
	n := 0
	for _, p := range retrieved {
		if set[p] {
			n++
		}
	}
	return n
}

func toSet(pages []int) map[int]bool {
	set := make(map[int]bool, len(pages))
	for _, p := range pages {
		set[p] = true
	}
	return set
}
