// Package semantic ranks stored embeddings by cosine similarity to a query
// vector.
package semantic

import (
	"math"
	"sort"
)

type Match struct {
	Doc   int
	Score float64
}

// Index holds unit-normalized copies of the document vectors. A nil entry
// marks a document without an embedding.
type Index struct {
	vectors [][]float32
	dims    int
}

func Build(vectors [][]float32) *Index {
	ix := &Index{vectors: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if ix.dims == 0 {
			ix.dims = len(v)
		}
		if len(v) != ix.dims {
			continue
		}
		ix.vectors[i] = normalize(v)
	}
	return ix
}

func (ix *Index) Dimensions() int {
	return ix.dims
}

// Empty reports whether no document carries an embedding.
func (ix *Index) Empty() bool {
	return ix.dims == 0
}

// Search returns the topK most similar documents, best first. Ties keep
// corpus order. A query of the wrong dimension matches nothing.
func (ix *Index) Search(query []float32, topK int) []Match {
	if ix.Empty() || len(query) != ix.dims || topK <= 0 {
		return nil
	}
	q := normalize(query)

	matches := make([]Match, 0, len(ix.vectors))
	for i, v := range ix.vectors {
		if v == nil {
			continue
		}
		matches = append(matches, Match{Doc: i, Score: dot(q, v)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// zero or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return dot(normalize(a), normalize(b))
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
