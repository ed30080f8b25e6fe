// Package lexical scores documents against query tokens with BM25 Okapi.
package lexical

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25

	// minIDF keeps every indexed term strictly positive when the corpus
	// average idf is itself non-positive.
	minIDF = 1e-3
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lowercases text and returns its word runs.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// Match is a positive-scoring document, addressed by its position in the
// corpus passed to Build.
type Match struct {
	Doc   int
	Score float64
}

// Index holds corpus statistics. It is read-only after Build and safe for
// concurrent use.
type Index struct {
	k1, b    float64
	termFreq []map[string]int
	docLen   []int
	avgDL    float64
	idf      map[string]float64
}

type Option func(*Index)

func WithParams(k1, b float64) Option {
	return func(ix *Index) {
		ix.k1 = k1
		ix.b = b
	}
}

func Build(docs []string, opts ...Option) *Index {
	ix := &Index{
		k1:       DefaultK1,
		b:        DefaultB,
		termFreq: make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
		idf:      make(map[string]float64),
	}
	for _, opt := range opts {
		opt(ix)
	}

	docFreq := make(map[string]int)
	total := 0
	for i, doc := range docs {
		tokens := Tokenize(doc)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			docFreq[t]++
		}
		ix.termFreq[i] = tf
		ix.docLen[i] = len(tokens)
		total += len(tokens)
	}
	if len(docs) > 0 {
		ix.avgDL = float64(total) / float64(len(docs))
	}

	// Terms present in half the corpus or more get a non-positive idf;
	// floor them at a fraction of the average idf, never below minIDF.
	n := float64(len(docs))
	var idfSum float64
	var floored []string
	for term, df := range docFreq {
		idf := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		ix.idf[term] = idf
		idfSum += idf
		if idf <= 0 {
			floored = append(floored, term)
		}
	}
	if len(docFreq) > 0 {
		eps := max(DefaultEpsilon*idfSum/float64(len(docFreq)), minIDF)
		for _, term := range floored {
			ix.idf[term] = eps
		}
	}
	return ix
}

func (ix *Index) Len() int {
	return len(ix.docLen)
}

// Scores returns the BM25 score of every document for the query tokens.
func (ix *Index) Scores(tokens []string) []float64 {
	scores := make([]float64, len(ix.docLen))
	if ix.avgDL == 0 {
		return scores
	}
	for _, q := range tokens {
		idf, ok := ix.idf[q]
		if !ok {
			continue
		}
		for i, tf := range ix.termFreq {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			norm := ix.k1 * (1 - ix.b + ix.b*float64(ix.docLen[i])/ix.avgDL)
			scores[i] += idf * f * (ix.k1 + 1) / (f + norm)
		}
	}
	return scores
}

// Search returns up to topK documents with a positive score, best first.
// Ties keep corpus order.
func (ix *Index) Search(query string, topK int) []Match {
	tokens := Tokenize(query)
	if len(tokens) == 0 || topK <= 0 {
		return nil
	}
	scores := ix.Scores(tokens)

	matches := make([]Match, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			matches = append(matches, Match{Doc: i, Score: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
