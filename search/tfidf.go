package search

import (
	"math"
	"sync"
)

// TFIDFIndex ranks documents by cosine similarity of TF-IDF vectors.
// It is safe for concurrent use; searches serialize with writes.
type TFIDFIndex struct {
	mu    sync.RWMutex
	docs  map[string]map[string]float64 // id -> term -> raw term frequency
	lens  map[string]int
	df    map[string]int
	dirty bool
	norms map[string]float64
}

// NewTFIDFIndex returns an empty index.
func NewTFIDFIndex() *TFIDFIndex {
	return &TFIDFIndex{
		docs:  make(map[string]map[string]float64),
		lens:  make(map[string]int),
		df:    make(map[string]int),
		norms: make(map[string]float64),
	}
}

// Add indexes text under id, replacing any previous text for that id.
func (x *TFIDFIndex) Add(id, text string) {
	terms := Tokenize(text)
	tf := make(map[string]float64, len(terms))
	for _, t := range terms {
		tf[t]++
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(id)
	x.docs[id] = tf
	x.lens[id] = len(terms)
	for t := range tf {
		x.df[t]++
	}
	x.dirty = true
}

// Remove drops id from the index.
func (x *TFIDFIndex) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(id)
}

func (x *TFIDFIndex) removeLocked(id string) {
	old, ok := x.docs[id]
	if !ok {
		return
	}
	for t := range old {
		if x.df[t]--; x.df[t] <= 0 {
			delete(x.df, t)
		}
	}
	delete(x.docs, id)
	delete(x.lens, id)
	delete(x.norms, id)
	x.dirty = true
}

// Len returns the number of indexed documents.
func (x *TFIDFIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// idf uses the smoothed form log((1+N)/(1+df)) + 1, so terms present in
// every document still carry a little weight.
func (x *TFIDFIndex) idf(term string) float64 {
	n := float64(len(x.docs))
	return math.Log((1+n)/(1+float64(x.df[term]))) + 1
}

func (x *TFIDFIndex) weight(id, term string, freq float64) float64 {
	return freq / float64(x.lens[id]) * x.idf(term)
}

// refreshNorms recomputes document vector norms after the corpus changed.
// Caller holds the write lock.
func (x *TFIDFIndex) refreshNorms() {
	for id, tf := range x.docs {
		var sum float64
		for t, f := range tf {
			w := x.weight(id, t, f)
			sum += w * w
		}
		x.norms[id] = math.Sqrt(sum)
	}
	x.dirty = false
}

// Search returns up to k documents with a positive score for query.
// k <= 0 returns every match.
func (x *TFIDFIndex) Search(query string, k int) []Result {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	// Norms are refreshed lazily, so searching takes the write lock.
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dirty {
		x.refreshNorms()
	}

	qtf := make(map[string]float64, len(terms))
	for _, t := range terms {
		qtf[t]++
	}
	qw := make(map[string]float64, len(qtf))
	var qnorm float64
	for t, f := range qtf {
		if x.df[t] == 0 {
			continue
		}
		w := f / float64(len(terms)) * x.idf(t)
		qw[t] = w
		qnorm += w * w
	}
	if qnorm == 0 {
		return nil
	}
	qnorm = math.Sqrt(qnorm)

	var out []Result
	for id, tf := range x.docs {
		var dot float64
		for t, w := range qw {
			if f, ok := tf[t]; ok {
				dot += w * x.weight(id, t, f)
			}
		}
		if dot == 0 || x.norms[id] == 0 {
			continue
		}
		out = append(out, Result{ID: id, Score: dot / (qnorm * x.norms[id])})
	}
	return topK(out, k)
}
