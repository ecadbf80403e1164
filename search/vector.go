package search

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex is a brute-force cosine k-nearest-neighbor index.
// It is safe for concurrent use.
type VectorIndex struct {
	mu    sync.RWMutex
	dim   int
	pos   map[string]int
	ids   []string
	vecs  [][]float32
	norms []float64
}

// NewVectorIndex returns an empty index. The dimension is fixed by the first
// vector added.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{pos: make(map[string]int)}
}

// Add stores vec under id, replacing any previous vector for that id.
func (x *VectorIndex) Add(id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("vector %q: empty", id)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dim == 0 {
		x.dim = len(vec)
	} else if len(vec) != x.dim {
		return fmt.Errorf("vector %q: %w: got %d, want %d", id, ErrDimensionMismatch, len(vec), x.dim)
	}

	v := append([]float32(nil), vec...)
	if i, ok := x.pos[id]; ok {
		x.vecs[i] = v
		x.norms[i] = vecNorm(v)
		return nil
	}
	x.pos[id] = len(x.ids)
	x.ids = append(x.ids, id)
	x.vecs = append(x.vecs, v)
	x.norms = append(x.norms, vecNorm(v))
	return nil
}

// Remove drops id from the index.
func (x *VectorIndex) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	i, ok := x.pos[id]
	if !ok {
		return
	}
	last := len(x.ids) - 1
	if i != last {
		x.ids[i], x.vecs[i], x.norms[i] = x.ids[last], x.vecs[last], x.norms[last]
		x.pos[x.ids[i]] = i
	}
	x.ids, x.vecs, x.norms = x.ids[:last], x.vecs[:last], x.norms[:last]
	delete(x.pos, id)
	if len(x.ids) == 0 {
		x.dim = 0
	}
}

// Len returns the number of vectors.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Dim returns the index dimension, or 0 when empty.
func (x *VectorIndex) Dim() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Search returns the k vectors most similar to query by cosine similarity.
// k <= 0 returns every vector.
func (x *VectorIndex) Search(query []float32, k int) ([]Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.ids) == 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("query: %w: got %d, want %d", ErrDimensionMismatch, len(query), x.dim)
	}
	qn := vecNorm(query)
	if qn == 0 {
		return nil, nil
	}

	out := make([]Result, 0, len(x.ids))
	for i, v := range x.vecs {
		if x.norms[i] == 0 {
			continue
		}
		out = append(out, Result{ID: x.ids[i], Score: dot(query, v) / (qn * x.norms[i])})
	}
	return topK(out, k), nil
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	na, nb := vecNorm(a), vecNorm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func vecNorm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
