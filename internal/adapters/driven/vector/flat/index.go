// Package flat provides an exact inner-product vector index.
//
// Every vector is normalised to unit L2 length on insertion, so the inner
// product of a normalised query with a row equals their cosine similarity.
// Search scans all rows; corpora here are thousands of passages, not millions.
package flat

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores unit vectors in insertion order.
// It is not safe to Add concurrently with Search; build first, then publish.
type Index struct {
	dims int
	rows [][]float32
}

// New creates an empty index. dims may be 0 to take the size of the first vector.
func New(dims int) *Index {
	return &Index{dims: dims}
}

// FromVectors builds an index over vectors, normalising each.
func FromVectors(vectors [][]float32) (*Index, error) {
	idx := New(0)
	if err := idx.Add(vectors...); err != nil {
		return nil, err
	}
	return idx, nil
}

var _ driven.VectorIndexBuilder = Build

// Build is a driven.VectorIndexBuilder backed by FromVectors.
func Build(vectors [][]float32) (driven.VectorIndex, error) {
	idx, err := FromVectors(vectors)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Add appends vectors after normalising them.
func (idx *Index) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", domain.ErrInvalidInput, i)
		}
		if idx.dims == 0 {
			idx.dims = len(v)
		}
		if len(v) != idx.dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d",
				domain.ErrInvalidInput, i, len(v), idx.dims)
		}
		idx.rows = append(idx.rows, Normalize(v))
	}
	return nil
}

// Search returns the k rows with the highest inner product with the
// normalised query, best first. Equal scores keep insertion order.
// k is clamped to the index size; an empty index returns no hits.
func (idx *Index) Search(query []float32, k int) ([]driven.VectorHit, error) {
	if len(idx.rows) == 0 || k <= 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(query), idx.dims)
	}
	if k > len(idx.rows) {
		k = len(idx.rows)
	}

	q := Normalize(query)
	h := make(hitHeap, 0, k)
	for row, v := range idx.rows {
		hit := driven.VectorHit{Row: row, Score: Dot(q, v)}
		if len(h) < k {
			heap.Push(&h, hit)
			continue
		}
		if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	hits := []driven.VectorHit(h)
	sort.Slice(hits, func(i, j int) bool { return better(hits[i], hits[j]) })
	return hits, nil
}

// Size returns the number of rows.
func (idx *Index) Size() int {
	return len(idx.rows)
}

// Dimensions returns the vector size, or 0 when empty.
func (idx *Index) Dimensions() int {
	return idx.dims
}

// Vectors returns the stored unit vectors.
func (idx *Index) Vectors() [][]float32 {
	return idx.rows
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// better orders hits by score descending, then row ascending.
func better(a, b driven.VectorHit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Row < b.Row
}

// hitHeap is a min-heap whose root is the worst hit kept so far.
type hitHeap []driven.VectorHit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) { *h = append(*h, x.(driven.VectorHit)) }

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
