package driven

// VectorIndex provides exact inner-product search over unit vectors.
// Row numbers are assigned in insertion order starting at zero.
// Implementations are safe for concurrent Search once built; Add is not
// called after the index is published.
type VectorIndex interface {
	// Add appends vectors. Each must have Dimensions() entries.
	Add(vectors ...[]float32) error

	// Search returns up to k hits by descending score, ties by row.
	// An empty index returns an empty result.
	Search(query []float32, k int) ([]VectorHit, error)

	// Size returns the number of rows.
	Size() int

	// Dimensions returns the vector size, or 0 when empty.
	Dimensions() int

	// Vectors returns the stored rows. Callers must not modify them.
	Vectors() [][]float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Row is the insertion index of the matched vector.
	Row int

	// Score is the inner product with the query.
	Score float32
}

// VectorIndexBuilder creates a published index over raw vectors,
// normalising each to unit length.
type VectorIndexBuilder func(vectors [][]float32) (VectorIndex, error)
