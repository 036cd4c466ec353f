package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// HashProvider produces deterministic pseudo-embeddings without a model
// behind it. Each text seeds a PRNG so equal texts always map to equal
// vectors, which keeps offline runs and tests reproducible.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a HashProvider with the given dimension.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = 64
	}
	return &HashProvider{dimension: dimension}
}

// Embed returns one unit vector per text, derived from the text alone.
func (p *HashProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = p.vector(text)
	}
	return embeddings, nil
}

func (p *HashProvider) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, p.dimension)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] /= float32(norm)
	}
	return vec
}

// Dimension returns the configured dimension.
func (p *HashProvider) Dimension() int {
	return p.dimension
}
