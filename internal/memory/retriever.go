package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
	"github.com/hollowbrook/reverie/internal/embedding"
)

// Retriever scores stored concepts against a query by blending vector
// relevance, recency of last access and importance.
type Retriever struct {
	store        *LongTermMemory
	embedder     embedding.Provider
	maxRetrieval int
	maxContext   int
	decay        float64
	logger       *zap.Logger
}

// NewRetriever creates a retriever over the given store.
func NewRetriever(store *LongTermMemory, embedder embedding.Provider, cfg config.RetrievalConfig, logger *zap.Logger) *Retriever {
	return &Retriever{
		store:        store,
		embedder:     embedder,
		maxRetrieval: cfg.MaxRetrieval,
		maxContext:   cfg.MaxContext,
		decay:        cfg.RecencyDecay,
		logger:       logger,
	}
}

type candidate struct {
	node     *ConceptNode
	distance float64
	score    float64
}

// RetrieveContext returns the contents of the k best-scoring concepts for
// the query, concatenated in score order. The simulated time drives recency
// scoring, and every concept considered is touched, so retrieval perturbs
// the recency of what it reads.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, k int, now time.Time) (string, error) {
	if k <= 0 {
		k = r.maxContext
	}

	nodes, index := r.store.snapshot()
	if len(nodes) == 0 {
		return "", nil
	}

	queryVec, err := embedding.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return "", fmt.Errorf("memory: embed query: %w", err)
	}
	queryVec = normalize(queryVec)

	// Nearest-neighbor pass over the whole index, capped at maxRetrieval.
	candidates := make([]candidate, 0, len(nodes))
	for i, node := range nodes {
		if node.Expired(now) {
			continue
		}
		candidates = append(candidates, candidate{
			node:     node,
			distance: euclidean(queryVec, normalize(index[i])),
		})
	}
	if len(candidates) == 0 {
		return "", nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if limit := min(r.maxRetrieval, len(candidates)); len(candidates) > limit {
		candidates = candidates[:limit]
	}

	r.scoreCandidates(candidates, now)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	// Reads above consumed content and importance, so mark the access now.
	for _, c := range candidates {
		c.node.Touch(now)
	}

	var sb strings.Builder
	for i := 0; i < len(candidates) && i < k; i++ {
		sb.WriteString(candidates[i].node.Content())
	}
	return sb.String(), nil
}

// scoreCandidates fills in the combined normalized score for each candidate.
func (r *Retriever) scoreCandidates(candidates []candidate, now time.Time) {
	maxDist := 0.0
	for _, c := range candidates {
		if c.distance > maxDist {
			maxDist = c.distance
		}
	}

	raw := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance := 1.0
		if maxDist > 0 {
			relevance = 1.0 - c.distance/maxDist
		}
		hours := now.Sub(c.node.LastAccessed()).Hours()
		if hours < 0 {
			hours = 0
		}
		recency := math.Pow(r.decay, hours)
		raw[i] = relevance + recency + float64(c.node.Importance())
	}

	minScore, maxScore := raw[0], raw[0]
	for _, s := range raw[1:] {
		minScore = math.Min(minScore, s)
		maxScore = math.Max(maxScore, s)
	}

	for i := range candidates {
		if maxScore == minScore {
			// Degenerate spread, every candidate ties and keeps its
			// nearest-first ordering through the stable sort.
			candidates[i].score = 1.0
			continue
		}
		candidates[i].score = (raw[i] - minScore) / (maxScore - minScore)
	}
}

func euclidean(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
