package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/embedding"
	"github.com/hollowbrook/reverie/internal/event"
)

// LongTermMemory is one agent's append-only store of ConceptNodes plus a
// vector index over their content. A node's id doubles as its row in the
// index; the two numbering schemes must stay in lockstep, which is why
// nothing is ever deleted.
type LongTermMemory struct {
	mu       sync.RWMutex
	nodes    []*ConceptNode
	index    [][]float32
	embedder embedding.Provider
	logger   *zap.Logger
}

// NewLongTermMemory creates an empty store backed by the given embedder.
func NewLongTermMemory(embedder embedding.Provider, logger *zap.Logger) *LongTermMemory {
	return &LongTermMemory{
		embedder: embedder,
		logger:   logger,
	}
}

// AddConcept appends a node and rebuilds the index. The rebuild is a full
// reconstruction on every insert, a deliberate simplicity-over-scale trade;
// at the store sizes a handful of agents produce it has not mattered yet.
// A failed embedding stores a zero vector so the id/row lockstep holds.
func (m *LongTermMemory) AddConcept(ctx context.Context, content string, kind event.Kind, importance int, now time.Time, expiration time.Time) (*ConceptNode, error) {
	vec, err := embedding.EmbedOne(ctx, m.embedder, content)
	if err != nil {
		m.logger.Warn("embedding failed, storing blind concept", zap.Error(err))
		vec = make([]float32, m.embedder.Dimension())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node := newConceptNode(len(m.nodes), content, kind, importance, now, expiration)
	m.nodes = append(m.nodes, node)
	m.index = m.rebuildIndex(vec)

	if len(m.index) != len(m.nodes) {
		return nil, fmt.Errorf("memory: index has %d rows for %d nodes", len(m.index), len(m.nodes))
	}
	return node, err
}

// rebuildIndex reconstructs the whole index with the new vector appended.
// Caller holds the write lock.
func (m *LongTermMemory) rebuildIndex(newVec []float32) [][]float32 {
	rebuilt := make([][]float32, 0, len(m.index)+1)
	rebuilt = append(rebuilt, m.index...)
	return append(rebuilt, newVec)
}

// Size returns the number of stored concepts.
func (m *LongTermMemory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Node returns the concept with the given id.
func (m *LongTermMemory) Node(id int) (*ConceptNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || id >= len(m.nodes) {
		return nil, false
	}
	return m.nodes[id], true
}

// snapshot hands the retriever a consistent view of nodes and vectors.
func (m *LongTermMemory) snapshot() ([]*ConceptNode, [][]float32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes, m.index
}
