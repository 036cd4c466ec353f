package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
	"github.com/hollowbrook/reverie/internal/embedding"
	"github.com/hollowbrook/reverie/internal/event"
)

var testRetrieval = config.RetrievalConfig{
	MaxRetrieval: 1000,
	MaxContext:   5,
	RecencyDecay: 0.995,
}

func newTestStore(t *testing.T) (*LongTermMemory, *Retriever) {
	t.Helper()
	embedder := embedding.NewHashProvider(64)
	store := NewLongTermMemory(embedder, zap.NewNop())
	retriever := NewRetriever(store, embedder, testRetrieval, zap.NewNop())
	return store, retriever
}

func simTime(hour int) time.Time {
	return time.Date(2024, 1, 1, hour, 0, 0, 0, time.UTC)
}

func TestAddConceptLockstep(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i, content := range []string{"first", "second", "third"} {
		node, err := store.AddConcept(ctx, content, event.KindThought, 3, simTime(9), time.Time{})
		if err != nil {
			t.Fatalf("add concept: %v", err)
		}
		if node.ID() != i {
			t.Errorf("got id %d, want %d", node.ID(), i)
		}
	}

	if store.Size() != 3 {
		t.Fatalf("got size %d, want 3", store.Size())
	}
	if len(store.index) != 3 {
		t.Fatalf("index has %d rows for 3 nodes", len(store.index))
	}
	node, ok := store.Node(1)
	if !ok || node.Content() != "second" {
		t.Error("node lookup by id returned the wrong concept")
	}
}

func TestRetrieveImportanceWins(t *testing.T) {
	store, retriever := newTestStore(t)
	ctx := context.Background()
	now := simTime(12)

	// Same creation time, so only importance separates the two entries
	// about the harvest.
	if _, err := store.AddConcept(ctx, "the harvest was ruined by the storm", event.KindAction, 9, simTime(9), time.Time{}); err != nil {
		t.Fatalf("add concept: %v", err)
	}
	if _, err := store.AddConcept(ctx, "the harvest went on as usual today", event.KindAction, 1, simTime(9), time.Time{}); err != nil {
		t.Fatalf("add concept: %v", err)
	}

	got, err := retriever.RetrieveContext(ctx, "what happened to the harvest", 1, now)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !strings.Contains(got, "ruined by the storm") {
		t.Errorf("got %q, want the high-importance memory to win", got)
	}
}

func TestScoreIdenticalContentOrdersByImportance(t *testing.T) {
	store, retriever := newTestStore(t)
	ctx := context.Background()
	now := simTime(12)

	// Three concepts share the same text and creation time, so relevance
	// and recency are identical and importance alone separates them.
	content := "the well in the square ran dry"
	for _, importance := range []int{1, 5, 9} {
		if _, err := store.AddConcept(ctx, content, event.KindThought, importance, simTime(9), time.Time{}); err != nil {
			t.Fatalf("add concept: %v", err)
		}
	}

	nodes, _ := store.snapshot()
	candidates := make([]candidate, len(nodes))
	for i, n := range nodes {
		candidates[i] = candidate{node: n}
	}
	retriever.scoreCandidates(candidates, now)

	if candidates[2].score <= candidates[1].score || candidates[1].score <= candidates[0].score {
		t.Fatalf("scores %v, %v, %v not ordered by importance 1 < 5 < 9",
			candidates[0].score, candidates[1].score, candidates[2].score)
	}
	if candidates[2].score != 1.0 || candidates[0].score != 0.0 {
		t.Errorf("got score spread [%v, %v], want min-max normalization to [0, 1]",
			candidates[0].score, candidates[2].score)
	}

	// The full path at k=1 picks a single winner, not three copies.
	got, err := retriever.RetrieveContext(ctx, content, 1, now)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got != content {
		t.Errorf("got %q, want exactly one copy of the shared content", got)
	}
}

func TestRetrieveTopKBound(t *testing.T) {
	store, retriever := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddConcept(ctx, "only memory", event.KindThought, 5, simTime(9), time.Time{}); err != nil {
		t.Fatalf("add concept: %v", err)
	}

	got, err := retriever.RetrieveContext(ctx, "anything", 10, simTime(10))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got != "only memory" {
		t.Errorf("got %q, want the single stored memory", got)
	}
}

func TestRetrieveTouchesCandidates(t *testing.T) {
	store, retriever := newTestStore(t)
	ctx := context.Background()

	node, err := store.AddConcept(ctx, "a walk by the river", event.KindThought, 5, simTime(9), time.Time{})
	if err != nil {
		t.Fatalf("add concept: %v", err)
	}

	now := simTime(14)
	if _, err := retriever.RetrieveContext(ctx, "river", 1, now); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !node.LastAccessed().Equal(now) {
		t.Errorf("got last accessed %v, want retrieval to touch the node at %v", node.LastAccessed(), now)
	}
}

func TestRetrieveExcludesExpired(t *testing.T) {
	store, retriever := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddConcept(ctx, "stale gossip", event.KindChat, 5, simTime(8), simTime(9)); err != nil {
		t.Fatalf("add concept: %v", err)
	}
	if _, err := store.AddConcept(ctx, "standing plans", event.KindThought, 5, simTime(8), time.Time{}); err != nil {
		t.Fatalf("add concept: %v", err)
	}

	got, err := retriever.RetrieveContext(ctx, "gossip and plans", 5, simTime(12))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if strings.Contains(got, "stale gossip") {
		t.Errorf("got %q, expired memory should be filtered out", got)
	}
	if !strings.Contains(got, "standing plans") {
		t.Errorf("got %q, unexpired memory should survive", got)
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	_, retriever := newTestStore(t)

	got, err := retriever.RetrieveContext(context.Background(), "anything", 3, simTime(10))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty context from empty store", got)
	}
}

func TestRetrieveDegenerateScores(t *testing.T) {
	store, retriever := newTestStore(t)
	ctx := context.Background()

	// Identical content, importance and timestamps collapse the score
	// spread to zero; normalization must not divide by it.
	for i := 0; i < 3; i++ {
		if _, err := store.AddConcept(ctx, "the same thought again", event.KindThought, 5, simTime(9), time.Time{}); err != nil {
			t.Fatalf("add concept: %v", err)
		}
	}

	got, err := retriever.RetrieveContext(ctx, "the same thought again", 2, simTime(10))
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if want := "the same thought againthe same thought again"; got != want {
		t.Errorf("got %q, want two concatenated copies", got)
	}
}

func TestExpiredHelper(t *testing.T) {
	n := newConceptNode(0, "x", event.KindThought, 5, simTime(9), time.Time{})
	if n.Expired(simTime(23)) {
		t.Error("node without expiration must never expire")
	}
	n2 := newConceptNode(1, "y", event.KindThought, 5, simTime(9), simTime(10))
	if !n2.Expired(simTime(11)) {
		t.Error("node past its expiration should report expired")
	}
}
