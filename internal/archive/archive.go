package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/embedding"
	"github.com/hollowbrook/reverie/internal/vectorstore"
)

// Qdrant collections written by the archive.
const (
	CollNarrations    = "narrations"
	CollChatSummaries = "chat_summaries"
)

// Archive persists simulation history into Qdrant so narrations and finished
// conversations stay searchable across runs. Agent working memory does not
// live here; this is the durable record.
type Archive struct {
	embedder embedding.Provider
	qdrant   *vectorstore.Client
	logger   *zap.Logger
}

// Entry is one retrieved archive record.
type Entry struct {
	Content    string
	Collection string
	Score      float32
	Metadata   map[string]string
}

// New creates an archive over an existing Qdrant client.
func New(embedder embedding.Provider, qdrant *vectorstore.Client, logger *zap.Logger) *Archive {
	return &Archive{embedder: embedder, qdrant: qdrant, logger: logger}
}

// Init ensures the archive collections exist.
func (ar *Archive) Init(ctx context.Context) error {
	dim := uint64(ar.embedder.Dimension())
	if dim == 0 {
		dim = 1024
	}
	for _, name := range []string{CollNarrations, CollChatSummaries} {
		if err := ar.qdrant.EnsureCollection(ctx, name, dim); err != nil {
			return fmt.Errorf("init collection %s: %w", name, err)
		}
	}
	return nil
}

// RecordNarration stores a world narration with the simulated time it was
// announced at.
func (ar *Archive) RecordNarration(ctx context.Context, narration string, simTime time.Time) error {
	return ar.store(ctx, CollNarrations, narration, map[string]string{
		"sim_time": simTime.Format(time.RFC3339),
	})
}

// RecordChat stores a finished conversation transcript tagged with both
// participants.
func (ar *Archive) RecordChat(ctx context.Context, participantA, participantB, transcript string, simTime time.Time) error {
	return ar.store(ctx, CollChatSummaries, transcript, map[string]string{
		"participant_a": participantA,
		"participant_b": participantB,
		"sim_time":      simTime.Format(time.RFC3339),
	})
}

func (ar *Archive) store(ctx context.Context, collection, content string, metadata map[string]string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	vectors, err := ar.embedder.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("embed content: %w", err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("empty embedding result")
	}

	payload := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		payload[k] = v
	}
	payload["content"] = content
	payload["indexed_at"] = time.Now().UTC().Format(time.RFC3339)

	return ar.qdrant.Upsert(ctx, collection, []vectorstore.Point{{
		ID:      uuid.New().String(),
		Vector:  vectors[0],
		Payload: payload,
	}})
}

// Stats returns the number of stored points per archive collection.
func (ar *Archive) Stats(ctx context.Context) (map[string]uint64, error) {
	stats := make(map[string]uint64, 2)
	for _, coll := range []string{CollNarrations, CollChatSummaries} {
		n, err := ar.qdrant.Count(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", coll, err)
		}
		stats[coll] = n
	}
	return stats, nil
}

// Close releases the underlying Qdrant connection.
func (ar *Archive) Close() error {
	return ar.qdrant.Close()
}

// Search embeds the query and searches both collections, returning the topK
// best hits across them by descending score.
func (ar *Archive) Search(ctx context.Context, query string, topK int) ([]Entry, error) {
	vectors, err := ar.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	var entries []Entry
	for _, coll := range []string{CollNarrations, CollChatSummaries} {
		hits, err := ar.qdrant.Search(ctx, coll, vectors[0], uint64(topK))
		if err != nil {
			ar.logger.Warn("archive search failed",
				zap.String("collection", coll), zap.Error(err))
			continue
		}
		for _, h := range hits {
			entries = append(entries, Entry{
				Content:    h.Payload["content"],
				Collection: coll,
				Score:      h.Score,
				Metadata:   h.Payload,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > topK {
		entries = entries[:topK]
	}
	return entries, nil
}
