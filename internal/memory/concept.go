package memory

import (
	"time"

	"github.com/hollowbrook/reverie/internal/event"
)

// ConceptNode is one remembered plan, observation, action or chat summary.
// Nodes are never mutated after creation except through Touch, and never
// deleted; expiration is recorded but acts as a soft filter, not eviction.
type ConceptNode struct {
	id           int
	content      string
	kind         event.Kind
	importance   int
	created      time.Time
	expiration   time.Time
	lastAccessed time.Time
}

func newConceptNode(id int, content string, kind event.Kind, importance int, created, expiration time.Time) *ConceptNode {
	return &ConceptNode{
		id:           id,
		content:      content,
		kind:         kind,
		importance:   importance,
		created:      created,
		expiration:   expiration,
		lastAccessed: created,
	}
}

func (n *ConceptNode) ID() int                 { return n.id }
func (n *ConceptNode) Content() string         { return n.content }
func (n *ConceptNode) Kind() event.Kind        { return n.kind }
func (n *ConceptNode) Importance() int         { return n.importance }
func (n *ConceptNode) Created() time.Time      { return n.created }
func (n *ConceptNode) Expiration() time.Time   { return n.expiration }
func (n *ConceptNode) LastAccessed() time.Time { return n.lastAccessed }

// Touch records a read at the given simulated time. Retrieval touches every
// node it scores, so recently retrieved nodes look fresher on the next query.
func (n *ConceptNode) Touch(now time.Time) {
	n.lastAccessed = now
}

// Expired reports whether the node has an expiration in the past.
func (n *ConceptNode) Expired(now time.Time) bool {
	return !n.expiration.IsZero() && now.After(n.expiration)
}

func (n *ConceptNode) String() string {
	return n.content
}
