package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/agent"
	"github.com/hollowbrook/reverie/internal/llm"
)

// Narrator composes ambient scene narration from what the population is
// presently doing.
type Narrator struct {
	gen     llm.NarrationGenerator
	setting string
	logger  *zap.Logger
}

// NewNarrator creates a narrator for the given setting description.
func NewNarrator(gen llm.NarrationGenerator, setting string, logger *zap.Logger) *Narrator {
	if setting == "" {
		setting = "a small farming village"
	}
	return &Narrator{gen: gen, setting: setting, logger: logger}
}

// Compose produces one narration line. An idle population (nobody doing
// anything yet) yields an empty string rather than forced narration.
func (n *Narrator) Compose(ctx context.Context, agents []*agent.Agent) (string, error) {
	var b strings.Builder
	for _, a := range agents {
		doing := a.ShortMemory().CurrentDescription()
		if doing == "" {
			continue
		}
		b.WriteString(a.Name())
		b.WriteString(" is ")
		b.WriteString(doing)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", nil
	}
	return n.gen.GenerateNarration(ctx, n.setting, b.String())
}
