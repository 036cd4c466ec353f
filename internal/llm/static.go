package llm

import (
	"context"
	"fmt"
	"sync"
)

// StaticClient returns canned narrative without any backend. It keeps the
// simulation runnable offline and gives tests deterministic plans.
type StaticClient struct {
	mu        sync.Mutex
	dialogue  int
	narration int
}

// NewStaticClient creates a StaticClient.
func NewStaticClient() *StaticClient {
	return &StaticClient{}
}

// GenerateDailySchedule returns a fixed plan keyed on the persona name.
func (c *StaticClient) GenerateDailySchedule(_ context.Context, personaName, _ string) ([]ScheduleEntry, error) {
	if personaName == "Hank Thompson" {
		return []ScheduleEntry{
			{"Wake up and make coffee", "0.25", "9:00"},
			{"Have a chat with Claire Reynolds", "2.25", "9:15"},
			{"Do work on farm", "8", "11:30"},
			{"Eat dinner", "1", "19:30"},
			{"Play video games", "4", "20:30"},
			{"Sleep", "9", "00:30"},
		}, nil
	}
	return []ScheduleEntry{
		{"Wake up and shower", "0.25", "9:00"},
		{"Have a chat with Hank Thompson", "2.25", "9:15"},
		{"Walk the fields taking soil samples", "2", "11:30"},
		{"Write up field notes", "6", "13:30"},
		{"Have dinner", "1", "19:30"},
		{"Read by the fire", "4", "20:30"},
		{"Sleep", "9", "00:30"},
	}, nil
}

// GenerateObservation returns a canned observation.
func (c *StaticClient) GenerateObservation(_ context.Context, personaName, _, currentBehavior string) (string, error) {
	return fmt.Sprintf("%s takes a moment and notices the day passing while %s.", personaName, currentBehavior), nil
}

var staticLines = []string{
	"Howdy, how's it going?",
	"Good, what about you?",
	"Can't complain. The weather has been kind this week.",
	"That it has. We should catch up properly soon.",
}

// GenerateDialogue cycles through a fixed set of lines so a canned
// conversation still alternates plausibly.
func (c *StaticClient) GenerateDialogue(_ context.Context, _, _, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := staticLines[c.dialogue%len(staticLines)]
	c.dialogue++
	return line, nil
}

// GenerateInterrogation returns a canned first-person answer.
func (c *StaticClient) GenerateInterrogation(_ context.Context, personaName, _, _, question, _ string) (string, error) {
	return fmt.Sprintf("I'm %s. You asked %q, and honestly, I've mostly been keeping to my routine.", personaName, question), nil
}

var staticNarrations = []string{
	"A low wind moves through the fields, carrying the smell of turned earth.",
	"Smoke rises from a chimney somewhere past the orchard; the day settles into its rhythm.",
	"Clouds stack up on the horizon while the lanes below stay quiet.",
}

// GenerateNarration cycles through canned scene narration.
func (c *StaticClient) GenerateNarration(_ context.Context, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := staticNarrations[c.narration%len(staticNarrations)]
	c.narration++
	return line, nil
}

// EstimateImportance always returns the default rating.
func (c *StaticClient) EstimateImportance(context.Context, string) (int, error) {
	return DefaultImportance, nil
}
