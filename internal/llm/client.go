package llm

import "context"

// ScheduleEntry is one planned behavior: what, for how long, starting when.
// Duration and start time stay as text until the scheduler parses them, so a
// sloppy model answer degrades one entry instead of the whole plan.
type ScheduleEntry struct {
	Description   string
	DurationHours string
	StartTime     string
}

// Client is the narrative generation contract cognition depends on. Calls
// are synchronous and may take seconds; callers must not hold locks across
// them.
type Client interface {
	// GenerateDailySchedule produces an ordered plan for one simulated day.
	GenerateDailySchedule(ctx context.Context, personaName, personaSummary string) ([]ScheduleEntry, error)

	// GenerateObservation produces a first-person observation about what the
	// persona is currently doing.
	GenerateObservation(ctx context.Context, personaName, personaSummary, currentBehavior string) (string, error)

	// GenerateDialogue produces a short conversation turn spoken by the
	// named persona to the peer, at a location about a topic.
	GenerateDialogue(ctx context.Context, speaker, listener, location, topic string) (string, error)

	// GenerateInterrogation answers a user question in the persona's voice,
	// given retrieved memory context and prior question/answer history.
	GenerateInterrogation(ctx context.Context, personaName, personaSummary, memoryContext, question, history string) (string, error)

	// EstimateImportance rates a memory on a 0-9 poignancy scale. Parse
	// failures fall back to 5 rather than erroring.
	EstimateImportance(ctx context.Context, conceptText string) (int, error)
}

// NarrationGenerator produces ambient scene narration. Both clients
// implement it; it is separate from Client because only the narrator timer
// uses it.
type NarrationGenerator interface {
	GenerateNarration(ctx context.Context, setting, recentActivity string) (string, error)
}

// DefaultImportance is the rating used whenever importance estimation fails.
const DefaultImportance = 5

// FallbackSchedule is the plan an agent falls back on when schedule
// generation fails. The day still has to run.
func FallbackSchedule() []ScheduleEntry {
	return []ScheduleEntry{
		{Description: "Wake up and get ready", DurationHours: "1", StartTime: "8:00"},
		{Description: "Go about the morning routine", DurationHours: "4", StartTime: "9:00"},
		{Description: "Eat lunch", DurationHours: "1", StartTime: "13:00"},
		{Description: "Work through the afternoon", DurationHours: "5", StartTime: "14:00"},
		{Description: "Eat dinner", DurationHours: "1", StartTime: "19:00"},
		{Description: "Relax at home", DurationHours: "3", StartTime: "20:00"},
		{Description: "Sleep", DurationHours: "9", StartTime: "23:00"},
	}
}
