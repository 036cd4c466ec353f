package llm

import "fmt"

const systemPrompt = "You are a storyteller narrating the inner life of fictional characters. Answer exactly in the format requested, with no preamble."

func schedulePrompt(personaName, personaSummary string) string {
	return fmt.Sprintf(`%s

Plan a full day of activities for %s, in order, from waking up to going to sleep.
Write one activity per line in exactly this format:
description | duration in hours | start time (H:MM, 24 hour)

Example:
Wake up and make coffee | 0.25 | 9:00
Do work on farm | 8 | 11:30
Sleep | 9 | 00:30

Now the schedule:`, personaSummary, personaName)
}

func observationPrompt(personaName, personaSummary, currentBehavior string) string {
	return fmt.Sprintf(`%s

%s is currently doing the following: %s

Write one short first-person observation from %s about this moment.`,
		personaSummary, personaName, currentBehavior, personaName)
}

func dialoguePrompt(speaker, listener, location, topic string) string {
	return fmt.Sprintf(`Generate a short dialogue line spoken by %s to %s in %s about %s.

Example of dialogue:
Hank: Howdy, Claire, how's it going?
Claire: Good, what about you?

Write only the next line spoken by %s, without the name prefix.`,
		speaker, listener, location, topic, speaker)
}

func interrogationPrompt(personaName, personaSummary, memoryContext, question, history string) string {
	return fmt.Sprintf(`%s

Relevant memories of %s:
%s

Conversation so far:
%s

The interviewer asks: %s

Answer in the first person as %s, staying consistent with the memories above.`,
		personaSummary, personaName, memoryContext, history, question, personaName)
}

func narrationPrompt(setting, recentActivity string) string {
	return fmt.Sprintf(`The setting: %s

What the inhabitants are currently doing:
%s

Write one or two sentences of ambient scene narration about %s right now, as an omniscient narrator. Mention the atmosphere, not the characters' names.`,
		setting, recentActivity, setting)
}

func importancePrompt(conceptText string) string {
	return fmt.Sprintf(`On a scale of 0 to 9, where 0 is mundane (brushing teeth, making the bed) and 9 is extremely poignant (a breakup, a death in the family), rate the likely poignancy of the following memory.

Memory: %s

Answer with a single digit.`, conceptText)
}
