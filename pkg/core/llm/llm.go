// Package llm provides the conversational language-generation collaborator:
// tutor replies, session summaries, and grammar analysis.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunavoice/luna/pkg/core/types"
)

// Provider is the interface for language-generation services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Respond generates the next tutor reply for the conversation. The
	// directive, when non-empty, steers the reply (e.g. wrap-up messages).
	Respond(ctx context.Context, history []types.Turn, directive string, settings types.SessionSettings) (string, error)

	// Summarize produces a short performance summary of the conversation
	// in the learner's primary language.
	Summarize(ctx context.Context, history []types.Turn, settings types.SessionSettings) (string, error)

	// Analyze produces grammar/vocabulary feedback over the user's turns.
	Analyze(ctx context.Context, history []types.Turn, settings types.SessionSettings) ([]types.Feedback, error)
}

// tutorSystemPrompt is the persona prompt shared by all providers.
func tutorSystemPrompt(settings types.SessionSettings) string {
	return fmt.Sprintf(
		"You are a helpful language learning assistant named Luna, helping a user practice %s at %s level.\n\n"+
			"Adjust your language complexity to match their proficiency.\n\n"+
			"Keep your responses concise (2-3 sentences max) and natural (as if talking to a friend). "+
			"Encourage the user to speak more.\n"+
			"CRITICAL: You MUST respond EXCLUSIVELY in %s. Do not use any other language.\n\n"+
			"DO NOT use any markdown formatting such as bold (**text**), italics (*text*), or lists. "+
			"Return only pure text sentences.",
		settings.TargetLanguage, settings.Proficiency, settings.TargetLanguage,
	)
}

func summarySystemPrompt(settings types.SessionSettings) string {
	return fmt.Sprintf(
		"Summarize the user's speaking performance in the following conversation where they are practicing %s. "+
			"Comment briefly on fluency, vocabulary range, and overall progress.\n\n"+
			"CRITICAL: The summary MUST be written in %s, the user's primary language. "+
			"Keep it to 3-4 sentences of plain text with no markdown formatting.",
		settings.TargetLanguage, settings.PrimaryLanguage,
	)
}

func analysisSystemPrompt(settings types.SessionSettings) string {
	return fmt.Sprintf(
		"Analyze the user's grammar and vocabulary in the following conversation where they are practicing %s.\n\n"+
			"IMPORTANT LANGUAGE REQUIREMENTS:\n"+
			"- The \"explanation\" field in each feedback item MUST be in %s\n"+
			"- The \"original_sentence\" and \"corrected_sentence\" fields MUST be in %s (the language being learned)\n\n"+
			"Return a JSON object with the following structure:\n"+
			"{\n"+
			"    \"feedback\": [\n"+
			"        {\n"+
			"            \"original_sentence\": \"User's exact original sentence with error\",\n"+
			"            \"corrected_sentence\": \"Corrected user sentence\",\n"+
			"            \"explanation\": \"Brief explanation of the error\"\n"+
			"        }\n"+
			"    ]\n"+
			"}\n"+
			"Only include feedback for sentences that actually have errors or could be improved naturally.\n"+
			"Focus on user messages (role: \"user\") when analyzing grammar.",
		settings.TargetLanguage, settings.PrimaryLanguage, settings.TargetLanguage,
	)
}

// transcript renders the history as "role: text" lines for the summary and
// analysis prompts.
func transcript(history []types.Turn) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
