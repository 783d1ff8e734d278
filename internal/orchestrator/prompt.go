package orchestrator

import (
	"fmt"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #region prompts

func purePrompt(info phase.Info, rendered string, chars int) string {
	return fmt.Sprintf(
		"Professional freelance reply for the %q stage (%s).\n\nContext: %s\n\nGenerate a professional, contextual response:",
		info.DisplayName, info.Description, transcript.LastChars(rendered, chars),
	)
}

func hybridPrompt(base, rendered string, chars int) string {
	return fmt.Sprintf(
		"Base message: %s\n\nConversation context: %s\n\nEnhance the message to be more contextual and personalized:",
		base, transcript.LastChars(rendered, chars),
	)
}

func summaryPrompt(rendered string, chars int) string {
	return fmt.Sprintf(
		"Conversation context: %s\n\nSummarize the key points in one sentence:",
		transcript.LastChars(rendered, chars),
	)
}

func withSummary(base, summary string) string {
	return base + "\n\nContext: " + summary
}

// #endregion
