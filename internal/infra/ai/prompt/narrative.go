package prompt

import "fmt"

// GetNarrativeSystemPrompt pins the narrator to a short plain-text paragraph.
func GetNarrativeSystemPrompt() string {
	return `You are a clinical assistant summarizing check-in statistics for the treating clinician. You receive a JSON object with mood averages, trend, streak, compliance and risk-flag counts for one patient. Respond with a single plain-text paragraph (3-5 sentences, no markdown, no JSON) describing the period. Be factual and neutral; mention raised risk flags explicitly, and do not invent observations that are not in the numbers.`
}

// GetNarrativeUserPrompt wraps the computed stats for the narrator.
func GetNarrativeUserPrompt(statsJSON string) string {
	return fmt.Sprintf("Summarize this check-in period for the clinician. Stats: %s", statsJSON)
}
