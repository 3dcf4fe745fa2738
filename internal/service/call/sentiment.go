package call

import (
	"strings"
	"unicode/utf8"

	"ai-call-relay-service/internal/models"
)

// Keyword lists for the naive post-call sentiment score. Matching is
// case-insensitive substring search over every transcript line.
var (
	positiveWords = []string{"thank", "great", "good", "perfect", "excellent", "wonderful", "love", "helpful"}
	negativeWords = []string{"bad", "terrible", "awful", "angry", "wrong", "frustrated", "horrible", "useless"}
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

const (
	summaryMaxEntries = 5
	summaryMaxLength  = 500
)

// ScoreSentiment counts positive and negative keyword hits across the
// transcript. The majority wins; a tie (including zero hits) is neutral.
func ScoreSentiment(transcript []models.TranscriptEntry) string {
	positive, negative := 0, 0

	for _, entry := range transcript {
		text := strings.ToLower(entry.Text)
		for _, w := range positiveWords {
			if strings.Contains(text, w) {
				positive++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(text, w) {
				negative++
			}
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Summarize builds a short call summary from the opening lines of the
// transcript, capped to a fixed length.
func Summarize(transcript []models.TranscriptEntry) string {
	if len(transcript) == 0 {
		return ""
	}

	n := len(transcript)
	if n > summaryMaxEntries {
		n = summaryMaxEntries
	}

	lines := make([]string, 0, n)
	for _, entry := range transcript[:n] {
		lines = append(lines, speakerLabel(entry.Speaker)+": "+entry.Text)
	}

	summary := strings.Join(lines, " ")
	if len(summary) > summaryMaxLength {
		cut := summaryMaxLength
		// Back up to a rune boundary so a multi-byte character is not split.
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut]
	}
	return summary
}

func speakerLabel(s models.Speaker) string {
	switch s {
	case models.SpeakerCaller:
		return "Caller"
	case models.SpeakerAgent:
		return "Agent"
	default:
		return string(s)
	}
}
