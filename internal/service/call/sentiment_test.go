package call

import (
	"strings"
	"testing"
	"unicode/utf8"

	"ai-call-relay-service/internal/models"
)

func entry(speaker models.Speaker, text string) models.TranscriptEntry {
	return models.TranscriptEntry{Speaker: speaker, Text: text, Timestamp: 0}
}

func TestScoreSentiment(t *testing.T) {
	tests := []struct {
		name       string
		transcript []models.TranscriptEntry
		want       string
	}{
		{
			name: "positive majority",
			transcript: []models.TranscriptEntry{
				entry(models.SpeakerCaller, "Thank you, that was great"),
				entry(models.SpeakerCaller, "great service"),
				entry(models.SpeakerCaller, "too bad about the wait"),
			},
			want: SentimentPositive,
		},
		{
			name: "negative majority",
			transcript: []models.TranscriptEntry{
				entry(models.SpeakerCaller, "this is terrible"),
				entry(models.SpeakerCaller, "absolutely awful and wrong"),
				entry(models.SpeakerCaller, "thank you anyway"),
			},
			want: SentimentNegative,
		},
		{
			name: "tie is neutral",
			transcript: []models.TranscriptEntry{
				entry(models.SpeakerCaller, "great"),
				entry(models.SpeakerCaller, "bad"),
			},
			want: SentimentNeutral,
		},
		{
			name:       "empty transcript is neutral",
			transcript: nil,
			want:       SentimentNeutral,
		},
		{
			name: "no keyword hits is neutral",
			transcript: []models.TranscriptEntry{
				entry(models.SpeakerCaller, "what time do you open"),
			},
			want: SentimentNeutral,
		},
		{
			name: "case insensitive",
			transcript: []models.TranscriptEntry{
				entry(models.SpeakerCaller, "THANK YOU SO MUCH"),
			},
			want: SentimentPositive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreSentiment(tt.transcript); got != tt.want {
				t.Errorf("ScoreSentiment = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	transcript := []models.TranscriptEntry{
		entry(models.SpeakerCaller, "hi"),
		entry(models.SpeakerAgent, "hello"),
	}
	got := Summarize(transcript)
	want := "Caller: hi Agent: hello"
	if got != want {
		t.Errorf("Summarize = %q, want %q", got, want)
	}
}

func TestSummarizeUsesFirstEntriesOnly(t *testing.T) {
	transcript := []models.TranscriptEntry{
		entry(models.SpeakerCaller, "one"),
		entry(models.SpeakerAgent, "two"),
		entry(models.SpeakerCaller, "three"),
		entry(models.SpeakerAgent, "four"),
		entry(models.SpeakerCaller, "five"),
		entry(models.SpeakerAgent, "six"),
	}
	got := Summarize(transcript)
	if strings.Contains(got, "six") {
		t.Errorf("summary should stop after the opening entries, got %q", got)
	}
	if !strings.Contains(got, "five") {
		t.Errorf("summary should include the fifth entry, got %q", got)
	}
}

func TestSummarizeTruncates(t *testing.T) {
	long := strings.Repeat("a", 600)
	got := Summarize([]models.TranscriptEntry{entry(models.SpeakerCaller, long)})
	if len(got) != 500 {
		t.Errorf("summary length = %d, want 500", len(got))
	}
}

func TestSummarizeTruncatesOnRuneBoundary(t *testing.T) {
	// The leading "x" puts every two-byte rune at an odd offset after the
	// "Caller: " prefix, so the 500-byte mark lands mid-rune.
	long := "x" + strings.Repeat("é", 400)
	got := Summarize([]models.TranscriptEntry{entry(models.SpeakerCaller, long)})
	if !utf8.ValidString(got) {
		t.Errorf("summary is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) > 500 {
		t.Errorf("summary length = %d, want at most 500", len(got))
	}
	if r, _ := utf8.DecodeLastRuneInString(got); r == utf8.RuneError {
		t.Error("summary ends in a split rune")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); got != "" {
		t.Errorf("Summarize(nil) = %q, want empty", got)
	}
}
