package models

import "unicode/utf8"

// SourceKind classifies the input modality a transcript was derived from.
type SourceKind string

const (
	SourceText     SourceKind = "text"
	SourceSubtitle SourceKind = "subtitle"
	SourceDocument SourceKind = "document"
	SourceAudio    SourceKind = "audio"
)

// Transcript is the normalized plain-text form of an uploaded input.
// Produced once per job and never mutated afterward.
type Transcript struct {
	Text   string     `json:"text"`
	Length int        `json:"length"`
	Source SourceKind `json:"source"`
}

// NewTranscript builds a transcript from normalized text.
func NewTranscript(text string, source SourceKind) *Transcript {
	return &Transcript{Text: text, Length: len(text), Source: source}
}

// Preview returns at most n bytes of the transcript text, appending an
// ellipsis when truncated.
func (t *Transcript) Preview(n int) string {
	return PreviewText(t.Text, n)
}

// PreviewText truncates text to at most n bytes without splitting a rune,
// appending an ellipsis when truncated.
func PreviewText(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
