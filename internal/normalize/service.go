package normalize

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// kindByExtension maps supported upload extensions onto source kinds.
// Dispatch is by extension only; content sniffing is deliberately avoided so
// that a mislabelled upload fails loudly instead of half-working.
var kindByExtension = map[string]models.SourceKind{
	".txt":  models.SourceText,
	".text": models.SourceText,
	".vtt":  models.SourceSubtitle,
	".srt":  models.SourceSubtitle,
	".docx": models.SourceDocument,
	".mp3":  models.SourceAudio,
	".wav":  models.SourceAudio,
	".m4a":  models.SourceAudio,
	".mp4":  models.SourceAudio,
	".ogg":  models.SourceAudio,
	".flac": models.SourceAudio,
	".webm": models.SourceAudio,
}

// Service turns an uploaded file into a normalized plain-text transcript.
// Audio inputs are delegated to the transcriber, which may be nil when no
// transcription credentials are configured.
type Service struct {
	transcriber interfaces.Transcriber
	logger      arbor.ILogger
}

// NewService creates a normalization service. transcriber may be nil; audio
// inputs then fail with a configuration error while other kinds still work.
func NewService(transcriber interfaces.Transcriber, logger arbor.ILogger) *Service {
	return &Service{transcriber: transcriber, logger: logger}
}

// Classify resolves the source kind for a filename. Returns
// models.ErrUnsupportedInputType for extensions outside the supported set.
func Classify(filename string) (models.SourceKind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := kindByExtension[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedInputType, ext)
	}
	return kind, nil
}

// Normalize converts raw upload bytes into a transcript. The returned
// transcript text always uses "\n" line endings with surrounding whitespace
// trimmed.
func (s *Service) Normalize(ctx context.Context, filename string, data []byte) (*models.Transcript, error) {
	kind, err := Classify(filename)
	if err != nil {
		return nil, err
	}

	var text string
	switch kind {
	case models.SourceText:
		text = decodeText(data)
	case models.SourceSubtitle:
		text = stripSubtitles(decodeText(data))
	case models.SourceDocument:
		text, err = ExtractDocumentText(data)
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", filename, err)
		}
	case models.SourceAudio:
		if s.transcriber == nil {
			return nil, fmt.Errorf("audio input %s requires transcription credentials", filename)
		}
		text, err = s.transcriber.Transcribe(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("transcription failed for %s: %w", filename, err)
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("input %s produced an empty transcript", filename)
	}

	s.logger.Debug().
		Str("filename", filename).
		Str("source", string(kind)).
		Int("length", len(text)).
		Msg("Input normalized")

	return models.NewTranscript(text, kind), nil
}

// decodeText interprets raw bytes as UTF-8 text. A leading BOM is dropped,
// CRLF line endings are normalized, and invalid byte sequences are replaced
// rather than rejected.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
