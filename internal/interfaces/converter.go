package interfaces

import "context"

// Converter is the document conversion adapter: it turns a populated
// word-processor document into the distributable report bytes. Conversion
// failures are fatal to the job; they typically indicate a corrupted
// intermediate document rather than a transient condition.
type Converter interface {
	// Convert produces PDF bytes from a populated docx document.
	Convert(ctx context.Context, document []byte) ([]byte, error)
}
