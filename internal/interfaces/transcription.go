package interfaces

import "context"

// Transcriber abstracts the external speech-to-text collaborator used for
// audio inputs. Failures are propagated as pipeline failures without local
// retry.
type Transcriber interface {
	// Transcribe converts audio bytes into speaker-labelled transcript text.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
