package interfaces

import (
	"context"

	"github.com/ternarybob/scribo/internal/models"
)

// Artifact is one stage output recorded against a job when it advances.
type Artifact struct {
	Kind models.ArtifactKind
	Data []byte
}

// Registry is the identifier-keyed job store. It owns every Job record and
// its artifact namespace, serializes mutation per individual job, and
// answers status and download queries. Implementations must be safe for
// concurrent use across jobs.
type Registry interface {
	// Create allocates a fresh process ID and isolated artifact namespace
	// for a new job in the created state.
	Create(ctx context.Context, inputName string, kind models.SourceKind) (*models.Job, error)

	// Advance moves the job to next, persisting any artifacts produced by
	// the completed stage. Returns models.ErrInvalidTransition when next is
	// not the valid successor of the job's current state.
	Advance(ctx context.Context, processID string, next models.JobState, artifacts ...Artifact) error

	// Fail transitions the job to the failed state with a recorded cause.
	// Calling Fail on an already-failed job is a no-op.
	Fail(ctx context.Context, processID string, cause error) error

	// AddWarnings attaches recoverable warnings to the job.
	AddWarnings(ctx context.Context, processID string, warnings []models.Warning) error

	// Get returns the job for processID, or models.ErrNotFound.
	Get(ctx context.Context, processID string) (*models.Job, error)

	// GetArtifact returns the artifact bytes of the given kind, or
	// models.ErrNotFound / models.ErrArtifactNotReady.
	GetArtifact(ctx context.Context, processID string, kind models.ArtifactKind) ([]byte, error)

	// Close releases the underlying store.
	Close() error
}
