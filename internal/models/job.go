package models

import (
	"fmt"
	"time"
)

// JobState represents the pipeline progress of a processing job.
type JobState string

const (
	JobStateCreated     JobState = "created"
	JobStateNormalizing JobState = "normalizing"
	JobStateExtracting  JobState = "extracting"
	JobStateRendering   JobState = "rendering"
	JobStateConverting  JobState = "converting"
	JobStateDone        JobState = "done"
	JobStateFailed      JobState = "failed"
)

// successor maps each non-terminal state to its single valid forward state.
// JobStateFailed is reachable from any non-terminal state via Job.Fail and is
// deliberately absent here.
var successor = map[JobState]JobState{
	JobStateCreated:     JobStateNormalizing,
	JobStateNormalizing: JobStateExtracting,
	JobStateExtracting:  JobStateRendering,
	JobStateRendering:   JobStateConverting,
	JobStateConverting:  JobStateDone,
}

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// ArtifactKind identifies one artifact produced by a pipeline stage.
type ArtifactKind string

const (
	ArtifactTranscript ArtifactKind = "transcript"
	ArtifactReasoning  ArtifactKind = "reasoning"
	ArtifactRecord     ArtifactKind = "record"
	ArtifactDocument   ArtifactKind = "document"
	ArtifactReport     ArtifactKind = "report"
)

// FileName returns the on-disk name of the artifact inside the job's
// artifact directory.
func (k ArtifactKind) FileName() string {
	switch k {
	case ArtifactTranscript:
		return "transcript.txt"
	case ArtifactReasoning:
		return "reasoning.txt"
	case ArtifactRecord:
		return "record.json"
	case ArtifactDocument:
		return "report.docx"
	case ArtifactReport:
		return "report.pdf"
	}
	return string(k)
}

// ContentType returns the MIME type served for the artifact.
func (k ArtifactKind) ContentType() string {
	switch k {
	case ArtifactRecord:
		return "application/json"
	case ArtifactDocument:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ArtifactReport:
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Warning records a recoverable per-field problem attached to a job, such as
// a constraint violation downgraded during extraction.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Job is one end-to-end pipeline invocation, owned by the registry. A job is
// mutated only through the registry while the pipeline executes on its behalf
// and becomes immutable once it reaches a terminal state.
type Job struct {
	ProcessID        string                  `json:"process_id" badgerhold:"key"`
	State            JobState                `json:"state"`
	InputName        string                  `json:"input_name"`
	InputKind        SourceKind              `json:"input_kind"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	CompletedAt      time.Time               `json:"completed_at,omitempty"`
	Error            string                  `json:"error,omitempty"`
	Warnings         []Warning               `json:"warnings,omitempty"`
	Artifacts        map[ArtifactKind]string `json:"artifacts,omitempty"`
	TranscriptLength int                     `json:"transcript_length,omitempty"`
}

// CanAdvance reports whether the job may move to next, returning
// ErrInvalidTransition with both states when it may not.
func (j *Job) CanAdvance(next JobState) error {
	if successor[j.State] != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, next)
	}
	return nil
}

// HasArtifact reports whether the job has recorded an artifact of the kind.
func (j *Job) HasArtifact(kind ArtifactKind) bool {
	_, ok := j.Artifacts[kind]
	return ok
}
