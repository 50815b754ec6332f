package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribo/internal/common"
	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerRegistry is the job registry backed by a badgerhold store for job
// records and a per-job filesystem directory for artifacts. Mutation is
// serialized per job; reads are lock-free against the store.
type BadgerRegistry struct {
	store        *badgerhold.Store
	artifactsDir string
	logger       arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewBadgerRegistry opens the job store and artifact namespace root.
func NewBadgerRegistry(cfg common.StorageConfig, logger arbor.ILogger) (*BadgerRegistry, error) {
	if cfg.Badger.ResetOnStartup {
		if _, err := os.Stat(cfg.Badger.Path); err == nil {
			logger.Debug().Str("path", cfg.Badger.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.Badger.Path); err != nil {
				logger.Warn().Err(err).Str("path", cfg.Badger.Path).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(cfg.Badger.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Artifacts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Badger.Path
	options.ValueDir = cfg.Badger.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().
		Str("db_path", cfg.Badger.Path).
		Str("artifacts_dir", cfg.Artifacts.Dir).
		Msg("Job registry initialized")

	return &BadgerRegistry{
		store:        store,
		artifactsDir: cfg.Artifacts.Dir,
		logger:       logger,
		locks:        make(map[string]*sync.Mutex),
	}, nil
}

// jobLock returns the mutex serializing mutation of one job.
func (r *BadgerRegistry) jobLock(processID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[processID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[processID] = lock
	}
	return lock
}

// Create allocates a fresh process ID and isolated artifact directory for a
// new job in the created state.
func (r *BadgerRegistry) Create(ctx context.Context, inputName string, kind models.SourceKind) (*models.Job, error) {
	now := time.Now().UTC()
	job := &models.Job{
		ProcessID: common.NewProcessID(),
		State:     models.JobStateCreated,
		InputName: inputName,
		InputKind: kind,
		CreatedAt: now,
		UpdatedAt: now,
		Artifacts: make(map[models.ArtifactKind]string),
	}

	if err := os.MkdirAll(r.jobDir(job.ProcessID), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact namespace: %w", err)
	}

	if err := r.store.Insert(job.ProcessID, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	r.logger.Info().
		Str("process_id", job.ProcessID).
		Str("input", inputName).
		Str("kind", string(kind)).
		Msg("Job created")

	return job, nil
}

// Advance moves the job to next and persists the stage's artifacts. The
// job record is updated only after every artifact write succeeds, so a
// recorded artifact path always points at a complete file.
func (r *BadgerRegistry) Advance(ctx context.Context, processID string, next models.JobState, artifacts ...interfaces.Artifact) error {
	lock := r.jobLock(processID)
	lock.Lock()
	defer lock.Unlock()

	job, err := r.load(processID)
	if err != nil {
		return err
	}

	if err := job.CanAdvance(next); err != nil {
		return err
	}

	for _, a := range artifacts {
		path := filepath.Join(r.jobDir(processID), a.Kind.FileName())
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return fmt.Errorf("failed to persist %s artifact: %w", a.Kind, err)
		}
		if job.Artifacts == nil {
			job.Artifacts = make(map[models.ArtifactKind]string)
		}
		job.Artifacts[a.Kind] = path
		if a.Kind == models.ArtifactTranscript {
			job.TranscriptLength = len(a.Data)
		}
	}

	job.State = next
	job.UpdatedAt = time.Now().UTC()
	if next.Terminal() {
		job.CompletedAt = job.UpdatedAt
	}

	if err := r.store.Update(processID, job); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}

	r.logger.Info().
		Str("process_id", processID).
		Str("state", string(next)).
		Int("artifacts", len(artifacts)).
		Msg("Job advanced")

	return nil
}

// Fail transitions the job to failed with a recorded cause. Failing a job
// that already failed is a no-op; failing a done job is rejected.
func (r *BadgerRegistry) Fail(ctx context.Context, processID string, cause error) error {
	lock := r.jobLock(processID)
	lock.Lock()
	defer lock.Unlock()

	job, err := r.load(processID)
	if err != nil {
		return err
	}

	if job.State == models.JobStateFailed {
		return nil
	}
	if job.State == models.JobStateDone {
		return fmt.Errorf("%w: done -> failed", models.ErrInvalidTransition)
	}

	job.State = models.JobStateFailed
	job.Error = cause.Error()
	job.UpdatedAt = time.Now().UTC()
	job.CompletedAt = job.UpdatedAt

	if err := r.store.Update(processID, job); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}

	r.logger.Warn().
		Str("process_id", processID).
		Err(cause).
		Msg("Job failed")

	return nil
}

// AddWarnings attaches recoverable warnings to the job.
func (r *BadgerRegistry) AddWarnings(ctx context.Context, processID string, warnings []models.Warning) error {
	if len(warnings) == 0 {
		return nil
	}

	lock := r.jobLock(processID)
	lock.Lock()
	defer lock.Unlock()

	job, err := r.load(processID)
	if err != nil {
		return err
	}

	job.Warnings = append(job.Warnings, warnings...)
	job.UpdatedAt = time.Now().UTC()

	if err := r.store.Update(processID, job); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}
	return nil
}

// Get returns the job for processID.
func (r *BadgerRegistry) Get(ctx context.Context, processID string) (*models.Job, error) {
	return r.load(processID)
}

// GetArtifact returns the artifact bytes of the given kind.
func (r *BadgerRegistry) GetArtifact(ctx context.Context, processID string, kind models.ArtifactKind) ([]byte, error) {
	job, err := r.load(processID)
	if err != nil {
		return nil, err
	}

	path, ok := job.Artifacts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", models.ErrArtifactNotReady, kind, processID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s artifact: %w", kind, err)
	}
	return data, nil
}

// Close releases the underlying store.
func (r *BadgerRegistry) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

func (r *BadgerRegistry) jobDir(processID string) string {
	return filepath.Join(r.artifactsDir, processID)
}

func (r *BadgerRegistry) load(processID string) (*models.Job, error) {
	var job models.Job
	if err := r.store.Get(processID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, processID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}
