package store

import (
	"context"
	"errors"

	"github.com/anirudhmenon/resumatch/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// HistoryLimit bounds both the per-user result history and the processed
// filename window. Older entries are evicted server-side on append.
const HistoryLimit = 100

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	// CreateJob inserts a job with status processing. Jobs are only created
	// once a background task is about to run, so the persisted pending state
	// is never observed through this path.
	CreateJob(ctx context.Context, params CreateJobParams) (*models.AnalysisJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	// UpdateJob applies a partial update in one atomic commit. Score and
	// details are written only when the corresponding option is supplied.
	// A missing job id returns ErrNotFound; callers log and drop, never retry.
	// Terminal statuses permit no further transitions; that precondition is
	// the caller's, not enforced here.
	UpdateJob(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) (*models.AnalysisJob, error)
	ListJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.AnalysisJob, error)
	// DeleteJobsByOwner removes every job for the user and returns the blob
	// source keys of the deleted rows so the caller can clean up storage.
	DeleteJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error)

	// AppendHistory prepends a batch's results to the user's bounded history
	// and records the filenames in the processed window, evicting past
	// HistoryLimit in the same transaction. The batch lands at the head of
	// the history in its given order. Empty input is a no-op.
	AppendHistory(ctx context.Context, ownerID uuid.UUID, entries []models.HistoryEntry) error
	ListHistory(ctx context.Context, ownerID uuid.UUID) ([]models.HistoryEntry, error)
	RecentFilenames(ctx context.Context, ownerID uuid.UUID) ([]string, error)
}

// CreateJobParams carries the fields for a new analysis job. ID is optional;
// uuid.Nil means the store generates one. SourceKey stays nil for files that
// were listed remotely rather than uploaded.
type CreateJobParams struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Filename  string
	SourceKey *string
}

// JobUpdateParams collects the optional fields of an UpdateJob call. Nil
// fields are left untouched by the update.
type JobUpdateParams struct {
	Score   *float64
	Details map[string]any
}

type JobUpdateOption func(*JobUpdateParams)

func WithScore(score float64) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.Score = &score
	}
}

func WithDetails(details map[string]any) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.Details = details
	}
}
