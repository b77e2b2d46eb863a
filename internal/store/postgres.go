package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anirudhmenon/resumatch/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, email string) (*models.User, error) {
	u := models.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- Analysis Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, params CreateJobParams) (*models.AnalysisJob, error) {
	id := params.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	job := models.AnalysisJob{
		ID:        id,
		OwnerID:   params.OwnerID,
		Filename:  params.Filename,
		SourceKey: params.SourceKey,
		Status:    models.JobStatusProcessing,
		Score:     0,
		Details:   map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analysis_jobs (id, owner_id, filename, source_key, status, score, details, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.OwnerID, job.Filename, job.SourceKey, job.Status, job.Score, job.Details, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	var j models.AnalysisJob
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, filename, source_key, status, score, details, created_at, updated_at
		 FROM analysis_jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.OwnerID, &j.Filename, &j.SourceKey, &j.Status, &j.Score, &j.Details,
		&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) (*models.AnalysisJob, error) {
	params := &JobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	query := `UPDATE analysis_jobs SET status = $2, updated_at = $3`
	args := []any{id, status, time.Now().UTC()}
	argIdx := 4

	if params.Score != nil {
		query += fmt.Sprintf(", score = $%d", argIdx)
		args = append(args, *params.Score)
		argIdx++
	}
	if params.Details != nil {
		query += fmt.Sprintf(", details = $%d", argIdx)
		args = append(args, params.Details)
		argIdx++
	}

	query += ` WHERE id = $1
		 RETURNING id, owner_id, filename, source_key, status, score, details, created_at, updated_at`

	var j models.AnalysisJob
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&j.ID, &j.OwnerID, &j.Filename, &j.SourceKey, &j.Status, &j.Score, &j.Details,
		&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) ListJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.AnalysisJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, filename, source_key, status, score, details, created_at, updated_at
		 FROM analysis_jobs WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.AnalysisJob
	for rows.Next() {
		var j models.AnalysisJob
		if err := rows.Scan(&j.ID, &j.OwnerID, &j.Filename, &j.SourceKey, &j.Status, &j.Score,
			&j.Details, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) DeleteJobsByOwner(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM analysis_jobs WHERE owner_id = $1 RETURNING source_key`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("delete jobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key *string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan source key: %w", err)
		}
		if key != nil {
			keys = append(keys, *key)
		}
	}
	return keys, rows.Err()
}

// --- History ---

// AppendHistory inserts the batch inside one transaction and evicts everything
// past the latest HistoryLimit entries, so concurrent batch completions for
// the same user serialize at the database instead of overwriting each other.
func (s *PostgresStore) AppendHistory(ctx context.Context, ownerID uuid.UUID, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin history append: %w", err)
	}
	defer tx.Rollback(ctx)

	// Insert in reverse so the batch's own order survives the seq DESC
	// read: the first entry gets the highest seq and lists first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		analysis := e.Analysis
		if analysis == nil {
			analysis = map[string]any{}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO history_entries (user_id, job_id, filename, analysis, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, job_id) DO NOTHING`,
			ownerID, e.JobID, e.Filename, analysis, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO processed_filenames (user_id, filename) VALUES ($1, $2)`,
			ownerID, e.Filename)
		if err != nil {
			return fmt.Errorf("insert processed filename: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM history_entries WHERE user_id = $1 AND seq NOT IN (
		   SELECT seq FROM history_entries WHERE user_id = $1 ORDER BY seq DESC LIMIT $2)`,
		ownerID, HistoryLimit)
	if err != nil {
		return fmt.Errorf("evict history entries: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM processed_filenames WHERE user_id = $1 AND seq NOT IN (
		   SELECT seq FROM processed_filenames WHERE user_id = $1 ORDER BY seq DESC LIMIT $2)`,
		ownerID, HistoryLimit)
	if err != nil {
		return fmt.Errorf("evict processed filenames: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit history append: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, ownerID uuid.UUID) ([]models.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT job_id, filename, analysis FROM history_entries
		 WHERE user_id = $1 ORDER BY seq DESC LIMIT $2`, ownerID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.JobID, &e.Filename, &e.Analysis); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) RecentFilenames(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT filename FROM processed_filenames
		 WHERE user_id = $1 ORDER BY seq DESC LIMIT $2`, ownerID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("recent filenames: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan filename: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
