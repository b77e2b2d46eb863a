// Package ingest turns ingestion requests into analysis jobs and runs them.
// Both entry modes feed a shared worker pool of per-file tasks; callers get
// an immediate queued acknowledgment and poll job status afterwards.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/anirudhmenon/resumatch/internal/cache"
	"github.com/anirudhmenon/resumatch/internal/drive"
	"github.com/anirudhmenon/resumatch/internal/extract"
	"github.com/anirudhmenon/resumatch/internal/scoring"
	"github.com/anirudhmenon/resumatch/internal/storage"
	"github.com/anirudhmenon/resumatch/internal/store"
	"github.com/anirudhmenon/resumatch/pkg/models"
	"github.com/google/uuid"
)

const statusCacheTTL = 30 * time.Minute

var wordPattern = regexp.MustCompile(`\w+`)

// tokenize lowercases text and splits it into word tokens, matching the
// request shape the scoring service expects for inline analysis.
func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// UploadedFile is one file of an upload-mode batch, already read into memory
// by the HTTP layer.
type UploadedFile struct {
	Filename  string
	MediaType string
	Content   []byte
}

// BatchAck is the immediate response to an ingestion request. Jobs listed
// here are created with status processing; results arrive via polling.
type BatchAck struct {
	Queued int         `json:"queued"`
	JobIDs []uuid.UUID `json:"job_ids"`
}

// Dispatcher creates one job per ingested file and schedules one analysis
// task per job on its worker pool.
type Dispatcher struct {
	store       store.Store
	scorer      scoring.Client
	blobs       storage.BlobStore
	drive       drive.Client
	cache       cache.Cache
	presignTTL  time.Duration
	taskTimeout time.Duration

	tasks chan task
}

type task struct {
	batch *batch
	job   *models.AnalysisJob
	run   func(ctx context.Context) (*scoring.Result, error)
}

// batch joins the per-file tasks of one ingestion request so drive-mode
// completions can be merged into history as a unit.
type batch struct {
	ownerID      uuid.UUID
	mergeHistory bool
	pending      sync.WaitGroup

	mu        sync.Mutex
	completed []models.HistoryEntry
}

func (b *batch) addCompleted(e models.HistoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = append(b.completed, e)
}

// NewDispatcher creates a Dispatcher. Call Start before ingesting.
// taskTimeout bounds one task end to end, including blob and Drive I/O.
func NewDispatcher(
	st store.Store,
	scorer scoring.Client,
	blobs storage.BlobStore,
	driveClient drive.Client,
	ca cache.Cache,
	queueSize int,
	presignTTL time.Duration,
	taskTimeout time.Duration,
) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Minute
	}
	return &Dispatcher{
		store:       st,
		scorer:      scorer,
		blobs:       blobs,
		drive:       driveClient,
		cache:       ca,
		presignTTL:  presignTTL,
		taskTimeout: taskTimeout,
		tasks:       make(chan task, queueSize),
	}
}

// Start launches the worker pool. Workers stop accepting new tasks when ctx
// is done; a task already started always runs to completion.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go d.worker(ctx)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-d.tasks:
			d.process(t)
		}
	}
}

// IngestUploads creates one job per uploaded file and schedules each on the
// pool. Tasks are independent: no ordering across files, and each writes its
// own terminal status. Job creation is all-or-nothing: a failure mid-batch
// fails the already created jobs and schedules nothing, so a rejected batch
// never runs partially.
func (d *Dispatcher) IngestUploads(ctx context.Context, ownerID uuid.UUID, files []UploadedFile, description string) (*BatchAck, error) {
	ack := &BatchAck{JobIDs: []uuid.UUID{}}
	if len(files) == 0 {
		return ack, nil
	}

	b := &batch{ownerID: ownerID}

	type upload struct {
		job  *models.AnalysisJob
		file UploadedFile
		key  string
	}
	created := make([]upload, 0, len(files))
	createdJobs := make([]*models.AnalysisJob, 0, len(files))
	for _, f := range files {
		key := storage.ObjectKey(f.Filename)

		job, err := d.store.CreateJob(ctx, store.CreateJobParams{
			OwnerID:   ownerID,
			Filename:  f.Filename,
			SourceKey: &key,
		})
		if err != nil {
			d.failUnqueued(ctx, createdJobs)
			return nil, fmt.Errorf("create job for %s: %w", f.Filename, err)
		}
		created = append(created, upload{job: job, file: f, key: key})
		createdJobs = append(createdJobs, job)
	}

	for _, u := range created {
		u := u
		d.schedule(b, u.job, func(taskCtx context.Context) (*scoring.Result, error) {
			if err := d.blobs.Put(taskCtx, u.key, u.file.Content, u.file.MediaType); err != nil {
				return nil, err
			}

			words := tokenize(extract.Extract(u.file.Content, u.file.MediaType))
			if len(words) > 0 {
				return d.scorer.AnalyzeWords(taskCtx, scoring.WordsRequest{
					Filename:    u.file.Filename,
					Words:       words,
					Description: description,
				})
			}

			// Nothing extractable locally; hand the scorer a presigned URL
			// so it can fetch and parse the original itself.
			url, err := d.blobs.PresignedGet(taskCtx, u.key, d.presignTTL)
			if err != nil {
				return nil, err
			}
			return d.scorer.AnalyzeBlob(taskCtx, scoring.BlobRequest{
				Filename:    u.file.Filename,
				FileURL:     url,
				Description: description,
			})
		})

		ack.Queued++
		ack.JobIDs = append(ack.JobIDs, u.job.ID)
	}

	return ack, nil
}

// IngestDriveFolder lists the folder with the caller's delegated token,
// creates one job per non-folder entry, and schedules the batch. A failing
// listing rejects the whole batch before any job exists; an empty filtered
// listing is a non-error "nothing to do". Job creation is all-or-nothing,
// as in IngestUploads. Completed results are merged into the owner's
// history once every task in the batch has finished.
func (d *Dispatcher) IngestDriveFolder(ctx context.Context, ownerID uuid.UUID, folderID, token, description string) (*BatchAck, error) {
	entries, err := d.drive.ListFolder(ctx, folderID, token)
	if err != nil {
		return nil, fmt.Errorf("list drive folder: %w", err)
	}

	ack := &BatchAck{JobIDs: []uuid.UUID{}}
	b := &batch{ownerID: ownerID, mergeHistory: true}

	type remote struct {
		job   *models.AnalysisJob
		entry drive.File
	}
	created := make([]remote, 0, len(entries))
	createdJobs := make([]*models.AnalysisJob, 0, len(entries))
	for _, entry := range entries {
		if entry.MIMEType == drive.FolderMIMEType {
			continue
		}

		job, err := d.store.CreateJob(ctx, store.CreateJobParams{
			OwnerID:  ownerID,
			Filename: entry.Name,
		})
		if err != nil {
			d.failUnqueued(ctx, createdJobs)
			return nil, fmt.Errorf("create job for %s: %w", entry.Name, err)
		}
		created = append(created, remote{job: job, entry: entry})
		createdJobs = append(createdJobs, job)
	}

	for _, rm := range created {
		rm := rm
		d.schedule(b, rm.job, func(taskCtx context.Context) (*scoring.Result, error) {
			content, err := d.drive.Download(taskCtx, rm.entry.ID, token)
			if err != nil {
				return nil, err
			}

			words := tokenize(extract.Extract(content, rm.entry.MIMEType))
			if len(words) > 0 {
				return d.scorer.AnalyzeWords(taskCtx, scoring.WordsRequest{
					Filename:    rm.entry.Name,
					Words:       words,
					Description: description,
				})
			}

			return d.scorer.AnalyzeDrive(taskCtx, scoring.DriveRequest{
				FileID:      rm.entry.ID,
				GoogleToken: token,
				Filename:    rm.entry.Name,
				MIMEType:    rm.entry.MIMEType,
				Description: description,
			})
		})

		ack.Queued++
		ack.JobIDs = append(ack.JobIDs, rm.job.ID)
	}

	if ack.Queued > 0 {
		go d.mergeBatchHistory(b)
	}
	return ack, nil
}

// failUnqueued marks jobs that never reached the queue as failed so a
// rejected batch leaves nothing stuck in processing.
func (d *Dispatcher) failUnqueued(ctx context.Context, jobs []*models.AnalysisJob) {
	for _, job := range jobs {
		if _, err := d.store.UpdateJob(ctx, job.ID, models.JobStatusFailed); err != nil {
			slog.Error("failed to mark unqueued job failed", "job_id", job.ID, "error", err)
			continue
		}
		_ = d.cache.SetJobStatus(ctx, job.ID, models.JobStatusFailed, statusCacheTTL)
	}
}

func (d *Dispatcher) schedule(b *batch, job *models.AnalysisJob, run func(context.Context) (*scoring.Result, error)) {
	_ = d.cache.SetJobStatus(context.Background(), job.ID, models.JobStatusProcessing, statusCacheTTL)
	b.pending.Add(1)
	d.tasks <- task{batch: b, job: job, run: run}
}

// process runs one task to completion. Failures stay inside the task's job;
// nothing propagates to the request that queued it. The task context carries
// a deadline so a stalled download or upload cannot hold a worker and leave
// the job in processing; every outbound client threads this context.
func (d *Dispatcher) process(t task) {
	defer t.batch.pending.Done()

	// Terminal writes use a fresh context: an expired task deadline must
	// not block the status commit.
	writeCtx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in analysis task", "job_id", t.job.ID, "panic", r)
			d.writeTerminal(writeCtx, t, models.JobStatusFailed, nil)
		}
	}()

	runCtx, cancel := context.WithTimeout(context.Background(), d.taskTimeout)
	defer cancel()

	result, err := t.run(runCtx)
	if err != nil {
		slog.Error("analysis task failed",
			"job_id", t.job.ID, "filename", t.job.Filename, "error", err)
		d.writeTerminal(writeCtx, t, models.JobStatusFailed, nil)
		return
	}

	d.writeTerminal(writeCtx, t, models.JobStatusCompleted, result)
}

// writeTerminal commits the job's terminal status in one atomic update and
// mirrors it into the cache. A vanished job id is logged and dropped.
func (d *Dispatcher) writeTerminal(ctx context.Context, t task, status string, result *scoring.Result) {
	opts := []store.JobUpdateOption{}
	if status == models.JobStatusCompleted && result != nil {
		opts = append(opts, store.WithScore(result.MatchScore), store.WithDetails(result.Details))
	}

	if _, err := d.store.UpdateJob(ctx, t.job.ID, status, opts...); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("job vanished before terminal write", "job_id", t.job.ID)
		} else {
			slog.Error("terminal status write failed", "job_id", t.job.ID, "error", err)
		}
		return
	}

	_ = d.cache.SetJobStatus(ctx, t.job.ID, status, statusCacheTTL)

	if status == models.JobStatusCompleted && t.batch.mergeHistory {
		t.batch.addCompleted(models.HistoryEntry{
			JobID:    t.job.ID,
			Filename: t.job.Filename,
			Analysis: historySnapshot(result),
		})
	}
}

// historySnapshot flattens a scoring result into the analysis map stored in
// history, keeping the score alongside the service's details.
func historySnapshot(result *scoring.Result) map[string]any {
	analysis := map[string]any{"match_score": result.MatchScore}
	for k, v := range result.Details {
		analysis[k] = v
	}
	return analysis
}

// mergeBatchHistory waits for every task in the batch, then appends the
// completed results. Failed files are simply omitted; their job records
// alone reflect the failure.
func (d *Dispatcher) mergeBatchHistory(b *batch) {
	b.pending.Wait()

	b.mu.Lock()
	completed := b.completed
	b.mu.Unlock()

	if len(completed) == 0 {
		return
	}
	if err := d.store.AppendHistory(context.Background(), b.ownerID, completed); err != nil {
		slog.Error("history merge failed", "owner_id", b.ownerID, "error", err)
	}
}

// Reset removes every job for the user and deletes their blobs best-effort:
// storage failures are logged and skipped, never surfaced.
func (d *Dispatcher) Reset(ctx context.Context, ownerID uuid.UUID) error {
	keys, err := d.store.DeleteJobsByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("delete jobs: %w", err)
	}

	for _, key := range keys {
		if err := d.blobs.Delete(ctx, key); err != nil {
			slog.Warn("blob delete failed during reset", "key", key, "error", err)
		}
	}
	return nil
}
