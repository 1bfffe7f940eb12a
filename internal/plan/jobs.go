package plan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/myrjola/velocoach/internal/errors"
)

// JobRetention is how long an unread finished job is kept.
const JobRetention = time.Hour

type JobStatus int

const (
	JobRunning JobStatus = iota
	JobSucceeded
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	}
	return "unknown"
}

// Job is a snapshot of a background generation.
type Job struct {
	ID       string
	Status   JobStatus
	Plan     SavedPlan
	Err      error
	finished time.Time
}

// GenerateFunc produces a plan. It is called with a context that is detached from the starting request.
type GenerateFunc func(ctx context.Context) (SavedPlan, error)

// Jobs runs generations in the background so that the request starting one can return immediately.
//
// Concurrent starts by the same owner share a single generation.
type Jobs struct {
	logger  *slog.Logger
	timeout time.Duration
	group   singleflight.Group
	mu      sync.Mutex
	jobs    map[string]*Job
	// onTimeout is called when a generation exceeds the timeout.
	onTimeout func(ctx context.Context)
}

func NewJobs(logger *slog.Logger, timeout time.Duration) *Jobs {
	return &Jobs{
		logger:  logger,
		timeout: timeout,
		group:   singleflight.Group{},
		mu:      sync.Mutex{},
		jobs:    make(map[string]*Job),

		onTimeout: nil,
	}
}

// OnTimeout registers fn to be called after a generation ran out of time. It must be called before Start.
func (j *Jobs) OnTimeout(fn func(ctx context.Context)) {
	j.onTimeout = fn
}

// Start runs fn in a new goroutine and returns the job id to poll with Result.
func (j *Jobs) Start(ctx context.Context, owner string, fn GenerateFunc) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Wrap(err, "new job id")
	}
	job := &Job{ID: id.String(), Status: JobRunning, Plan: SavedPlan{}, Err: nil, finished: time.Time{}}

	j.mu.Lock()
	j.sweep(time.Now())
	j.jobs[job.ID] = job
	j.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		start := time.Now()
		v, err, shared := j.group.Do(owner, func() (any, error) {
			genCtx, cancel := context.WithTimeout(detached, j.timeout)
			defer cancel()
			return fn(genCtx)
		})
		saved, _ := v.(SavedPlan)

		j.mu.Lock()
		job.finished = time.Now()
		if err != nil {
			job.Status = JobFailed
			job.Err = err
		} else {
			job.Status = JobSucceeded
			job.Plan = saved
		}
		j.mu.Unlock()

		attrs := []slog.Attr{
			slog.String("job_id", job.ID),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("shared", shared),
		}
		if err != nil {
			j.logger.LogAttrs(detached, slog.LevelWarn, "generation job failed", append(attrs, errors.SlogError(err))...)
			if j.onTimeout != nil && !shared && errors.Is(err, context.DeadlineExceeded) {
				j.onTimeout(detached)
			}
			return
		}
		j.logger.LogAttrs(detached, slog.LevelInfo, "generation job succeeded",
			append(attrs, slog.String("plan_code", saved.Code().String()))...)
	}()
	return job.ID, nil
}

// Result returns a snapshot of the job with id. Finished jobs are removed once read.
func (j *Jobs) Result(id string) (Job, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok {
		return Job{}, false
	}
	if job.Status != JobRunning {
		delete(j.jobs, id)
	}
	return *job, true
}

// sweep removes jobs that finished more than JobRetention ago. j.mu must be held.
func (j *Jobs) sweep(now time.Time) {
	for id, job := range j.jobs {
		if job.Status != JobRunning && now.Sub(job.finished) > JobRetention {
			delete(j.jobs, id)
		}
	}
}
