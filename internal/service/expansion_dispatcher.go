package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/pkg/jobs"
)

// Expansion job types.
const (
	JobExpandAll = "expand_all"
	JobExpandOne = "expand_one"
)

// ExpansionPayload is carried by expansion jobs.
type ExpansionPayload struct {
	TargetID string
	Start    time.Time
	End      time.Time
}

type sessionExpansion interface {
	ExpandAll(ctx context.Context, collectionID string, start, end time.Time) (int, error)
	ExpandOne(ctx context.Context, scheduleID string, start, end time.Time) (int, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ExpansionDispatcher enqueues expansion work and executes it on queue workers.
// Callers never wait for the result; outcomes are logged.
type ExpansionDispatcher struct {
	expander sessionExpansion
	queue    jobDispatcher
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewExpansionDispatcher constructs the dispatcher. Attach a queue with SetQueue
// before enqueueing; the queue handler is Handle.
func NewExpansionDispatcher(expander sessionExpansion, metrics *MetricsService, logger *zap.Logger) *ExpansionDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpansionDispatcher{expander: expander, metrics: metrics, logger: logger}
}

// SetQueue wires the queue jobs are pushed onto.
func (d *ExpansionDispatcher) SetQueue(queue jobDispatcher) {
	d.queue = queue
}

// EnqueueExpandAll schedules expansion of every schedule in a collection.
func (d *ExpansionDispatcher) EnqueueExpandAll(collectionID string, start, end time.Time) error {
	return d.enqueue(JobExpandAll, ExpansionPayload{TargetID: collectionID, Start: start, End: end})
}

// EnqueueExpandOne schedules expansion of a single schedule.
func (d *ExpansionDispatcher) EnqueueExpandOne(scheduleID string, start, end time.Time) error {
	return d.enqueue(JobExpandOne, ExpansionPayload{TargetID: scheduleID, Start: start, End: end})
}

func (d *ExpansionDispatcher) enqueue(jobType string, payload ExpansionPayload) error {
	if d.queue == nil {
		return fmt.Errorf("expansion queue not configured")
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobType, Key: expansionKey(jobType, payload), Payload: payload}
	if err := d.queue.Enqueue(job); err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", jobType, payload.TargetID, err)
	}
	d.logger.Debug("expansion job enqueued", zap.String("job_id", job.ID), zap.String("type", jobType), zap.String("target_id", payload.TargetID))
	return nil
}

// expansionKey identifies equivalent pending jobs so repeated edits to the same
// collection or schedule queue a single expansion of a given window.
func expansionKey(jobType string, payload ExpansionPayload) string {
	return fmt.Sprintf("%s:%s:%s:%s", jobType, payload.TargetID,
		payload.Start.Format("2006-01-02"), payload.End.Format("2006-01-02"))
}

// Handle executes one expansion job. It is the queue's handler.
func (d *ExpansionDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ExpansionPayload)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	start := time.Now()
	var (
		inserted int
		err      error
	)
	switch job.Type {
	case JobExpandAll:
		inserted, err = d.expander.ExpandAll(ctx, payload.TargetID, payload.Start, payload.End)
	case JobExpandOne:
		inserted, err = d.expander.ExpandOne(ctx, payload.TargetID, payload.Start, payload.End)
	default:
		err = fmt.Errorf("job %s: unknown type %q", job.ID, job.Type)
	}
	d.metrics.ObserveExpansionJob(job.Type, err, time.Since(start))
	if err != nil {
		d.logger.Error("expansion job failed",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.String("target_id", payload.TargetID),
			zap.Error(err),
		)
		return err
	}
	d.logger.Info("expansion job finished",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.String("target_id", payload.TargetID),
		zap.Int("inserted", inserted),
	)
	return nil
}
