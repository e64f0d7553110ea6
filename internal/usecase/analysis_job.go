package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FxDesk/internal/domain/models"
	"FxDesk/pkg/cache"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/queue"
	"FxDesk/pkg/util"

	"github.com/google/uuid"
)

const JobTypeAnalysis = "analysis"

var ErrJobNotFound = errors.New("job not found")

// JobService runs analyses asynchronously through the job queue and keeps
// each job's state in the cache under "job:<id>".
type JobService struct {
	analysis *AnalysisService
	queue    queue.Publisher
	store    cache.Service
	ttl      time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewJobService(analysis *AnalysisService, q queue.Publisher, store cache.Service, ttl time.Duration, log *logger.Logger) *JobService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobService{
		analysis: analysis,
		queue:    q,
		store:    store,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// Submit validates the query, stores a queued state and enqueues the job.
func (s *JobService) Submit(ctx context.Context, req models.AnalyzeRequest) (models.JobState, error) {
	if _, err := util.ParsePair(req.Query); err != nil {
		return models.JobState{}, err
	}

	now := s.now().UTC()
	st := models.JobState{
		JobID:     uuid.NewString(),
		Status:    models.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, st); err != nil {
		return models.JobState{}, err
	}
	if _, err := s.queue.Enqueue(ctx, JobTypeAnalysis, models.AnalysisJob{JobID: st.JobID, Request: req}); err != nil {
		_ = s.store.Delete(ctx, jobKey(st.JobID))
		return models.JobState{}, fmt.Errorf("enqueue job: %w", err)
	}
	return st, nil
}

func (s *JobService) Get(ctx context.Context, id string) (models.JobState, error) {
	st, err := cache.GetTyped[models.JobState](ctx, s.store, jobKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.JobState{}, ErrJobNotFound
	}
	if err != nil {
		return models.JobState{}, fmt.Errorf("load job %s: %w", id, err)
	}
	return st, nil
}

// Job adapts the service to the queue worker.
func (s *JobService) Job() queue.Job { return analysisJob{s} }

type analysisJob struct{ s *JobService }

func (analysisJob) Name() string { return "analysis-job" }
func (analysisJob) Type() string { return JobTypeAnalysis }

// Handle runs one job. Analysis failures are final and recorded on the job;
// only cancellation and state-store errors are returned to the queue.
func (j analysisJob) Handle(ctx context.Context, payload json.RawMessage) error {
	job, err := queue.Decode[models.AnalysisJob](payload)
	if err != nil {
		return err
	}
	s := j.s

	st, err := s.Get(ctx, job.JobID)
	if errors.Is(err, ErrJobNotFound) {
		st = models.JobState{JobID: job.JobID, CreatedAt: s.now().UTC()}
	} else if err != nil {
		return err
	}

	st.Status = models.JobRunning
	st.Error = ""
	st.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, st); err != nil {
		return err
	}

	res, err := s.analysis.Analyze(ctx, job.Request, models.OriginJob)
	if errors.Is(err, context.Canceled) {
		return err
	}

	st.UpdatedAt = s.now().UTC()
	if err != nil {
		s.log.Warn("analysis job failed", logger.String("job_id", job.JobID), logger.Error(err))
		st.Status = models.JobFailed
		st.Error = err.Error()
	} else {
		st.Status = models.JobDone
		st.Result = &res
	}
	return s.save(context.WithoutCancel(ctx), st)
}

func (s *JobService) save(ctx context.Context, st models.JobState) error {
	if err := s.store.Set(ctx, jobKey(st.JobID), st, s.ttl); err != nil {
		return fmt.Errorf("save job %s: %w", st.JobID, err)
	}
	return nil
}

func jobKey(id string) string { return cache.Key("job", id) }
