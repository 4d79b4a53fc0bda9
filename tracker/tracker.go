package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"meshforge.dev/server/ai3d"
	"meshforge.dev/server/repository"
)

// API is the remote-service surface the tracker drives. *ai3d.Client
// satisfies it; tests substitute fakes.
type API interface {
	SubmitJob(ctx context.Context, prompt string) (*ai3d.SubmitResult, error)
	QueryJob(ctx context.Context, jobID string) (*ai3d.QueryResult, error)
}

// ResponseLogger receives raw vendor response bytes for out-of-band
// persistence. Implementations must return quickly and swallow their own
// errors; the tracker never inspects what they do.
type ResponseLogger interface {
	LogSubmit(raw []byte)
	LogQuery(jobID string, raw []byte)
}

type nopLogger struct{}

func (nopLogger) LogSubmit([]byte)        {}
func (nopLogger) LogQuery(string, []byte) {}

// Remote status markers. Anything else is treated as in-progress so a new
// vendor state never fails a job spuriously.
const (
	remoteStatusDone       = "DONE"
	remoteStatusProcessing = "PROCESSING"
	remoteStatusPending    = "PENDING"
)

// formatPreference orders result formats best-first. GLB is a single
// self-contained file the engine loads directly; OBJ arrives as a zip that
// needs unpacking.
var formatPreference = []string{"GLB", "OBJ"}

// The API does not report real progress, so the tracker advances a
// simulated value toward, but never past, progressCap. Only a SUCCESS
// transition reaches 100.
const (
	progressStep = 10
	progressCap  = 90
)

type Config struct {
	// Interval between polls when Backoff is nil. Default 5s; generation
	// typically completes within a few polls.
	Interval time.Duration
	// Backoff, when set, replaces the fixed interval.
	Backoff Backoff
	// MaxAttempts caps polls per job. A job still without a terminal
	// state after that many attempts is failed instead of being polled
	// forever. Default 120.
	MaxAttempts int
	// Workers bounds how many polls run concurrently across jobs.
	Workers int
	// CallTimeout bounds each remote call. Default 15s.
	CallTimeout time.Duration
	// Logger receives raw responses; nil disables raw logging.
	Logger ResponseLogger
}

// Tracker drives remote jobs from submission to a terminal state. It owns
// the scheduling bookkeeping; the published records live in the store.
type Tracker struct {
	api         API
	store       repository.JobStore
	logger      ResponseLogger
	backoff     Backoff
	maxAttempts int
	callTimeout time.Duration
	sched       *Scheduler

	mu   sync.Mutex
	jobs map[string]*jobState
}

// jobState is per-job scheduling state, separate from the published record.
// It exists from successful submission until polling stops.
type jobState struct {
	attempts int
}

func New(api API, store repository.JobStore, cfg Config) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = FixedInterval(cfg.Interval)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 120
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	t := &Tracker{
		api:         api,
		store:       store,
		logger:      cfg.Logger,
		backoff:     cfg.Backoff,
		maxAttempts: cfg.MaxAttempts,
		callTimeout: cfg.CallTimeout,
		jobs:        make(map[string]*jobState),
	}
	t.sched = NewScheduler(cfg.Workers, t.poll)
	return t
}

// Submit sends the generation request synchronously. On success the job is
// recorded in PROCESSING and its first poll is scheduled. A vendor rejection
// or transport failure records nothing; the error goes back to the caller,
// who decides whether to retry.
func (t *Tracker) Submit(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
	defer cancel()

	res, err := t.api.SubmitJob(callCtx, prompt)
	if err != nil {
		return "", err
	}
	t.logger.LogSubmit(res.Raw)

	job := repository.Job{
		ID:        res.JobID,
		Status:    repository.StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.Create(job); err != nil {
		return "", fmt.Errorf("tracker: record job %s: %w", res.JobID, err)
	}

	t.mu.Lock()
	t.jobs[res.JobID] = &jobState{}
	t.sched.Schedule(res.JobID, t.backoff(0))
	t.mu.Unlock()

	log.Printf("[Tracker] Job %s submitted", res.JobID)
	return res.JobID, nil
}

// Cancel stops future polling for jobID without touching its record.
// Returns false when the id is unknown or polling has already stopped.
func (t *Tracker) Cancel(jobID string) bool {
	t.mu.Lock()
	_, ok := t.jobs[jobID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	t.stop(jobID)
	log.Printf("[Tracker] Job %s polling canceled", jobID)
	return true
}

// Shutdown stops all timers and waits for in-flight polls, bounded by ctx.
func (t *Tracker) Shutdown(ctx context.Context) {
	t.sched.Shutdown(ctx)
}

// poll runs one query attempt for jobID. Transport failures, timeouts, and
// envelope-level vendor errors (an expired signature, a throttle) are all
// transient here: the record stays untouched and another poll is scheduled.
// Only the job-level classification in classify can reach a terminal state.
func (t *Tracker) poll(ctx context.Context, jobID string) {
	t.mu.Lock()
	state, ok := t.jobs[jobID]
	if !ok {
		// Canceled or terminal while the timer was in flight.
		t.mu.Unlock()
		return
	}
	state.attempts++
	attempt := state.attempts
	t.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
	res, err := t.api.QueryJob(callCtx, jobID)
	cancel()

	if err != nil {
		log.Printf("[Tracker] Poll %d for job %s failed: %v", attempt, jobID, err)
		t.reschedule(jobID, attempt)
		return
	}

	t.logger.LogQuery(jobID, res.Raw)
	t.classify(jobID, attempt, res)
}

func (t *Tracker) classify(jobID string, attempt int, res *ai3d.QueryResult) {
	t.mu.Lock()
	_, tracked := t.jobs[jobID]
	t.mu.Unlock()
	if !tracked {
		// Canceled while the query was in flight. The response must not
		// touch the record.
		return
	}

	job, ok, err := t.store.Get(jobID)
	if err != nil {
		log.Printf("[Tracker] Failed to load job %s: %v", jobID, err)
		t.reschedule(jobID, attempt)
		return
	}
	if !ok {
		// Record evicted underneath us; polling it further is pointless.
		t.stop(jobID)
		return
	}
	if job.Terminal() {
		// Stale response processed after a terminal transition. Never
		// regress a terminal record.
		t.stop(jobID)
		return
	}

	switch {
	case res.ErrorCode != "":
		msg := res.ErrorMessage
		if msg == "" {
			msg = res.ErrorCode
		}
		t.finishFailed(job, msg)

	case res.Status == remoteStatusDone:
		file, found := preferredFile(res.Files)
		if !found {
			// DONE without a usable file is an anomaly, not a success
			// and not a failure. Keep polling; MaxAttempts bounds it.
			log.Printf("[Tracker] Job %s reports DONE without a usable result file", jobID)
			t.reschedule(jobID, attempt)
			return
		}
		t.finishSuccess(job, file)

	case res.Status == remoteStatusProcessing, res.Status == remoteStatusPending, res.Status == "":
		if job.Progress < progressCap {
			job.Progress = min(job.Progress+progressStep, progressCap)
			if err := t.store.Update(job); err != nil {
				log.Printf("[Tracker] Failed to update job %s progress: %v", jobID, err)
			}
		}
		t.reschedule(jobID, attempt)

	default:
		log.Printf("[Tracker] Job %s reports unknown status %q, treating as in-progress", jobID, res.Status)
		t.reschedule(jobID, attempt)
	}
}

func (t *Tracker) finishSuccess(job repository.Job, file ai3d.ResultFile3D) {
	now := time.Now().UTC()
	job.Status = repository.StatusSuccess
	job.Progress = 100
	job.ModelURL = file.Url
	job.ModelType = file.Type
	job.PreviewImageURL = file.PreviewImageUrl
	job.Error = ""
	job.CompletedAt = &now
	if err := t.store.Update(job); err != nil {
		log.Printf("[Tracker] Failed to record success for job %s: %v", job.ID, err)
	}
	t.stop(job.ID)
	log.Printf("[Tracker] Job %s completed: %s model at %s", job.ID, file.Type, file.Url)
}

func (t *Tracker) finishFailed(job repository.Job, msg string) {
	now := time.Now().UTC()
	job.Status = repository.StatusFailed
	job.Progress = 0
	job.ModelURL = ""
	job.ModelType = ""
	job.PreviewImageURL = ""
	job.Error = msg
	job.CompletedAt = &now
	if err := t.store.Update(job); err != nil {
		log.Printf("[Tracker] Failed to record failure for job %s: %v", job.ID, err)
	}
	t.stop(job.ID)
	log.Printf("[Tracker] Job %s failed: %s", job.ID, msg)
}

// reschedule arms the next poll, or fails the job once the attempt budget
// is spent.
func (t *Tracker) reschedule(jobID string, attempt int) {
	if attempt >= t.maxAttempts {
		job, ok, err := t.store.Get(jobID)
		if err == nil && ok && !job.Terminal() {
			t.finishFailed(job, fmt.Sprintf("no terminal state after %d poll attempts", attempt))
		} else {
			t.stop(jobID)
		}
		return
	}

	// Arming the timer under the lock closes the race with Cancel: once
	// stop has removed the entry, no new timer can appear.
	t.mu.Lock()
	if _, ok := t.jobs[jobID]; ok {
		t.sched.Schedule(jobID, t.backoff(attempt))
	}
	t.mu.Unlock()
}

// stop halts all future polling for jobID. The published record is left
// exactly as it is.
func (t *Tracker) stop(jobID string) {
	t.mu.Lock()
	delete(t.jobs, jobID)
	t.mu.Unlock()
	t.sched.Cancel(jobID)
}

func preferredFile(files []ai3d.ResultFile3D) (ai3d.ResultFile3D, bool) {
	for _, format := range formatPreference {
		for _, f := range files {
			if f.Type == format && f.Url != "" {
				return f, true
			}
		}
	}
	return ai3d.ResultFile3D{}, false
}
