package printsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/rusq/posprint/transport"
)

// ErrJobFinished is returned when running a job in a terminal state.
var ErrJobFinished = errors.New("job is already finished")

// JobState is the state of a print job.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobAborted    JobState = "aborted"
	JobCancelled  JobState = "cancelled"
)

// fsm events for job state transitions.
const (
	jobEvtProcess  = "process"
	jobEvtComplete = "complete"
	jobEvtAbort    = "abort"
	jobEvtCancel   = "cancel"
)

/*
                           +----> completed
                          /
   ---> pending ---> processing ---> aborted
                          \
                           +----> cancelled
*/

var jobFsmEvts = []fsm.EventDesc{
	{Name: jobEvtProcess, Src: []string{string(JobPending)}, Dst: string(JobProcessing)},
	{Name: jobEvtComplete, Src: []string{string(JobProcessing)}, Dst: string(JobCompleted)},
	{Name: jobEvtAbort, Src: []string{string(JobPending), string(JobProcessing)}, Dst: string(JobAborted)},
	{Name: jobEvtCancel, Src: []string{string(JobPending), string(JobProcessing)}, Dst: string(JobCancelled)},
}

// JobStateReason explains the current job state.
type JobStateReason string

const (
	JSRJobIncoming              JobStateReason = "job-incoming"
	JSRJobTransforming          JobStateReason = "job-transforming"
	JSRJobPrinting              JobStateReason = "job-printing"
	JSRJobCompletedSuccessfully JobStateReason = "job-completed-successfully"
	JSRDocumentFormatError      JobStateReason = "document-format-error"
	JSRPrinterDisconnected      JobStateReason = "printer-disconnected"
	JSRSubmissionInterrupted    JobStateReason = "submission-interrupted"
	JSRAbortedBySystem          JobStateReason = "aborted-by-system"
)

// Job is a single print request.
type Job struct {
	ID      uuid.UUID
	Name    string
	Created time.Time

	mu         sync.Mutex
	state      JobState
	reasons    []JobStateReason
	size       int
	processing time.Time
	completed  time.Time
	errMsg     string
	sm         *fsm.FSM
}

// JobInfo is the JSON representation of a job.
type JobInfo struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	State        JobState         `json:"state"`
	StateReasons []JobStateReason `json:"state_reasons"`
	Size         int              `json:"size"`
	Created      time.Time        `json:"created"`
	Processing   *time.Time       `json:"processing,omitempty"`
	Completed    *time.Time       `json:"completed,omitempty"`
	Error        string           `json:"error,omitempty"`
}

func newJob(name string, reasons ...JobStateReason) *Job {
	if len(reasons) == 0 {
		reasons = []JobStateReason{JSRJobIncoming}
	}
	j := &Job{
		ID:      uuid.New(),
		Name:    name,
		Created: time.Now(),
		state:   JobPending,
		reasons: reasons,
	}
	j.sm = makeJobFSM(j)
	return j
}

func makeJobFSM(j *Job) *fsm.FSM {
	lg := slog.With("job_id", j.ID, "job_name", j.Name)
	return fsm.NewFSM(
		string(JobPending),
		jobFsmEvts,
		fsm.Callbacks{
			jobEvtProcess: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job processing started")
				j.mu.Lock()
				defer j.mu.Unlock()
				j.state = JobProcessing
				j.reasons = []JobStateReason{JSRJobPrinting}
				j.processing = time.Now()
			},
			jobEvtComplete: func(ctx context.Context, e *fsm.Event) {
				lg.InfoContext(ctx, "job completed")
				j.mu.Lock()
				defer j.mu.Unlock()
				j.state = JobCompleted
				j.reasons = []JobStateReason{JSRJobCompletedSuccessfully}
				j.completed = time.Now()
			},
			jobEvtAbort: func(ctx context.Context, e *fsm.Event) {
				lg.WarnContext(ctx, "job aborted", "args", e.Args)
				j.finish(JobAborted, JSRAbortedBySystem, e.Args)
			},
			jobEvtCancel: func(ctx context.Context, e *fsm.Event) {
				lg.WarnContext(ctx, "job cancelled", "args", e.Args)
				j.finish(JobCancelled, JSRSubmissionInterrupted, e.Args)
			},
		},
	)
}

// finish records a terminal state.  args may hold JobStateReasons and one
// error.
func (j *Job) finish(state JobState, fallback JobStateReason, args []any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = state
	j.completed = time.Now()
	j.reasons = nil
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case JobStateReason:
			j.reasons = append(j.reasons, v)
		case error:
			j.errMsg = v.Error()
		default:
			slog.Warn("invalid argument for job state", "arg", arg)
		}
	}
	if len(j.reasons) == 0 {
		j.reasons = []JobStateReason{fallback}
	}
}

// event fires the FSM event, logging failed transitions.
func (j *Job) event(ctx context.Context, name string, args ...any) {
	if err := j.sm.Event(ctx, name, args...); err != nil {
		slog.ErrorContext(ctx, "job state transition failed", "job_id", j.ID, "event", name, "error", err)
	}
}

// Abort aborts a pending job, i.e. when the document cannot be rendered.
func (j *Job) Abort(ctx context.Context, reason JobStateReason, err error) {
	j.event(ctx, jobEvtAbort, reason, err)
}

// Run sends the frame through s, moving the job to a terminal state.  The
// error of the sender is returned as is.
func (j *Job) Run(ctx context.Context, s transport.Sender, data []byte) error {
	if j.IsCompleted() {
		return fmt.Errorf("%w: %s", ErrJobFinished, j)
	}
	j.mu.Lock()
	j.size = len(data)
	j.mu.Unlock()

	j.event(ctx, jobEvtProcess)
	err := s.Send(ctx, data)
	switch {
	case err == nil:
		j.event(ctx, jobEvtComplete)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		j.event(context.WithoutCancel(ctx), jobEvtCancel, JSRSubmissionInterrupted, err)
	case errors.Is(err, transport.ErrDisconnected):
		j.event(ctx, jobEvtAbort, JSRPrinterDisconnected, err)
	default:
		j.event(ctx, jobEvtAbort, JSRAbortedBySystem, err)
	}
	return err
}

// State returns the current job state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Info returns the snapshot of the job.
func (j *Job) Info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	nulltime := func(t time.Time) *time.Time {
		if t.IsZero() {
			return nil
		}
		return &t
	}
	return JobInfo{
		ID:           j.ID,
		Name:         j.Name,
		State:        j.state,
		StateReasons: append([]JobStateReason(nil), j.reasons...),
		Size:         j.size,
		Created:      j.Created,
		Processing:   nulltime(j.processing),
		Completed:    nulltime(j.completed),
		Error:        j.errMsg,
	}
}

// IsCompleted reports whether the job reached a terminal state.
func (j *Job) IsCompleted() bool {
	switch j.State() {
	case JobCompleted, JobAborted, JobCancelled:
		return true
	}
	return false
}

func (j *Job) String() string {
	return fmt.Sprintf("%s %q %s", j.ID, j.Name, j.State())
}

// jobStore keeps the most recent jobs in memory.
type jobStore struct {
	mu    sync.RWMutex
	jobs  map[uuid.UUID]*Job
	order []uuid.UUID
	limit int
}

func newJobStore(limit int) *jobStore {
	if limit <= 0 {
		limit = DefaultJobHistory
	}
	return &jobStore{jobs: make(map[uuid.UUID]*Job), limit: limit}
}

func (s *jobStore) add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	for len(s.order) > s.limit {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *jobStore) get(id uuid.UUID) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// list returns the jobs, oldest first.
func (s *jobStore) list() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}
