package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/r3labs/diff/v3"
	"go.uber.org/zap"
)

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
)

// JobState is the externally visible state of one download job.
type JobState struct {
	Status          JobStatus `json:"status" diff:"status"`
	Filename        string    `json:"filename" diff:"filename"`
	DownloadedBytes int64     `json:"downloadedBytes" diff:"downloadedBytes"`
	ExpectedBytes   int64     `json:"expectedBytes" diff:"expectedBytes"`
	Error           string    `json:"error,omitempty" diff:"error"`
}

// Minimum interval between state-diff log lines caused by progress updates.
const progressLogInterval = 500 * time.Millisecond

type Job struct {
	ID    uuid.UUID `json:"id"`
	Input string    `json:"input"`

	mu        sync.Mutex
	state     JobState
	log       *zap.SugaredLogger
	lastDiff  time.Time
	createdAt time.Time
}

func newJob(input string, filename string, logger *zap.Logger) *Job {
	id := uuid.New()
	return &Job{
		ID:        id,
		Input:     input,
		state:     JobState{Status: JobPending, Filename: filename},
		log:       logger.Sugar().Named("job").With("id", id.String()),
		createdAt: time.Now(),
	}
}

// State returns a copy of the current job state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// updateState applies f under the lock and logs the field-level changes it
// caused. Pure byte-counter changes are rate limited to keep the log usable.
func (j *Job) updateState(f func(s *JobState)) {
	j.mu.Lock()
	old := j.state
	f(&j.state)
	updated := j.state
	progressOnly := updated.Status == old.Status && updated.Error == old.Error && updated.Filename == old.Filename
	now := time.Now()
	if progressOnly && now.Sub(j.lastDiff) < progressLogInterval {
		j.mu.Unlock()
		return
	}
	j.lastDiff = now
	j.mu.Unlock()

	changes, err := diff.Diff(old, updated)
	if err != nil {
		j.log.Errorf("failed to diff old and new job state: %v", err)
		return
	}
	for _, change := range changes {
		j.log.Debugf("%v: %#v -> %#v", change.Path, change.From, change.To)
	}
}

type jobList struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

func newJobList() *jobList {
	return &jobList{jobs: make(map[uuid.UUID]*Job)}
}

func (l *jobList) add(j *Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs[j.ID] = j
}

func (l *jobList) get(id uuid.UUID) (*Job, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	j, ok := l.jobs[id]
	return j, ok
}

func (l *jobList) list() []*Job {
	l.mu.RLock()
	defer l.mu.RUnlock()
	jobs := make([]*Job, 0, len(l.jobs))
	for _, j := range l.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}
