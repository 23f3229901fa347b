package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prodtrace/smartlabel/internal/errs"
	"github.com/prodtrace/smartlabel/internal/models"
)

// JobState is the lifecycle of a queued workflow run
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
)

// Job is one fire-and-forget workflow submission. Callers that need to
// observe completion poll it by id instead of blocking on the API call.
type Job struct {
	ID         string                           `json:"id"`
	ProductIDs []string                         `json:"product_ids"`
	State      JobState                         `json:"state"`
	Results    map[string]models.WorkflowStatus `json:"results,omitempty"`
	EnqueuedAt time.Time                        `json:"enqueued_at"`
	StartedAt  *time.Time                       `json:"started_at,omitempty"`
	FinishedAt *time.Time                       `json:"finished_at,omitempty"`
}

// Queue runs submitted workflows on a small worker pool. Independent
// products run concurrently across workers; items of one batch job run
// sequentially.
type Queue struct {
	engine  *Engine
	workers int

	mu        sync.RWMutex
	isRunning bool
	jobs      map[string]*Job

	jobChan  chan string
	stopChan chan struct{}
}

// NewQueue creates a queue draining into the given engine
func NewQueue(engine *Engine, workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		engine:   engine,
		workers:  workers,
		jobs:     make(map[string]*Job),
		jobChan:  make(chan string, 100),
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker pool
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.isRunning {
		return fmt.Errorf("workflow queue already running")
	}
	q.isRunning = true

	for i := 0; i < q.workers; i++ {
		go q.worker()
	}
	log.Printf("✅ Workflow queue started (%d workers)", q.workers)
	return nil
}

// Stop stops accepting work and releases the workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.isRunning {
		return
	}
	q.isRunning = false
	close(q.stopChan)
	log.Println("🛑 Workflow queue stopped")
}

// Submit enqueues a workflow run for one product and returns the job id
func (q *Queue) Submit(productID string) string {
	return q.enqueue([]string{productID})
}

// SubmitBatch enqueues a sequential workflow run over several products
func (q *Queue) SubmitBatch(productIDs []string) string {
	return q.enqueue(productIDs)
}

func (q *Queue) enqueue(productIDs []string) string {
	job := &Job{
		ID:         uuid.NewString(),
		ProductIDs: productIDs,
		State:      JobQueued,
		EnqueuedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	q.jobChan <- job.ID
	return job.ID
}

// Job returns a snapshot of a submitted job
func (q *Queue) Job(jobID string) (Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return Job{}, errs.Wrapf(errs.ErrNotFound, "job %s", jobID)
	}
	snapshot := *job
	snapshot.Results = make(map[string]models.WorkflowStatus, len(job.Results))
	for k, v := range job.Results {
		snapshot.Results[k] = v
	}
	return snapshot, nil
}

func (q *Queue) worker() {
	for {
		select {
		case jobID := <-q.jobChan:
			q.process(jobID)
		case <-q.stopChan:
			return
		}
	}
}

func (q *Queue) process(jobID string) {
	ctx := context.Background()

	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	job.State = JobRunning
	job.StartedAt = &now
	job.Results = make(map[string]models.WorkflowStatus)
	q.mu.Unlock()

	for i, productID := range job.ProductIDs {
		if i > 0 && q.engine.batchDelay > 0 {
			time.Sleep(q.engine.batchDelay)
		}
		status, err := q.engine.RunWorkflow(ctx, productID)
		if err != nil {
			log.Printf("⏭️  Job %s: skipping product %s: %v", jobID, productID, err)
			continue
		}
		q.mu.Lock()
		job.Results[productID] = status
		q.mu.Unlock()
	}

	q.mu.Lock()
	finished := time.Now().UTC()
	job.State = JobDone
	job.FinishedAt = &finished
	q.mu.Unlock()
}
