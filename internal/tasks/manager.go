// Package tasks runs jobs in the background on a fixed worker pool and keeps their
// status in memory so clients can poll for progress.
package tasks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Finished reports whether s is a terminal status.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseStatus accepts the lowercase status names.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	switch st {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return st, true
	}
	return "", false
}

var (
	ErrNotFound  = errors.New("task not found")
	ErrRunning   = errors.New("cannot cancel running task")
	ErrQueueFull = errors.New("task queue is full")
	ErrClosed    = errors.New("task manager is shut down")
)

// Task is a snapshot of one background job.
type Task struct {
	ID          string         `json:"task_id"`
	Kind        string         `json:"kind"`
	Status      Status         `json:"status"`
	Progress    float64        `json:"progress"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Result      any            `json:"result"`
	Error       *string        `json:"error"`
	Metadata    map[string]any `json:"metadata"`
}

// Job is the work behind a task. The returned value becomes the task result.
type Job func(ctx context.Context, p *Progress) (any, error)

// Progress lets a running job publish how far along it is.
type Progress struct {
	m  *Manager
	id string
}

func (p *Progress) TaskID() string { return p.id }

// Set records f, clamped to [0, 1].
func (p *Progress) Set(f float64) {
	f = min(max(f, 0), 1)
	p.m.update(p.id, func(t *Task) { t.Progress = f })
}

// Stats counts tasks per status.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

type queued struct {
	id  string
	job Job
}

// Manager owns the task table and a pool of workers fed by a bounded queue.
type Manager struct {
	mu      sync.RWMutex
	tasks   map[string]*Task
	cancels map[string]context.CancelFunc
	closed  bool

	queue  chan queued
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log zerolog.Logger
	now func() time.Time
}

// NewManager starts workers goroutines reading from a queue of queueSize.
func NewManager(workers, queueSize int, log zerolog.Logger) *Manager {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		tasks:   make(map[string]*Task),
		cancels: make(map[string]context.CancelFunc),
		queue:   make(chan queued, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With().Str("component", "tasks").Logger(),
		now:     time.Now,
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for q := range m.queue {
		m.run(q)
	}
}

func (m *Manager) run(q queued) {
	m.mu.Lock()
	t, ok := m.tasks[q.id]
	if !ok || t.Status != StatusPending {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancels[q.id] = cancel
	now := m.now()
	t.Status = StatusRunning
	t.StartedAt = &now
	m.mu.Unlock()

	m.log.Info().Str("event", "task_started").Str("task_id", q.id).Str("kind", t.Kind).Send()

	res, err := safeRun(ctx, q.job, &Progress{m: m, id: q.id})
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cancels, q.id)
	t, ok = m.tasks[q.id]
	if !ok {
		return
	}
	done := m.now()
	t.CompletedAt = &done
	if err != nil {
		msg := err.Error()
		t.Status = StatusFailed
		t.Error = &msg
		m.log.Error().Str("event", "task_failed").Str("task_id", q.id).Str("kind", t.Kind).Err(err).Send()
		return
	}
	t.Status = StatusCompleted
	t.Progress = 1
	t.Result = res
	m.log.Info().
		Str("event", "task_completed").
		Str("task_id", q.id).
		Str("kind", t.Kind).
		Int64("duration_ms", done.Sub(*t.StartedAt).Milliseconds()).
		Send()
}

// safeRun turns a panicking job into a failed task.
func safeRun(ctx context.Context, job Job, p *Progress) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("task panicked")
		}
	}()
	return job(ctx, p)
}

func (m *Manager) newTask(kind string, meta map[string]any) *Task {
	if meta == nil {
		meta = map[string]any{}
	}
	return &Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: m.now(),
		Metadata:  meta,
	}
}

// Submit records a pending task and queues job for the pool.
func (m *Manager) Submit(kind string, meta map[string]any, job Job) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Task{}, ErrClosed
	}
	t := m.newTask(kind, meta)
	select {
	case m.queue <- queued{id: t.ID, job: job}:
	default:
		return Task{}, ErrQueueFull
	}
	m.tasks[t.ID] = t
	m.log.Debug().Str("event", "task_queued").Str("task_id", t.ID).Str("kind", kind).Send()
	return clone(t), nil
}

// Track records a task that no worker runs, such as a batch umbrella record.
func (m *Manager) Track(kind string, meta map[string]any) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.newTask(kind, meta)
	m.tasks[t.ID] = t
	return clone(t)
}

// Annotate sets one metadata entry on a task.
func (m *Manager) Annotate(id, key string, value any) {
	m.update(id, func(t *Task) { t.Metadata[key] = value })
}

func (m *Manager) update(id string, fn func(*Task)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		fn(t)
	}
}

func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return clone(t), true
}

// List returns up to limit tasks, newest first, optionally filtered by status.
// total is the number of tasks held regardless of the filter.
func (m *Manager) List(status Status, limit int) (out []Task, total int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out = make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, clone(t))
	}
	slices.SortFunc(out, func(a, b Task) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, len(m.tasks)
}

// Remove deletes a task. Pending tasks are cancelled first; running tasks cannot be removed.
func (m *Manager) Remove(id string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return "", ErrNotFound
	}
	prev := t.Status
	switch prev {
	case StatusRunning:
		return prev, ErrRunning
	case StatusPending:
		now := m.now()
		t.Status = StatusCancelled
		t.CompletedAt = &now
		m.log.Info().Str("event", "task_cancelled").Str("task_id", id).Send()
	}
	delete(m.tasks, id)
	return prev, nil
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Total: len(m.tasks)}
	for _, t := range m.tasks {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Prune drops finished tasks that completed more than olderThan ago.
func (m *Manager) Prune(olderThan time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-olderThan)
	n := 0
	for id, t := range m.tasks {
		if t.Status.Finished() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(m.tasks, id)
			n++
		}
	}
	return n
}

// Shutdown stops accepting work and waits for queued and running jobs.
// When ctx expires first, running jobs are cancelled.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-done
		return ctx.Err()
	}
}

func clone(t *Task) Task {
	c := *t
	c.Metadata = make(map[string]any, len(t.Metadata))
	for k, v := range t.Metadata {
		c.Metadata[k] = v
	}
	return c
}
