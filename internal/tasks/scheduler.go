package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Entry describes one scheduled job.
type Entry struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Next     *time.Time `json:"next_run"`
	Prev     *time.Time `json:"last_run"`
}

type scheduled struct {
	name string
	spec string
	id   cron.EntryID
}

// Scheduler submits jobs to a Manager on cron schedules.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	m       *Manager
	entries []scheduled
	running bool
	log     zerolog.Logger
}

func NewScheduler(m *Manager, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		m:    m,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Schedule registers newJob under spec, which accepts standard five-field cron
// expressions and descriptors such as "@every 1h". A fresh job is built per run.
func (s *Scheduler) Schedule(name, spec string, newJob func() Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, func() {
		t, err := s.m.Submit(name, map[string]any{"type": name, "scheduled_task": name}, newJob())
		if err != nil {
			s.log.Error().Str("event", "scheduled_task_failed").Str("task", name).Err(err).Send()
			return
		}
		s.log.Info().Str("event", "scheduled_task_submitted").Str("task", name).Str("task_id", t.ID).Send()
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries = append(s.entries, scheduled{name: name, spec: spec, id: id})
	s.log.Info().Str("event", "task_scheduled").Str("task", name).Str("schedule", spec).Send()
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
}

// Stop halts scheduling and waits for in-flight submissions, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		ce := s.cron.Entry(e.id)
		entry := Entry{Name: e.name, Schedule: e.spec}
		if !ce.Next.IsZero() {
			next := ce.Next
			entry.Next = &next
		}
		if !ce.Prev.IsZero() {
			prev := ce.Prev
			entry.Prev = &prev
		}
		out = append(out, entry)
	}
	return out
}
