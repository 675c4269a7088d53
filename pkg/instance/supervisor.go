package instance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/getmockd/mqfacade/internal/id"
	"github.com/getmockd/mqfacade/pkg/logging"
	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// TaskStatus is the state of a background task.
type TaskStatus string

// Task states.
const (
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Task is a snapshot of one background task.
type Task struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Key      string     `json:"key,omitempty"`
	Status   TaskStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Started  time.Time  `json:"started"`
	Finished time.Time  `json:"finished,omitzero"`
}

// Supervisor runs detached tasks, recovering panics and recording their
// outcome. A task never reports back to the code that started it.
type Supervisor struct {
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tasks map[string]*Task
	order []string

	wg conc.WaitGroup
}

// NewSupervisor returns a supervisor whose tasks run under a context that
// Stop cancels.
func NewSupervisor(log *slog.Logger) *Supervisor {
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*Task),
	}
}

// Go starts fn in the background and returns the task id.
func (s *Supervisor) Go(name, key string, fn func(ctx context.Context) error) string {
	t := &Task{ID: id.UUID(), Name: name, Key: key, Status: TaskRunning, Started: time.Now()}
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	s.mu.Unlock()

	s.wg.Go(func() {
		var err error
		if r := panics.Try(func() { err = fn(s.ctx) }); r != nil {
			err = mqerr.E(mqerr.Internal, "supervisor.task", r.AsError())
		}
		s.finish(t.ID, err)
	})
	return t.ID
}

func (s *Supervisor) finish(taskID string, err error) {
	s.mu.Lock()
	t := s.tasks[taskID]
	t.Finished = time.Now()
	if err != nil {
		t.Status = TaskFailed
		t.Error = err.Error()
	} else {
		t.Status = TaskSucceeded
	}
	snapshot := *t
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("background task failed", "task", snapshot.Name, "id", snapshot.ID, "key", snapshot.Key, "error", err)
		return
	}
	s.log.Debug("background task finished", "task", snapshot.Name, "id", snapshot.ID, "key", snapshot.Key,
		"duration", snapshot.Finished.Sub(snapshot.Started))
}

// Task returns one task by id.
func (s *Supervisor) Task(taskID string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Tasks returns every task in start order.
func (s *Supervisor) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.order))
	for _, tid := range s.order {
		out = append(out, *s.tasks[tid])
	}
	return out
}

// Running returns the ids of unfinished tasks.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, tid := range s.order {
		if s.tasks[tid].Status == TaskRunning {
			out = append(out, tid)
		}
	}
	return slices.Clip(out)
}

// Wait blocks until every started task has finished or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return mqerr.E(mqerr.Timeout, "supervisor.wait",
			fmt.Errorf("%d tasks still running: %w", len(s.Running()), ctx.Err()))
	}
}

// Stop cancels the context of running tasks.
func (s *Supervisor) Stop() { s.cancel() }
