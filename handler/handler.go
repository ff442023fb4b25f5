package handler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freundallein/taskpoller/backend/chassis/config"
	log "github.com/freundallein/taskpoller/backend/chassis/logging"
	"github.com/freundallein/taskpoller/backend/chassis/metrics"
	"github.com/freundallein/taskpoller/backend/chassis/storage"
	"github.com/freundallein/taskpoller/backend/dedup"
	"github.com/freundallein/taskpoller/backend/executor"
	"github.com/freundallein/taskpoller/backend/task"
)

var (
	// ErrHandlerFailure - a task batch could not be processed for a reason other than a launch failure.
	ErrHandlerFailure = errors.New("handler failure")
	// ErrUnknownTask - the task name has no command template.
	ErrUnknownTask = errors.New("unknown task name")
)

// Handler turns a batch of pending tasks of one type into worker launches.
type Handler interface {
	Handle(ctx context.Context, tasks task.Batch) error
}

// Recorder receives every dispatch after its process was started.
type Recorder interface {
	Record(ctx context.Context, dispatch *storage.Dispatch) error
}

// Deps - collaborators shared by all handlers.
type Deps struct {
	TaskType string
	// Dedup is nil for task types that re-dispatch every task on every cycle.
	Dedup     dedup.Store
	Launcher  executor.Launcher
	RunIDs    *task.RunIDs
	TmpDir    string
	Recorders []Recorder
	Metrics   *metrics.Collector
	NewID     func() string
	Now       func() time.Time
}

// New builds the handler of the given kind.
func New(kind string, deps Deps) (Handler, error) {
	b, err := newBase(deps)
	if err != nil {
		return nil, err
	}
	switch kind {
	case config.HandlerAdmin:
		return &Admin{base: b}, nil
	case config.HandlerLua:
		return &Lua{base: b}, nil
	}
	return nil, fmt.Errorf("unknown handler kind %q", kind)
}

type base struct {
	Deps
}

func newBase(deps Deps) (base, error) {
	if deps.TaskType == "" {
		return base{}, errors.New("handler: task type is required")
	}
	if deps.Launcher == nil {
		return base{}, errors.New("handler: launcher is required")
	}
	if deps.RunIDs == nil {
		deps.RunIDs = task.NewRunIDs(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return base{Deps: deps}, nil
}

// job - what a concrete handler wants launched for one task.
type job struct {
	command string
	logPath string
	runID   string
}

// each walks tasks in ascending key order, applies dedup and launches whatever build returns.
func (b *base) each(ctx context.Context, tasks task.Batch, build func(key string, t task.Task) (*job, error)) error {
	b.Metrics.Pending.WithLabelValues(b.TaskType).Set(float64(len(tasks)))
	keys := make([]string, 0, len(tasks))
	for k := range tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		t := tasks[k]
		key := t.Key
		if key == "" {
			key = k
		}
		if b.Dedup != nil {
			if b.Dedup.HasSeen(b.TaskType, key) {
				b.Metrics.Duplicates.WithLabelValues(b.TaskType).Inc()
				log.WithFields(log.Fields{
					"event":     "task_already_dispatched",
					"task_type": b.TaskType,
					"key":       key,
				}).Debug(key, " is already being processed")
				continue
			}
			b.Dedup.MarkSeen(b.TaskType, key)
		}
		j, err := build(key, t)
		if err != nil {
			return fmt.Errorf("%w: task %s: %v", ErrHandlerFailure, key, err)
		}
		log.WithFields(log.Fields{
			"event":     "dispatch_task",
			"task_type": b.TaskType,
			"key":       key,
			"username":  t.Username,
		}).Info("Output will be available in ", j.logPath)
		if err := b.Launcher.Launch(j.command, j.logPath, j.logPath); err != nil {
			return fmt.Errorf("task %s: %w", key, err)
		}
		b.Metrics.Dispatched.WithLabelValues(b.TaskType).Inc()
		b.record(ctx, &storage.Dispatch{
			ID:           b.NewID(),
			TaskType:     b.TaskType,
			Key:          key,
			TaskName:     t.TaskName,
			Username:     t.Username,
			RunID:        j.runID,
			Command:      j.command,
			LogPath:      j.logPath,
			DispatchedDt: b.Now(),
		})
	}
	return nil
}

func (b *base) record(ctx context.Context, dispatch *storage.Dispatch) {
	for _, r := range b.Recorders {
		if err := r.Record(ctx, dispatch); err != nil {
			log.WithFields(log.Fields{
				"event":     "record_dispatch_failed",
				"task_type": dispatch.TaskType,
				"key":       dispatch.Key,
			}).Warn(err)
		}
	}
}

func (b *base) tmpPath(name string) string {
	return filepath.Join(b.TmpDir, name)
}
