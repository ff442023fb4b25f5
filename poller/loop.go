// Package poller drives the poll cycle: for every registered task type, fetch pending tasks from the
// task source and hand them to the type's handler, then sleep. The loop never exits on an error; it
// only stops when its context is cancelled.
package poller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"

	log "github.com/freundallein/taskpoller/backend/chassis/logging"
	"github.com/freundallein/taskpoller/backend/chassis/metrics"
	"github.com/freundallein/taskpoller/backend/chassis/monkey"
	"github.com/freundallein/taskpoller/backend/executor"
	"github.com/freundallein/taskpoller/backend/handler"
	"github.com/freundallein/taskpoller/backend/source"
)

// Failure kinds, used as log field and metric label.
const (
	KindSourceUnavailable = "source_unavailable"
	KindMalformedResponse = "malformed_response"
	KindLaunchFailure     = "launch_failure"
	KindHandlerFailure    = "handler_failure"
)

const (
	defaultInterval       = 60 * time.Second
	defaultBackoffInitial = time.Second
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config ...
type Config struct {
	Source   source.Client
	Registry *handler.Registry
	// Interval is slept after a successful cycle.
	Interval time.Duration
	// BackoffInitial and BackoffMax bound the exponential delay after a failed cycle.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	Monkey         *monkey.Monkey
	Metrics        *metrics.Collector
	Sleep          SleepFunc
}

// Loop ...
type Loop struct {
	source   source.Client
	registry *handler.Registry
	interval time.Duration
	backoff  *backoff.ExponentialBackOff
	monkey   *monkey.Monkey
	metrics  *metrics.Collector
	sleep    SleepFunc
	cycle    uint64
}

// CycleError - a failed fetch or handle step of one task type.
type CycleError struct {
	TaskType string
	Stage    string
	Err      error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.TaskType, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// New ...
func New(cfg Config) (*Loop, error) {
	if cfg.Source == nil {
		return nil, errors.New("poller: source is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("poller: registry is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = defaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = cfg.Interval
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BackoffInitial
	b.MaxInterval = cfg.BackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return &Loop{
		source:   cfg.Source,
		registry: cfg.Registry,
		interval: cfg.Interval,
		backoff:  b,
		monkey:   cfg.Monkey,
		metrics:  cfg.Metrics,
		sleep:    cfg.Sleep,
	}, nil
}

// Run polls until ctx is cancelled and returns ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"event":      "start_service",
		"task_types": len(l.registry.Entries()),
		"interval":   l.interval,
	}).Info("starting poll loop")
	for {
		if err := ctx.Err(); err != nil {
			return l.stopped(err)
		}
		l.cycle++
		var delay time.Duration
		err := l.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return l.stopped(ctx.Err())
			}
			kind := Kind(err)
			l.metrics.Cycles.WithLabelValues("error").Inc()
			l.metrics.Failures.WithLabelValues(kind).Inc()
			delay = l.backoff.NextBackOff()
			fields := log.Fields{
				"event": "poll_cycle_failed",
				"kind":  kind,
				"cycle": l.cycle,
				"retry": delay,
			}
			var cycleErr *CycleError
			if errors.As(err, &cycleErr) {
				fields["task_type"] = cycleErr.TaskType
				fields["stage"] = cycleErr.Stage
			}
			log.WithFields(fields).Error(err)
		} else {
			l.metrics.Cycles.WithLabelValues("ok").Inc()
			l.backoff.Reset()
			delay = l.interval
			log.WithFields(log.Fields{
				"event": "poll_cycle_done",
				"cycle": l.cycle,
			}).Info("Sleeping ", delay)
		}
		if err := l.sleep(ctx, delay); err != nil {
			return l.stopped(err)
		}
	}
}

// RunCycle fetches and handles every registered task type once, in registration order.
// It stops at the first failing task type; types handled before it keep their dispatches.
func (l *Loop) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v\n%s", handler.ErrHandlerFailure, r, debug.Stack())
		}
	}()
	for _, entry := range l.registry.Entries() {
		tasks, fetchErr := l.source.Fetch(ctx, entry.Endpoint)
		fetchErr = l.monkey.RandomizeError(fetchErr)
		if fetchErr != nil {
			return &CycleError{TaskType: entry.TaskType, Stage: "fetch", Err: fetchErr}
		}
		log.WithFields(log.Fields{
			"event":     "fetch_tasks",
			"task_type": entry.TaskType,
			"pending":   len(tasks),
		}).Debug("fetched pending tasks")
		if handleErr := entry.Handler.Handle(ctx, tasks); handleErr != nil {
			return &CycleError{TaskType: entry.TaskType, Stage: "handle", Err: handleErr}
		}
	}
	return nil
}

func (l *Loop) stopped(err error) error {
	log.WithFields(log.Fields{
		"event": "ctx_canceled",
		"cycle": l.cycle,
	}).Info("poll loop stopped")
	return err
}

// Kind classifies a cycle error.
func Kind(err error) string {
	switch {
	case errors.Is(err, executor.ErrLaunchFailure):
		return KindLaunchFailure
	case errors.Is(err, source.ErrSourceUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, source.ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindHandlerFailure
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
