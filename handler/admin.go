package handler

import (
	"context"
	"fmt"

	"github.com/freundallein/taskpoller/backend/task"
)

// Admin task names.
const (
	ChromeBuildTask     = "build_chromium"
	PageSetsTask        = "create_pagesets"
	WebpageArchivesTask = "capture_archives"
)

// Admin - maintenance tasks; one fixed script per task name.
type Admin struct {
	base
}

// Handle ...
func (h *Admin) Handle(ctx context.Context, tasks task.Batch) error {
	return h.each(ctx, tasks, func(key string, t task.Task) (*job, error) {
		logPath := h.tmpPath(fmt.Sprintf("%s-%s-%s.output", t.Username, t.TaskName, key))
		command, err := AdminCommand(t.TaskName, t.Username, key, logPath)
		if err != nil {
			return nil, err
		}
		return &job{command: command, logPath: logPath}, nil
	})
}

// AdminCommand renders the command line of an admin task.
func AdminCommand(taskName, username, key, logPath string) (string, error) {
	switch taskName {
	case ChromeBuildTask:
		return fmt.Sprintf("bash vm_build_chromium.sh %s %s %s", username, key, logPath), nil
	case PageSetsTask:
		return fmt.Sprintf("bash vm_create_pagesets_on_slaves.sh %s %s", username, key), nil
	case WebpageArchivesTask:
		return fmt.Sprintf("bash vm_capture_archive_on_slaves.sh %s %s", username, key), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTask, taskName)
}
