package handler

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/freundallein/taskpoller/backend/task"
)

// Lua - scripted tasks. The script body is written to <tmp>/<run id>.lua before launch.
type Lua struct {
	base
}

// Handle ...
func (h *Lua) Handle(ctx context.Context, tasks task.Batch) error {
	return h.each(ctx, tasks, func(key string, t task.Task) (*job, error) {
		runID := h.RunIDs.Next(t.Username)
		scriptPath := h.tmpPath(runID + ".lua")
		if err := ioutil.WriteFile(scriptPath, []byte(t.LuaScript), 0644); err != nil {
			return nil, fmt.Errorf("write script: %v", err)
		}
		return &job{
			command: LuaCommand(scriptPath, runID, t.Username, key),
			logPath: h.tmpPath(runID + ".output"),
			runID:   runID,
		}, nil
	})
}

// LuaCommand renders the command line of a scripted task.
func LuaCommand(scriptPath, runID, username, key string) string {
	return fmt.Sprintf("bash vm_run_lua_on_slaves.sh %s %s %s %s", scriptPath, runID, username, key)
}
