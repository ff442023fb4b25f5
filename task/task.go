package task

import (
	"encoding/json"
)

// Task - one pending unit of work as served by the task source.
type Task struct {
	Key       string
	TaskName  string
	Username  string
	LuaScript string
	// Extra holds every field not mapped above.
	Extra map[string]json.RawMessage
}

type wireTask struct {
	Key       string `json:"key"`
	TaskName  string `json:"task_name"`
	Username  string `json:"username"`
	LuaScript string `json:"lua_script"`
}

var knownFields = []string{"key", "task_name", "username", "lua_script"}

// UnmarshalJSON keeps unknown fields in Extra.
func (t *Task) UnmarshalJSON(data []byte) error {
	var wire wireTask
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, name := range knownFields {
		delete(all, name)
	}
	*t = Task{
		Key:       wire.Key,
		TaskName:  wire.TaskName,
		Username:  wire.Username,
		LuaScript: wire.LuaScript,
	}
	if len(all) > 0 {
		t.Extra = all
	}
	return nil
}

// Batch - pending tasks of one task type, by key.
type Batch map[string]Task
