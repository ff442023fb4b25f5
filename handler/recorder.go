package handler

import (
	"context"

	"github.com/freundallein/taskpoller/backend/chassis/protocol"
	"github.com/freundallein/taskpoller/backend/chassis/queue"
	"github.com/freundallein/taskpoller/backend/chassis/storage"
)

// QueueRecorder publishes dispatches as JSON-RPC messages.
type QueueRecorder struct {
	Queue queue.Client
}

// Record ...
func (r *QueueRecorder) Record(_ context.Context, dispatch *storage.Dispatch) error {
	message := DispatchMessage(dispatch)
	jsonMsg, err := message.JSON()
	if err != nil {
		return err
	}
	return r.Queue.SendMessage(jsonMsg)
}

// DispatchMessage ...
func DispatchMessage(dispatch *storage.Dispatch) *protocol.Request {
	return &protocol.Request{
		ID:     dispatch.ID,
		Method: protocol.MethodDispatched + dispatch.TaskType,
		Params: map[string]string{
			"key":      dispatch.Key,
			"username": dispatch.Username,
			"taskName": dispatch.TaskName,
			"runID":    dispatch.RunID,
			"logPath":  dispatch.LogPath,
			"command":  dispatch.Command,
		},
	}
}
