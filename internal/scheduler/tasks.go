package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskConvertPicklists = "picklists.convert"

type ConvertPicklistsPayload struct {
	PicklistIDs []int64 `json:"picklistIds"`
	RequestedBy string  `json:"requestedBy,omitempty"`
}

func NewConvertPicklistsTask(payload ConvertPicklistsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConvertPicklists, data), nil
}

func ParseConvertPicklistsPayload(task *asynq.Task) (ConvertPicklistsPayload, error) {
	var payload ConvertPicklistsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConvertPicklistsPayload{}, err
	}
	return payload, nil
}
