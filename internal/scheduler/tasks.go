// Package scheduler runs background reconciliation: asynq tasks for
// on-demand repair runs and a ticker loop for the periodic sweep.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskIntegrationRepair = "integration:repair"

// IntegrationRepairPayload parameterizes one repair run.
type IntegrationRepairPayload struct {
	DaysBack int    `json:"daysBack"`
	Trigger  string `json:"trigger"`
}

func NewIntegrationRepairTask(payload IntegrationRepairPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrationRepair, data), nil
}

func ParseIntegrationRepairPayload(task *asynq.Task) (IntegrationRepairPayload, error) {
	var payload IntegrationRepairPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return IntegrationRepairPayload{}, err
	}
	return payload, nil
}
