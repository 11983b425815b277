package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskArtworkGenerate = "artwork.generate"

const TaskMockupsGenerate = "mockups.generate"

const TaskNotificationOutboxSend = "notification.outbox.send"

const TaskOrdersReconcileSweep = "orders.reconcile.sweep"

type ArtworkGeneratePayload struct {
	ArtworkID string `json:"artworkId"`
}

type MockupsGeneratePayload struct {
	ArtworkID string `json:"artworkId"`
	ImageURL  string `json:"imageUrl"`
}

type NotificationOutboxSendPayload struct {
	OutboxID string `json:"outboxId"`
}

func NewArtworkGenerateTask(payload ArtworkGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArtworkGenerate, data), nil
}

func ParseArtworkGeneratePayload(task *asynq.Task) (ArtworkGeneratePayload, error) {
	var payload ArtworkGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ArtworkGeneratePayload{}, err
	}
	return payload, nil
}

func NewMockupsGenerateTask(payload MockupsGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMockupsGenerate, data), nil
}

func ParseMockupsGeneratePayload(task *asynq.Task) (MockupsGeneratePayload, error) {
	var payload MockupsGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return MockupsGeneratePayload{}, err
	}
	return payload, nil
}

func NewNotificationOutboxSendTask(payload NotificationOutboxSendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxSend, data), nil
}

func ParseNotificationOutboxSendPayload(task *asynq.Task) (NotificationOutboxSendPayload, error) {
	var payload NotificationOutboxSendPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxSendPayload{}, err
	}
	return payload, nil
}

func NewOrdersReconcileSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOrdersReconcileSweep, nil)
}
