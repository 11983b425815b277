package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testCfg struct {
	url string
}

func (c testCfg) GetRedisURL() string      { return c.url }
func (c testCfg) GetRedisTLSInsecure() bool { return false }
func (c testCfg) GetAsynqQueueName() string { return "default" }
func (c testCfg) GetAsynqConcurrency() int  { return 1 }

func TestClientEnqueuesTasks(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(testCfg{url: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	artworkID := uuid.New()
	if err := client.EnqueueGeneration(ctx, artworkID); err != nil {
		t.Fatalf("EnqueueGeneration: %v", err)
	}
	if err := client.RequestMockups(ctx, artworkID, "https://cdn.example/art.jpg"); err != nil {
		t.Fatalf("RequestMockups: %v", err)
	}
	if err := client.EnqueueOutboxSend(ctx, uuid.New()); err != nil {
		t.Fatalf("EnqueueOutboxSend: %v", err)
	}
	if err := client.EnqueueReconcileSweep(ctx); err != nil {
		t.Fatalf("EnqueueReconcileSweep: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 4 {
		t.Fatalf("pending tasks = %d, want 4", len(pending))
	}

	seen := make(map[string]bool)
	for _, task := range pending {
		seen[task.Type] = true
	}
	for _, want := range []string{TaskArtworkGenerate, TaskMockupsGenerate, TaskNotificationOutboxSend, TaskOrdersReconcileSweep} {
		if !seen[want] {
			t.Errorf("task %q was not enqueued; got %v", want, seen)
		}
	}

	payload, err := ParseArtworkGeneratePayload(asynq.NewTask(TaskArtworkGenerate, findPayload(pending, TaskArtworkGenerate)))
	if err != nil {
		t.Fatalf("ParseArtworkGeneratePayload: %v", err)
	}
	if payload.ArtworkID != artworkID.String() {
		t.Errorf("artwork id round-trip = %q, want %q", payload.ArtworkID, artworkID.String())
	}
}

// Generation and mockup failures are terminal statuses on the artwork, so the
// queue must never re-run those tasks on its own.
func TestGenerationTasksAreSingleAttempt(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(testCfg{url: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueGeneration(ctx, uuid.New()); err != nil {
		t.Fatalf("EnqueueGeneration: %v", err)
	}
	if err := client.RequestMockups(ctx, uuid.New(), "https://cdn.example/art.jpg"); err != nil {
		t.Fatalf("RequestMockups: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending tasks = %d, want 2", len(pending))
	}
	for _, task := range pending {
		if task.MaxRetry != 0 {
			t.Errorf("task %s MaxRetry = %d, want 0", task.Type, task.MaxRetry)
		}
	}
}

func findPayload(tasks []*asynq.TaskInfo, taskType string) []byte {
	for _, task := range tasks {
		if task.Type == taskType {
			return task.Payload
		}
	}
	return nil
}
