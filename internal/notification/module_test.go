package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/notification/outbox"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeOutbox struct {
	mu      sync.Mutex
	records map[uuid.UUID]*outbox.Record
	order   []uuid.UUID
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{records: make(map[uuid.UUID]*outbox.Record)}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	runAt := p.RunAt
	if runAt.IsZero() {
		runAt = time.Now().UTC()
	}
	rec := &outbox.Record{
		ID:       uuid.New(),
		Kind:     p.Kind,
		Template: p.Template,
		Payload:  payload,
		RunAt:    runAt,
		Status:   outbox.StatusPending,
	}
	f.records[rec.ID] = rec
	f.order = append(f.order, rec.ID)
	return rec.ID, nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, errors.New("not found")
	}
	return *rec, nil
}

func (f *fakeOutbox) ClaimDue(_ context.Context, limit int) ([]outbox.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []outbox.Record
	for _, id := range f.order {
		rec := f.records[id]
		if rec.Status == outbox.StatusPending && !rec.RunAt.After(time.Now()) {
			rec.Status = outbox.StatusEnqueued
			claimed = append(claimed, *rec)
			if len(claimed) == limit {
				break
			}
		}
	}
	return claimed, nil
}

func (f *fakeOutbox) MarkPending(_ context.Context, id uuid.UUID, lastError *string, nextRunAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id].Status = outbox.StatusPending
	f.records[id].RunAt = nextRunAt
	return nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id].Status = outbox.StatusProcessing
	f.records[id].Attempts++
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id].Status = outbox.StatusSucceeded
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id].Status = outbox.StatusFailed
	return nil
}

func (f *fakeOutbox) byTemplate(template string) []outbox.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []outbox.Record
	for _, id := range f.order {
		if f.records[id].Template == template {
			out = append(out, *f.records[id])
		}
	}
	return out
}

func (f *fakeOutbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type sentEmail struct {
	template string
	to       string
	detail   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeSender) record(template, to, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{template, to, detail})
	return nil
}

func (f *fakeSender) SendMasterpieceCreatingEmail(_ context.Context, to, name, pet string) error {
	return f.record(TemplateMasterpieceCreating, to, pet)
}

func (f *fakeSender) SendMasterpieceReadyEmail(_ context.Context, to, name, pet, artworkURL string) error {
	return f.record(TemplateMasterpieceReady, to, artworkURL)
}

func (f *fakeSender) SendOrderConfirmationEmail(_ context.Context, to, name, orderNumber, product, delivery string) error {
	return f.record(TemplateOrderConfirmation, to, orderNumber+" "+product+" "+delivery)
}

func (f *fakeSender) SendOrderShippedEmail(_ context.Context, to, name, orderNumber, trackingURL string) error {
	return f.record(TemplateOrderShipped, to, orderNumber)
}

func (f *fakeSender) SendAdminReviewNotificationEmail(_ context.Context, to, reviewType, name, pet, reviewURL string) error {
	return f.record(TemplateAdminReview, to, reviewType+" "+reviewURL)
}

func (f *fakeSender) SendUploadReminderEmail(_ context.Context, to, name, uploadURL string, reminderNumber int) error {
	return f.record(TemplateUploadReminder, to, uploadURL)
}

func (f *fakeSender) SendCustomEmail(_ context.Context, to, subject, html string) error {
	return f.record("custom", to, subject)
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeUploads struct{ awaiting bool }

func (f *fakeUploads) IsAwaitingUpload(context.Context, uuid.UUID) (bool, error) {
	return f.awaiting, nil
}

type testCfg struct{}

func (testCfg) GetAppBaseURL() string { return "https://pawtrait.example" }
func (testCfg) GetAdminEmail() string { return "admin@pawtrait.example" }

type testEnv struct {
	module *Module
	repo   *fakeOutbox
	sender *fakeSender
	bus    *events.InMemoryBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.New("test")
	repo := newFakeOutbox()
	sender := &fakeSender{}
	bus := events.NewInMemoryBus(log)

	m := &Module{
		dispatcher: NewDispatcher(repo, sender, log),
		cfg:        testCfg{},
		repo:       repo,
		log:        log,
	}
	m.subscribe(bus)
	return &testEnv{module: m, repo: repo, sender: sender, bus: bus}
}

func TestEventsProduceOutboxRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	artworkID := uuid.New()

	mustPublish(t, env.bus, ctx, events.ArtworkCreated{
		BaseEvent: events.NewBaseEvent(), ArtworkID: artworkID,
		CustomerName: "Jane", CustomerEmail: "jane@example.com", PetName: "Biscuit",
	})
	mustPublish(t, env.bus, ctx, events.ArtworkCompleted{
		BaseEvent: events.NewBaseEvent(), ArtworkID: artworkID,
		CustomerName: "Jane", CustomerEmail: "jane@example.com", AccessToken: "tok-abc",
	})
	mustPublish(t, env.bus, ctx, events.ReviewCreated{
		BaseEvent: events.NewBaseEvent(), ReviewID: uuid.New(), ArtworkID: artworkID,
		ReviewType: "artwork_proof", CustomerName: "Jane", PetName: "Biscuit",
	})
	mustPublish(t, env.bus, ctx, events.OrderPaid{
		BaseEvent: events.NewBaseEvent(), OrderID: uuid.New(), ArtworkID: artworkID,
		ProductType: "art_print", ProductSize: "20x30",
		CustomerName: "Jane", CustomerEmail: "jane@example.com",
	})

	if env.repo.count() != 4 {
		t.Fatalf("expected 4 outbox rows, got %d", env.repo.count())
	}

	ready := env.repo.byTemplate(TemplateMasterpieceReady)
	if len(ready) != 1 {
		t.Fatalf("masterpiece_ready rows = %d", len(ready))
	}
	var payload emailPayload
	if err := json.Unmarshal(ready[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.ArtworkURL != "https://pawtrait.example/artwork/tok-abc" {
		t.Errorf("artwork url = %q", payload.ArtworkURL)
	}

	review := env.repo.byTemplate(TemplateAdminReview)
	if len(review) != 1 {
		t.Fatalf("admin_review rows = %d", len(review))
	}
	if err := json.Unmarshal(review[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.To != "admin@pawtrait.example" {
		t.Errorf("review notification recipient = %q, want the configured admin", payload.To)
	}

	confirmation := env.repo.byTemplate(TemplateOrderConfirmation)
	if len(confirmation) != 1 {
		t.Fatalf("order_confirmation rows = %d", len(confirmation))
	}
	if err := json.Unmarshal(confirmation[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(payload.OrderNumber, "PT-") {
		t.Errorf("order number = %q", payload.OrderNumber)
	}
	if payload.ProductDescription != "Premium Art Print (20x30)" {
		t.Errorf("product description = %q", payload.ProductDescription)
	}
}

func TestHighresApprovalDoesNotEmailCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mustPublish(t, env.bus, ctx, events.ReviewApproved{
		BaseEvent: events.NewBaseEvent(), ReviewID: uuid.New(), ArtworkID: uuid.New(),
		ReviewType: "highres_file", CustomerEmail: "jane@example.com", AccessToken: "tok",
	})
	if env.repo.count() != 0 {
		t.Errorf("highres approval must not queue a customer email, got %d rows", env.repo.count())
	}

	mustPublish(t, env.bus, ctx, events.ReviewApproved{
		BaseEvent: events.NewBaseEvent(), ReviewID: uuid.New(), ArtworkID: uuid.New(),
		ReviewType: "artwork_proof", CustomerEmail: "jane@example.com", AccessToken: "tok",
	})
	if got := len(env.repo.byTemplate(TemplateMasterpieceReady)); got != 1 {
		t.Errorf("proof approval should queue the reveal email, got %d", got)
	}
}

func TestDispatchDueSendsAndMarksSucceeded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mustPublish(t, env.bus, ctx, events.ArtworkCreated{
		BaseEvent: events.NewBaseEvent(), ArtworkID: uuid.New(),
		CustomerName: "Jane", CustomerEmail: "jane@example.com",
	})

	claimed, err := env.module.Dispatcher().DispatchDue(ctx)
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if claimed != 1 || env.sender.sentCount() != 1 {
		t.Fatalf("claimed=%d sent=%d, want 1/1", claimed, env.sender.sentCount())
	}

	rows := env.repo.byTemplate(TemplateMasterpieceCreating)
	if rows[0].Status != outbox.StatusSucceeded {
		t.Errorf("row status = %s, want succeeded", rows[0].Status)
	}

	// A second sweep finds nothing new.
	claimed, err = env.module.Dispatcher().DispatchDue(ctx)
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if claimed != 0 || env.sender.sentCount() != 1 {
		t.Errorf("second sweep claimed=%d sent=%d, want 0/1", claimed, env.sender.sentCount())
	}
}

func TestSendRetriesThenFails(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errors.New("smtp refused")
	ctx := context.Background()

	id, err := env.repo.Insert(ctx, outbox.InsertParams{
		Kind: kindEmail, Template: TemplateMasterpieceCreating,
		Payload: emailPayload{To: "jane@example.com", CustomerName: "Jane"},
	})
	if err != nil {
		t.Fatal(err)
	}

	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		if err := env.module.Dispatcher().Send(ctx, id); err == nil {
			t.Fatalf("attempt %d should fail", attempt)
		}
		rec, _ := env.repo.GetByID(ctx, id)
		if attempt < maxSendAttempts {
			if rec.Status != outbox.StatusPending {
				t.Errorf("after attempt %d status = %s, want pending for retry", attempt, rec.Status)
			}
			if !rec.RunAt.After(time.Now()) {
				t.Errorf("retry should be delayed, run_at = %v", rec.RunAt)
			}
		} else if rec.Status != outbox.StatusFailed {
			t.Errorf("after final attempt status = %s, want failed", rec.Status)
		}
		if rec.Attempts != attempt {
			t.Errorf("attempts = %d, want %d", rec.Attempts, attempt)
		}
	}

	// Terminal rows are acknowledged without another delivery.
	if err := env.module.Dispatcher().Send(ctx, id); err != nil {
		t.Errorf("re-sending a failed row should be a no-op, got %v", err)
	}
}

func TestUploadReminderChain(t *testing.T) {
	env := newTestEnv(t)
	env.module.Dispatcher().SetUploadStateReader(&fakeUploads{awaiting: true})
	ctx := context.Background()

	mustPublish(t, env.bus, ctx, events.ArtworkDeferred{
		BaseEvent: events.NewBaseEvent(), ArtworkID: uuid.New(),
		CustomerName: "Jane", CustomerEmail: "jane@example.com", UploadToken: "up-tok",
	})

	rows := env.repo.byTemplate(TemplateUploadReminder)
	if len(rows) != 1 {
		t.Fatalf("expected one scheduled reminder, got %d", len(rows))
	}
	if !rows[0].RunAt.After(time.Now().Add(12 * time.Hour)) {
		t.Errorf("first reminder should wait a day, run_at = %v", rows[0].RunAt)
	}

	// Send reminders 1 and 2; each schedules the next one.
	for want := 2; want <= maxUploadReminders; want++ {
		rows = env.repo.byTemplate(TemplateUploadReminder)
		if err := env.module.Dispatcher().Send(ctx, rows[len(rows)-1].ID); err != nil {
			t.Fatalf("Send reminder: %v", err)
		}
		rows = env.repo.byTemplate(TemplateUploadReminder)
		if len(rows) != want {
			t.Fatalf("after sending, reminder rows = %d, want %d", len(rows), want)
		}
	}

	// The final reminder ends the chain.
	rows = env.repo.byTemplate(TemplateUploadReminder)
	if err := env.module.Dispatcher().Send(ctx, rows[len(rows)-1].ID); err != nil {
		t.Fatalf("Send final reminder: %v", err)
	}
	if got := len(env.repo.byTemplate(TemplateUploadReminder)); got != maxUploadReminders {
		t.Errorf("final reminder must not schedule another, rows = %d", got)
	}
	if env.sender.sentCount() != maxUploadReminders {
		t.Errorf("sent %d reminders, want %d", env.sender.sentCount(), maxUploadReminders)
	}
}

func TestUploadReminderDroppedAfterResume(t *testing.T) {
	env := newTestEnv(t)
	env.module.Dispatcher().SetUploadStateReader(&fakeUploads{awaiting: false})
	ctx := context.Background()

	id, err := env.repo.Insert(ctx, outbox.InsertParams{
		Kind: kindEmail, Template: TemplateUploadReminder,
		Payload: emailPayload{To: "jane@example.com", ArtworkID: uuid.New(), ReminderNumber: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := env.module.Dispatcher().Send(ctx, id); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if env.sender.sentCount() != 0 {
		t.Errorf("reminder should be dropped once photos arrive")
	}
	rec, _ := env.repo.GetByID(ctx, id)
	if rec.Status != outbox.StatusSucceeded {
		t.Errorf("dropped reminder status = %s, want succeeded", rec.Status)
	}
	if got := len(env.repo.byTemplate(TemplateUploadReminder)); got != 1 {
		t.Errorf("dropped reminder must not chain, rows = %d", got)
	}
}

func mustPublish(t *testing.T, bus *events.InMemoryBus, ctx context.Context, event events.Event) {
	t.Helper()
	if err := bus.PublishSync(ctx, event); err != nil {
		t.Fatalf("publish %s: %v", event.EventName(), err)
	}
}
