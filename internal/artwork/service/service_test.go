package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pawtrait_backend/internal/artwork/domain"
	"pawtrait_backend/internal/artwork/repository"
	"pawtrait_backend/internal/artwork/transport"
	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/review/policy"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeStore struct {
	mu       sync.Mutex
	artworks map[uuid.UUID]*repository.Artwork
}

func newFakeStore() *fakeStore {
	return &fakeStore{artworks: make(map[uuid.UUID]*repository.Artwork)}
}

func (f *fakeStore) Create(_ context.Context, artwork *repository.Artwork) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *artwork
	f.artworks[artwork.ID] = &copied
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Artwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	artwork, ok := f.artworks[id]
	if !ok {
		return nil, apperr.NotFound("artwork not found")
	}
	copied := *artwork
	return &copied, nil
}

func (f *fakeStore) GetByAccessToken(_ context.Context, accessToken string) (*repository.Artwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, artwork := range f.artworks {
		if artwork.AccessToken == accessToken {
			copied := *artwork
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("artwork not found")
}

func (f *fakeStore) GetByUploadToken(_ context.Context, uploadToken string) (*repository.Artwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, artwork := range f.artworks {
		if artwork.UploadToken != nil && *artwork.UploadToken == uploadToken {
			copied := *artwork
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("artwork not found")
}

func (f *fakeStore) ExtendAccessToken(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	artwork, ok := f.artworks[id]
	if !ok {
		return apperr.NotFound("artwork not found")
	}
	artwork.TokenExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) UpdateCustomer(_ context.Context, id uuid.UUID, name, email, petName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	artwork, ok := f.artworks[id]
	if !ok {
		return apperr.NotFound("artwork not found")
	}
	if name != "" {
		artwork.CustomerName = name
	}
	if email != "" {
		artwork.CustomerEmail = email
	}
	if petName != "" {
		artwork.PetName = petName
	}
	return nil
}

func (f *fakeStore) ClearUploadToken(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if artwork, ok := f.artworks[id]; ok {
		artwork.UploadToken = nil
		artwork.UploadTokenExpiresAt = nil
	}
	return nil
}

func (f *fakeStore) UpdateGeneration(_ context.Context, id uuid.UUID, apply func(*repository.Artwork) error) (*repository.Artwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	artwork, ok := f.artworks[id]
	if !ok {
		return nil, apperr.NotFound("artwork not found")
	}
	working := *artwork
	if err := apply(&working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()
	f.artworks[id] = &working
	copied := working
	return &copied, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	f.Publish(ctx, event)
	return nil
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func (f *fakeBus) count(eventName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, event := range f.events {
		if event.EventName() == eventName {
			n++
		}
	}
	return n
}

type fakeMockupRequester struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeMockupRequester) RequestMockups(context.Context, uuid.UUID, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeReviewOpener struct {
	mu     sync.Mutex
	opened []ProofReviewParams
}

func (f *fakeReviewOpener) OpenProofReview(_ context.Context, params ProofReviewParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, params)
	return nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEnqueuer) EnqueueGeneration(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type testConfig struct{}

func (testConfig) GetArtworkTokenTTL() time.Duration { return 30 * 24 * time.Hour }
func (testConfig) GetUploadTokenTTL() time.Duration  { return 7 * 24 * time.Hour }

// ── Helpers ───────────────────────────────────────────────────────────────────

type testEnv struct {
	svc      *Service
	store    *fakeStore
	bus      *fakeBus
	mockups  *fakeMockupRequester
	reviews  *fakeReviewOpener
	enqueuer *fakeEnqueuer
}

func newTestEnv(t *testing.T, reviewEnabled bool) *testEnv {
	t.Helper()
	store := newFakeStore()
	bus := &fakeBus{}
	svc := New(store, bus, policy.Policy{Enabled: reviewEnabled}, testConfig{}, logger.New("test"))

	env := &testEnv{
		svc:      svc,
		store:    store,
		bus:      bus,
		mockups:  &fakeMockupRequester{},
		reviews:  &fakeReviewOpener{},
		enqueuer: &fakeEnqueuer{},
	}
	svc.SetMockupRequester(env.mockups)
	svc.SetProofReviewOpener(env.reviews)
	svc.SetGenerationEnqueuer(env.enqueuer)
	return env
}

func createArtwork(t *testing.T, env *testEnv) uuid.UUID {
	t.Helper()
	resp, err := env.svc.Create(context.Background(), transport.CreateArtworkRequest{
		CustomerName:  "Jamie",
		CustomerEmail: "jamie@example.com",
		PetName:       "Biscuit",
		SourceImages: &transport.SourceImagesRequest{
			PersonPhoto: "https://storage.example.com/person.jpg",
			PetPhoto:    "https://storage.example.com/pet.jpg",
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return resp.ID
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCreateWithPhotosSchedulesGeneration(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)

	if env.enqueuer.calls != 1 {
		t.Errorf("generation enqueued %d times, want 1", env.enqueuer.calls)
	}
	if env.bus.count("artwork.created") != 1 {
		t.Errorf("artwork.created published %d times, want 1", env.bus.count("artwork.created"))
	}

	artwork, err := env.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("stored artwork missing: %v", err)
	}
	if artwork.GenerationStep != domain.StepPending {
		t.Errorf("new artwork step = %q, want pending", artwork.GenerationStep)
	}
	if artwork.AccessToken == "" {
		t.Error("access token not issued")
	}
	if artwork.PriceVariant != "A" && artwork.PriceVariant != "B" {
		t.Errorf("price variant = %q", artwork.PriceVariant)
	}
	if artwork.UploadToken != nil {
		t.Error("upload token issued despite photos being present")
	}
}

func TestCreateDeferredIssuesUploadToken(t *testing.T) {
	env := newTestEnv(t, false)

	resp, err := env.svc.Create(context.Background(), transport.CreateArtworkRequest{
		CustomerEmail: "jamie@example.com",
		UserType:      "gifter",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if resp.UploadToken == "" {
		t.Fatal("deferred creation did not issue an upload token")
	}
	if env.enqueuer.calls != 0 {
		t.Error("generation scheduled before photos exist")
	}
	if env.bus.count("artwork.deferred") != 1 {
		t.Errorf("artwork.deferred published %d times, want 1", env.bus.count("artwork.deferred"))
	}
	if env.bus.count("artwork.created") != 0 {
		t.Error("artwork.created published for a deferred creation")
	}
}

func TestResumeByUploadToken(t *testing.T) {
	env := newTestEnv(t, false)
	resp, err := env.svc.Create(context.Background(), transport.CreateArtworkRequest{
		CustomerEmail: "jamie@example.com",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	_, err = env.svc.ResumeByUploadToken(context.Background(), resp.UploadToken, transport.ResumeUploadRequest{
		CustomerName: "Jamie",
		PetName:      "Biscuit",
		SourceImages: transport.SourceImagesRequest{
			PersonPhoto: "https://storage.example.com/person.jpg",
			PetPhoto:    "https://storage.example.com/pet.jpg",
		},
	})
	if err != nil {
		t.Fatalf("ResumeByUploadToken returned error: %v", err)
	}

	if env.enqueuer.calls != 1 {
		t.Errorf("generation enqueued %d times after resume, want 1", env.enqueuer.calls)
	}

	artwork, _ := env.store.GetByID(context.Background(), resp.ID)
	if artwork.UploadToken != nil {
		t.Error("upload token not cleared after resume")
	}
	if !artwork.SourceImages.Complete() {
		t.Error("source images not persisted on resume")
	}

	// The token is single-use.
	_, err = env.svc.ResumeByUploadToken(context.Background(), resp.UploadToken, transport.ResumeUploadRequest{
		SourceImages: transport.SourceImagesRequest{
			PersonPhoto: "https://storage.example.com/p2.jpg",
			PetPhoto:    "https://storage.example.com/q2.jpg",
		},
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second resume error = %v, want not found", err)
	}
}

func TestAdvanceStepScenarioA(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepMonaLisaGeneration, "https://img.example.com/X.jpg", "job-1"); err != nil {
		t.Fatalf("advance to monalisa_generation: %v", err)
	}
	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepCompleted, "https://img.example.com/Y.jpg", "job-2"); err != nil {
		t.Fatalf("advance to completed: %v", err)
	}

	artwork, _ := env.store.GetByID(ctx, id)
	if artwork.GeneratedImages.MonaLisaBase != "https://img.example.com/X.jpg" {
		t.Errorf("monalisa_base = %q, want X", artwork.GeneratedImages.MonaLisaBase)
	}
	if artwork.GeneratedImages.ArtworkPreview != "https://img.example.com/Y.jpg" {
		t.Errorf("artwork_preview = %q, want Y", artwork.GeneratedImages.ArtworkPreview)
	}
	if artwork.GeneratedImages.ArtworkFullRes != "https://img.example.com/Y.jpg" {
		t.Errorf("artwork_full_res = %q, want Y", artwork.GeneratedImages.ArtworkFullRes)
	}
	if artwork.DeliveryImages.DigitalDownload != "https://img.example.com/Y.jpg" {
		t.Errorf("digital_download = %q, want Y", artwork.DeliveryImages.DigitalDownload)
	}
	if artwork.ProcessingStatus.ArtworkGeneration != domain.ProcessCompleted {
		t.Errorf("artwork_generation status = %q, want completed", artwork.ProcessingStatus.ArtworkGeneration)
	}
	if artwork.GenerationCompletedAt == nil {
		t.Error("generation_completed_at not set")
	}
}

func TestAdvanceStepTracksUpscalingStatus(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepMonaLisaGeneration, "https://img.example.com/base.jpg", ""); err != nil {
		t.Fatalf("advance to monalisa_generation: %v", err)
	}
	artwork, _ := env.store.GetByID(ctx, id)
	if artwork.ProcessingStatus.Upscaling != domain.ProcessPending {
		t.Errorf("upscaling after base = %q, want pending", artwork.ProcessingStatus.Upscaling)
	}

	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepPetIntegration, "https://img.example.com/mid.jpg", ""); err != nil {
		t.Fatalf("advance to pet_integration: %v", err)
	}
	artwork, _ = env.store.GetByID(ctx, id)
	if artwork.ProcessingStatus.Upscaling != domain.ProcessProcessing {
		t.Errorf("upscaling after composite = %q, want processing", artwork.ProcessingStatus.Upscaling)
	}

	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepCompleted, "https://img.example.com/final.jpg", ""); err != nil {
		t.Fatalf("advance to completed: %v", err)
	}
	artwork, _ = env.store.GetByID(ctx, id)
	if artwork.ProcessingStatus.Upscaling != domain.ProcessCompleted {
		t.Errorf("upscaling after completion = %q, want completed", artwork.ProcessingStatus.Upscaling)
	}
}

func TestMarkFailedAtUpscaleRecordsUpscalingFailure(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepPetIntegration, "https://img.example.com/mid.jpg", ""); err != nil {
		t.Fatalf("advance to pet_integration: %v", err)
	}
	if _, err := env.svc.MarkFailed(ctx, id, domain.StepCompleted, "upscale provider timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	artwork, _ := env.store.GetByID(ctx, id)
	if artwork.ProcessingStatus.Upscaling != domain.ProcessFailed {
		t.Errorf("upscaling status = %q, want failed", artwork.ProcessingStatus.Upscaling)
	}
	if artwork.ProcessingStatus.ArtworkGeneration != domain.ProcessFailed {
		t.Errorf("artwork_generation status = %q, want failed", artwork.ProcessingStatus.ArtworkGeneration)
	}
}

func TestAdvanceStepCompletionSideEffectsFireOnce(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := env.svc.AdvanceStep(ctx, id, domain.StepCompleted, "https://img.example.com/final.jpg", ""); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	if got := env.bus.count("artwork.completed"); got != 1 {
		t.Errorf("artwork.completed published %d times, want 1", got)
	}
	if env.mockups.calls != 1 {
		t.Errorf("mockups requested %d times, want 1", env.mockups.calls)
	}
}

func TestAdvanceStepWithReviewEnabledDefersSideEffects(t *testing.T) {
	env := newTestEnv(t, true)
	id := createArtwork(t, env)

	if _, err := env.svc.AdvanceStep(context.Background(), id, domain.StepCompleted, "https://img.example.com/final.jpg", "job-9"); err != nil {
		t.Fatalf("advance to completed: %v", err)
	}

	if len(env.reviews.opened) != 1 {
		t.Fatalf("%d proof reviews opened, want 1", len(env.reviews.opened))
	}
	if env.reviews.opened[0].ArtworkID != id {
		t.Error("review opened for wrong artwork")
	}
	if env.bus.count("artwork.completed") != 0 {
		t.Error("completion email event published despite review gate")
	}
	if env.mockups.calls != 0 {
		t.Error("mockups requested despite review gate")
	}
}

func TestAdvanceStepRejectsRegression(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepCompleted, "https://img.example.com/final.jpg", ""); err != nil {
		t.Fatalf("advance to completed: %v", err)
	}

	_, err := env.svc.AdvanceStep(ctx, id, domain.StepPetIntegration, "https://img.example.com/mid.jpg", "")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("regression error = %v, want conflict", err)
	}
	if !strings.Contains(err.Error(), "completed") {
		t.Errorf("error message should name the current step: %v", err)
	}
}

func TestMarkFailedThenRetry(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	if _, err := env.svc.MarkFailed(ctx, id, domain.StepMonaLisaGeneration, "provider timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	artwork, _ := env.store.GetByID(ctx, id)
	if artwork.GenerationStep != domain.StepFailed {
		t.Errorf("step = %q, want failed", artwork.GenerationStep)
	}
	if artwork.ProcessingStatus.ArtworkGeneration != domain.ProcessFailed {
		t.Errorf("artwork_generation status = %q, want failed", artwork.ProcessingStatus.ArtworkGeneration)
	}
	if env.bus.count("artwork.generation.failed") != 1 {
		t.Error("generation failure event not published")
	}

	// Nothing advances out of failed without an explicit retry.
	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepCompleted, "https://img.example.com/late.jpg", ""); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("advance after failure error = %v, want conflict", err)
	}

	if _, err := env.svc.RetryGeneration(ctx, id); err != nil {
		t.Fatalf("RetryGeneration: %v", err)
	}
	artwork, _ = env.store.GetByID(ctx, id)
	if artwork.GenerationStep != domain.StepPending {
		t.Errorf("step after retry = %q, want pending", artwork.GenerationStep)
	}
	if env.enqueuer.calls != 2 {
		t.Errorf("generation enqueued %d times, want 2 (create + retry)", env.enqueuer.calls)
	}
}

func TestRetryRequiresFailedStateAndSources(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	if _, err := env.svc.RetryGeneration(ctx, id); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("retry of non-failed artwork error = %v, want conflict", err)
	}
}

func TestGetByAccessTokenExpiry(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	artwork, _ := env.store.GetByID(ctx, id)
	if _, err := env.svc.GetByAccessToken(ctx, artwork.AccessToken); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	// Force expiry.
	if err := env.store.ExtendAccessToken(ctx, id, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("expire token: %v", err)
	}
	if _, err := env.svc.GetByAccessToken(ctx, artwork.AccessToken); !apperr.Is(err, apperr.KindGone) {
		t.Errorf("expired token error = %v, want gone", err)
	}

	if _, err := env.svc.GetByAccessToken(ctx, "no-such-token"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown token error = %v, want not found", err)
	}
}

func TestOverlayImagesMergesWithoutSideEffects(t *testing.T) {
	env := newTestEnv(t, false)
	id := createArtwork(t, env)
	ctx := context.Background()

	if _, err := env.svc.AdvanceStep(ctx, id, domain.StepCompleted, "https://img.example.com/final.jpg", ""); err != nil {
		t.Fatalf("advance: %v", err)
	}
	publishedBefore := env.bus.count("artwork.completed")

	err := env.svc.OverlayImages(ctx, id,
		domain.GeneratedImages{},
		domain.DeliveryImages{Mockups: map[string]string{"art_print": "https://img.example.com/mock.jpg"}},
		domain.ProcessingStatus{MockupGeneration: domain.ProcessCompleted},
	)
	if err != nil {
		t.Fatalf("OverlayImages: %v", err)
	}

	artwork, _ := env.store.GetByID(ctx, id)
	if artwork.DeliveryImages.Mockups["art_print"] == "" {
		t.Error("mockup not merged into delivery images")
	}
	if artwork.DeliveryImages.DigitalDownload != "https://img.example.com/final.jpg" {
		t.Error("overlay dropped the existing digital download")
	}
	if env.bus.count("artwork.completed") != publishedBefore {
		t.Error("overlay fired completion side effects")
	}
}
