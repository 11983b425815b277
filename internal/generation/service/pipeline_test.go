package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pawtrait_backend/internal/artwork/domain"
	"pawtrait_backend/internal/generation/client"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeModels struct {
	baseErr      error
	compositeErr error
	upscaleErr   error
	baseCalls    int
	tweaks       []string
	composited   [][2]string
	upscaled     []string
}

func (f *fakeModels) GenerateStyleBase(_ context.Context, personPhotoURL string) (*client.Result, error) {
	if f.baseErr != nil {
		return nil, f.baseErr
	}
	f.baseCalls++
	return &client.Result{ImageURL: "https://gen.example/base-" + personPhotoURL, RequestID: "req-base"}, nil
}

func (f *fakeModels) CompositePet(_ context.Context, baseURL, petURL, tweak string) (*client.Result, error) {
	if f.compositeErr != nil {
		return nil, f.compositeErr
	}
	f.tweaks = append(f.tweaks, tweak)
	f.composited = append(f.composited, [2]string{baseURL, petURL})
	return &client.Result{ImageURL: "https://gen.example/composite", RequestID: "req-composite"}, nil
}

func (f *fakeModels) Upscale(_ context.Context, imageURL string) (*client.Result, error) {
	if f.upscaleErr != nil {
		return nil, f.upscaleErr
	}
	f.upscaled = append(f.upscaled, imageURL)
	return &client.Result{ImageURL: "https://gen.example/final", RequestID: "req-upscale"}, nil
}

type advanceCall struct {
	step     domain.GenerationStep
	imageURL string
	ref      string
}

type fakeArtworks struct {
	person   string
	pet      string
	photoErr error
	advanced []advanceCall
	failed   []domain.GenerationStep
}

func (f *fakeArtworks) SourcePhotos(context.Context, uuid.UUID) (string, string, error) {
	return f.person, f.pet, f.photoErr
}

func (f *fakeArtworks) AdvanceStep(_ context.Context, _ uuid.UUID, step domain.GenerationStep, imageURL, ref string) error {
	f.advanced = append(f.advanced, advanceCall{step, imageURL, ref})
	return nil
}

func (f *fakeArtworks) MarkFailed(_ context.Context, _ uuid.UUID, step domain.GenerationStep, _ string) error {
	f.failed = append(f.failed, step)
	return nil
}

type fakeStore struct {
	fetchErr error
	fetched  []string
}

func (f *fakeStore) FetchToStorage(_ context.Context, _, folder, sourceURL string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	f.fetched = append(f.fetched, sourceURL)
	return folder + "/copy.jpg", nil
}

func (f *fakeStore) DownloadURL(_ context.Context, bucket, fileKey string) (string, error) {
	return fmt.Sprintf("https://storage.example/%s/%s", bucket, fileKey), nil
}

func newTestRunner(models *fakeModels, artworks *fakeArtworks, store *fakeStore) *Runner {
	r := NewRunner(models, artworks, logger.New("test"))
	if store != nil {
		r.SetImageStore(store, "artwork-images")
	}
	return r
}

func TestRunAdvancesThroughAllSteps(t *testing.T) {
	models := &fakeModels{}
	artworks := &fakeArtworks{person: "person.jpg", pet: "pet.jpg"}
	store := &fakeStore{}

	if err := newTestRunner(models, artworks, store).Run(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantSteps := []domain.GenerationStep{domain.StepMonaLisaGeneration, domain.StepPetIntegration, domain.StepCompleted}
	if len(artworks.advanced) != len(wantSteps) {
		t.Fatalf("advanced %d steps, want %d: %+v", len(artworks.advanced), len(wantSteps), artworks.advanced)
	}
	for i, want := range wantSteps {
		if artworks.advanced[i].step != want {
			t.Errorf("step %d = %s, want %s", i, artworks.advanced[i].step, want)
		}
		if !strings.HasPrefix(artworks.advanced[i].imageURL, "https://storage.example/artwork-images/") {
			t.Errorf("step %d url %q should live in owned storage", i, artworks.advanced[i].imageURL)
		}
	}
	if len(store.fetched) != 3 {
		t.Errorf("expected each stage copied into storage, got %d", len(store.fetched))
	}
	if len(artworks.failed) != 0 {
		t.Errorf("nothing should be marked failed: %v", artworks.failed)
	}
	// Downstream stages consume the stored copy, not the provider URL.
	if len(models.upscaled) != 1 || !strings.HasPrefix(models.upscaled[0], "https://storage.example/") {
		t.Errorf("upscale input = %v, want stored composite", models.upscaled)
	}
}

func TestRunMarksFailureAtBrokenStage(t *testing.T) {
	models := &fakeModels{compositeErr: errors.New("provider overloaded")}
	artworks := &fakeArtworks{person: "person.jpg", pet: "pet.jpg"}

	err := newTestRunner(models, artworks, nil).Run(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected pipeline error")
	}
	if len(artworks.failed) != 1 || artworks.failed[0] != domain.StepPetIntegration {
		t.Errorf("failed steps = %v, want pet_integration only", artworks.failed)
	}
	if len(artworks.advanced) != 1 || artworks.advanced[0].step != domain.StepMonaLisaGeneration {
		t.Errorf("completed base step must survive the failure: %+v", artworks.advanced)
	}
	if len(models.upscaled) != 0 {
		t.Errorf("upscale must not run after a failed composite")
	}
}

func TestRunRequiresSourcePhotos(t *testing.T) {
	artworks := &fakeArtworks{person: "person.jpg"} // pet missing
	err := newTestRunner(&fakeModels{}, artworks, nil).Run(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(artworks.failed) != 0 {
		t.Errorf("missing inputs should not mark the artwork failed: %v", artworks.failed)
	}
}

func TestRunToleratesStorageFailure(t *testing.T) {
	models := &fakeModels{}
	artworks := &fakeArtworks{person: "person.jpg", pet: "pet.jpg"}
	store := &fakeStore{fetchErr: errors.New("bucket unreachable")}

	if err := newTestRunner(models, artworks, store).Run(context.Background(), uuid.New()); err != nil {
		t.Fatalf("storage trouble must not fail the pipeline: %v", err)
	}
	for _, call := range artworks.advanced {
		if !strings.HasPrefix(call.imageURL, "https://gen.example/") {
			t.Errorf("expected provider URL fallback, got %q", call.imageURL)
		}
	}
}

func TestRegenerateReusesBasePortrait(t *testing.T) {
	models := &fakeModels{}
	runner := newTestRunner(models, &fakeArtworks{}, nil)

	out, err := runner.Regenerate(context.Background(), RegenerationInput{
		PersonPhotoURL: "person.jpg",
		PetPhotoURL:    "pet.jpg",
		CurrentBaseURL: "https://gen.example/existing-base",
		PromptTweak:    "make the pet larger",
	})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if models.baseCalls != 0 {
		t.Errorf("base portrait should be reused, got %d base runs", models.baseCalls)
	}
	if out.BaseImageURL != "https://gen.example/existing-base" {
		t.Errorf("base url = %q", out.BaseImageURL)
	}
	if len(models.tweaks) != 1 || models.tweaks[0] != "make the pet larger" {
		t.Errorf("prompt tweak not forwarded: %v", models.tweaks)
	}
}

func TestRegenerateFullRerun(t *testing.T) {
	models := &fakeModels{}
	runner := newTestRunner(models, &fakeArtworks{}, nil)

	out, err := runner.Regenerate(context.Background(), RegenerationInput{
		PersonPhotoURL: "person.jpg",
		PetPhotoURL:    "pet.jpg",
		CurrentBaseURL: "https://gen.example/existing-base",
		RegenerateBase: true,
	})
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if models.baseCalls != 1 {
		t.Errorf("expected a fresh base run, got %d", models.baseCalls)
	}
	if out.ImageURL != "https://gen.example/composite" || out.GenerationRef != "req-composite" {
		t.Errorf("unexpected output %+v", out)
	}
}
