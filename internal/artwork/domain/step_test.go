package domain

import "testing"

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		name string
		from GenerationStep
		to   GenerationStep
		want bool
	}{
		{"pending to monalisa", StepPending, StepMonaLisaGeneration, true},
		{"monalisa to pet integration", StepMonaLisaGeneration, StepPetIntegration, true},
		{"pet integration to completed", StepPetIntegration, StepCompleted, true},
		{"pending straight to completed", StepPending, StepCompleted, true},
		{"repeat completed", StepCompleted, StepCompleted, true},
		{"repeat intermediate", StepMonaLisaGeneration, StepMonaLisaGeneration, true},
		{"no regression from completed", StepCompleted, StepPetIntegration, false},
		{"no regression to pending", StepMonaLisaGeneration, StepPending, false},
		{"failed from pending", StepPending, StepFailed, true},
		{"failed from completed", StepCompleted, StepFailed, true},
		{"nothing leaves failed", StepFailed, StepPending, false},
		{"failed cannot repeat", StepFailed, StepFailed, false},
		{"unknown target", StepPending, GenerationStep("bogus"), false},
		{"unknown source", GenerationStep("bogus"), StepCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAdvance(tt.from, tt.to); got != tt.want {
				t.Errorf("CanAdvance(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestValidStep(t *testing.T) {
	for _, step := range []GenerationStep{StepPending, StepMonaLisaGeneration, StepPetIntegration, StepCompleted, StepFailed} {
		if !ValidStep(step) {
			t.Errorf("ValidStep(%q) = false", step)
		}
	}
	if ValidStep(GenerationStep("upscaling")) {
		t.Error("ValidStep accepted an unknown step")
	}
}

func TestGeneratedImagesMergeOverlaysNonEmpty(t *testing.T) {
	base := GeneratedImages{MonaLisaBase: "base.jpg", ArtworkPreview: "old-preview.jpg"}
	merged := base.Merge(GeneratedImages{ArtworkPreview: "new-preview.jpg", ArtworkFullRes: "full.jpg"})

	if merged.MonaLisaBase != "base.jpg" {
		t.Errorf("MonaLisaBase dropped during merge: %q", merged.MonaLisaBase)
	}
	if merged.ArtworkPreview != "new-preview.jpg" {
		t.Errorf("ArtworkPreview = %q, want new-preview.jpg", merged.ArtworkPreview)
	}
	if merged.ArtworkFullRes != "full.jpg" {
		t.Errorf("ArtworkFullRes = %q, want full.jpg", merged.ArtworkFullRes)
	}
}

func TestDeliveryImagesMergeKeepsOtherWritersMockups(t *testing.T) {
	base := DeliveryImages{Mockups: map[string]string{"art_print": "print.jpg"}}
	merged := base.Merge(DeliveryImages{
		Mockups:         map[string]string{"framed_canvas": "canvas.jpg"},
		DigitalDownload: "download.jpg",
	})

	if merged.Mockups["art_print"] != "print.jpg" {
		t.Error("existing mockup entry dropped during merge")
	}
	if merged.Mockups["framed_canvas"] != "canvas.jpg" {
		t.Error("new mockup entry missing after merge")
	}
	if merged.DigitalDownload != "download.jpg" {
		t.Errorf("DigitalDownload = %q", merged.DigitalDownload)
	}
	if base.Mockups["framed_canvas"] != "" {
		t.Error("merge mutated the receiver's mockup map")
	}
}

func TestProcessingStatusMerge(t *testing.T) {
	base := NewProcessingStatus()
	merged := base.Merge(ProcessingStatus{ArtworkGeneration: ProcessCompleted})

	if merged.ArtworkGeneration != ProcessCompleted {
		t.Errorf("ArtworkGeneration = %q", merged.ArtworkGeneration)
	}
	if merged.Upscaling != ProcessPending || merged.MockupGeneration != ProcessPending {
		t.Error("untouched fields changed during merge")
	}
}
