package domain

// ProcessStatus is the state of one independent processing concern.
type ProcessStatus string

const (
	ProcessPending     ProcessStatus = "pending"
	ProcessProcessing  ProcessStatus = "processing"
	ProcessCompleted   ProcessStatus = "completed"
	ProcessFailed      ProcessStatus = "failed"
	ProcessNotRequired ProcessStatus = "not_required"
)

// SourceImages references the two customer uploads and their raw storage keys.
type SourceImages struct {
	PersonPhoto    string `json:"person_photo,omitempty"`
	PetPhoto       string `json:"pet_photo,omitempty"`
	PersonPhotoKey string `json:"person_photo_key,omitempty"`
	PetPhotoKey    string `json:"pet_photo_key,omitempty"`
}

// Complete reports whether both source photos are present.
func (s SourceImages) Complete() bool {
	return s.PersonPhoto != "" && s.PetPhoto != ""
}

// Merge overlays non-empty fields of other onto s and returns the result.
func (s SourceImages) Merge(other SourceImages) SourceImages {
	if other.PersonPhoto != "" {
		s.PersonPhoto = other.PersonPhoto
	}
	if other.PetPhoto != "" {
		s.PetPhoto = other.PetPhoto
	}
	if other.PersonPhotoKey != "" {
		s.PersonPhotoKey = other.PersonPhotoKey
	}
	if other.PetPhotoKey != "" {
		s.PetPhotoKey = other.PetPhotoKey
	}
	return s
}

// GeneratedImages references the pipeline outputs. Each field starts empty
// and is filled exactly once under normal flow; regeneration may overwrite.
type GeneratedImages struct {
	MonaLisaBase   string `json:"monalisa_base,omitempty"`
	ArtworkPreview string `json:"artwork_preview,omitempty"`
	ArtworkFullRes string `json:"artwork_full_res,omitempty"`
	GenerationRef  string `json:"generation_ref,omitempty"`
}

// Merge overlays non-empty fields of other onto g and returns the result.
func (g GeneratedImages) Merge(other GeneratedImages) GeneratedImages {
	if other.MonaLisaBase != "" {
		g.MonaLisaBase = other.MonaLisaBase
	}
	if other.ArtworkPreview != "" {
		g.ArtworkPreview = other.ArtworkPreview
	}
	if other.ArtworkFullRes != "" {
		g.ArtworkFullRes = other.ArtworkFullRes
	}
	if other.GenerationRef != "" {
		g.GenerationRef = other.GenerationRef
	}
	return g
}

// DeliveryImages references product mockups and the digital-download URL,
// derived from GeneratedImages once generation completes.
type DeliveryImages struct {
	Mockups         map[string]string `json:"mockups,omitempty"`
	DigitalDownload string            `json:"digital_download,omitempty"`
}

// Merge overlays non-empty fields of other onto d and returns the result.
// Mockups merge key-by-key so concurrent writers of different product types
// never drop each other's entries.
func (d DeliveryImages) Merge(other DeliveryImages) DeliveryImages {
	if other.DigitalDownload != "" {
		d.DigitalDownload = other.DigitalDownload
	}
	if len(other.Mockups) > 0 {
		merged := make(map[string]string, len(d.Mockups)+len(other.Mockups))
		for k, v := range d.Mockups {
			merged[k] = v
		}
		for k, v := range other.Mockups {
			merged[k] = v
		}
		d.Mockups = merged
	}
	return d
}

// ProcessingStatus tracks independent sub-statuses for generation, upscaling,
// and mockup generation.
type ProcessingStatus struct {
	ArtworkGeneration ProcessStatus `json:"artwork_generation,omitempty"`
	Upscaling         ProcessStatus `json:"upscaling,omitempty"`
	MockupGeneration  ProcessStatus `json:"mockup_generation,omitempty"`
}

// Merge overlays non-empty fields of other onto p and returns the result.
func (p ProcessingStatus) Merge(other ProcessingStatus) ProcessingStatus {
	if other.ArtworkGeneration != "" {
		p.ArtworkGeneration = other.ArtworkGeneration
	}
	if other.Upscaling != "" {
		p.Upscaling = other.Upscaling
	}
	if other.MockupGeneration != "" {
		p.MockupGeneration = other.MockupGeneration
	}
	return p
}

// NewProcessingStatus is the initial processing status for a fresh artwork.
func NewProcessingStatus() ProcessingStatus {
	return ProcessingStatus{
		ArtworkGeneration: ProcessPending,
		Upscaling:         ProcessPending,
		MockupGeneration:  ProcessPending,
	}
}

// UserType segments customers for analytics only; it never affects
// generation logic.
type UserType string

const (
	UserTypeGifter        UserType = "gifter"
	UserTypeSelfPurchaser UserType = "self_purchaser"
)
