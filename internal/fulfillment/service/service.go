package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/fulfillment/client"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/phone"

	"github.com/google/uuid"
)

// blueprintConfig binds a catalog product type to the provider's blueprint
// and print provider, with known variant ids and provider-side prices.
type blueprintConfig struct {
	BlueprintID     int
	PrintProviderID int
	VariantIDs      map[string]int // by size; empty sizes resolve via catalog lookup
	PriceCents      map[string]int64
}

var blueprints = map[catalog.ProductType]blueprintConfig{
	catalog.ProductArtPrint: {
		BlueprintID:     1220,
		PrintProviderID: 105,
		VariantIDs:      map[string]int{"12x18": 92396, "18x24": 92400, "20x30": 92402},
		PriceCents:      map[string]int64{"12x18": 2900, "18x24": 3900, "20x30": 4800},
	},
	catalog.ProductFramedCanvas: {
		BlueprintID:     944,
		PrintProviderID: 105,
		PriceCents:      map[string]int64{"12x18": 9900, "18x24": 11900, "20x30": 14900},
	},
}

// The provider titles variants with typographic inch marks.
var sizeTitlePatterns = map[string]string{
	"12x18": "12″ x 18″",
	"18x24": "18″ x 24″",
	"20x30": "20″ x 30″",
}

var mockupSizes = []string{"12x18", "18x24", "20x30"}

// standardShippingMethod is the provider's default shipping method id.
const standardShippingMethod = 1

// ProviderClient is the outbound fulfillment API surface.
// Implemented by *client.Client.
type ProviderClient interface {
	UploadImage(ctx context.Context, imageURL, fileName string) (string, error)
	GetVariants(ctx context.Context, blueprintID, printProviderID int) ([]client.Variant, error)
	CreateProduct(ctx context.Context, req client.CreateProductRequest) (*client.Product, error)
	CreateOrder(ctx context.Context, req client.CreateOrderRequest) (*client.Order, error)
}

// ArtworkMockupWriter records mockup outcomes on the artwork: rendered
// mockups onto its delivery images, provider failures onto its processing
// status. Implemented by an adapter over the artwork service.
type ArtworkMockupWriter interface {
	CacheMockups(ctx context.Context, artworkID uuid.UUID, mockups map[string]string) error
	MarkMockupsFailed(ctx context.Context, artworkID uuid.UUID) error
}

// OrderInfo is the order slice the submission path needs.
type OrderInfo struct {
	ID            uuid.UUID
	SessionID     string
	ProductType   string
	ProductSize   string
	CustomerName  string
	CustomerEmail string
	Shipping      *ShippingInfo
}

// ShippingInfo is a normalized shipping destination.
type ShippingInfo struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderSync is the order-side surface the fulfillment service reports into.
// Implemented by an adapter over the order service.
type OrderSync interface {
	LatestForArtwork(ctx context.Context, artworkID uuid.UUID) (*OrderInfo, error)
	RecordAccepted(ctx context.Context, orderID uuid.UUID, providerOrderID, providerStatus string) error
	RecordFailure(ctx context.Context, orderID uuid.UUID, reason string)
	ApplyStatus(ctx context.Context, providerOrderID, providerStatus string) error
}

// SubmitParams describes one fulfillment submission.
type SubmitParams struct {
	OrderID       uuid.UUID
	SessionID     string
	ProductType   string
	ProductSize   string
	CustomerName  string
	CustomerEmail string
	ImageURL      string
	Shipping      *ShippingInfo
}

// Service provides mockup generation and fulfillment-order submission.
type Service struct {
	provider ProviderClient
	enabled  bool
	log      *logger.Logger
	artworks ArtworkMockupWriter // optional until wired
	orders   OrderSync           // optional
}

// New creates a new fulfillment service.
func New(provider ProviderClient, enabled bool, log *logger.Logger) *Service {
	return &Service{provider: provider, enabled: enabled, log: log}
}

// SetArtworkMockupWriter injects the artwork mockup-cache adapter.
func (s *Service) SetArtworkMockupWriter(writer ArtworkMockupWriter) { s.artworks = writer }

// SetOrderSync injects the order reporting adapter.
func (s *Service) SetOrderSync(sync OrderSync) { s.orders = sync }

// ── Mockup generation ─────────────────────────────────────────────────────────

// GenerateMockups renders product-visualization mockups for an artwork and
// caches them onto its delivery images. With the provider disabled, the
// artwork image itself stands in so the product page still renders.
// Per-product failures are skipped, not fatal: a partial mockup set beats
// none.
func (s *Service) GenerateMockups(ctx context.Context, artworkID uuid.UUID, imageURL string) (map[string]string, error) {
	if imageURL == "" {
		return nil, apperr.Validation("image url is required for mockup generation")
	}

	mockups := make(map[string]string)
	if !s.enabled {
		for productType := range blueprints {
			for _, size := range mockupSizes {
				mockups[mockupKey(productType, size)] = imageURL
			}
		}
		s.cacheMockups(ctx, artworkID, mockups)
		return mockups, nil
	}

	uploadID, err := s.provider.UploadImage(ctx, imageURL, fmt.Sprintf("artwork-%s.jpg", artworkID))
	if err != nil {
		s.markMockupsFailed(ctx, artworkID)
		return nil, apperr.Wrap(apperr.KindUnavailable, "mockup image upload failed", err)
	}

	for productType, cfg := range blueprints {
		for _, size := range mockupSizes {
			mockupURL, err := s.renderMockup(ctx, cfg, uploadID, productType, size)
			if err != nil {
				s.log.Warn("mockup render failed, skipping", "artwork_id", artworkID, "product", productType, "size", size, "error", err)
				continue
			}
			mockups[mockupKey(productType, size)] = mockupURL
		}
	}

	if len(mockups) == 0 {
		s.markMockupsFailed(ctx, artworkID)
		return nil, apperr.Unavailable("no mockups could be rendered")
	}

	s.cacheMockups(ctx, artworkID, mockups)
	return mockups, nil
}

func (s *Service) renderMockup(ctx context.Context, cfg blueprintConfig, uploadID string, productType catalog.ProductType, size string) (string, error) {
	variantID, err := s.resolveVariant(ctx, cfg, size)
	if err != nil {
		return "", err
	}

	product, err := s.provider.CreateProduct(ctx, client.CreateProductRequest{
		Title:           fmt.Sprintf("Preview %s %s", productType, size),
		Description:     "Generated product preview",
		BlueprintID:     cfg.BlueprintID,
		PrintProviderID: cfg.PrintProviderID,
		Variants:        []client.ProductVariant{{ID: variantID, Price: cfg.PriceCents[size], IsEnabled: true}},
		PrintAreas: []client.PrintArea{{
			VariantIDs: []int{variantID},
			Placeholders: []client.Placeholder{{
				Position: "front",
				Images:   []client.PrintAreaImage{{ID: uploadID, X: 0.5, Y: 0.5, Scale: 1.0}},
			}},
		}},
		Tags: []string{"preview"},
	})
	if err != nil {
		return "", err
	}

	mockupURL := selectLifestyleMockup(product.Images, variantID)
	if mockupURL == "" {
		return "", fmt.Errorf("product %s has no rendered mockups", product.ID)
	}
	return mockupURL, nil
}

// selectLifestyleMockup picks the environmental shot among a variant's
// mockups; the provider renders several per variant and the lifestyle one
// usually sits third.
func selectLifestyleMockup(images []client.ProductImage, variantID int) string {
	var candidates []client.ProductImage
	for _, img := range images {
		for _, id := range img.VariantIDs {
			if id == variantID {
				candidates = append(candidates, img)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].IsDefault != candidates[j].IsDefault {
			return candidates[i].IsDefault
		}
		return candidates[i].Order < candidates[j].Order
	})

	for _, img := range candidates {
		lower := strings.ToLower(img.Src)
		if strings.Contains(lower, "camera_label=context-3") ||
			strings.Contains(lower, "camera_label=context3") ||
			strings.Contains(lower, "camera_label=lifestyle") ||
			strings.Contains(lower, "camera_label=room") {
			return img.Src
		}
	}
	if len(candidates) > 2 {
		return candidates[2].Src
	}
	return candidates[len(candidates)-1].Src
}

// ── Order submission ──────────────────────────────────────────────────────────

// Submit uploads the approved image and places the production order,
// recording the provider's acceptance on the order.
func (s *Service) Submit(ctx context.Context, params SubmitParams) error {
	if !s.enabled {
		return apperr.Unavailable("fulfillment provider is not configured")
	}
	cfg, ok := blueprints[catalog.ProductType(params.ProductType)]
	if !ok {
		return apperr.Validation(fmt.Sprintf("product type %q has no fulfillment blueprint", params.ProductType))
	}
	if params.ImageURL == "" {
		return apperr.Validation("no approved image available for fulfillment")
	}
	if params.Shipping == nil || params.Shipping.Line1 == "" || params.Shipping.Country == "" {
		return apperr.Validation("missing shipping address for physical product")
	}

	variantID, err := s.resolveVariant(ctx, cfg, params.ProductSize)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "variant resolution failed", err)
	}

	uploadID, err := s.provider.UploadImage(ctx, params.ImageURL, fmt.Sprintf("order-%s.jpg", params.OrderID))
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "image upload failed", err)
	}

	product, err := s.provider.CreateProduct(ctx, client.CreateProductRequest{
		Title:           fmt.Sprintf("Order %s", params.OrderID),
		Description:     "Custom pet portrait",
		BlueprintID:     cfg.BlueprintID,
		PrintProviderID: cfg.PrintProviderID,
		Variants:        []client.ProductVariant{{ID: variantID, Price: cfg.PriceCents[params.ProductSize], IsEnabled: true}},
		PrintAreas: []client.PrintArea{{
			VariantIDs: []int{variantID},
			Placeholders: []client.Placeholder{{
				Position: "front",
				Images:   []client.PrintAreaImage{{ID: uploadID, X: 0.5, Y: 0.5, Scale: 1.0}},
			}},
		}},
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "product creation failed", err)
	}

	firstName, lastName := splitName(params.Shipping.Name, params.CustomerName)
	order, err := s.provider.CreateOrder(ctx, client.CreateOrderRequest{
		ExternalID: params.SessionID,
		Label:      fmt.Sprintf("Portrait Order - %s", params.CustomerName),
		LineItems: []client.LineItem{{
			ProductID:  product.ID,
			VariantID:  variantID,
			Quantity:   1,
			PrintAreas: map[string]string{"front": params.ImageURL},
		}},
		ShippingMethod:           standardShippingMethod,
		SendShippingNotification: true,
		AddressTo: client.ShippingAddress{
			FirstName: firstName,
			LastName:  lastName,
			Email:     params.CustomerEmail,
			Phone:     phone.NormalizeForRegion(params.Shipping.Phone, params.Shipping.Country),
			Country:   params.Shipping.Country,
			Region:    params.Shipping.State,
			Address1:  params.Shipping.Line1,
			Address2:  params.Shipping.Line2,
			City:      params.Shipping.City,
			Zip:       params.Shipping.PostalCode,
		},
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "order submission failed", err)
	}

	if s.orders != nil {
		if err := s.orders.RecordAccepted(ctx, params.OrderID, order.ID, order.Status); err != nil {
			s.log.Error("failed to record accepted fulfillment order", "order_id", params.OrderID, "provider_order_id", order.ID, "error", err)
		}
	}
	s.log.Info("fulfillment order submitted", "order_id", params.OrderID, "provider_order_id", order.ID, "status", order.Status)
	return nil
}

// SubmitApprovedHighRes submits the most recent order awaiting review for an
// artwork, using the admin-approved high-resolution file.
func (s *Service) SubmitApprovedHighRes(ctx context.Context, artworkID uuid.UUID, imageURL string) error {
	if s.orders == nil {
		return apperr.Internal("order sync not wired")
	}

	info, err := s.orders.LatestForArtwork(ctx, artworkID)
	if err != nil {
		return err
	}
	if catalog.ProductType(info.ProductType) == catalog.ProductDigital {
		s.log.Info("highres approved for digital order, nothing to submit", "artwork_id", artworkID, "order_id", info.ID)
		return nil
	}

	err = s.Submit(ctx, SubmitParams{
		OrderID:       info.ID,
		SessionID:     info.SessionID,
		ProductType:   info.ProductType,
		ProductSize:   info.ProductSize,
		CustomerName:  info.CustomerName,
		CustomerEmail: info.CustomerEmail,
		ImageURL:      imageURL,
		Shipping:      info.Shipping,
	})
	if err != nil {
		s.orders.RecordFailure(ctx, info.ID, "fulfillment submission failed: "+err.Error())
		return err
	}
	return nil
}

// HandleStatusUpdate applies a provider webhook status change.
func (s *Service) HandleStatusUpdate(ctx context.Context, providerOrderID, providerStatus string) error {
	if s.orders == nil {
		return apperr.Internal("order sync not wired")
	}
	return s.orders.ApplyStatus(ctx, providerOrderID, providerStatus)
}

// ── Internals ─────────────────────────────────────────────────────────────────

func (s *Service) resolveVariant(ctx context.Context, cfg blueprintConfig, size string) (int, error) {
	if id, ok := cfg.VariantIDs[size]; ok {
		return id, nil
	}

	pattern, ok := sizeTitlePatterns[size]
	if !ok {
		return 0, fmt.Errorf("unknown size %q", size)
	}

	variants, err := s.provider.GetVariants(ctx, cfg.BlueprintID, cfg.PrintProviderID)
	if err != nil {
		return 0, err
	}

	// Prefer the vertical orientation when the provider lists both.
	var fallback int
	for _, variant := range variants {
		if !strings.Contains(variant.Title, pattern) {
			continue
		}
		lower := strings.ToLower(variant.Title)
		if strings.Contains(lower, "vertical") || !strings.Contains(lower, "horizontal") {
			return variant.ID, nil
		}
		if fallback == 0 {
			fallback = variant.ID
		}
	}
	if fallback != 0 {
		return fallback, nil
	}
	return 0, fmt.Errorf("no variant for size %q on blueprint %d", size, cfg.BlueprintID)
}

func (s *Service) cacheMockups(ctx context.Context, artworkID uuid.UUID, mockups map[string]string) {
	if s.artworks == nil {
		return
	}
	if err := s.artworks.CacheMockups(ctx, artworkID, mockups); err != nil {
		s.log.Error("failed to cache mockups on artwork", "artwork_id", artworkID, "error", err)
	}
}

func (s *Service) markMockupsFailed(ctx context.Context, artworkID uuid.UUID) {
	if s.artworks == nil {
		return
	}
	if err := s.artworks.MarkMockupsFailed(ctx, artworkID); err != nil {
		s.log.Error("failed to record mockup failure on artwork", "artwork_id", artworkID, "error", err)
	}
}

func mockupKey(productType catalog.ProductType, size string) string {
	return fmt.Sprintf("%s_%s", productType, size)
}

func splitName(shippingName, customerName string) (string, string) {
	name := shippingName
	if name == "" {
		name = customerName
	}
	first, rest, found := strings.Cut(strings.TrimSpace(name), " ")
	if first == "" {
		first = "Customer"
	}
	if !found {
		return first, ""
	}
	return first, rest
}
