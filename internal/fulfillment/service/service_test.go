package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pawtrait_backend/internal/fulfillment/client"
	"pawtrait_backend/platform/apperr"
	"pawtrait_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeProvider struct {
	uploads        int
	uploadErr      error
	products       []client.CreateProductRequest
	productErrFor  int // blueprint id whose CreateProduct fails; 0 none, -1 all
	productImages  func(req client.CreateProductRequest) []client.ProductImage
	variants       map[int][]client.Variant
	variantsErr    error
	orders         []client.CreateOrderRequest
	orderErr       error
	providerStatus string
}

func (f *fakeProvider) UploadImage(_ context.Context, _, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return fmt.Sprintf("upload-%d", f.uploads), nil
}

func (f *fakeProvider) GetVariants(_ context.Context, blueprintID, _ int) ([]client.Variant, error) {
	if f.variantsErr != nil {
		return nil, f.variantsErr
	}
	return f.variants[blueprintID], nil
}

func (f *fakeProvider) CreateProduct(_ context.Context, req client.CreateProductRequest) (*client.Product, error) {
	if f.productErrFor == -1 || (f.productErrFor != 0 && req.BlueprintID == f.productErrFor) {
		return nil, errors.New("provider rejected product")
	}
	f.products = append(f.products, req)
	product := &client.Product{ID: fmt.Sprintf("product-%d", len(f.products)), Title: req.Title}
	if f.productImages != nil {
		product.Images = f.productImages(req)
	}
	return product, nil
}

func (f *fakeProvider) CreateOrder(_ context.Context, req client.CreateOrderRequest) (*client.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, req)
	status := f.providerStatus
	if status == "" {
		status = "pending"
	}
	return &client.Order{ID: fmt.Sprintf("prov-order-%d", len(f.orders)), Status: status}, nil
}

type fakeMockupWriter struct {
	cached      map[string]string
	calls       int
	failedCalls int
	err         error
}

func (f *fakeMockupWriter) CacheMockups(_ context.Context, _ uuid.UUID, mockups map[string]string) error {
	f.calls++
	f.cached = mockups
	return f.err
}

func (f *fakeMockupWriter) MarkMockupsFailed(_ context.Context, _ uuid.UUID) error {
	f.failedCalls++
	return f.err
}

type fakeOrderSync struct {
	latest       *OrderInfo
	latestErr    error
	accepted     []string
	acceptedFor  []uuid.UUID
	failures     []string
	applied      map[string]string
	recordErr    error
	applyErr     error
}

func (f *fakeOrderSync) LatestForArtwork(_ context.Context, _ uuid.UUID) (*OrderInfo, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeOrderSync) RecordAccepted(_ context.Context, orderID uuid.UUID, providerOrderID, providerStatus string) error {
	f.acceptedFor = append(f.acceptedFor, orderID)
	f.accepted = append(f.accepted, providerOrderID+"/"+providerStatus)
	return f.recordErr
}

func (f *fakeOrderSync) RecordFailure(_ context.Context, _ uuid.UUID, reason string) {
	f.failures = append(f.failures, reason)
}

func (f *fakeOrderSync) ApplyStatus(_ context.Context, providerOrderID, providerStatus string) error {
	if f.applied == nil {
		f.applied = make(map[string]string)
	}
	f.applied[providerOrderID] = providerStatus
	return f.applyErr
}

func lifestyleImages(req client.CreateProductRequest) []client.ProductImage {
	variantID := req.Variants[0].ID
	return []client.ProductImage{
		{Src: fmt.Sprintf("https://img.example/%d?camera_label=front", variantID), VariantIDs: []int{variantID}, IsDefault: true, Order: 0},
		{Src: fmt.Sprintf("https://img.example/%d?camera_label=closeup", variantID), VariantIDs: []int{variantID}, Order: 1},
		{Src: fmt.Sprintf("https://img.example/%d?camera_label=context-3", variantID), VariantIDs: []int{variantID}, Order: 2},
	}
}

func canvasVariants() []client.Variant {
	return []client.Variant{
		{ID: 301, Title: `12″ x 18″ (Horizontal)`},
		{ID: 302, Title: `12″ x 18″ (Vertical)`},
		{ID: 303, Title: `18″ x 24″ (Vertical)`},
		{ID: 304, Title: `20″ x 30″ (Vertical)`},
	}
}

func newTestService(provider *fakeProvider, enabled bool) *Service {
	return New(provider, enabled, logger.New("test"))
}

func shippingFixture() *ShippingInfo {
	return &ShippingInfo{
		Name:       "Jane Smith",
		Phone:      "06 1234 5678",
		Line1:      "Keizersgracht 1",
		City:       "Amsterdam",
		PostalCode: "1015 CN",
		Country:    "NL",
	}
}

func TestGenerateMockupsRendersAllProducts(t *testing.T) {
	provider := &fakeProvider{
		productImages: lifestyleImages,
		variants:      map[int][]client.Variant{944: canvasVariants()},
	}
	writer := &fakeMockupWriter{}
	svc := newTestService(provider, true)
	svc.SetArtworkMockupWriter(writer)

	mockups, err := svc.GenerateMockups(context.Background(), uuid.New(), "https://cdn.example/art.jpg")
	if err != nil {
		t.Fatalf("GenerateMockups: %v", err)
	}
	if len(mockups) != 6 {
		t.Fatalf("expected 6 mockups (2 products x 3 sizes), got %d: %v", len(mockups), mockups)
	}
	if provider.uploads != 1 {
		t.Errorf("expected a single image upload shared across products, got %d", provider.uploads)
	}
	for _, key := range []string{"art_print_12x18", "art_print_18x24", "art_print_20x30", "framed_canvas_12x18", "framed_canvas_18x24", "framed_canvas_20x30"} {
		url, ok := mockups[key]
		if !ok {
			t.Errorf("missing mockup key %q", key)
			continue
		}
		if !strings.Contains(url, "camera_label=context-3") {
			t.Errorf("mockup %q is not the lifestyle render: %s", key, url)
		}
	}
	if writer.calls != 1 || len(writer.cached) != 6 {
		t.Errorf("expected mockups cached on the artwork once, calls=%d cached=%d", writer.calls, len(writer.cached))
	}
}

func TestGenerateMockupsDisabledFallsBackToArtworkImage(t *testing.T) {
	svc := newTestService(&fakeProvider{}, false)

	mockups, err := svc.GenerateMockups(context.Background(), uuid.New(), "https://cdn.example/art.jpg")
	if err != nil {
		t.Fatalf("GenerateMockups: %v", err)
	}
	if len(mockups) != 6 {
		t.Fatalf("expected fallback mockups for every product/size, got %d", len(mockups))
	}
	for key, url := range mockups {
		if url != "https://cdn.example/art.jpg" {
			t.Errorf("fallback mockup %q should be the artwork image, got %s", key, url)
		}
	}
}

func TestGenerateMockupsSkipsFailingProduct(t *testing.T) {
	provider := &fakeProvider{
		productImages: lifestyleImages,
		variants:      map[int][]client.Variant{944: canvasVariants()},
		productErrFor: 944,
	}
	svc := newTestService(provider, true)

	mockups, err := svc.GenerateMockups(context.Background(), uuid.New(), "https://cdn.example/art.jpg")
	if err != nil {
		t.Fatalf("partial failure should not be fatal: %v", err)
	}
	if len(mockups) != 3 {
		t.Fatalf("expected only art print mockups to survive, got %d: %v", len(mockups), mockups)
	}
	for key := range mockups {
		if !strings.HasPrefix(key, "art_print_") {
			t.Errorf("unexpected mockup key %q", key)
		}
	}
}

func TestGenerateMockupsRecordsProviderFailure(t *testing.T) {
	provider := &fakeProvider{uploadErr: errors.New("provider down")}
	writer := &fakeMockupWriter{}
	svc := newTestService(provider, true)
	svc.SetArtworkMockupWriter(writer)

	_, err := svc.GenerateMockups(context.Background(), uuid.New(), "https://cdn.example/art.jpg")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if writer.failedCalls != 1 {
		t.Errorf("expected mockup failure recorded on the artwork once, got %d", writer.failedCalls)
	}
	if writer.calls != 0 {
		t.Errorf("no mockups should be cached on failure, cache calls=%d", writer.calls)
	}
}

func TestGenerateMockupsRecordsTotalRenderFailure(t *testing.T) {
	provider := &fakeProvider{
		productImages: lifestyleImages,
		variants:      map[int][]client.Variant{944: canvasVariants()},
		productErrFor: -1, // every blueprint fails
	}
	writer := &fakeMockupWriter{}
	svc := newTestService(provider, true)
	svc.SetArtworkMockupWriter(writer)

	_, err := svc.GenerateMockups(context.Background(), uuid.New(), "https://cdn.example/art.jpg")
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if writer.failedCalls != 1 {
		t.Errorf("expected mockup failure recorded on the artwork once, got %d", writer.failedCalls)
	}
}

func TestGenerateMockupsRequiresImage(t *testing.T) {
	svc := newTestService(&fakeProvider{}, true)
	_, err := svc.GenerateMockups(context.Background(), uuid.New(), "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSelectLifestyleMockup(t *testing.T) {
	tests := []struct {
		name      string
		images    []client.ProductImage
		variantID int
		want      string
	}{
		{
			name: "prefers labeled lifestyle render",
			images: []client.ProductImage{
				{Src: "a?camera_label=front", VariantIDs: []int{1}, IsDefault: true},
				{Src: "b?camera_label=lifestyle", VariantIDs: []int{1}, Order: 1},
			},
			variantID: 1,
			want:      "b?camera_label=lifestyle",
		},
		{
			name: "falls back to third render",
			images: []client.ProductImage{
				{Src: "a", VariantIDs: []int{1}, IsDefault: true},
				{Src: "b", VariantIDs: []int{1}, Order: 1},
				{Src: "c", VariantIDs: []int{1}, Order: 2},
				{Src: "d", VariantIDs: []int{1}, Order: 3},
			},
			variantID: 1,
			want:      "c",
		},
		{
			name:      "single render is used as-is",
			images:    []client.ProductImage{{Src: "only", VariantIDs: []int{1}}},
			variantID: 1,
			want:      "only",
		},
		{
			name:      "other variants are ignored",
			images:    []client.ProductImage{{Src: "other", VariantIDs: []int{2}}},
			variantID: 1,
			want:      "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectLifestyleMockup(tt.images, tt.variantID); got != tt.want {
				t.Errorf("selectLifestyleMockup() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubmitPlacesProviderOrder(t *testing.T) {
	provider := &fakeProvider{productImages: lifestyleImages, providerStatus: "pending"}
	sync := &fakeOrderSync{}
	svc := newTestService(provider, true)
	svc.SetOrderSync(sync)

	orderID := uuid.New()
	err := svc.Submit(context.Background(), SubmitParams{
		OrderID:       orderID,
		SessionID:     "cs_test_123",
		ProductType:   "art_print",
		ProductSize:   "20x30",
		CustomerName:  "Jane Smith",
		CustomerEmail: "jane@example.com",
		ImageURL:      "https://cdn.example/highres.jpg",
		Shipping:      shippingFixture(),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(provider.orders) != 1 {
		t.Fatalf("expected one provider order, got %d", len(provider.orders))
	}
	placed := provider.orders[0]
	if placed.ExternalID != "cs_test_123" {
		t.Errorf("external id = %q, want checkout session id", placed.ExternalID)
	}
	if len(placed.LineItems) != 1 || placed.LineItems[0].VariantID != 92402 {
		t.Errorf("line items = %+v, want single 20x30 art print variant", placed.LineItems)
	}
	if placed.AddressTo.FirstName != "Jane" || placed.AddressTo.LastName != "Smith" {
		t.Errorf("recipient name split = %q %q", placed.AddressTo.FirstName, placed.AddressTo.LastName)
	}
	if !strings.HasPrefix(placed.AddressTo.Phone, "+31") {
		t.Errorf("phone should be normalized for NL, got %q", placed.AddressTo.Phone)
	}

	if len(sync.accepted) != 1 || sync.accepted[0] != "prov-order-1/pending" {
		t.Errorf("accepted records = %v", sync.accepted)
	}
	if len(sync.acceptedFor) != 1 || sync.acceptedFor[0] != orderID {
		t.Errorf("acceptance recorded for %v, want %v", sync.acceptedFor, orderID)
	}
}

func TestSubmitResolvesCanvasVariantByTitle(t *testing.T) {
	provider := &fakeProvider{
		productImages: lifestyleImages,
		variants:      map[int][]client.Variant{944: canvasVariants()},
	}
	svc := newTestService(provider, true)
	svc.SetOrderSync(&fakeOrderSync{})

	err := svc.Submit(context.Background(), SubmitParams{
		OrderID:      uuid.New(),
		SessionID:    "cs_canvas",
		ProductType:  "framed_canvas",
		ProductSize:  "12x18",
		CustomerName: "Jane Smith",
		ImageURL:     "https://cdn.example/highres.jpg",
		Shipping:     shippingFixture(),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := provider.orders[0].LineItems[0].VariantID; got != 302 {
		t.Errorf("variant = %d, want the vertical 12x18 canvas (302)", got)
	}
}

func TestSubmitPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		params  SubmitParams
		kind    apperr.Kind
	}{
		{
			name:    "provider disabled",
			enabled: false,
			params:  SubmitParams{ProductType: "art_print", ProductSize: "20x30", ImageURL: "x", Shipping: shippingFixture()},
			kind:    apperr.KindUnavailable,
		},
		{
			name:    "digital product has no blueprint",
			enabled: true,
			params:  SubmitParams{ProductType: "digital", ProductSize: "20x30", ImageURL: "x", Shipping: shippingFixture()},
			kind:    apperr.KindValidation,
		},
		{
			name:    "missing image",
			enabled: true,
			params:  SubmitParams{ProductType: "art_print", ProductSize: "20x30", Shipping: shippingFixture()},
			kind:    apperr.KindValidation,
		},
		{
			name:    "missing shipping address",
			enabled: true,
			params:  SubmitParams{ProductType: "art_print", ProductSize: "20x30", ImageURL: "x"},
			kind:    apperr.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeProvider{productImages: lifestyleImages}, tt.enabled)
			err := svc.Submit(context.Background(), tt.params)
			if !apperr.Is(err, tt.kind) {
				t.Errorf("Submit() error = %v, want kind %v", err, tt.kind)
			}
		})
	}
}

func TestSubmitApprovedHighRes(t *testing.T) {
	provider := &fakeProvider{productImages: lifestyleImages}
	sync := &fakeOrderSync{latest: &OrderInfo{
		ID:            uuid.New(),
		SessionID:     "cs_highres",
		ProductType:   "art_print",
		ProductSize:   "18x24",
		CustomerName:  "Jane Smith",
		CustomerEmail: "jane@example.com",
		Shipping:      shippingFixture(),
	}}
	svc := newTestService(provider, true)
	svc.SetOrderSync(sync)

	if err := svc.SubmitApprovedHighRes(context.Background(), uuid.New(), "https://cdn.example/highres.jpg"); err != nil {
		t.Fatalf("SubmitApprovedHighRes: %v", err)
	}
	if len(provider.orders) != 1 {
		t.Fatalf("expected one provider order, got %d", len(provider.orders))
	}
	if got := provider.orders[0].LineItems[0].PrintAreas["front"]; got != "https://cdn.example/highres.jpg" {
		t.Errorf("submitted image = %q, want the approved high-res file", got)
	}
}

func TestSubmitApprovedHighResDigitalIsNoop(t *testing.T) {
	provider := &fakeProvider{}
	sync := &fakeOrderSync{latest: &OrderInfo{ID: uuid.New(), ProductType: "digital"}}
	svc := newTestService(provider, true)
	svc.SetOrderSync(sync)

	if err := svc.SubmitApprovedHighRes(context.Background(), uuid.New(), "https://cdn.example/highres.jpg"); err != nil {
		t.Fatalf("digital orders should not reach the provider: %v", err)
	}
	if provider.uploads != 0 || len(provider.orders) != 0 {
		t.Errorf("provider should not be called for digital orders")
	}
}

func TestSubmitApprovedHighResRecordsFailure(t *testing.T) {
	provider := &fakeProvider{productImages: lifestyleImages, orderErr: errors.New("provider down")}
	sync := &fakeOrderSync{latest: &OrderInfo{
		ID:           uuid.New(),
		SessionID:    "cs_fail",
		ProductType:  "art_print",
		ProductSize:  "12x18",
		CustomerName: "Jane Smith",
		Shipping:     shippingFixture(),
	}}
	svc := newTestService(provider, true)
	svc.SetOrderSync(sync)

	err := svc.SubmitApprovedHighRes(context.Background(), uuid.New(), "https://cdn.example/highres.jpg")
	if err == nil {
		t.Fatal("expected submission error")
	}
	if len(sync.failures) != 1 || !strings.Contains(sync.failures[0], "fulfillment submission failed") {
		t.Errorf("failure should be recorded on the order, got %v", sync.failures)
	}
}

func TestHandleStatusUpdate(t *testing.T) {
	sync := &fakeOrderSync{}
	svc := newTestService(&fakeProvider{}, true)
	svc.SetOrderSync(sync)

	if err := svc.HandleStatusUpdate(context.Background(), "prov-1", "shipped"); err != nil {
		t.Fatalf("HandleStatusUpdate: %v", err)
	}
	if sync.applied["prov-1"] != "shipped" {
		t.Errorf("status not forwarded to orders: %v", sync.applied)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		shipping, customer, first, last string
	}{
		{"Jane Smith", "", "Jane", "Smith"},
		{"", "Jan van der Berg", "Jan", "van der Berg"},
		{"Cher", "", "Cher", ""},
		{"", "", "Customer", ""},
	}
	for _, tt := range tests {
		first, last := splitName(tt.shipping, tt.customer)
		if first != tt.first || last != tt.last {
			t.Errorf("splitName(%q, %q) = %q %q, want %q %q", tt.shipping, tt.customer, first, last, tt.first, tt.last)
		}
	}
}
