package catalog

import (
	"testing"
	"time"
)

const testCatalogYAML = `
products:
  - type: digital
    display_name: Digital Masterpiece
    delivery_business_days: 0
    sizes:
      - name: digital
        prices:
          A: 1500
          B: 4500
  - type: art_print
    display_name: Fine Art Print
    delivery_business_days: 7
    sizes:
      - name: 12x18
        prices:
          A: 3900
          B: 7900
      - name: 20x30
        prices:
          A: 5900
  - type: framed_canvas
    display_name: Framed Canvas
    delivery_business_days: 10
    sizes:
      - name: 20x30
        prices:
          A: 14900
          B: 22500
`

func mustParse(t *testing.T) *Catalog {
	t.Helper()
	c, err := Parse([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return c
}

func TestPriceLookup(t *testing.T) {
	c := mustParse(t)

	tests := []struct {
		name        string
		productType ProductType
		size        string
		variant     PriceVariant
		want        int64
		wantErr     bool
	}{
		{name: "digital variant A", productType: ProductDigital, size: "digital", variant: VariantA, want: 1500},
		{name: "digital variant B", productType: ProductDigital, size: "digital", variant: VariantB, want: 4500},
		{name: "print variant B", productType: ProductArtPrint, size: "12x18", variant: VariantB, want: 7900},
		{name: "missing variant falls back to A", productType: ProductArtPrint, size: "20x30", variant: VariantB, want: 5900},
		{name: "unknown product", productType: ProductType("poster"), size: "12x18", variant: VariantA, wantErr: true},
		{name: "unknown size", productType: ProductArtPrint, size: "30x40", variant: VariantA, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Price(tt.productType, tt.size, tt.variant)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got price %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("price = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizeVariant(t *testing.T) {
	tests := []struct {
		input string
		want  PriceVariant
	}{
		{"A", VariantA},
		{"B", VariantB},
		{"b", VariantB},
		{" B ", VariantB},
		{"", VariantA},
		{"nonsense", VariantA},
	}
	for _, tt := range tests {
		if got := NormalizeVariant(tt.input); got != tt.want {
			t.Errorf("NormalizeVariant(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAddBusinessDaysSkipsWeekends(t *testing.T) {
	// 2026-01-05 is a Monday.
	monday := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		days int
		want time.Time
	}{
		{name: "within same week", from: monday, days: 4, want: monday.AddDate(0, 0, 4)},
		{name: "crosses one weekend", from: monday, days: 7, want: time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)},
		{name: "crosses two weekends", from: monday, days: 10, want: time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)},
		{name: "starting friday", from: time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC), days: 1, want: time.Date(2026, 1, 12, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddBusinessDays(tt.from, tt.days)
			if !got.Equal(tt.want) {
				t.Errorf("AddBusinessDays = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEstimatedDelivery(t *testing.T) {
	c := mustParse(t)
	monday := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	if got := c.EstimatedDelivery(ProductDigital, monday); !got.Equal(monday) {
		t.Errorf("digital delivery = %s, want immediate", got)
	}
	if got := c.EstimatedDelivery(ProductArtPrint, monday); !got.Equal(time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("art_print delivery = %s", got)
	}
	if got := c.EstimatedDelivery(ProductFramedCanvas, monday); !got.Equal(time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("framed_canvas delivery = %s", got)
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "products: []"},
		{name: "missing type", yaml: "products:\n  - display_name: X\n    sizes:\n      - name: s\n        prices: {A: 1}"},
		{name: "no sizes", yaml: "products:\n  - type: digital\n    sizes: []"},
		{name: "size without prices", yaml: "products:\n  - type: digital\n    sizes:\n      - name: digital\n        prices: {}"},
		{name: "duplicate product", yaml: "products:\n  - type: digital\n    sizes:\n      - name: s\n        prices: {A: 1}\n  - type: digital\n    sizes:\n      - name: s\n        prices: {A: 1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
