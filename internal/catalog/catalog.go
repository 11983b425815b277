// Package catalog loads the product catalog and answers pricing and
// delivery-estimate questions for the order flow.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"pawtrait_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

// ProductType identifies a sellable product family.
type ProductType string

const (
	ProductDigital      ProductType = "digital"
	ProductArtPrint     ProductType = "art_print"
	ProductFramedCanvas ProductType = "framed_canvas"
)

// PriceVariant is the pricing-experiment key assigned once at artwork creation.
type PriceVariant string

const (
	VariantA PriceVariant = "A"
	VariantB PriceVariant = "B"

	// DefaultVariant is used when a stored variant is missing or unrecognized.
	DefaultVariant = VariantA
)

// NormalizeVariant maps arbitrary input to a known pricing variant.
func NormalizeVariant(raw string) PriceVariant {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "B":
		return VariantB
	default:
		return DefaultVariant
	}
}

// Size is a single purchasable size of a product, priced per experiment variant.
type Size struct {
	Name   string                 `yaml:"name"`
	Prices map[PriceVariant]int64 `yaml:"prices"`
}

// Product is one product family with its sizes and shipping characteristics.
type Product struct {
	Type                 ProductType `yaml:"type"`
	DisplayName          string      `yaml:"display_name"`
	DeliveryBusinessDays int         `yaml:"delivery_business_days"`
	Sizes                []Size      `yaml:"sizes"`
}

type catalogFile struct {
	Products []Product `yaml:"products"`
}

// Catalog is the loaded, validated product catalog. It is immutable after Load.
type Catalog struct {
	products map[ProductType]Product
}

// Load reads and parses the catalog YAML file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Catalog from raw YAML.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("catalog contains no products")
	}

	products := make(map[ProductType]Product, len(file.Products))
	for _, product := range file.Products {
		if product.Type == "" {
			return nil, fmt.Errorf("catalog product missing type")
		}
		if _, dup := products[product.Type]; dup {
			return nil, fmt.Errorf("catalog product %q listed twice", product.Type)
		}
		if len(product.Sizes) == 0 {
			return nil, fmt.Errorf("catalog product %q has no sizes", product.Type)
		}
		for _, size := range product.Sizes {
			if size.Name == "" {
				return nil, fmt.Errorf("catalog product %q has a size without a name", product.Type)
			}
			if len(size.Prices) == 0 {
				return nil, fmt.Errorf("catalog product %q size %q has no prices", product.Type, size.Name)
			}
		}
		products[product.Type] = product
	}

	return &Catalog{products: products}, nil
}

// Product returns the catalog entry for the given type.
func (c *Catalog) Product(productType ProductType) (Product, bool) {
	product, ok := c.products[productType]
	return product, ok
}

// Price resolves the price in cents for a product/size under the given
// pricing variant. The price is always resolved server-side from the catalog,
// never trusted from the client.
func (c *Catalog) Price(productType ProductType, sizeName string, variant PriceVariant) (int64, error) {
	product, ok := c.products[productType]
	if !ok {
		return 0, apperr.Validation(fmt.Sprintf("unknown product type %q", productType))
	}
	for _, size := range product.Sizes {
		if size.Name != sizeName {
			continue
		}
		if price, ok := size.Prices[variant]; ok {
			return price, nil
		}
		if price, ok := size.Prices[DefaultVariant]; ok {
			return price, nil
		}
		return 0, apperr.Validation(fmt.Sprintf("product %q size %q has no price for variant %q", productType, sizeName, variant))
	}
	return 0, apperr.Validation(fmt.Sprintf("unknown size %q for product %q", sizeName, productType))
}

// Placeholder returns the product/size used for best-effort placeholder
// orders synthesized during admin approval when no payment metadata exists.
func (c *Catalog) Placeholder() (ProductType, string) {
	return ProductArtPrint, "20x30"
}

// EstimatedDelivery computes the estimated delivery date for a product type,
// counting only business days. Digital products deliver immediately.
func (c *Catalog) EstimatedDelivery(productType ProductType, from time.Time) time.Time {
	product, ok := c.products[productType]
	if !ok || product.DeliveryBusinessDays <= 0 {
		return from
	}
	return AddBusinessDays(from, product.DeliveryBusinessDays)
}

// AddBusinessDays advances from by n days, skipping Saturdays and Sundays.
func AddBusinessDays(from time.Time, n int) time.Time {
	current := from
	for added := 0; added < n; {
		current = current.AddDate(0, 0, 1)
		if current.Weekday() == time.Saturday || current.Weekday() == time.Sunday {
			continue
		}
		added++
	}
	return current
}
