// Package client provides the HTTP client for the print-fulfillment
// provider's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"
)

// maxImageDownload caps how much of a source image is read for upload.
const maxImageDownload = 50 << 20 // 50 MiB

// Variant is one printable size/finish of a blueprint.
type Variant struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// ProductVariant enables one variant on a created product.
type ProductVariant struct {
	ID        int   `json:"id"`
	Price     int64 `json:"price"`
	IsEnabled bool  `json:"is_enabled"`
}

// PrintAreaImage positions the uploaded artwork on the print surface.
type PrintAreaImage struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
	Angle float64 `json:"angle"`
}

// Placeholder is one printable position of a print area.
type Placeholder struct {
	Position string           `json:"position"`
	Images   []PrintAreaImage `json:"images"`
}

// PrintArea assigns placeholders to variants.
type PrintArea struct {
	VariantIDs   []int         `json:"variant_ids"`
	Placeholders []Placeholder `json:"placeholders"`
}

// CreateProductRequest creates a product draft; the provider renders mockup
// images for it as a side effect.
type CreateProductRequest struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	BlueprintID     int              `json:"blueprint_id"`
	PrintProviderID int              `json:"print_provider_id"`
	Variants        []ProductVariant `json:"variants"`
	PrintAreas      []PrintArea      `json:"print_areas"`
	Tags            []string         `json:"tags,omitempty"`
}

// ProductImage is one provider-rendered mockup of a product.
type ProductImage struct {
	Src        string `json:"src"`
	VariantIDs []int  `json:"variant_ids"`
	Position   string `json:"position"`
	IsDefault  bool   `json:"is_default"`
	Order      int    `json:"order"`
}

// Product is a created product with its rendered mockups.
type Product struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Images []ProductImage `json:"images"`
}

// LineItem is one ordered product variant.
type LineItem struct {
	ProductID  string            `json:"product_id"`
	VariantID  int               `json:"variant_id"`
	Quantity   int               `json:"quantity"`
	PrintAreas map[string]string `json:"print_areas,omitempty"`
}

// ShippingAddress is the provider's order address shape.
type ShippingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country"`
	Region    string `json:"region,omitempty"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
}

// CreateOrderRequest submits a production order.
type CreateOrderRequest struct {
	ExternalID               string          `json:"external_id"`
	Label                    string          `json:"label,omitempty"`
	LineItems                []LineItem      `json:"line_items"`
	ShippingMethod           int             `json:"shipping_method"`
	SendShippingNotification bool            `json:"send_shipping_notification"`
	AddressTo                ShippingAddress `json:"address_to"`
}

// Order is the provider's view of a submitted order.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client is the HTTP client for the fulfillment provider API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	shopID     string
	log        *logger.Logger
}

// New creates a new fulfillment provider client.
func New(cfg config.FulfillmentConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.GetFulfillmentAPIBaseURL(),
		token:      cfg.GetFulfillmentAPIToken(),
		shopID:     cfg.GetFulfillmentShopID(),
		log:        log,
	}
}

// UploadImage downloads the artwork and pushes it to the provider's media
// library, returning the upload id used in print areas.
func (c *Client) UploadImage(ctx context.Context, imageURL, fileName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownload))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	var upload struct {
		ID string `json:"id"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/v1/uploads/images.json", map[string]string{
		"file_name": fileName,
		"contents":  base64.StdEncoding.EncodeToString(data),
	}, &upload)
	if err != nil {
		return "", err
	}
	return upload.ID, nil
}

// GetVariants lists the printable variants of a blueprint at one provider.
func (c *Client) GetVariants(ctx context.Context, blueprintID, printProviderID int) ([]Variant, error) {
	path := fmt.Sprintf("/v1/catalog/blueprints/%d/print_providers/%d/variants.json", blueprintID, printProviderID)
	var payload struct {
		Variants []Variant `json:"variants"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Variants, nil
}

// CreateProduct creates a product draft and returns it with the provider's
// rendered mockup images.
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	var created Product
	path := fmt.Sprintf("/v1/shops/%s/products.json", c.shopID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &created); err != nil {
		return nil, err
	}

	// Mockups are rendered asynchronously into the product resource; fetch
	// the full product to pick them up.
	var full Product
	getPath := fmt.Sprintf("/v1/shops/%s/products/%s.json", c.shopID, created.ID)
	if err := c.doJSON(ctx, http.MethodGet, getPath, nil, &full); err != nil {
		return nil, err
	}
	return &full, nil
}

// CreateOrder submits a production order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/v1/shops/%s/orders.json", c.shopID)
	if err := c.doJSON(ctx, http.MethodPost, path, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("fulfillment api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("fulfillment api error", "method", method, "path", path, "status", resp.StatusCode, "body", string(detail))
		return fmt.Errorf("fulfillment api: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
