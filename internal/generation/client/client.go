package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"
)

const (
	modelStyleTransform = "flux-kontext-lora"
	modelPetComposite   = "flux-pro/kontext/max/multi"
	modelUpscale        = "clarity-upscaler"

	// LoRA adapter trained on the target portrait style.
	styleAdapterURL = "https://v3.fal.media/files/koala/HV-XcuBOG0z0apXA9dzP7_adapter_model.safetensors"

	pollInterval = 2 * time.Second
	maxPollTime  = 5 * time.Minute
)

// ErrGenerationFailed indicates the provider reported a failed run.
var ErrGenerationFailed = errors.New("generation run failed")

// Result is one generated image with its provider request reference.
type Result struct {
	ImageURL  string
	RequestID string
}

// Client talks to the queue-based image generation provider. Each model call
// submits a request and polls until the run finishes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *logger.Logger
}

// New creates a generation provider client.
func New(cfg config.GenerationConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.GetGenerationAPIBaseURL(),
		apiKey:     cfg.GetGenerationAPIKey(),
		log:        log,
	}
}

// GenerateStyleBase transforms the person photo into the base portrait.
func (c *Client) GenerateStyleBase(ctx context.Context, personPhotoURL string) (*Result, error) {
	return c.run(ctx, modelStyleTransform, map[string]any{
		"image_url": personPhotoURL,
		"prompt":    "keep likeness and hairstyle the same, change pose and style to mona lisa",
		"loras": []map[string]any{
			{"path": styleAdapterURL, "scale": 1.0},
		},
		"resolution_mode":     "2:3",
		"guidance_scale":      2.5,
		"num_inference_steps": 28,
		"seed":                rand.Intn(1_000_000),
	})
}

// CompositePet renders the pet into the base portrait. A non-empty
// promptTweak is appended for admin-directed regeneration runs.
func (c *Client) CompositePet(ctx context.Context, basePortraitURL, petPhotoURL, promptTweak string) (*Result, error) {
	prompt := "Incorporate the pet into the painting of the woman. She is holding it in her lap. Keep the painted style and likeness of the woman and pet"
	if promptTweak != "" {
		prompt += ". " + promptTweak
	}
	return c.run(ctx, modelPetComposite, map[string]any{
		"prompt":              prompt,
		"guidance_scale":      3.5,
		"num_images":          1,
		"output_format":       "jpeg",
		"safety_tolerance":    "2",
		"image_urls":          []string{basePortraitURL, petPhotoURL},
		"aspect_ratio":        "2:3",
	})
}

// Upscale produces the print-resolution render of a completed portrait.
func (c *Client) Upscale(ctx context.Context, imageURL string) (*Result, error) {
	return c.run(ctx, modelUpscale, map[string]any{
		"image_url":             imageURL,
		"prompt":                "masterpiece, best quality, highres, visible paintstroke texture, oil painting style",
		"upscale_factor":        3,
		"negative_prompt":       "(worst quality, low quality, normal quality:2), blurry, pixelated, artifacts",
		"creativity":            0.35,
		"resemblance":           0.8,
		"guidance_scale":        4,
		"num_inference_steps":   18,
		"enable_safety_checker": true,
	})
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type runResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Image struct {
		URL string `json:"url"`
	} `json:"image"`
}

// run submits a model request and polls the queue until completion.
func (c *Client) run(ctx context.Context, model string, input map[string]any) (*Result, error) {
	submitted, err := c.submit(ctx, model, input)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(maxPollTime)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("model %s request %s: %w: timed out", model, submitted.RequestID, ErrGenerationFailed)
		}

		status, err := c.status(ctx, model, submitted.RequestID)
		if err != nil {
			return nil, err
		}
		switch status.Status {
		case "COMPLETED":
			return c.result(ctx, model, submitted.RequestID)
		case "FAILED", "CANCELLED":
			return nil, fmt.Errorf("model %s request %s: %w: %s", model, submitted.RequestID, ErrGenerationFailed, status.Error)
		}
	}
}

func (c *Client) submit(ctx context.Context, model string, input map[string]any) (*submitResponse, error) {
	var out submitResponse
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.baseURL, model), input, &out); err != nil {
		return nil, err
	}
	if out.RequestID == "" {
		return nil, fmt.Errorf("model %s: provider returned no request id", model)
	}
	return &out, nil
}

func (c *Client) status(ctx context.Context, model, requestID string) (*statusResponse, error) {
	var out statusResponse
	url := fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, model, requestID)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) result(ctx context.Context, model, requestID string) (*Result, error) {
	var out runResponse
	url := fmt.Sprintf("%s/%s/requests/%s", c.baseURL, model, requestID)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &out); err != nil {
		return nil, err
	}

	imageURL := out.Image.URL
	if len(out.Images) > 0 {
		imageURL = out.Images[0].URL
	}
	if imageURL == "" {
		return nil, fmt.Errorf("model %s request %s: %w: no image in result", model, requestID, ErrGenerationFailed)
	}
	return &Result{ImageURL: imageURL, RequestID: requestID}, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling generation provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.log.Error("generation provider request failed",
			"url", url,
			"status", resp.StatusCode,
			"body", string(raw),
		)
		return fmt.Errorf("generation provider returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
