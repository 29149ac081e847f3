package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/crmkit/lead-extractor/internal/domain"
)

// RuntimeClient talks to the local inference sidecar that hosts the
// vision model on the accelerator. The sidecar exposes a small JSON
// protocol: device inspection, weight loading, generation, unloading.
type RuntimeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRuntimeClient creates a client for the sidecar at baseURL.
func NewRuntimeClient(baseURL string) *RuntimeClient {
	return &RuntimeClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// DeviceInfo describes the accelerator the runtime is bound to.
type DeviceInfo struct {
	Name          string  `json:"name"`
	TotalMemoryGB float64 `json:"total_memory_gb"`
}

// LoadRequest asks the runtime to fetch and load model weights.
type LoadRequest struct {
	Model        string `json:"model"`
	Quantization string `json:"quantization"`
	Token        string `json:"token,omitempty"`
}

// GenerateRequest submits one image with an instruction prompt.
type GenerateRequest struct {
	Prompt    string `json:"prompt"`
	ImageB64  string `json:"image_base64"`
	MaxTokens int    `json:"max_tokens"`
	Greedy    bool   `json:"greedy"`
}

// GenerateResponse carries the decoded model output.
type GenerateResponse struct {
	Text string `json:"text"`
}

// Device returns the accelerator the runtime sees. An error here means
// no usable accelerator is available.
func (c *RuntimeClient) Device(ctx context.Context) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := c.do(ctx, http.MethodGet, "/v1/device", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Load fetches weights and loads the model onto the accelerator.
func (c *RuntimeClient) Load(ctx context.Context, req LoadRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/load", req, nil)
}

// Generate runs one inference pass. The runtime serves a single model
// instance and is not safe for concurrent calls; serialization is the
// caller's responsibility.
func (c *RuntimeClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/v1/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unload releases the model and its accelerator memory.
func (c *RuntimeClient) Unload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/unload", nil, nil)
}

// ReleaseCache asks the runtime to drop cached allocations. This is a
// hint: the runtime may ignore it.
func (c *RuntimeClient) ReleaseCache(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/release-cache", nil, nil)
}

func (c *RuntimeClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return domain.APIError("failed to marshal runtime request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domain.APIError("failed to build runtime request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.APIError("runtime request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return domain.APIError(fmt.Sprintf("runtime returned status %d: %s", resp.StatusCode, string(data)), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.APIError("failed to decode runtime response", err)
		}
	}
	return nil
}
