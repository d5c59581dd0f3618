package framework

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/manningwu07/storyforge/params"
)

// HTTPClient drives the python model server over plain JSON POSTs.
type HTTPClient struct {
	BaseURL   string
	ModelPath string // model the server should load for /generate
	Device    string
	Client    *http.Client
}

func NewHTTPClient(baseURL, modelPath, device string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelPath: modelPath,
		Device:    device,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Train(ctx context.Context, cfg params.TrainingConfig, resumeFrom string) (*TrainResult, error) {
	var res TrainResult
	if err := c.post(ctx, "/train", trainRequest{TrainingConfig: cfg, ResumeFrom: resumeFrom}, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrainer, err)
	}
	return &res, nil
}

func (c *HTTPClient) SaveModel(ctx context.Context, outputDir string) error {
	if err := c.post(ctx, "/save", saveRequest{OutputDir: outputDir}, nil); err != nil {
		return fmt.Errorf("%w: save model: %w", ErrTrainer, err)
	}
	return nil
}

func (c *HTTPClient) Generate(ctx context.Context, ids []int, p GenerateParams) ([]int, error) {
	req := generateRequest{Model: c.ModelPath, Device: c.Device, IDs: ids, GenerateParams: p}
	var res generateResponse
	if err := c.post(ctx, "/generate", req, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return res.IDs, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("POST %s: decode response: %w", path, err)
	}
	return nil
}
