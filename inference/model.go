package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Model scores one preprocessed image; higher means more likely pneumonia.
type Model interface {
	Predict(ctx context.Context, input Tensor) (float64, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, input Tensor) (float64, error)

func (f ModelFunc) Predict(ctx context.Context, input Tensor) (float64, error) {
	return f(ctx, input)
}

// TFServingModel calls the TensorFlow Serving REST predict API.
type TFServingModel struct {
	endpoint string
	client   *http.Client
}

// NewTFServingModel targets {baseURL}/v1/models/{name}:predict. client may be nil.
func NewTFServingModel(baseURL, name string, client *http.Client) *TFServingModel {
	if client == nil {
		client = http.DefaultClient
	}
	return &TFServingModel{
		endpoint: baseURL + "/v1/models/" + url.PathEscape(name) + ":predict",
		client:   client,
	}
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions json.RawMessage `json:"predictions"`
	Error       string          `json:"error"`
}

func (m *TFServingModel) Predict(ctx context.Context, input Tensor) (float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][][][]float32{input.Nested()}})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("model server returned %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return 0, fmt.Errorf("model server returned %d: %s", resp.StatusCode, out.Error)
	}
	return firstScore(out.Predictions)
}

// firstScore reads predictions shaped [[score]] (sigmoid Dense(1)) or [score].
func firstScore(raw json.RawMessage) (float64, error) {
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) > 0 && len(nested[0]) > 0 {
			return nested[0][0], nil
		}
		return 0, errors.New("empty predictions")
	}
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return 0, fmt.Errorf("decode predictions: %w", err)
	}
	if len(flat) == 0 {
		return 0, errors.New("empty predictions")
	}
	return flat[0], nil
}
