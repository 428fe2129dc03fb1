// Package client talks to the upstream text-classification backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/veritext/veritext/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrUpstream covers every way the backend can fail: transport errors,
// non-200 statuses and malformed payloads. Callers map it to a 502; no
// retries happen at this layer.
var ErrUpstream = errors.New("detection backend failure")

// Result is a successful classification from the backend.
type Result struct {
	Score     float64
	Threshold float64
	Label     string
	ModelName string
}

type Client interface {
	Detect(ctx context.Context, text string) (*Result, error)
}

type httpClient struct {
	baseURL string
	httpc   *http.Client
	log     *zap.Logger
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func New(p Params) Client {
	return &httpClient{
		baseURL: strings.TrimRight(p.Config.Detect.BaseURL, "/"),
		httpc:   &http.Client{Timeout: p.Config.Detect.Timeout},
		log:     p.Log.Named("detection.client"),
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Score     *float64 `json:"score"`
	Threshold *float64 `json:"threshold"`
	Label     *string  `json:"label"`
	ModelName *string  `json:"model_name"`
}

func (c *httpClient) Detect(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("detection backend unreachable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.log.Warn("detection backend error status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if parsed.Score == nil || parsed.Threshold == nil || parsed.Label == nil || parsed.ModelName == nil {
		return nil, fmt.Errorf("%w: incomplete response", ErrUpstream)
	}

	return &Result{
		Score:     *parsed.Score,
		Threshold: *parsed.Threshold,
		Label:     *parsed.Label,
		ModelName: *parsed.ModelName,
	}, nil
}
