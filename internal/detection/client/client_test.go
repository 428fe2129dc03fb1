package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/veritext/veritext/internal/config"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) Client {
	return New(Params{
		Config: config.Config{
			Detect: config.DetectConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		},
		Log: zap.NewNop(),
	})
}

func TestDetectSuccess(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/detect" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score":0.82,"threshold":0.5,"label":"AI","model_name":"det-v2"}`))
	}))
	defer backend.Close()

	result, err := newTestClient(backend.URL).Detect(context.Background(), "sample text")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.Score != 0.82 || result.Threshold != 0.5 || result.Label != "AI" || result.ModelName != "det-v2" {
		t.Fatalf("result = %+v", result)
	}
}

func TestDetectNon200(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	if _, err := newTestClient(backend.URL).Detect(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestDetectMissingField(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"score":0.82,"label":"AI"}`))
	}))
	defer backend.Close()

	if _, err := newTestClient(backend.URL).Detect(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestDetectTransportError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	if _, err := newTestClient(backend.URL).Detect(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestDetectMalformedJSON(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer backend.Close()

	if _, err := newTestClient(backend.URL).Detect(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}
