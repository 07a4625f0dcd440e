package publishers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

const publishersYAML = `
publishers:
  - id: webhook
    type: http
    http:
      url: http://homeassistant.lan/api/webhook/calls
  - id: calls-queue
    type: SQS
    enabled: false
    sqs:
      uri: https://sqs.eu-central-1.amazonaws.com/123/calls
      region: eu-central-1
  - id: calls-topic
    type: sns
    sns:
      arn: arn:aws:sns:eu-central-1:123:calls
      region: eu-central-1
  - id: calls-pubsub
    type: gcppubsub
    gcppubsub:
      project_id: my-project
      topic: calls
`

func TestLoadRegistryAllTypes(t *testing.T) {
	reg, err := LoadRegistry(writeTempFile(t, "publishers.yaml", publishersYAML))
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}

	if got := len(reg.All()); got != 4 {
		t.Fatalf("expected 4 publishers, got %d", got)
	}

	queue, ok := reg.ByID("calls-queue")
	if !ok {
		t.Fatal("ByID(calls-queue) not found")
	}
	if queue.Type != TypeSQS {
		t.Errorf("type not lowercased: %q", queue.Type)
	}
	if queue.EnabledValue() {
		t.Error("enabled: false not honored")
	}

	webhook, _ := reg.ByID("webhook")
	if webhook.HTTP.Method != "POST" {
		t.Errorf("http method default = %q, want POST", webhook.HTTP.Method)
	}
	if webhook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Errorf("http timeout default = %d", webhook.HTTP.TimeoutSeconds)
	}
}

func TestConfigRegistryEnabledFilter(t *testing.T) {
	reg, err := LoadRegistry(writeTempFile(t, "publishers.yaml", publishersYAML))
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}

	enabled := reg.Enabled()
	if len(enabled) != 3 {
		t.Fatalf("expected 3 enabled publishers, got %d", len(enabled))
	}
	for _, cfg := range enabled {
		if cfg.ID == "calls-queue" {
			t.Fatal("disabled publisher in Enabled() result")
		}
	}
}

func TestLoadRegistryValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing id",
			"publishers:\n  - type: http\n    http:\n      url: http://x\n",
			"id is required",
		},
		{
			"sqs without uri",
			"publishers:\n  - id: q\n    type: sqs\n    sqs:\n      region: eu-central-1\n",
			"sqs.uri",
		},
		{
			"sns without region",
			"publishers:\n  - id: n\n    type: sns\n    sns:\n      arn: arn:aws:sns:x\n",
			"sns.region",
		},
		{
			"pubsub without topic",
			"publishers:\n  - id: p\n    type: gcppubsub\n    gcppubsub:\n      project_id: x\n",
			"gcppubsub.topic",
		},
		{
			"http without url",
			"publishers:\n  - id: h\n    type: http\n    http:\n      method: POST\n",
			"http.url",
		},
		{
			"duplicate id",
			"publishers:\n  - id: h\n    type: http\n    http:\n      url: http://x\n  - id: h\n    type: http\n    http:\n      url: http://y\n",
			"duplicate",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRegistry(writeTempFile(t, "publishers.yaml", tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRegistryPublisherFor(t *testing.T) {
	built := &fakePublisher{id: "built", typ: "custom"}
	reg := NewRegistry(map[string]Builder{
		"custom": func(context.Context, PublisherConfig, Logger) (Publisher, error) {
			return built, nil
		},
	})

	pub, err := reg.PublisherFor(context.Background(), PublisherConfig{ID: "x", Type: "custom"}, nil)
	if err != nil {
		t.Fatalf("PublisherFor failed: %v", err)
	}
	if pub != built {
		t.Fatal("builder result not returned")
	}

	if _, err := reg.PublisherFor(context.Background(), PublisherConfig{ID: "x", Type: "unknown"}, nil); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if _, err := reg.PublisherFor(context.Background(), PublisherConfig{ID: "x"}, nil); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestBuildAllStopsOnError(t *testing.T) {
	reg := NewRegistry(map[string]Builder{
		"good": func(context.Context, PublisherConfig, Logger) (Publisher, error) {
			return &fakePublisher{id: "good", typ: "good"}, nil
		},
		"bad": func(context.Context, PublisherConfig, Logger) (Publisher, error) {
			return nil, errors.New("boom")
		},
	})

	cfgs := []PublisherConfig{
		{ID: "a", Type: "good"},
		{ID: "b", Type: "bad"},
	}
	if _, err := BuildAll(context.Background(), reg, cfgs, nil); err == nil {
		t.Fatal("expected BuildAll to propagate the builder error")
	}

	pubs, err := BuildAll(context.Background(), reg, cfgs[:1], nil)
	if err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
}
