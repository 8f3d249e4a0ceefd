package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryParsesAndSanitizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	content := `
publishers:
  - id: hook
    type: HTTP
    http:
      url: " https://hooks.example.org/scholarships "
  - id: queue
    type: sqs
    enabled: false
    sqs:
      uri: https://sqs.us-east-1.amazonaws.com/123/scout
      region: us-east-1
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:123:scout
      region: us-east-1
  - id: gtopic
    type: gcp_pubsub
    gcp_pubsub:
      project_id: scout-project
      topic: discoveries
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	hook, ok := reg.ByID("hook")
	if !ok {
		t.Fatalf("hook publisher missing")
	}
	if hook.Type != TypeHTTP {
		t.Fatalf("type not lowercased: %q", hook.Type)
	}
	if hook.HTTP.URL != "https://hooks.example.org/scholarships" {
		t.Fatalf("url not trimmed: %q", hook.HTTP.URL)
	}
	if hook.HTTP.Method != "POST" {
		t.Fatalf("default method not applied: %q", hook.HTTP.Method)
	}
	if hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("default timeout not applied: %d", hook.HTTP.TimeoutSeconds)
	}

	enabled := reg.Enabled()
	if len(enabled) != 3 {
		t.Fatalf("expected 3 enabled publishers, got %d", len(enabled))
	}
	for _, cfg := range enabled {
		if cfg.ID == "queue" {
			t.Fatalf("disabled publisher returned by Enabled()")
		}
	}
}

func TestLoadRegistryRejectsIncompleteConfigs(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing id", "publishers:\n  - type: http\n    http:\n      url: https://x\n"},
		{"sqs without region", "publishers:\n  - id: q\n    type: sqs\n    sqs:\n      uri: https://x\n"},
		{"sns without arn", "publishers:\n  - id: t\n    type: sns\n    sns:\n      region: us-east-1\n"},
		{"pubsub without topic", "publishers:\n  - id: g\n    type: gcp_pubsub\n    gcp_pubsub:\n      project_id: p\n"},
		{"duplicate ids", "publishers:\n  - id: a\n    type: http\n    http:\n      url: https://x\n  - id: a\n    type: http\n    http:\n      url: https://y\n"},
	}

	for _, tc := range cases {
		dir := t.TempDir()
		path := filepath.Join(dir, "publishers.yaml")
		if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
			t.Fatalf("%s: write: %v", tc.name, err)
		}
		if _, err := LoadRegistry(path); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
