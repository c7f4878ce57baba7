//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithAccount(ctx, "user@example.com")
	ctx = WithOperationID(ctx, "op-9")

	With(ctx, &base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if got["trace_id"] != "trace-1" || got["account"] != "user@example.com" || got["operation_id"] != "op-9" {
		t.Errorf("missing context fields in %v", got)
	}
	if TraceID(ctx) != "trace-1" {
		t.Errorf("TraceID() = %q", TraceID(ctx))
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		dev  bool
		want string
	}{
		{"short", false, "***"},
		{"someone@example.com", false, "some...om"},
		{"someone@example.com", true, "someone@example.com"},
	}
	for _, tc := range tests {
		if got := Redact(tc.in, tc.dev); got != tc.want {
			t.Errorf("Redact(%q, %v) = %q, want %q", tc.in, tc.dev, got, tc.want)
		}
	}
}
