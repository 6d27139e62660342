package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewLogger_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, "prod").DebugContext(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written in prod: %s", buf.String())
	}

	newLogger(&buf, "dev").Debug("visible", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "visible" || rec["k"] != "v" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if _, ok := rec["trace_id"]; ok {
		t.Fatalf("trace_id set without a span: %v", rec)
	}
}

func TestContextHandler_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := WithRequestID(context.Background(), "req-123")
	log.InfoContext(ctx, "booked", "appointment_id", "a1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["request_id"] != "req-123" {
		t.Fatalf("request_id = %v, want req-123", rec["request_id"])
	}

	if _, ok := RequestIDFrom(WithRequestID(context.Background(), "")); ok {
		t.Fatal("empty id should not be stored")
	}
}
