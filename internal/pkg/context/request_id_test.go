package context

import (
	"context"
	"testing"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	//nolint:staticcheck // nil context is handled explicitly
	if got := GetRequestID(nil); got != "" {
		t.Fatalf("expected empty for nil ctx, got %q", got)
	}
	// a plain string key must not collide with ours
	ctx := context.WithValue(context.Background(), "request_id", "x") //nolint:staticcheck
	if got := GetRequestID(ctx); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestUserID_RoundTripAndIsolation(t *testing.T) {
	ctx := WithUserID(context.Background(), "u1")
	if got := GetUserID(ctx); got != "u1" {
		t.Fatalf("expected u1, got %q", got)
	}
	if got := GetRequestID(ctx); got != "" {
		t.Fatalf("user id leaked into request id: %q", got)
	}
	//nolint:staticcheck // nil context is handled explicitly
	if got := GetUserID(nil); got != "" {
		t.Fatalf("expected empty for nil ctx, got %q", got)
	}
}
