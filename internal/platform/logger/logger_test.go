package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"email", "ama@example.com",
		"phone", "+233244123456",
		"guest_id", "b5c7e1a2",
		"seats", 3,
	})
	if len(out) != 8 {
		t.Fatalf("len=%d, want 8", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("email=%v, want redacted", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("phone=%v, want redacted", out[3])
	}
	hashed, ok := out[5].(string)
	if !ok || !strings.HasPrefix(hashed, "hash:") {
		t.Fatalf("guest_id=%v, want hashed", out[5])
	}
	if hashed == "hash:" || strings.Contains(hashed, "b5c7e1a2") {
		t.Fatalf("guest_id hash leaks the raw value: %q", hashed)
	}
	if out[7] != 3 {
		t.Fatalf("seats=%v, want passed through", out[7])
	}
}

func TestSanitizeKVsOddTrailingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"email", "x@y.z", "dangling"})
	if len(out) != 3 {
		t.Fatalf("len=%d, want 3", len(out))
	}
	if out[2] != "dangling" {
		t.Fatalf("trailing element=%v", out[2])
	}
}

func TestHashValueStable(t *testing.T) {
	a := hashValue("guest-1")
	b := hashValue("guest-1")
	c := hashValue("guest-2")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("distinct inputs collide: %q", a)
	}
}
