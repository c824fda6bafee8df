package utils

import (
	"strings"
	"testing"
)

func TestGenerateIdempotencyToken(t *testing.T) {
	token := GenerateIdempotencyToken()
	if len(token) != 32 {
		t.Fatalf("expected 32 characters, got %d (%q)", len(token), token)
	}
	if strings.Contains(token, "-") {
		t.Fatalf("token must not contain dashes: %q", token)
	}
	if token == GenerateIdempotencyToken() {
		t.Fatalf("tokens must be unique")
	}
}

func TestGenerateDisplayNo(t *testing.T) {
	no := GenerateDisplayNo("ORD")
	if !strings.HasPrefix(no, "ORD-") {
		t.Fatalf("unexpected display no: %q", no)
	}
	if len(no) != len("ORD-")+8 {
		t.Fatalf("unexpected length: %q", no)
	}
}

func TestParseUUID(t *testing.T) {
	id := NewUUID()
	parsed, err := ParseUUID(id.String())
	if err != nil {
		t.Fatalf("ParseUUID: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: %s != %s", parsed, id)
	}

	if _, err := ParseUUID("not-a-uuid"); err == nil {
		t.Fatalf("expected error for malformed input")
	}
}
