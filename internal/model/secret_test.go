package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestValidateSecretRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		wantErr bool
	}{
		{name: "simple", ref: "partner-openai-key"},
		{name: "underscore", ref: "api_key_v2"},
		{name: "mixed case", ref: "ABC123"},
		{name: "max length", ref: strings.Repeat("a", 255)},
		{name: "empty", ref: "", wantErr: true},
		{name: "too long", ref: strings.Repeat("a", 256), wantErr: true},
		{name: "colon", ref: "my:key", wantErr: true},
		{name: "space", ref: "my key", wantErr: true},
		{name: "slash", ref: "key/path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecretRef(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSecretRef(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
		})
	}
}

func TestSecretValueRedaction(t *testing.T) {
	s := SecretFromString("super-secret")

	for _, got := range []string{
		s.String(),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%s", s),
		fmt.Sprintf("%q", s),
		fmt.Sprintf("%x", s),
		fmt.Sprintf("%#v", s),
	} {
		if strings.Contains(got, "super-secret") {
			t.Fatalf("secret leaked through formatting: %q", got)
		}
		if !strings.Contains(got, "[REDACTED]") {
			t.Errorf("expected redaction marker, got %q", got)
		}
	}
}

func TestSecretValueJSONRedacted(t *testing.T) {
	s := SecretFromString("super-secret")
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "super-secret") {
		t.Fatalf("secret leaked through JSON: %s", b)
	}
	if string(b) != `"[REDACTED]"` {
		t.Errorf("expected redacted JSON, got %s", b)
	}
}

func TestSecretValueBytesAndZero(t *testing.T) {
	s := SecretFromString("hello")
	if string(s.Bytes()) != "hello" {
		t.Errorf("Bytes() = %q, want %q", s.Bytes(), "hello")
	}

	s.Zero()
	if s.Bytes() != nil {
		t.Errorf("expected nil bytes after Zero, got %q", s.Bytes())
	}
}

func TestRouteAllowsMethod(t *testing.T) {
	r := Route{Methods: []string{"GET", "POST"}}
	if !r.AllowsMethod("GET") {
		t.Error("expected GET to be allowed")
	}
	if r.AllowsMethod("DELETE") {
		t.Error("expected DELETE to be rejected")
	}

	all := Route{}
	if !all.AllowsMethod("PATCH") {
		t.Error("empty method list should allow all methods")
	}
}
