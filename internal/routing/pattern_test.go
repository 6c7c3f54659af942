package routing

import "testing"

func TestValidatePattern(t *testing.T) {
	tests := []struct {
		pattern string
		wantErr bool
	}{
		{"/v1/models", false},
		{"/proxy/*", false},
		{"/users/{id}/profile", false},
		{"/", false},
		{"", true},
		{"v1/models", true},
		{"/a/*/b", true},
		{"/a/{}", true},
		{"/a/b*c", true},
		{"/a//b", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			err := ValidatePattern(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePattern(%q) = %v, wantErr %v", tt.pattern, err, tt.wantErr)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/v1/models", "/v1/models", true},
		{"/v1/models", "/v1/other", false},
		{"/proxy/*", "/proxy/items", true},
		{"/proxy/*", "/proxy/a/b/c", true},
		{"/proxy/*", "/other/items", false},
		{"/users/{id}", "/users/42", true},
		{"/users/{id}", "/users/42/profile", false},
		{"/users/{id}/profile", "/users/42/profile", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			if got := Match(tt.pattern, tt.path); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"/v1/models", "/v1/models", true},
		{"/v1/models", "/v1/other", false},
		{"/proxy/*", "/proxy/items", true},
		{"/proxy/*", "/other/*", false},
		{"/users/{id}", "/users/42", true},
		{"/users/{id}", "/users/42/profile", false},
		{"/a/*", "/a/b/c", true},
		{"/{x}/b", "/a/b", true},
		{"/{x}/b", "/a/c", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps(%q, %q) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestMethodsOverlap(t *testing.T) {
	if !MethodsOverlap(nil, []string{"GET"}) {
		t.Error("empty list should overlap everything")
	}
	if !MethodsOverlap([]string{"GET", "POST"}, []string{"POST"}) {
		t.Error("shared method should overlap")
	}
	if MethodsOverlap([]string{"GET"}, []string{"DELETE"}) {
		t.Error("disjoint methods should not overlap")
	}
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name          string
		pattern       string
		rewritePrefix string
		path          string
		want          string
	}{
		{"wildcard suffix", "/proxy/*", "/v1", "/proxy/items", "/v1/items"},
		{"deep wildcard", "/proxy/*", "/v1", "/proxy/a/b", "/v1/a/b"},
		{"no rewrite", "/proxy/*", "", "/proxy/items", "/proxy/items"},
		{"exact pattern", "/models", "/v2/models", "/models", "/v2/models"},
		{"variable kept", "/users/{id}/profile", "/v2", "/users/42/profile", "/v2/42/profile"},
		{"wildcard root", "/proxy/*", "/v1", "/proxy", "/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rewrite(tt.pattern, tt.rewritePrefix, tt.path); got != tt.want {
				t.Errorf("Rewrite(%q, %q, %q) = %q, want %q", tt.pattern, tt.rewritePrefix, tt.path, got, tt.want)
			}
		})
	}
}
