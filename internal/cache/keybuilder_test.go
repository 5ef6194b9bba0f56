package cache

import (
	"net/http"
	"net/url"
	"testing"

	"go-offline-cache/internal/models"
)

func mustRequest(t *testing.T, method, rawURL string) *models.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", rawURL, err)
	}
	return &models.Request{Method: method, URL: u, Header: http.Header{}}
}

func TestKeyBuilder_Build(t *testing.T) {
	kb := NewKeyBuilder()

	tests := []struct {
		name      string
		namespace string
		request   *models.Request
		wantKey   string
		wantError bool
	}{
		{
			name:      "basic request",
			namespace: "ya-faqih-v3-static",
			request:   mustRequest(t, http.MethodGet, "https://yafaqih.app/_next/static/app.js"),
			wantKey:   "offline:ya-faqih-v3-static|GET https://yafaqih.app/_next/static/app.js",
		},
		{
			name:      "query string is part of the identity",
			namespace: "ya-faqih-v3-api",
			request:   mustRequest(t, http.MethodGet, "https://api.aladhan.com/v1/timings?city=Cairo"),
			wantKey:   "offline:ya-faqih-v3-api|GET https://api.aladhan.com/v1/timings?city=Cairo",
		},
		{
			name:      "fragment is dropped",
			namespace: "ya-faqih-v3-dynamic",
			request:   mustRequest(t, http.MethodGet, "https://yafaqih.app/about#team"),
			wantKey:   "offline:ya-faqih-v3-dynamic|GET https://yafaqih.app/about",
		},
		{
			name:      "empty method defaults to GET",
			namespace: "ya-faqih-v3-dynamic",
			request:   mustRequest(t, "", "https://yafaqih.app/"),
			wantKey:   "offline:ya-faqih-v3-dynamic|GET https://yafaqih.app/",
		},
		{
			name:      "nil request",
			namespace: "ya-faqih-v3-static",
			request:   nil,
			wantError: true,
		},
		{
			name:      "non-GET request",
			namespace: "ya-faqih-v3-api",
			request:   mustRequest(t, http.MethodPost, "https://yafaqih.app/api/chat"),
			wantError: true,
		},
		{
			name:      "empty namespace",
			namespace: "",
			request:   mustRequest(t, http.MethodGet, "https://yafaqih.app/"),
			wantError: true,
		},
		{
			name:      "namespace with separator",
			namespace: "bad|name",
			request:   mustRequest(t, http.MethodGet, "https://yafaqih.app/"),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := kb.Build(tt.namespace, tt.request)
			if tt.wantError {
				if err == nil {
					t.Errorf("Build() expected error, got key %q", key)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if key != tt.wantKey {
				t.Errorf("Build() = %q, want %q", key, tt.wantKey)
			}
		})
	}
}

func TestKeyBuilder_Deterministic(t *testing.T) {
	kb := NewKeyBuilder()
	req := mustRequest(t, http.MethodGet, "https://yafaqih.app/api/fatwas?page=2")

	first, err := kb.Build("ns", req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		key, _ := kb.Build("ns", req)
		if key != first {
			t.Fatalf("Build() not deterministic: %q != %q", key, first)
		}
	}
}

func TestKeyBuilder_ParseNamespace(t *testing.T) {
	kb := NewKeyBuilder()
	req := mustRequest(t, http.MethodGet, "https://yafaqih.app/a|b")

	key, err := kb.Build("ya-faqih-v1-static", req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	name, ok := kb.ParseNamespace(key)
	if !ok || name != "ya-faqih-v1-static" {
		t.Errorf("ParseNamespace(%q) = %q, %v", key, name, ok)
	}

	if _, ok := kb.ParseNamespace("unrelated:key"); ok {
		t.Error("ParseNamespace() should reject keys outside the root")
	}
	if _, ok := kb.ParseNamespace("offline:|GET /"); ok {
		t.Error("ParseNamespace() should reject empty namespace")
	}
}

func TestKeyBuilder_CustomRoot(t *testing.T) {
	kb := NewKeyBuilderWithRoot("tenant-a:")

	if kb.Root() != "tenant-a:" {
		t.Errorf("Root() = %q", kb.Root())
	}
	if prefix := kb.NamespacePrefix("ns"); prefix != "tenant-a:ns|" {
		t.Errorf("NamespacePrefix() = %q", prefix)
	}
}
