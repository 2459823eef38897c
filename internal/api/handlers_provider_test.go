package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleListProviders(t *testing.T) {
	r := testRouter(t, &fakeStreaming{}, &fakeMarket{})

	w := doRequest(t, r, http.MethodGet, "/api/v1/providers")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Providers []providerInfo `json:"providers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(resp.Providers))
	}
	for _, p := range resp.Providers {
		if p.Configured {
			t.Errorf("provider %s reports configured with no credentials", p.Name)
		}
	}
}

func TestHandleSetProviderKey(t *testing.T) {
	r := testRouter(t, &fakeStreaming{}, &fakeMarket{})

	// A single-field provider defaults the field name.
	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/discogs/key",
		strings.NewReader(`{"value":"secret-token"}`))
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	list := doRequest(t, r, http.MethodGet, "/api/v1/providers")
	var resp struct {
		Providers []providerInfo `json:"providers"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	for _, p := range resp.Providers {
		if p.Name == "discogs" && !p.Configured {
			t.Error("discogs should report configured after storing the token")
		}
	}
}

func TestHandleSetProviderKeyValidation(t *testing.T) {
	r := testRouter(t, &fakeStreaming{}, &fakeMarket{})

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"unknown provider", "/api/v1/providers/bandcamp/key", `{"value":"x"}`, http.StatusNotFound},
		{"unknown field", "/api/v1/providers/spotify/key", `{"field":"token","value":"x"}`, http.StatusBadRequest},
		{"multi-field provider needs a field", "/api/v1/providers/spotify/key", `{"value":"x"}`, http.StatusBadRequest},
		{"empty value", "/api/v1/providers/discogs/key", `{"value":""}`, http.StatusBadRequest},
		{"malformed body", "/api/v1/providers/discogs/key", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.Handler().ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestHandleDeleteProviderKey(t *testing.T) {
	r := testRouter(t, &fakeStreaming{}, &fakeMarket{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/discogs/key",
		strings.NewReader(`{"value":"secret-token"}`))
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("seeding credential: status = %d", w.Code)
	}

	if w := doRequest(t, r, http.MethodDelete, "/api/v1/providers/discogs/key"); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", w.Code, http.StatusOK)
	}

	list := doRequest(t, r, http.MethodGet, "/api/v1/providers")
	var resp struct {
		Providers []providerInfo `json:"providers"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	for _, p := range resp.Providers {
		if p.Name == "discogs" && p.Configured {
			t.Error("discogs should not report configured after deletion")
		}
	}
}
