package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kvistad/renderloop/internal/config"
)

func testClient(srvURL string) *Client {
	return NewClient(config.StorageConfig{BaseURL: srvURL, Bucket: "renders"})
}

func TestSignedViewURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sign" {
			t.Errorf("path = %q, want /v1/sign", r.URL.Path)
		}
		if got := r.URL.Query().Get("bucket"); got != "renders" {
			t.Errorf("bucket = %q, want renders", got)
		}
		if got := r.URL.Query().Get("object"); got != "up-123" {
			t.Errorf("object = %q, want up-123", got)
		}
		w.Write([]byte(`{"signed_url":"https://cdn.example.com/up-123?sig=abc"}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).SignedViewURL(context.Background(), "up-123")
	if err != nil {
		t.Fatalf("SignedViewURL: %v", err)
	}
	if got != "https://cdn.example.com/up-123?sig=abc" {
		t.Errorf("url = %q", got)
	}
}

func TestSignedViewURL_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("object") {
		case "missing":
			w.WriteHeader(http.StatusNotFound)
		case "empty":
			w.Write([]byte(`{"signed_url":""}`))
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for _, id := range []string{"missing", "empty", "garbled"} {
		if _, err := c.SignedViewURL(context.Background(), id); err == nil {
			t.Errorf("object %q: expected error", id)
		}
	}

	if _, err := c.SignedViewURL(context.Background(), ""); err == nil {
		t.Error("expected error for empty upload ID")
	}
	if _, err := testClient("").SignedViewURL(context.Background(), "up-1"); err == nil {
		t.Error("expected error with no base URL")
	}
}

func TestThumbURL_BestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if got := testClient(srv.URL).ThumbURL(context.Background(), "up-1"); got != "" {
		t.Errorf("ThumbURL on failure = %q, want empty placeholder", got)
	}
}
