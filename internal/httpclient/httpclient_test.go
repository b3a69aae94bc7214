package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	body, resp, err := Get(client, srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
}

func TestGetPropagatesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(5 * time.Second)
	client.RetryMax = 0
	_, resp, err := Get(client, srv.URL)
	if err == nil && resp != nil && resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 status or error, got status=%d err=%v", resp.StatusCode, err)
	}
}
