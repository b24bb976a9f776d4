package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientDoGETEncodesParametersAsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient()
	resp, err := c.Do(context.Background(), Request{
		URL:        srv.URL,
		Method:     "GET",
		Parameters: map[string]string{"order": "123"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !resp.IsSuccess() {
		t.Fatalf("expected a 2xx status, got %d", resp.StatusCode)
	}
	if gotQuery != "order=123" {
		t.Fatalf("expected the order param in the query string, got %q", gotQuery)
	}
}

func TestClientDoPOSTEncodesParametersAsFormBody(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient()
	resp, err := c.Do(context.Background(), Request{
		URL:        srv.URL,
		Method:     "post",
		Parameters: map[string]string{"name": "Ada"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if !strings.Contains(gotBody, "name=Ada") {
		t.Fatalf("expected the form-encoded body to carry name=Ada, got %q", gotBody)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("expected a form content type, got %q", gotContentType)
	}
}

func TestClientDoRespectsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.Do(context.Background(), Request{
		URL:     srv.URL,
		Method:  "GET",
		Timeout: 5 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
}

func TestClientDoSetsCustomHeaders(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.Do(context.Background(), Request{
		URL:     srv.URL,
		Method:  "GET",
		Headers: map[string]string{"X-Api-Key": "secret"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotHeader != "secret" {
		t.Fatalf("expected the custom header to reach the server, got %q", gotHeader)
	}
}
