package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asimzulfiqar/LifeLogger/pkg/config"
)

func TestReverseParsesAddressFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "jsonv2" {
			t.Errorf("format = %q, want jsonv2", got)
		}
		if got := r.URL.Query().Get("lat"); got != "31.5" {
			t.Errorf("lat = %q, want 31.5", got)
		}
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("expected User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "Cafe Aylanto, Lahore, Pakistan",
			"address": {
				"amenity": "Cafe Aylanto",
				"city": "Lahore",
				"country": "Pakistan"
			}
		}`))
	}))
	defer server.Close()

	client := New(config.GeocodeConfig{Endpoint: server.URL}, nil)

	address, err := client.Reverse(context.Background(), 31.5, 74.3)
	if err != nil {
		t.Fatalf("Reverse error: %v", err)
	}

	if address.Amenity != "Cafe Aylanto" {
		t.Fatalf("amenity = %q, want %q", address.Amenity, "Cafe Aylanto")
	}
	if address.City != "Lahore" {
		t.Fatalf("city = %q, want %q", address.City, "Lahore")
	}
	if address.Country != "Pakistan" {
		t.Fatalf("country = %q, want %q", address.Country, "Pakistan")
	}
	if address.Shop != "" || address.Town != "" {
		t.Fatalf("expected absent fields to stay empty, got %+v", address)
	}
}

func TestReverseWithoutAddressObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer server.Close()

	client := New(config.GeocodeConfig{Endpoint: server.URL}, nil)

	address, err := client.Reverse(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Reverse error: %v", err)
	}
	if address != (Address{}) {
		t.Fatalf("expected zero address, got %+v", address)
	}
}

func TestReverseUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(config.GeocodeConfig{Endpoint: server.URL}, nil)

	if _, err := client.Reverse(context.Background(), 1, 1); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestReverseHonorsContextDeadline(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := New(config.GeocodeConfig{Endpoint: server.URL}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Reverse(ctx, 31.5, 74.3); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	client := New(config.GeocodeConfig{}, nil)

	if client.endpoint != defaultEndpoint {
		t.Fatalf("endpoint = %q, want default", client.endpoint)
	}
	if client.userAgent != defaultUserAgent {
		t.Fatalf("user agent = %q, want default", client.userAgent)
	}
	if client.httpClient.Timeout != defaultTimeout {
		t.Fatalf("timeout = %v, want %v", client.httpClient.Timeout, defaultTimeout)
	}
}
