package ipgeo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serve(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestLocate(t *testing.T) {
	srv := serve(200, `{"ip":"1.2.3.4","city":"New York","latitude":40.7128,"longitude":-74.006}`)
	defer srv.Close()

	loc, err := New(srv.URL, time.Second).Locate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if loc.Lat != 40.7128 || loc.Lng != -74.006 {
		t.Errorf("unexpected coordinate %v", loc)
	}
}

func TestLocate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", 500, ``},
		{"rate limited", 429, `{"error":true,"reason":"RateLimited"}`},
		{"error flag", 200, `{"error":true,"reason":"Reserved IP Address"}`},
		{"missing latitude", 200, `{"longitude":-74.006}`},
		{"out of range", 200, `{"latitude":123,"longitude":-74.006}`},
		{"not json", 200, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(tt.status, tt.body)
			defer srv.Close()

			if _, err := New(srv.URL, time.Second).Locate(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLocate_MissingFieldsSentinel(t *testing.T) {
	srv := serve(200, `{}`)
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Locate(context.Background())
	if !errors.Is(err, errNoCoordinates) {
		t.Fatalf("expected errNoCoordinates, got %v", err)
	}
}
