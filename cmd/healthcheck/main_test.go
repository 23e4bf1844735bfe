package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "127.0.0.1:8080"},
		{in: "garbage", want: "127.0.0.1:8080"},
		{in: ":9090", want: "127.0.0.1:9090"},
		{in: "0.0.0.0:9090", want: "127.0.0.1:9090"},
		{in: "[::]:9090", want: "[::1]:9090"},
		{in: "10.0.0.5:8080", want: "10.0.0.5:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAddr(tt.in))
		})
	}
}

func TestCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	assert.Equal(t, 0, check(strings.TrimPrefix(healthy.URL, "http://")))
	assert.Equal(t, 1, check(strings.TrimPrefix(failing.URL, "http://")))

	closed := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(closed.URL, "http://")
	closed.Close()
	assert.Equal(t, 1, check(addr))
}
