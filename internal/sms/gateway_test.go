package sms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGateway_Send(t *testing.T) {
	var got sendRequest
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "tok-123", "clinic")
	err := gw.Send(context.Background(), "+15550100", "see you tomorrow")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", auth)
	assert.Equal(t, "+15550100", got.To)
	assert.Equal(t, "clinic", got.From)
	assert.Equal(t, "see you tomorrow", got.Message)
}

func TestHTTPGateway_Send_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "tok-123", "clinic")
	err := gw.Send(context.Background(), "+15550100", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestHTTPGateway_Send_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection
		// read; otherwise it never notices the client hang-up and this
		// handler (and srv.Close) would block forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "tok-123", "clinic")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := gw.Send(ctx, "+15550100", "hello")
	assert.Error(t, err)
}
