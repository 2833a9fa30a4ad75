package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_ReturnsAfterDrain(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var drained atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv, ln, slog.New(slog.DiscardHandler), func(context.Context) {
			time.Sleep(50 * time.Millisecond)
			drained.Store(true)
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, drained.Load(), "serve returned before drain finished")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_ListenerErrorSkipsDrain(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	called := false
	err = serve(context.Background(), &http.Server{}, ln, slog.New(slog.DiscardHandler), func(context.Context) {
		called = true
	})
	assert.Error(t, err)
	assert.False(t, called)
}
