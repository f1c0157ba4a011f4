package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpipe-connector/internal/common/logging"
)

func TestServerLifecycle(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	srv := New(handler, "0", logging.NewNopLogger())
	require.NoError(t, srv.Start())
	require.NotEmpty(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err, ok := <-srv.Errors():
		assert.False(t, ok, "unexpected serve error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve loop did not stop")
	}
}

func TestServerBindError(t *testing.T) {
	first := New(http.NotFoundHandler(), "0", logging.NewNopLogger())
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background())

	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)
	second := New(http.NotFoundHandler(), port, logging.NewNopLogger())
	assert.Error(t, second.Start())
}
