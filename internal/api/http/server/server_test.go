package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/appauth-server/internal/mocks"
)

func TestHTTPServer_StartServesAndStops(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	srv := NewHTTPServer(handler, ":0", time.Second, time.Second)
	assert.Equal(t, ":0", srv.Address())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	sec := mocks.NewSecurityLayer(t)
	sec.On("Listen", "tcp", ":0").Return(ln, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(sec) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "pong"
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.NoError(t, <-errCh)
}

func TestHTTPServer_StartListenError(t *testing.T) {
	t.Parallel()

	sec := mocks.NewSecurityLayer(t)
	sec.On("Listen", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	err := NewHTTPServer(http.NotFoundHandler(), ":1", time.Second, time.Second).Start(sec)
	assert.ErrorIs(t, err, assert.AnError)
}
