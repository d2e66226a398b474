package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PersonaQuiz/internal/config"
)

func TestNewServer_UsesConfig(t *testing.T) {
	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         8088,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 4 * time.Second,
	}
	server := NewServer(cfg, http.NewServeMux(), nil)

	require.NotNil(t, server)
	assert.Equal(t, "127.0.0.1:8088", server.Addr())
	assert.Equal(t, 3*time.Second, server.srv.ReadTimeout)
	assert.Equal(t, 4*time.Second, server.srv.WriteTimeout)
	assert.Equal(t, config.DefaultServerShutdownTimeout, server.shutdownTimeout)
}

func TestServer_StopBeforeStart(t *testing.T) {
	server := NewServer(config.ServerConfig{Port: 0}, http.NewServeMux(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Stop(ctx))
}

func TestServer_StartReturnsNilAfterStop(t *testing.T) {
	server := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, http.NewServeMux(), nil)

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, server.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestServer_MaxBodySize(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := NewServer(config.ServerConfig{MaxBodySize: 8}, echo, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, rec.Code)
}
