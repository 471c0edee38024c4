package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSocketPath(t *testing.T) string {
	t.Helper()
	// Unix socket paths max out near 108 bytes; keep the temp dir short.
	return filepath.Join(t.TempDir(), "povox.sock")
}

func TestSendRoundTrip(t *testing.T) {
	path := testSocketPath(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := Acquire(ctx, path, 100*time.Millisecond, 1)
	require.NoError(t, err)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			return Response{
				OK:      true,
				State:   "presenting",
				Locale:  "es-US",
				Message: "echo:" + req.Command,
			}
		}))
	}()

	resp, err := Send(ctx, path, Request{Command: "status"}, 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "presenting", resp.State)
	require.Equal(t, "es-US", resp.Locale)
	require.Equal(t, "echo:status", resp.Message)

	cancel()
	require.NoError(t, <-serverDone)
}

func TestSendToMissingSocket(t *testing.T) {
	path := testSocketPath(t)

	_, err := Send(context.Background(), path, Request{Command: "status"}, 100*time.Millisecond)
	require.Error(t, err)
	require.True(t, isSocketMissing(err) || isConnectionRefused(err))
}

func TestProbeReportsNoListener(t *testing.T) {
	alive, err := Probe(context.Background(), testSocketPath(t), 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}

func TestAcquireRejectsLiveOwner(t *testing.T) {
	path := testSocketPath(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := Acquire(ctx, path, 100*time.Millisecond, 1)
	require.NoError(t, err)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- Serve(ctx, listener, HandlerFunc(func(context.Context, Request) Response {
			return Response{OK: true, State: "idle"}
		}))
	}()

	// Give the server a moment to start accepting.
	require.Eventually(t, func() bool {
		alive, probeErr := Probe(ctx, path, 100*time.Millisecond)
		return probeErr == nil && alive
	}, time.Second, 10*time.Millisecond)

	_, err = Acquire(ctx, path, 100*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-serverDone)
}

func TestAcquireReclaimsStaleSocket(t *testing.T) {
	path := testSocketPath(t)
	ctx := context.Background()

	listener, err := Acquire(ctx, path, 100*time.Millisecond, 1)
	require.NoError(t, err)
	// Close without removing the socket file to simulate a crashed agent.
	require.NoError(t, listener.Close())

	reclaimed, err := Acquire(ctx, path, 100*time.Millisecond, 2)
	require.NoError(t, err)
	require.NoError(t, reclaimed.Close())
}

func TestRuntimeSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	path, err := RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, "/run/user/1000/povox.sock", path)

	t.Setenv("XDG_RUNTIME_DIR", "")
	_, err = RuntimeSocketPath()
	require.Error(t, err)
}
