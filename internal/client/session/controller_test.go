package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestController(f *fakeAuthServer, tokens Tokens) (*Controller, *MemoryTokenStore, *atomic.Int32) {
	store := NewMemoryTokenStore()
	_ = store.Save(tokens)

	var cleared atomic.Int32
	c := NewController(f.srv.URL, store, f.tr)
	c.OnSessionCleared = func() { cleared.Add(1) }
	return c, store, &cleared
}

func (c *Controller) queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func get(t *testing.T, c *Controller, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := c.RoundTrip(req)
	if resp != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return resp, err
}

func TestController_ConcurrentUnauthorized_SingleRefresh(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	f.gate = make(chan struct{})
	c, store, cleared := newTestController(f, Tokens{AccessToken: "A1", RefreshToken: "R1"})

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := get(t, c, f.srv.URL+"/protected")
			errs[i] = err
			if resp != nil {
				codes[i] = resp.StatusCode
			}
		}(i)
	}

	// one leader inside the refresh call, everybody else queued behind it
	require.Eventually(t, func() bool {
		return f.refreshCalls.Load() == 1 && c.queued() == n-1
	}, 5*time.Second, 5*time.Millisecond)
	close(f.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, codes[i])
	}
	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.EqualValues(t, 2*n, f.protectedCalls.Load(), "each request is sent once and replayed once")
	assert.EqualValues(t, 0, cleared.Load())
	assert.Equal(t, 0, c.queued())

	got, _ := store.Load()
	assert.Equal(t, Tokens{AccessToken: "A2", RefreshToken: "R1"}, got)
}

func TestController_RefreshFails_RejectsQueueAndClears(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	f.gate = make(chan struct{})
	f.refreshStatus = http.StatusUnauthorized
	c, store, cleared := newTestController(f, Tokens{AccessToken: "A1", RefreshToken: "R1"})

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = get(t, c, f.srv.URL+"/protected")
		}(i)
	}

	require.Eventually(t, func() bool {
		return f.refreshCalls.Load() == 1 && c.queued() == n-1
	}, 5*time.Second, 5*time.Millisecond)
	close(f.gate)
	wg.Wait()

	for _, err := range errs {
		var re *RefreshError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusUnauthorized, re.Status)
		assert.True(t, HasCode(err, "refresh_token_invalid"))
	}
	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.EqualValues(t, n, f.protectedCalls.Load(), "nothing is replayed after a failed refresh")
	assert.EqualValues(t, 1, cleared.Load())

	got, _ := store.Load()
	assert.True(t, got.Empty())
}

func TestController_RetriesAtMostOnce(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	f.validAccess = "never"
	c, _, cleared := newTestController(f, Tokens{AccessToken: "A1", RefreshToken: "R1"})

	resp, err := get(t, c, f.srv.URL+"/protected")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "second failure is surfaced")
	assert.EqualValues(t, 2, f.protectedCalls.Load())
	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.EqualValues(t, 0, cleared.Load())
}

func TestController_NoRefreshToken_ClearsAndReturnsOriginal401(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	c, store, cleared := newTestController(f, Tokens{AccessToken: "A1"})

	resp, err := get(t, c, f.srv.URL+"/protected")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 0, f.refreshCalls.Load())
	assert.EqualValues(t, 1, cleared.Load())

	got, _ := store.Load()
	assert.True(t, got.Empty())
}

func TestController_WithoutRefresh_PassesThrough401(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	c, store, _ := newTestController(f, Tokens{AccessToken: "A1", RefreshToken: "R1"})

	req, err := http.NewRequestWithContext(WithoutRefresh(context.Background()), http.MethodGet, f.srv.URL+"/protected", nil)
	require.NoError(t, err)
	resp, err := c.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 0, f.refreshCalls.Load())
	got, _ := store.Load()
	assert.Equal(t, "A1", got.AccessToken)
}

func TestController_ReplaysRequestBody(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	c, _, _ := newTestController(f, Tokens{AccessToken: "A1", RefreshToken: "R1"})

	// a body without GetBody has to be buffered for the replay
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/protected", io.NopCloser(strings.NewReader(`{"n":1}`)))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := c.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"n":1}`, `{"n":1}`}, f.bodies)
}

func TestController_StaleToken_ReplaysWithoutRefresh(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	c, store, _ := newTestController(f, Tokens{AccessToken: "A1", RefreshToken: "R1"})

	// another request renews the session while this one is on the wire
	f.onProtected = func(auth string) {
		if auth == "Bearer A1" {
			_ = store.Save(Tokens{AccessToken: "A2", RefreshToken: "R1"})
		}
	}

	resp, err := get(t, c, f.srv.URL+"/protected")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, f.refreshCalls.Load())
	assert.EqualValues(t, 2, f.protectedCalls.Load())
}

func TestController_WaiterContextCanceled(t *testing.T) {
	verifyNoLeaks(t)

	f := newFakeAuthServer(t)
	f.gate = make(chan struct{})
	c, _, _ := newTestController(f, Tokens{AccessToken: "A1", RefreshToken: "R1"})

	leaderDone := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		leaderDone <- err
	}()
	require.Eventually(t, func() bool { return f.refreshCalls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := c.Refresh(ctx)
		waiterDone <- err
	}()
	require.Eventually(t, func() bool { return c.queued() == 1 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	assert.True(t, errors.Is(<-waiterDone, context.Canceled))

	// the leader still completes and the abandoned slot does not block it
	close(f.gate)
	require.NoError(t, <-leaderDone)
}

// verifyNoLeaks runs after the fake server cleanup because t.Cleanup is LIFO.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })
}
