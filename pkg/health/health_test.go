package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, fn http.HandlerFunc) (int, probeBody) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body probeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func runTimes(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing())
	h.AddLivenessCheck("memory", time.Second, passing())

	code, body := probe(t, h.LiveEndpoint)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))
	runTimes(h.checks[0], FailureThreshold)

	code, body := probe(t, h.LiveEndpoint)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"db": "connection refused"}, body.Checks)
}

func TestLiveEndpoint_FailureBelowThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, failing("temporary"))
	runTimes(h.checks[0], FailureThreshold-1)

	code, _ := probe(t, h.LiveEndpoint)

	assert.Equal(t, http.StatusOK, code)
}

func TestLiveEndpoint_IgnoresReadinessChecks(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, failing("down"))
	runTimes(h.checks[0], FailureThreshold)

	code, _ := probe(t, h.LiveEndpoint)

	assert.Equal(t, http.StatusOK, code)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing())

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	code, body = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)

	h.SetReady(false)
	code, _ = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadyEndpoint_OneOfManyFailing(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passing())
	h.AddReadinessCheck("catalog", time.Second, failing("no rows"))
	h.SetReady(true)
	runTimes(h.checks[1], FailureThreshold)

	code, body := probe(t, h.ReadyEndpoint)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"catalog": "no rows"}, body.Checks)
	assert.False(t, h.IsReady())
}

func TestCheckRecovery(t *testing.T) {
	failingNow := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(context.Context) error {
		if failingNow {
			return errors.New("down")
		}
		return nil
	})
	c := h.checks[0]

	runTimes(c, FailureThreshold)
	assert.False(t, c.healthy.Load())

	failingNow = false
	runTimes(c, SuccessThreshold)
	assert.True(t, c.healthy.Load())
	assert.NoError(t, c.err())
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddLivenessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	h.checks[0].run(context.Background())

	assert.ErrorIs(t, h.checks[0].err(), context.DeadlineExceeded)
}

func TestRegister(t *testing.T) {
	h := New()
	h.SetReady(true)
	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/livez", "/readyz"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing())
	h.AddReadinessCheck("postgres", time.Second, passing())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()

	h.Stop()
	h.Stop()
	assert.True(t, h.IsReady())
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(pingerFunc(func(context.Context) error { return nil }))(context.Background()))

	err := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100_000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
