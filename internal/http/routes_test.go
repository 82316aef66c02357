package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"voxelhunt/internal/config"
	"voxelhunt/internal/coordinator"
	"voxelhunt/internal/http/handlers"
	"voxelhunt/internal/match"
	"voxelhunt/internal/protocol"
	"voxelhunt/internal/service"
	"voxelhunt/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(origin string) *gin.Engine {
	return newLimitedEngine(origin, 1000, time.Minute)
}

func newLimitedEngine(origin string, limit int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore(match.Options{}, 0)
	svc := service.NewMatchService(st, nil)
	r := gin.New()
	RegisterRoutes(r, Deps{
		Handler:       handlers.NewHandler(svc, nil, nil),
		Health:        handlers.NewHealthHandler(st, "test", nil),
		AllowedOrigin: origin,
		RateLimit:     limit,
		RateWindow:    window,
	})
	return r
}

func TestGameEndpointOnBothPaths(t *testing.T) {
	r := newEngine("")
	for _, path := range []string{"/api/game", "/api/v1/game"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"action":"create-game","gameId":"Moss-Cave-01","playerAddress":"0xa"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"gameId":"moss-cave-01","success":true}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}
}

func TestMetricsAndHealthRoutes(t *testing.T) {
	r := newEngine("")
	for _, path := range []string{"/metrics", "/healthz", "/readyz", "/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestCORS(t *testing.T) {
	r := newEngine("https://hunt.example")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/game", nil)
	req.Header.Set("Origin", "https://hunt.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://hunt.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/api/game", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// countingTransport records how many calls the server turned away.
type countingTransport struct {
	next coordinator.Transport

	mu       sync.Mutex
	calls    int
	rejected int
}

func (t *countingTransport) Do(ctx context.Context, req protocol.Request, out any) error {
	err := t.next.Do(ctx, req, out)
	var apiErr *protocol.APIError
	t.mu.Lock()
	t.calls++
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
		t.rejected++
	}
	t.mu.Unlock()
	return err
}

// Two players polling from one IP stay inside the default limit. Time runs
// 100x faster than production: a 600ms window with 20ms pushes and 10ms pulls.
func TestDefaultRateLimitAllowsTwoPlayersOnOneIP(t *testing.T) {
	srv := httptest.NewServer(newLimitedEngine("", config.DefaultAPIRateLimit, 600*time.Millisecond))
	defer srv.Close()

	tr := &countingTransport{next: coordinator.NewHTTPTransport(srv.URL)}
	opts := coordinator.Options{PushInterval: 20 * time.Millisecond, PullInterval: 10 * time.Millisecond}
	alice := coordinator.New(tr, "0xaaa", opts)
	bob := coordinator.New(tr, "0xbbb", opts)

	ctx := context.Background()
	id, err := alice.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, bob.Join(ctx, id))
	require.NoError(t, alice.PlaceBlock("0,0,0", "stone"))
	require.NoError(t, bob.PlaceBlock("1,0,0", "wood"))

	runCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()
	var wg sync.WaitGroup
	for _, c := range []*coordinator.Coordinator{alice, bob} {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Run(runCtx)
		}()
	}
	wg.Wait()

	require.NoError(t, alice.FinishBuilding(ctx))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Greater(t, tr.calls, 100)
	assert.Zero(t, tr.rejected, "%d of %d calls rejected", tr.rejected, tr.calls)
}

func TestGameLimitIsPerPlayer(t *testing.T) {
	r := newLimitedEngine("", 2, time.Hour)
	send := func(address string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/game", strings.NewReader(`{"action":"create-game","playerAddress":"`+address+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.1.1.1:5000"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("0xa"))
	assert.Equal(t, http.StatusOK, send("0xa"))
	assert.Equal(t, http.StatusTooManyRequests, send("0xa"))
	assert.Equal(t, http.StatusOK, send("0xb"))
}
