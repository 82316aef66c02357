package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"voxelhunt/internal/domain"
	"voxelhunt/internal/match"
	"voxelhunt/internal/protocol"
	"voxelhunt/internal/service"
	"voxelhunt/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serviceTransport runs actions in-process with a JSON round trip, so the
// coordinator sees exactly what an HTTP client would decode.
type serviceTransport struct {
	svc *service.MatchService

	mu    sync.Mutex
	calls []string
}

func (t *serviceTransport) Do(ctx context.Context, req protocol.Request, out any) error {
	t.mu.Lock()
	t.calls = append(t.calls, req.Action)
	t.mu.Unlock()

	resp, err := t.svc.Handle(ctx, req)
	if err != nil {
		if errors.Is(err, store.ErrGameNotFound) {
			return &protocol.APIError{Status: http.StatusNotFound, Message: protocol.MsgGameNotFound}
		}
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (t *serviceTransport) count(action string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, a := range t.calls {
		if a == action {
			n++
		}
	}
	return n
}

func newPair(t *testing.T) (*Coordinator, *Coordinator, *serviceTransport) {
	t.Helper()
	tr := &serviceTransport{svc: service.NewMatchService(store.NewMemoryStore(match.Options{}, 0), nil)}
	fast := Options{PushInterval: 10 * time.Millisecond, PullInterval: 5 * time.Millisecond}
	return New(tr, "0xaaa", fast), New(tr, "0xbbb", fast), tr
}

func TestLocalEditsNeedBuilding(t *testing.T) {
	c := New(&serviceTransport{}, "0xaaa", Options{})
	assert.ErrorIs(t, c.PlaceBlock("0,0,0", "stone"), ErrWrongPhase)
	assert.ErrorIs(t, c.Run(context.Background()), ErrNoGame)
}

func TestEditsAndTreasureRules(t *testing.T) {
	p1, _, _ := newPair(t)
	ctx := context.Background()
	_, err := p1.Create(ctx, "edit-game")
	require.NoError(t, err)

	require.NoError(t, p1.PlaceBlock(" 1, 0 ,2", "stone"))
	require.NoError(t, p1.PlaceBlock("1,0,2", "gold"))
	assert.ErrorIs(t, p1.PlaceBlock("1,0", "stone"), domain.ErrInvalidKey)

	assert.ErrorIs(t, p1.HideTreasure("5,5,5"), ErrNotOnGrid)
	require.NoError(t, p1.HideTreasure("1,0,2"))

	v := p1.View()
	assert.Equal(t, []domain.Block{{Key: "1,0,2", Type: "gold"}}, v.Grid)
	assert.Equal(t, []string{"1,0,2"}, v.Treasures)

	require.NoError(t, p1.ClearTreasure("1,0,2"))
	require.NoError(t, p1.HideTreasure("1,0,2"))
	require.NoError(t, p1.RemoveBlock("1,0,2"))
	v = p1.View()
	assert.Empty(t, v.Grid)
	assert.Empty(t, v.Treasures, "removing a block drops its treasure")

	_, err = p1.Create(ctx, "again")
	assert.ErrorIs(t, err, ErrAlreadyInGame)
}

func TestJoinUnknownGame(t *testing.T) {
	_, p2, _ := newPair(t)
	err := p2.Join(context.Background(), "nowhere")
	var apiErr *protocol.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, PhaseLobby, p2.Phase())
}

func TestFullMatch(t *testing.T) {
	p1, p2, tr := newPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := p1.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, p2.Join(ctx, id))
	assert.Equal(t, id, p2.GameID())

	require.NoError(t, p1.PlaceBlock("0,0,0", "stone"))
	require.NoError(t, p1.PlaceBlock("1,0,0", "wood"))
	require.NoError(t, p1.HideTreasure("1,0,0"))
	require.NoError(t, p2.PlaceBlock("3,0,3", "dirt"))
	require.NoError(t, p2.HideTreasure("3,0,3"))

	var wg sync.WaitGroup
	runErr := make([]error, 2)
	for i, c := range []*Coordinator{p1, p2} {
		wg.Add(1)
		go func(i int, c *Coordinator) {
			defer wg.Done()
			runErr[i] = c.Run(ctx)
		}(i, c)
	}

	// p2 sees p1's blocks through the background push/pull
	require.Eventually(t, func() bool {
		v := p2.View()
		return v.OpponentConnected && len(v.OpponentGrid) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// p1 finishes; p2 must notice the remote phase and follow
	require.NoError(t, p1.FinishBuilding(ctx))
	require.Eventually(t, func() bool { return p2.Phase() == PhaseHunting }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, tr.count(protocol.ActionSetTreasures), 2)

	require.Eventually(t, func() bool {
		return len(p2.View().OpponentTreasures) == 1 && len(p1.View().OpponentTreasures) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1,0,0"}, p2.View().OpponentTreasures)
	assert.Equal(t, []string{"3,0,3"}, p1.View().OpponentTreasures)

	found, err := p2.FindTreasure(ctx, "0,0,0")
	require.NoError(t, err)
	assert.False(t, found)
	found, err = p2.FindTreasure(ctx, "1,0,0")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, p2.Score())
	assert.Equal(t, []string{"1,0,0"}, p2.View().Found)

	require.NoError(t, p2.EndHunt(ctx))
	assert.Equal(t, PhaseResults, p2.Phase())
	assert.Equal(t, 1, p2.Score())
	assert.Equal(t, 0, p2.OpponentScore())
	assert.Equal(t, domain.MatchResultWin, p2.Winner())

	// the server is already in results; p1's end-hunt reads the same scores
	require.NoError(t, p1.EndHunt(ctx))
	assert.Equal(t, 0, p1.Score())
	assert.Equal(t, 1, p1.OpponentScore())
	assert.Equal(t, domain.MatchResultLose, p1.Winner())

	wg.Wait()
	assert.NoError(t, runErr[0])
	assert.NoError(t, runErr[1])
}

func TestRunStopsOnCancel(t *testing.T) {
	p1, _, _ := newPair(t)
	_, err := p1.Create(context.Background(), "cancel-me")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p1.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPushSkipsEmptyGrid(t *testing.T) {
	p1, _, tr := newPair(t)
	ctx := context.Background()
	_, err := p1.Create(ctx, "empty")
	require.NoError(t, err)

	require.NoError(t, p1.pushGrid(ctx))
	assert.Zero(t, tr.count(protocol.ActionUpdateGrid))

	require.NoError(t, p1.PlaceBlock("0,0,0", "stone"))
	require.NoError(t, p1.pushGrid(ctx))
	assert.Equal(t, 1, tr.count(protocol.ActionUpdateGrid))
}

func TestHTTPTransport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewMatchService(store.NewMemoryStore(match.Options{}, 0), nil)
	r := gin.New()
	r.POST("/api/game", func(c *gin.Context) {
		var req protocol.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: protocol.MsgBadRequest})
			return
		}
		resp, err := svc.Handle(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusNotFound, protocol.ErrorResponse{Error: protocol.MsgJoinGameNotFound})
			return
		}
		c.JSON(http.StatusOK, resp)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL + "/")
	assert.Equal(t, srv.URL+"/api/game", tr.Endpoint)
	assert.Zero(t, tr.Client.Timeout, "calls are bounded by ctx only")

	c := New(tr, "0xaaa", Options{})
	id, err := c.Create(context.Background(), "Http-Game-01")
	require.NoError(t, err)
	assert.Equal(t, "http-game-01", id)

	err = New(tr, "0xbbb", Options{}).Join(context.Background(), "missing")
	var apiErr *protocol.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, protocol.MsgJoinGameNotFound, apiErr.Message)
}

func TestHTTPTransportLargeGrid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	blocks := make([]domain.Block, 0, 50*50*20)
	for x := 0; x < 50; x++ {
		for y := 0; y < 20; y++ {
			for z := 0; z < 50; z++ {
				blocks = append(blocks, domain.Block{Key: domain.Key{X: x, Y: y, Z: z}.String(), Type: "stone"})
			}
		}
	}
	r := gin.New()
	r.POST("/api/game", func(c *gin.Context) {
		c.JSON(http.StatusOK, protocol.UpdateGridResponse{Success: true, OpponentGrid: blocks})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	req, err := protocol.NewRequest(protocol.ActionUpdateGrid, "g", "0xaaa", nil)
	require.NoError(t, err)
	var resp protocol.UpdateGridResponse
	require.NoError(t, NewHTTPTransport(srv.URL).Do(context.Background(), req, &resp))
	assert.Len(t, resp.OpponentGrid, len(blocks))
	assert.Equal(t, "49,19,49", resp.OpponentGrid[len(blocks)-1].Key)
}
