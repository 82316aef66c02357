package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"voxelhunt/internal/domain"
	"voxelhunt/internal/logger"
	"voxelhunt/internal/protocol"
)

// Phase is the local view of the match, one step ahead of the server in Lobby.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseBuilding Phase = Phase(domain.PhaseBuilding)
	PhaseHunting  Phase = Phase(domain.PhaseHunting)
	PhaseResults  Phase = Phase(domain.PhaseResults)
)

const (
	DefaultPushInterval = 2 * time.Second
	DefaultPullInterval = time.Second
)

var (
	ErrNoGame        = errors.New("no game joined")
	ErrWrongPhase    = errors.New("not allowed in the current phase")
	ErrNotOnGrid     = errors.New("treasure must be hidden in one of your blocks")
	ErrAlreadyInGame = errors.New("already in a game")
)

type Options struct {
	PushInterval time.Duration
	PullInterval time.Duration
}

// Coordinator drives one player's side of a match against the game API.
type Coordinator struct {
	transport Transport
	address   string
	opts      Options

	mu                sync.Mutex
	gameID            string
	role              domain.Role
	phase             Phase
	grid              map[string]string
	treasures         map[string]struct{}
	opponentGrid      []domain.Block
	opponentTreasures []string
	found             map[string]struct{}
	score             int
	opponentScore     int
	opponentConnected bool
	timeRemaining     time.Duration

	// phaseChanged wakes Run so it can restart its tickers.
	phaseChanged chan struct{}
}

func New(t Transport, address string, opts Options) *Coordinator {
	if opts.PushInterval <= 0 {
		opts.PushInterval = DefaultPushInterval
	}
	if opts.PullInterval <= 0 {
		opts.PullInterval = DefaultPullInterval
	}
	return &Coordinator{
		transport:    t,
		address:      address,
		opts:         opts,
		phase:        PhaseLobby,
		grid:         make(map[string]string),
		treasures:    make(map[string]struct{}),
		found:        make(map[string]struct{}),
		phaseChanged: make(chan struct{}, 1),
	}
}

func (c *Coordinator) log() *slog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return logger.ForGame(c.gameID, c.address)
}

func (c *Coordinator) call(ctx context.Context, action string, data, out any) error {
	c.mu.Lock()
	gameID := c.gameID
	c.mu.Unlock()

	req, err := protocol.NewRequest(action, gameID, c.address, data)
	if err != nil {
		return err
	}
	return c.transport.Do(ctx, req, out)
}

// setPhase must be called with mu held.
func (c *Coordinator) setPhase(p Phase) {
	if c.phase == p {
		return
	}
	c.phase = p
	select {
	case c.phaseChanged <- struct{}{}:
	default:
	}
}

func (c *Coordinator) enter(gameID string, role domain.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = gameID
	c.role = role
	c.grid = make(map[string]string)
	c.treasures = make(map[string]struct{})
	c.found = make(map[string]struct{})
	c.opponentGrid = nil
	c.opponentTreasures = nil
	c.score, c.opponentScore = 0, 0
	c.opponentConnected = false
	c.setPhase(PhaseBuilding)
}

func (c *Coordinator) inLobby() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseLobby && c.phase != PhaseResults {
		return ErrAlreadyInGame
	}
	return nil
}

// Create opens a match as player 1. An empty gameID lets the server pick one.
func (c *Coordinator) Create(ctx context.Context, gameID string) (string, error) {
	if err := c.inLobby(); err != nil {
		return "", err
	}
	req, err := protocol.NewRequest(protocol.ActionCreateGame, gameID, c.address, nil)
	if err != nil {
		return "", err
	}
	var resp protocol.CreateGameResponse
	if err := c.transport.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	c.enter(resp.GameID, domain.RolePlayer1)
	c.log().Info("created game")
	return resp.GameID, nil
}

// Join enters an existing match as player 2.
func (c *Coordinator) Join(ctx context.Context, gameID string) error {
	if err := c.inLobby(); err != nil {
		return err
	}
	req, err := protocol.NewRequest(protocol.ActionJoinGame, gameID, c.address, nil)
	if err != nil {
		return err
	}
	var resp protocol.JoinGameResponse
	if err := c.transport.Do(ctx, req, &resp); err != nil {
		return err
	}
	c.enter(resp.GameID, domain.RolePlayer2)
	c.log().Info("joined game")
	return nil
}

// PlaceBlock sets or replaces a block in the local grid.
func (c *Coordinator) PlaceBlock(key, blockType string) error {
	k, err := domain.ParseKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseBuilding {
		return ErrWrongPhase
	}
	c.grid[k.String()] = blockType
	return nil
}

// RemoveBlock only changes the local grid: the server merge never deletes,
// so the opponent keeps seeing a block once it has been pushed.
func (c *Coordinator) RemoveBlock(key string) error {
	k, err := domain.ParseKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseBuilding {
		return ErrWrongPhase
	}
	delete(c.grid, k.String())
	delete(c.treasures, k.String())
	return nil
}

// HideTreasure marks one of the player's own blocks as a treasure.
func (c *Coordinator) HideTreasure(key string) error {
	k, err := domain.ParseKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseBuilding {
		return ErrWrongPhase
	}
	if _, ok := c.grid[k.String()]; !ok {
		return ErrNotOnGrid
	}
	c.treasures[k.String()] = struct{}{}
	return nil
}

func (c *Coordinator) ClearTreasure(key string) error {
	k, err := domain.ParseKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseBuilding {
		return ErrWrongPhase
	}
	delete(c.treasures, k.String())
	return nil
}

// Run polls the server until ctx is cancelled or the match reaches Results.
// The grid is pushed every PushInterval while building; state is pulled
// every PullInterval while building or hunting. Both tickers restart on
// every phase change.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		phase := c.Phase()
		switch phase {
		case PhaseLobby:
			return ErrNoGame
		case PhaseResults:
			return nil
		}

		if err := c.runPhase(ctx, phase); err != nil {
			return err
		}
	}
}

func (c *Coordinator) runPhase(ctx context.Context, phase Phase) error {
	push := time.NewTicker(c.opts.PushInterval)
	pull := time.NewTicker(c.opts.PullInterval)
	defer push.Stop()
	defer pull.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.phaseChanged:
			return nil

		case <-push.C:
			if phase != PhaseBuilding {
				continue
			}
			if err := c.pushGrid(ctx); err != nil {
				c.log().Warn("grid push failed", "error", err)
			}

		case <-pull.C:
			if err := c.pull(ctx); err != nil {
				c.log().Warn("state pull failed", "error", err)
			}
		}
	}
}

func (c *Coordinator) pushGrid(ctx context.Context) error {
	c.mu.Lock()
	blocks := domain.BlocksFromGrid(c.grid)
	c.mu.Unlock()
	if len(blocks) == 0 {
		return nil
	}

	var resp protocol.UpdateGridResponse
	if err := c.call(ctx, protocol.ActionUpdateGrid, protocol.UpdateGridData{Blocks: blocks}, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.opponentGrid = resp.OpponentGrid
	c.mu.Unlock()
	c.log().Debug("grid synced", "blocks", len(blocks))
	return nil
}

// pull applies the server state and starts the hunt locally when the
// opponent has already moved the match on.
func (c *Coordinator) pull(ctx context.Context) error {
	var st protocol.StateResponse
	if err := c.call(ctx, protocol.ActionGetGameState, nil, &st); err != nil {
		return err
	}

	c.mu.Lock()
	c.opponentConnected = st.OpponentConnected
	if st.OpponentGrid != nil {
		c.opponentGrid = st.OpponentGrid
	}
	c.timeRemaining = time.Duration(st.TimeRemaining) * time.Millisecond
	if c.phase == PhaseHunting && st.Phase == domain.PhaseHunting {
		c.opponentTreasures = st.OpponentTreasures
	}
	catchUp := st.Phase == domain.PhaseHunting && c.phase == PhaseBuilding
	c.mu.Unlock()

	if catchUp {
		return c.startHunting(ctx)
	}
	return nil
}

// FinishBuilding pushes the final grid and starts the hunt.
func (c *Coordinator) FinishBuilding(ctx context.Context) error {
	if c.Phase() != PhaseBuilding {
		return ErrWrongPhase
	}
	if err := c.pushGrid(ctx); err != nil {
		return err
	}
	return c.startHunting(ctx)
}

func (c *Coordinator) startHunting(ctx context.Context) error {
	c.mu.Lock()
	treasures := domain.SortedKeys(c.treasures)
	c.mu.Unlock()

	if err := c.call(ctx, protocol.ActionSetTreasures, protocol.SetTreasuresData{Treasures: treasures}, nil); err != nil {
		return err
	}
	var res protocol.EndPhaseResponse
	end := protocol.EndPhaseData{Phase: domain.PhaseBuilding}
	if err := c.call(ctx, protocol.ActionEndPhase, end, &res); err != nil {
		return err
	}

	c.mu.Lock()
	c.found = make(map[string]struct{})
	c.setPhase(PhaseHunting)
	c.mu.Unlock()
	c.log().Info("hunt started", "treasures", len(treasures))
	return nil
}

// FindTreasure guesses one location on the opponent's grid.
func (c *Coordinator) FindTreasure(ctx context.Context, location string) (bool, error) {
	if c.Phase() != PhaseHunting {
		return false, ErrWrongPhase
	}
	var res protocol.FindTreasureResponse
	if err := c.call(ctx, protocol.ActionFindTreasure, protocol.FindTreasureData{Location: location}, &res); err != nil {
		return false, err
	}
	if res.Found {
		c.mu.Lock()
		c.found[location] = struct{}{}
		c.score = res.Score
		c.mu.Unlock()
	}
	return res.Found, nil
}

// EndHunt closes the match and records both scores from the server.
func (c *Coordinator) EndHunt(ctx context.Context) error {
	if c.Phase() != PhaseHunting {
		return ErrWrongPhase
	}
	var res protocol.EndPhaseResponse
	end := protocol.EndPhaseData{Phase: domain.PhaseHunting}
	if err := c.call(ctx, protocol.ActionEndPhase, end, &res); err != nil {
		return err
	}

	c.mu.Lock()
	if c.role == domain.RolePlayer1 {
		c.score, c.opponentScore = res.Player1Score, res.Player2Score
	} else {
		c.score, c.opponentScore = res.Player2Score, res.Player1Score
	}
	c.setPhase(PhaseResults)
	c.mu.Unlock()

	c.log().Info("hunt ended", "score", c.Score(), "opponent_score", c.OpponentScore())
	return nil
}

// Winner is only meaningful in Results.
func (c *Coordinator) Winner() domain.MatchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Outcome(c.score, c.opponentScore)
}

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Coordinator) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID
}

func (c *Coordinator) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

func (c *Coordinator) OpponentScore() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opponentScore
}

// View is a copy of everything a renderer needs.
type View struct {
	GameID            string
	Phase             Phase
	Grid              []domain.Block
	Treasures         []string
	OpponentGrid      []domain.Block
	OpponentTreasures []string
	Found             []string
	Score             int
	OpponentScore     int
	OpponentConnected bool
	TimeRemaining     time.Duration
}

func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		GameID:            c.gameID,
		Phase:             c.phase,
		Grid:              domain.BlocksFromGrid(c.grid),
		Treasures:         domain.SortedKeys(c.treasures),
		OpponentGrid:      append([]domain.Block(nil), c.opponentGrid...),
		OpponentTreasures: append([]string(nil), c.opponentTreasures...),
		Found:             domain.SortedKeys(c.found),
		Score:             c.score,
		OpponentScore:     c.opponentScore,
		OpponentConnected: c.opponentConnected,
		TimeRemaining:     c.timeRemaining,
	}
}
