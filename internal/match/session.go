package match

import (
	"errors"
	"sync"
	"time"

	"voxelhunt/internal/domain"
)

const DefaultPhaseDuration = 5 * time.Minute

var (
	ErrNotAPlayer = errors.New("address is not a player in this game")
)

// Options tune session behavior. The zero value keeps the permissive
// rules: unknown callers act as player2, duplicate finds count again.
type Options struct {
	PhaseDuration time.Duration
	// StrictRoles rejects callers that match neither slot instead of
	// treating them as player2.
	StrictRoles bool
	// DedupeFinds stops a player scoring the same location twice.
	DedupeFinds bool
	Now         func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) phaseDuration() time.Duration {
	if o.PhaseDuration > 0 {
		return o.PhaseDuration
	}
	return DefaultPhaseDuration
}

// Player is one slot of a match.
type Player struct {
	Address   string
	Grid      map[string]string
	Treasures map[string]struct{}
	Score     int

	found map[string]struct{}
}

func newPlayer(address string) *Player {
	return &Player{
		Address:   address,
		Grid:      make(map[string]string),
		Treasures: make(map[string]struct{}),
		found:     make(map[string]struct{}),
	}
}

// Session is the server-side record of one match. All methods are safe for
// concurrent use; each call is atomic on its own.
type Session struct {
	ID string

	mu           sync.Mutex
	phase        domain.Phase
	deadline     time.Time
	players      [2]*Player
	createdAt    time.Time
	lastActivity time.Time
	recorded     bool
	opts         Options
}

// New creates a session in Building with the creator in slot 0.
func New(id, creator string, opts Options) *Session {
	now := opts.now()
	return &Session{
		ID:           id,
		phase:        domain.PhaseBuilding,
		deadline:     now.Add(opts.phaseDuration()),
		players:      [2]*Player{newPlayer(creator), newPlayer("")},
		createdAt:    now,
		lastActivity: now,
		opts:         opts,
	}
}

// State is the get-game-state view for one caller.
type State struct {
	Phase             domain.Phase   `json:"phase"`
	TimeRemaining     int64          `json:"timeRemaining"`
	OpponentConnected bool           `json:"opponentConnected"`
	OpponentGrid      []domain.Block `json:"opponentGrid"`
	OpponentTreasures []string       `json:"opponentTreasures"`
}

// FindResult is the outcome of a treasure guess.
type FindResult struct {
	Found bool `json:"found"`
	Score int  `json:"score"`
}

// PhaseResult is returned by EndPhase.
type PhaseResult struct {
	Phase        domain.Phase `json:"phase"`
	Player1Score int          `json:"player1Score"`
	Player2Score int          `json:"player2Score"`
}

// Resolve maps an address to a slot by exact string match.
func (s *Session) Resolve(address string) domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveUnlocked(address)
}

func (s *Session) resolveUnlocked(address string) domain.Role {
	if address == s.players[0].Address {
		return domain.RolePlayer1
	}
	if s.players[1].Address != "" && address == s.players[1].Address {
		return domain.RolePlayer2
	}
	return domain.RoleUnrecognized
}

// actor returns the caller's slot and the opponent's slot (caller must hold lock).
func (s *Session) actor(address string) (me, opp *Player, err error) {
	role := s.resolveUnlocked(address)
	if role == domain.RoleUnrecognized && s.opts.StrictRoles {
		return nil, nil, ErrNotAPlayer
	}
	if role == domain.RolePlayer1 {
		return s.players[0], s.players[1], nil
	}
	return s.players[1], s.players[0], nil
}

func (s *Session) touch() {
	s.lastActivity = s.opts.now()
}

// Join fills slot 1. A second join overwrites the first joiner.
func (s *Session) Join(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[1].Address = address
	s.touch()
}

// UpdateGrid merges blocks into the caller's grid (last write per key wins)
// and returns the opponent's full grid.
func (s *Session) UpdateGrid(address string, blocks []domain.Block) ([]domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, opp, err := s.actor(address)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		me.Grid[b.Key] = b.Type
	}
	s.touch()
	return domain.BlocksFromGrid(opp.Grid), nil
}

// SetTreasures replaces the caller's treasure set wholesale. Keys are not
// checked against the caller's grid.
func (s *Session) SetTreasures(address string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, _, err := s.actor(address)
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	me.Treasures = set
	s.touch()
	return nil
}

// State builds the caller's view. Opponent treasures stay hidden until the
// hunt starts.
func (s *Session) State(address string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, opp, err := s.actor(address)
	if err != nil {
		return State{}, err
	}

	remaining := s.deadline.Sub(s.opts.now()).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}

	treasures := []string{}
	if s.phase == domain.PhaseHunting {
		treasures = domain.SortedKeys(opp.Treasures)
	}

	s.touch()
	return State{
		Phase:             s.phase,
		TimeRemaining:     remaining,
		OpponentConnected: opp.Address != "",
		OpponentGrid:      domain.BlocksFromGrid(opp.Grid),
		OpponentTreasures: treasures,
	}, nil
}

// FindTreasure scores one point when location is in the opponent's
// treasure set. Without DedupeFinds a repeated guess scores again.
func (s *Session) FindTreasure(address, location string) (FindResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, opp, err := s.actor(address)
	if err != nil {
		return FindResult{}, err
	}
	s.touch()

	if _, ok := opp.Treasures[location]; !ok {
		return FindResult{Found: false, Score: me.Score}, nil
	}
	if s.opts.DedupeFinds {
		if _, seen := me.found[location]; seen {
			return FindResult{Found: true, Score: me.Score}, nil
		}
		me.found[location] = struct{}{}
	}
	me.Score++
	return FindResult{Found: true, Score: me.Score}, nil
}

// EndPhase advances Building -> Hunting -> Results. Results is terminal and
// further calls just report the scores. changed is true when a transition
// happened.
func (s *Session) EndPhase() (res PhaseResult, changed bool) {
	return s.EndPhaseFrom("")
}

// EndPhaseFrom advances only while the session is still in from; an empty
// from behaves like EndPhase. Two players ending the same phase then move the
// match on once.
func (s *Session) EndPhaseFrom(from domain.Phase) (res PhaseResult, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next := s.phase.Next(); next != s.phase && (from == "" || from == s.phase) {
		s.phase = next
		changed = true
		if next == domain.PhaseHunting {
			s.deadline = s.opts.now().Add(s.opts.phaseDuration())
		}
	}
	s.touch()

	return PhaseResult{
		Phase:        s.phase,
		Player1Score: s.players[0].Score,
		Player2Score: s.players[1].Score,
	}, changed
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LastActivity is the time of the most recent operation.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// MarkRecorded returns true exactly once, for the caller that should
// persist the finished match.
func (s *Session) MarkRecorded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorded || s.phase != domain.PhaseResults {
		return false
	}
	s.recorded = true
	return true
}

// Snapshot is a read-only summary of the session.
type Snapshot struct {
	ID              string
	Phase           domain.Phase
	Deadline        time.Time
	Player1         string
	Player2         string
	Player1Score    int
	Player2Score    int
	Player1Blocks   int
	Player2Blocks   int
	Player1Treasure int
	Player2Treasure int
	CreatedAt       time.Time
	LastActivity    time.Time
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	p1, p2 := s.players[0], s.players[1]
	return Snapshot{
		ID:              s.ID,
		Phase:           s.phase,
		Deadline:        s.deadline,
		Player1:         p1.Address,
		Player2:         p2.Address,
		Player1Score:    p1.Score,
		Player2Score:    p2.Score,
		Player1Blocks:   len(p1.Grid),
		Player2Blocks:   len(p2.Grid),
		Player1Treasure: len(p1.Treasures),
		Player2Treasure: len(p2.Treasures),
		CreatedAt:       s.createdAt,
		LastActivity:    s.lastActivity,
	}
}

// Record converts a finished session into a history row.
func (sn Snapshot) Record() *domain.MatchRecord {
	return &domain.MatchRecord{
		GameID:          sn.ID,
		Player1:         sn.Player1,
		Player2:         sn.Player2,
		Player1Score:    sn.Player1Score,
		Player2Score:    sn.Player2Score,
		Winner:          domain.WinnerAddress(sn.Player1, sn.Player2, sn.Player1Score, sn.Player2Score),
		Player1Blocks:   sn.Player1Blocks,
		Player2Blocks:   sn.Player2Blocks,
		Player1Treasure: sn.Player1Treasure,
		Player2Treasure: sn.Player2Treasure,
		StartedAt:       sn.CreatedAt,
	}
}
