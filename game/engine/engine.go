package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotConserved is returned when the table does not hold exactly the 52 unique cards
var ErrNotConserved = errors.New("card conservation violated")

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *State
	SetState(state *State) error
	GetRules() *Rules
	Status() GameState
	IsWon() bool
	DeckEmpty() bool
	Snapshot() Snapshot
	Conserved() error

	// Dealing
	NewDeal(mode DrawMode) *State
	NewSeededDeal(mode DrawMode, seed uint64) *State

	// Player requests
	ValidateMove(card Card, from, to PileID) bool
	RequestMove(card Card, from, to PileID) MoveResult
	AutoMoveToFoundation(card Card, from PileID) MoveResult
	RequestDraw() bool
	RequestResetDeck() bool
	Undo() (Action, bool)
	SetDragging(dragging bool)
	Hints() []Hint

	// Auto-solve cadence
	Tick(elapsed time.Duration) (SolverMove, bool)

	// History
	GetActionLog() ActionLog
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithLogger attaches a logger; engines log nothing without one
func WithLogger(logger *zap.Logger) Option {
	return func(e *GameEngine) {
		e.logger = logger
	}
}

// GameEngine owns one game: the piles, the action log and the draw mode.
// It is not safe for concurrent use.
type GameEngine struct {
	state  *State
	rules  *Rules
	logger *zap.Logger
}

// NewEngine creates an engine for the given rules. The game starts in Menu until the first deal.
func NewEngine(rules *Rules, opts ...Option) (*GameEngine, error) {
	if rules == nil {
		rules = DefaultRules()
	} else {
		rules = rules.Clone()
		rules.ApplyDefaults()
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	e := &GameEngine{
		rules:  rules,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	e.state = &State{
		Status:     Menu,
		DrawMode:   rules.DrawMode,
		Actions:    ActionLog{},
		ConfigName: rules.Name,
	}
	return e, nil
}

// NewEngineWithDefaults creates an engine with the classic rules and deals immediately
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultRules())
	if err != nil {
		panic(err)
	}
	e.NewDeal(e.rules.DrawMode)
	return e
}

// GetState returns the current game state
func (e *GameEngine) GetState() *State {
	return e.state
}

// SetState replaces the game state (used when loading a persisted session).
// States that do not hold the full deck are rejected.
func (e *GameEngine) SetState(state *State) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := conserved(&state.Table, state.Status); err != nil {
		return err
	}
	if state.Actions == nil {
		state.Actions = ActionLog{}
	}
	if !state.DrawMode.Valid() {
		state.DrawMode = e.rules.DrawMode
	}
	e.state = state
	return nil
}

// GetRules returns the rules this engine plays by
func (e *GameEngine) GetRules() *Rules {
	return e.rules
}

// Status returns the current game phase
func (e *GameEngine) Status() GameState {
	return e.state.Status
}

// IsWon reports whether every foundation is complete
func (e *GameEngine) IsWon() bool {
	return IsWon(&e.state.Table)
}

// DeckEmpty reports whether the stock has no cards left
func (e *GameEngine) DeckEmpty() bool {
	return len(e.state.Table.Stock) == 0
}

// GetActionLog returns the undo log, oldest first
func (e *GameEngine) GetActionLog() ActionLog {
	return e.state.Actions
}

// NewDeal shuffles and deals a new game, using the rules seed when one is set
func (e *GameEngine) NewDeal(mode DrawMode) *State {
	seed := e.rules.Seed
	if seed == 0 {
		seed = RandomSeed()
	}
	return e.NewSeededDeal(mode, seed)
}

// NewSeededDeal deals the game identified by seed. The same seed and mode always
// produce the same layout.
func (e *GameEngine) NewSeededDeal(mode DrawMode, seed uint64) *State {
	if !mode.Valid() {
		mode = e.rules.DrawMode
	}

	e.logger.Debug("shuffling",
		zap.Stringer("from", e.state.Status),
		zap.Stringer("status", Shuffle),
		zap.Uint64("seed", seed),
		zap.Stringer("draw_mode", mode))

	e.state = &State{
		Table:      Deal(NewRand(seed)),
		Status:     Playing,
		DrawMode:   mode,
		Actions:    ActionLog{},
		DealID:     uuid.NewString(),
		Seed:       seed,
		DealtAt:    time.Now(),
		Message:    e.rules.Messages.Welcome,
		ConfigName: e.rules.Name,
	}

	e.logger.Debug("dealt", zap.String("deal_id", e.state.DealID), zap.Int("stock", len(e.state.Table.Stock)))
	return e.state
}

// SetDragging records whether the input layer is mid-drag. Undo is suppressed while true.
func (e *GameEngine) SetDragging(dragging bool) {
	e.state.Dragging = dragging
}

// Conserved checks that the table holds each of the 52 cards exactly once
func (e *GameEngine) Conserved() error {
	return conserved(&e.state.Table, e.state.Status)
}

func conserved(t *Table, status GameState) error {
	seen := make(map[Card]PileID, DeckSize)
	total := 0
	for id := PileID(0); id < pileCount; id++ {
		for _, pc := range *t.Pile(id) {
			if !pc.Card.Rank.Valid() || pc.Card.Suit > Diamonds {
				return fmt.Errorf("%w: invalid card %v in %s", ErrNotConserved, pc.Card, id)
			}
			if prev, dup := seen[pc.Card]; dup {
				return fmt.Errorf("%w: %s in both %s and %s", ErrNotConserved, pc.Card, prev, id)
			}
			seen[pc.Card] = id
			total++
		}
	}
	if total == 0 && status == Menu {
		return nil
	}
	if total != DeckSize {
		return fmt.Errorf("%w: %d cards on the table", ErrNotConserved, total)
	}
	return nil
}

// Snapshot summarises the table for rendering
func (e *GameEngine) Snapshot() Snapshot {
	t := &e.state.Table
	snap := Snapshot{
		Status:    e.state.Status,
		Piles:     make([]PileSnapshot, 0, pileCount),
		DeckEmpty: e.DeckEmpty(),
		Won:       e.IsWon(),
		CanUndo:   e.canUndo(),
		LogLength: e.state.Actions.Len(),
	}
	for id := PileID(0); id < pileCount; id++ {
		p := *t.Pile(id)
		ps := PileSnapshot{
			ID:            id,
			Count:         len(p),
			FaceDownCount: p.FaceDownCount(),
		}
		if top, ok := p.Top(); ok && top.FaceUp {
			c := top.Card
			ps.Top = &c
		}
		for _, pc := range p {
			if pc.FaceUp {
				ps.Visible = append(ps.Visible, pc.Card)
			}
		}
		snap.Piles = append(snap.Piles, ps)
	}
	return snap
}

// evaluate runs the win check after every state change and arms the auto-solver
// once nothing is left hidden.
func (e *GameEngine) evaluate() {
	t := &e.state.Table
	if IsWon(t) {
		if e.state.Status != Won {
			e.state.Status = Won
			e.state.Message = e.rules.Messages.Won
			e.logger.Info("game won",
				zap.String("deal_id", e.state.DealID),
				zap.Int("actions", e.state.Actions.Len()),
				zap.Int("solver_moves", e.state.SolverMoves))
		}
		return
	}

	if e.state.Status != Playing || !e.rules.AutoSolve || e.state.SolveStalled {
		return
	}
	if ShouldAttemptAutoSolve(len(t.Stock) == 0, allFaceUp(t), len(t.Waste) <= 1) {
		e.state.Status = AutoSolving
		e.state.SolveCountdown = e.rules.AutoSolveInterval
		e.state.Message = e.rules.Messages.AutoSolving
		e.logger.Debug("auto-solve armed", zap.String("deal_id", e.state.DealID))
	}
}
