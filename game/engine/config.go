package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRules wraps every rules validation failure
var ErrInvalidRules = errors.New("invalid rules")

const (
	DefaultAutoSolveInterval = 150 * time.Millisecond
	MaxAutoSolveInterval     = 10 * time.Second
)

// DrawMode is the number of cards turned from the stock per draw
type DrawMode uint8

const (
	DrawSingle DrawMode = 1
	DrawTriple DrawMode = 3
)

// Count returns how many cards one draw turns over
func (m DrawMode) Count() int {
	return int(m)
}

// Valid reports whether m is single or triple
func (m DrawMode) Valid() bool {
	return m == DrawSingle || m == DrawTriple
}

func (m DrawMode) String() string {
	switch m {
	case DrawSingle:
		return "single"
	case DrawTriple:
		return "triple"
	}
	return fmt.Sprintf("draw(%d)", uint8(m))
}

// ParseDrawMode accepts "single"/"triple" and "1"/"3"
func ParseDrawMode(s string) (DrawMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "one", "1":
		return DrawSingle, nil
	case "triple", "three", "3":
		return DrawTriple, nil
	}
	return 0, fmt.Errorf("%w: unknown draw mode %q", ErrInvalidRules, s)
}

func (m DrawMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: draw mode %d", ErrInvalidRules, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *DrawMode) UnmarshalText(b []byte) error {
	mode, err := ParseDrawMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Duration is a time.Duration that reads and writes as "150ms" in JSON and YAML
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	*d = Duration(parsed)
	return nil
}

// Messages are the player-facing strings placed in State.Message
type Messages struct {
	Welcome     string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Won         string `json:"won,omitempty" yaml:"won,omitempty"`
	AutoSolving string `json:"auto_solving,omitempty" yaml:"auto_solving,omitempty"`
	Stalled     string `json:"stalled,omitempty" yaml:"stalled,omitempty"`
}

// Rules is a named rule preset, loaded from YAML by the config manager
type Rules struct {
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description" yaml:"description"`
	DrawMode          DrawMode `json:"draw_mode" yaml:"draw_mode"`
	AutoSolve         bool     `json:"auto_solve" yaml:"auto_solve"`
	AutoSolveInterval Duration `json:"auto_solve_interval" yaml:"auto_solve_interval"`
	// LogAutoSolveMoves records solver moves in the action log so they can be undone.
	LogAutoSolveMoves bool     `json:"log_auto_solve_moves" yaml:"log_auto_solve_moves"`
	Seed              uint64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	Messages          Messages `json:"messages" yaml:"messages"`
}

// DefaultRules returns the classic single-draw preset
func DefaultRules() *Rules {
	r := &Rules{
		Name:        "Classic",
		Description: "Klondike, one card per draw, unlimited passes through the stock",
		DrawMode:    DrawSingle,
		AutoSolve:   true,
	}
	r.ApplyDefaults()
	return r
}

// ApplyDefaults fills zero values with the built-in defaults
func (r *Rules) ApplyDefaults() {
	if r.DrawMode == 0 {
		r.DrawMode = DrawSingle
	}
	if r.AutoSolveInterval == 0 {
		r.AutoSolveInterval = Duration(DefaultAutoSolveInterval)
	}
	if r.Messages.Welcome == "" {
		r.Messages.Welcome = "New deal. Good luck!"
	}
	if r.Messages.Won == "" {
		r.Messages.Won = "All four foundations complete. You won!"
	}
	if r.Messages.AutoSolving == "" {
		r.Messages.AutoSolving = "Everything is face up. Finishing the game..."
	}
	if r.Messages.Stalled == "" {
		r.Messages.Stalled = "Nothing more to finish automatically."
	}
}

// Clone returns a copy that can be mutated independently
func (r *Rules) Clone() *Rules {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// ValidateRules checks a preset for correctness
func ValidateRules(r *Rules) error {
	if r == nil {
		return fmt.Errorf("%w: rules are nil", ErrInvalidRules)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRules)
	}
	if !r.DrawMode.Valid() {
		return fmt.Errorf("%w: draw_mode must be single or triple, got %d", ErrInvalidRules, r.DrawMode)
	}
	if r.AutoSolveInterval < 0 || r.AutoSolveInterval.Std() > MaxAutoSolveInterval {
		return fmt.Errorf("%w: auto_solve_interval must be between 0 and %s, got %s",
			ErrInvalidRules, MaxAutoSolveInterval, r.AutoSolveInterval.Std())
	}
	return nil
}
