package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPile is returned when a pile name cannot be parsed
var ErrInvalidPile = errors.New("invalid pile")

// PileKind classifies a pile
type PileKind uint8

const (
	TableauPile PileKind = iota
	FoundationPile
	StockPile
	WastePile
)

// PileID addresses one of the thirteen piles on the table.
// Ids 0-6 are tableau columns, 7-10 foundations in Suits order, then stock and waste.
type PileID uint8

const (
	Tableau0 PileID = iota
	Tableau1
	Tableau2
	Tableau3
	Tableau4
	Tableau5
	Tableau6
	FoundationSpades
	FoundationClubs
	FoundationHearts
	FoundationDiamonds
	Stock
	Waste

	pileCount
)

const (
	TableauColumns = 7
	DeckSize       = 52
)

// TableauID returns the id of tableau column i
func TableauID(i int) PileID {
	return Tableau0 + PileID(i)
}

// FoundationID returns the foundation pile for a suit
func FoundationID(s Suit) PileID {
	return FoundationSpades + PileID(s)
}

// Kind returns the pile kind
func (p PileID) Kind() PileKind {
	switch {
	case p <= Tableau6:
		return TableauPile
	case p <= FoundationDiamonds:
		return FoundationPile
	case p == Stock:
		return StockPile
	default:
		return WastePile
	}
}

// Valid reports whether p names a real pile
func (p PileID) Valid() bool {
	return p < pileCount
}

// Column returns the tableau column index, or -1 for other piles
func (p PileID) Column() int {
	if p.Kind() != TableauPile {
		return -1
	}
	return int(p)
}

// Suit returns the suit of a foundation pile
func (p PileID) Suit() (Suit, bool) {
	if p.Kind() != FoundationPile {
		return 0, false
	}
	return Suit(p - FoundationSpades), true
}

func (p PileID) String() string {
	switch p.Kind() {
	case TableauPile:
		return "tableau-" + strconv.Itoa(int(p))
	case FoundationPile:
		s, _ := p.Suit()
		return "foundation-" + s.String()
	case StockPile:
		return "stock"
	}
	if p == Waste {
		return "waste"
	}
	return fmt.Sprintf("pile(%d)", uint8(p))
}

// ParsePileID parses names such as "tableau-3", "foundation-hearts", "stock" and "waste".
// "deck" and "discard" are accepted as aliases.
func ParsePileID(s string) (PileID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "stock", "deck":
		return Stock, nil
	case "waste", "discard":
		return Waste, nil
	}
	if rest, ok := strings.CutPrefix(name, "tableau-"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n >= TableauColumns {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPile, s)
		}
		return TableauID(n), nil
	}
	if rest, ok := strings.CutPrefix(name, "foundation-"); ok {
		suit, err := ParseSuit(rest)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPile, s)
		}
		return FoundationID(suit), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPile, s)
}

func (p PileID) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPile, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *PileID) UnmarshalText(b []byte) error {
	id, err := ParsePileID(string(b))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// PlacedCard is a card as it lies in a pile
type PlacedCard struct {
	Card   Card `json:"card"`
	FaceUp bool `json:"face_up"`
}

// Pile is an ordered bottom-to-top sequence of cards
type Pile []PlacedCard

// Top returns the top card, if any
func (p Pile) Top() (PlacedCard, bool) {
	if len(p) == 0 {
		return PlacedCard{}, false
	}
	return p[len(p)-1], true
}

// IndexOf returns the position of c in the pile, or -1
func (p Pile) IndexOf(c Card) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Card == c {
			return i
		}
	}
	return -1
}

// FaceDownCount returns the number of face-down cards
func (p Pile) FaceDownCount() int {
	n := 0
	for _, pc := range p {
		if !pc.FaceUp {
			n++
		}
	}
	return n
}

// CanAccept is the single stacking rule shared by user moves, auto-moves and the solver.
// top is nil when dest is empty; hasChildren reports whether the candidate has cards above it.
func CanAccept(dest PileID, top *Card, candidate Card, hasChildren bool) bool {
	switch dest.Kind() {
	case FoundationPile:
		if hasChildren {
			return false
		}
		suit, _ := dest.Suit()
		if candidate.Suit != suit {
			return false
		}
		if top == nil {
			return candidate.Rank == Ace
		}
		next, ok := top.Rank.Next()
		return ok && candidate.Rank == next
	case TableauPile:
		if top == nil {
			return candidate.Rank == King
		}
		return candidate.CanStackOn(*top)
	default:
		return false
	}
}
