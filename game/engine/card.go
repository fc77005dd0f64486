package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCard is returned when card notation cannot be parsed
var ErrInvalidCard = errors.New("invalid card")

// Suit is one of the four French suits
type Suit uint8

const (
	Spades Suit = iota
	Clubs
	Hearts
	Diamonds
)

// Suits lists every suit in foundation order
var Suits = [4]Suit{Spades, Clubs, Hearts, Diamonds}

// Color is the color class of a suit
type Color uint8

const (
	Black Color = iota
	Red
)

// Color returns the color class of the suit
func (s Suit) Color() Color {
	if s == Hearts || s == Diamonds {
		return Red
	}
	return Black
}

// CanStackAlternating reports whether a and b belong to different color classes
func CanStackAlternating(a, b Suit) bool {
	return a.Color() != b.Color()
}

// Letter returns the single letter used in card notation
func (s Suit) Letter() string {
	switch s {
	case Spades:
		return "S"
	case Clubs:
		return "C"
	case Hearts:
		return "H"
	case Diamonds:
		return "D"
	}
	return "?"
}

func (s Suit) String() string {
	switch s {
	case Spades:
		return "spades"
	case Clubs:
		return "clubs"
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	}
	return fmt.Sprintf("suit(%d)", uint8(s))
}

// ParseSuit accepts either the full suit name or its letter
func ParseSuit(s string) (Suit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "spades", "spade":
		return Spades, nil
	case "c", "clubs", "club":
		return Clubs, nil
	case "h", "hearts", "heart":
		return Hearts, nil
	case "d", "diamonds", "diamond":
		return Diamonds, nil
	}
	return 0, fmt.Errorf("%w: unknown suit %q", ErrInvalidCard, s)
}

// Rank is a card rank. Ace is 1 and King is 13; zero is not a rank.
type Rank uint8

const (
	NoRank Rank = 0
	Ace    Rank = 1
	Jack   Rank = 11
	Queen  Rank = 12
	King   Rank = 13
)

// Valid reports whether r is Ace through King
func (r Rank) Valid() bool {
	return r >= Ace && r <= King
}

// Column maps the rank to its ordinal 0..12 (Ace=0, King=12)
func (r Rank) Column() int {
	return int(r) - 1
}

// Next returns the successor rank. King has none.
func (r Rank) Next() (Rank, bool) {
	if !r.Valid() || r == King {
		return NoRank, false
	}
	return r + 1, true
}

// IsAdjacentAscending reports whether b directly follows a
func IsAdjacentAscending(a, b Rank) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return b.Column()-a.Column() == 1
}

func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if r.Valid() {
		return strconv.Itoa(int(r))
	}
	return "?"
}

// ParseRank parses A, 2..10, J, Q, K (case-insensitive). T is accepted for 10.
func ParseRank(s string) (Rank, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "A", "1":
		return Ace, nil
	case "T":
		return 10, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 2 || n > 10 {
		return NoRank, fmt.Errorf("%w: unknown rank %q", ErrInvalidCard, s)
	}
	return Rank(n), nil
}

// Card is a suit and rank pair. Two cards are the same card iff both fields match.
type Card struct {
	Suit Suit
	Rank Rank
}

// NoCard marks an empty slot; it is never dealt
var NoCard = Card{}

// IsZero reports whether c is NoCard
func (c Card) IsZero() bool {
	return c.Rank == NoRank
}

// CanStackOn reports whether c may be placed on top of other in a tableau column:
// alternating color, and c exactly one rank below other.
func (c Card) CanStackOn(other Card) bool {
	return CanStackAlternating(c.Suit, other.Suit) && IsAdjacentAscending(c.Rank, other.Rank)
}

// String renders the card as rank followed by suit letter, e.g. "10H" or "QS"
func (c Card) String() string {
	if c.IsZero() {
		return "--"
	}
	return c.Rank.String() + c.Suit.Letter()
}

// ParseCard parses notation such as "AS", "10h" or "KD"
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return NoCard, fmt.Errorf("%w: %q", ErrInvalidCard, s)
	}
	rank, err := ParseRank(s[:len(s)-1])
	if err != nil {
		return NoCard, err
	}
	suit, err := ParseSuit(s[len(s)-1:])
	if err != nil {
		return NoCard, err
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// MustParseCard is ParseCard for literals known to be valid
func MustParseCard(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	if len(b) == 0 || string(b) == "--" {
		*c = NoCard
		return nil
	}
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NewDeck returns the 52 unique cards in suit-major order
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range Suits {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}
