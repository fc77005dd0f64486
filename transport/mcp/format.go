package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

const faceDown = "##"

// formatGameState renders the table as plain text for LLM consumption
func formatGameState(state *engine.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status: %s | Draw: %s | Seed: %d\n", state.Status, state.DrawMode, state.Seed)
	if state.SolveStalled {
		b.WriteString("Auto-solve stalled; continue manually\n")
	}
	b.WriteString("\n")

	t := &state.Table
	fmt.Fprintf(&b, "Stock: %d card(s)\n", len(t.Stock))

	// only the last three waste cards are ever visible
	waste := t.Waste
	if len(waste) > 3 {
		waste = waste[len(waste)-3:]
	}
	fmt.Fprintf(&b, "Waste: %s", formatCards(waste))
	if hidden := len(t.Waste) - len(waste); hidden > 0 {
		fmt.Fprintf(&b, " (+%d below)", hidden)
	}
	b.WriteString("\n\n")

	b.WriteString("Foundations:\n")
	for _, suit := range engine.Suits {
		id := engine.FoundationID(suit)
		pile := t.Foundations[suit]
		top := "--"
		if c, ok := pile.Top(); ok {
			top = c.Card.String()
		}
		fmt.Fprintf(&b, "  %-20s %s (%d)\n", id, top, len(pile))
	}
	b.WriteString("\nTableau (bottom to top):\n")
	for i, pile := range t.Tableau {
		fmt.Fprintf(&b, "  tableau-%d: %s\n", i, formatCards(pile))
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", state.Message)
	}
	return b.String()
}

func formatCards(p engine.Pile) string {
	if len(p) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(p))
	for i, pc := range p {
		if pc.FaceUp {
			parts[i] = pc.Card.String()
		} else {
			parts[i] = faceDown
		}
	}
	return strings.Join(parts, " ")
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder

	if result.Success {
		b.WriteString("✓ ")
	} else {
		b.WriteString("✗ ")
	}
	b.WriteString(result.Message)
	b.WriteString("\n")

	if result.Action != nil {
		fmt.Fprintf(&b, "Action: %s\n", result.Action)
	}
	if len(result.Moved) > 1 {
		moved := make([]string, len(result.Moved))
		for i, c := range result.Moved {
			moved[i] = c.String()
		}
		fmt.Fprintf(&b, "Moved: %s\n", strings.Join(moved, " "))
	}
	if result.Flipped != nil {
		fmt.Fprintf(&b, "Revealed: %s\n", result.Flipped)
	}
	for _, ev := range result.Events {
		fmt.Fprintf(&b, "Event: %s\n", ev.Message)
	}

	if result.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(result.GameState))
	}
	return b.String()
}

func formatHints(hints []engine.Hint) string {
	if len(hints) == 0 {
		return "No legal actions."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d legal action(s):\n", len(hints))
	for i, h := range hints {
		fmt.Fprintf(&b, "%d. ", i+1)
		switch h.Kind {
		case engine.HintDraw:
			b.WriteString("draw from the stock")
		case engine.HintResetDeck:
			b.WriteString("reset the deck")
		default:
			fmt.Fprintf(&b, "move %s from %s to %s", h.Card, h.From, h.To)
			if h.RunLength > 1 {
				fmt.Fprintf(&b, " (%d cards)", h.RunLength)
			}
			if h.Reveals {
				b.WriteString(", reveals a card")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatAutoSolve(result *service.AutoSolveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Auto-solve made %d move(s)", len(result.Moves))
	switch {
	case result.Won:
		b.WriteString(" and won the game")
	case result.Stalled:
		b.WriteString(" and stalled")
	}
	b.WriteString("\n")
	for _, m := range result.Moves {
		fmt.Fprintf(&b, "  %s: %s -> %s\n", m.Card, m.From, m.To)
	}
	if result.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(result.GameState))
	}
	return b.String()
}

func formatHistory(h *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Action history: page %d of %d (%d total)\n", h.Page, h.TotalPages, h.TotalActions)
	if len(h.Actions) == 0 {
		b.WriteString("No actions yet.\n")
		return b.String()
	}
	for _, e := range h.Actions {
		fmt.Fprintf(&b, "#%d %s\n", e.Seq, e.Action)
	}
	if h.HasNext {
		fmt.Fprintf(&b, "More on page %d\n", h.Page+1)
	}
	return b.String()
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.ID)
	if session.ConfigName != "" {
		fmt.Fprintf(&b, "Config: %s\n", session.ConfigName)
	}
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Last accessed: %s\n", session.LastAccessedAt.Format("2006-01-02 15:04:05"))
	if session.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(session.GameState))
	}
	return b.String()
}

func formatSessionList(count int, sessions []service.SessionInfo) string {
	if count == 0 {
		return "No active sessions."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d session(s):\n", count)
	for _, s := range sessions {
		status := "unknown"
		var foundation int
		if s.GameState != nil {
			status = s.GameState.Status.String()
			for _, f := range s.GameState.Table.Foundations {
				foundation += len(f)
			}
		}
		fmt.Fprintf(&b, "- %s (%s): %s, %d/52 home\n", s.ID, s.ConfigName, status, foundation)
	}
	return b.String()
}

func formatConfigs(configs []service.ConfigInfo) string {
	if len(configs) == 0 {
		return "No presets available."
	}
	var b strings.Builder
	b.WriteString("Presets:\n")
	for _, c := range configs {
		fmt.Fprintf(&b, "- %s: %s (draw %s", c.ConfigID, c.Name, c.DrawMode)
		if c.AutoSolve {
			b.WriteString(", auto-solve")
		}
		if c.Seeded {
			b.WriteString(", fixed deal")
		}
		b.WriteString(")\n")
		if c.Description != "" {
			fmt.Fprintf(&b, "  %s\n", c.Description)
		}
	}
	return b.String()
}
