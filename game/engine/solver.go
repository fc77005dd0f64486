package engine

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

type solverCandidate struct {
	card Card
	from PileID
}

// solverCandidates lists the exposed tableau tops, then the waste top, lowest rank first.
// Ties keep that pile order.
func solverCandidates(t *Table) []solverCandidate {
	var out []solverCandidate
	for i := range t.Tableau {
		if top, ok := t.Tableau[i].Top(); ok {
			out = append(out, solverCandidate{card: top.Card, from: TableauID(i)})
		}
	}
	if top, ok := t.Waste.Top(); ok {
		out = append(out, solverCandidate{card: top.Card, from: Waste})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].card.Rank.Column() < out[j].card.Rank.Column()
	})
	return out
}

// NextSolverMove proposes the foundation move the auto-solver would make next on t.
// It reports false when no candidate fits; exhausted is set when there were no
// candidates at all.
func NextSolverMove(t *Table) (move SolverMove, ok bool, exhausted bool) {
	candidates := solverCandidates(t)
	if len(candidates) == 0 {
		return SolverMove{}, false, true
	}
	for _, c := range candidates {
		dest := FoundationID(c.card.Suit)
		if CanAccept(dest, topCard(*t.Pile(dest)), c.card, false) {
			return SolverMove{Card: c.card, From: c.from, To: dest}, true, false
		}
	}
	return SolverMove{}, false, false
}

// Tick advances the auto-solve countdown by elapsed. When the countdown runs out, one
// foundation move is made and returned, and the countdown is re-armed. Outside
// AutoSolving it does nothing.
func (e *GameEngine) Tick(elapsed time.Duration) (SolverMove, bool) {
	if e.state.Status != AutoSolving {
		return SolverMove{}, false
	}
	e.state.SolveCountdown -= Duration(elapsed)
	if e.state.SolveCountdown > 0 {
		return SolverMove{}, false
	}
	e.state.SolveCountdown = e.rules.AutoSolveInterval
	return e.solveStep()
}

// solveStep makes at most one foundation move
func (e *GameEngine) solveStep() (SolverMove, bool) {
	t := &e.state.Table
	move, ok, exhausted := NextSolverMove(t)
	if !ok {
		e.state.Status = Playing
		e.state.SolveCountdown = 0
		if !exhausted {
			e.state.SolveStalled = true
			e.state.Message = e.rules.Messages.Stalled
			e.logger.Debug("auto-solve stalled", zap.String("deal_id", e.state.DealID))
		}
		e.evaluate()
		return SolverMove{}, false
	}

	idx := t.Pile(move.From).IndexOf(move.Card)
	e.applyMove(move.Card, move.From, move.To, idx, false)
	e.state.SolverMoves++
	e.evaluate()
	return move, true
}
