// Package engine provides the Klondike solitaire rules engine.
//
// The engine package implements:
//   - Card, suit and rank ordering with color alternation
//   - The stacking rule shared by every move source (CanAccept)
//   - Shuffling and the triangular deal
//   - Move validation, drawing from the stock and recycling the waste
//   - A reversible action log with undo
//   - Win detection and a timer-driven auto-solver
//
// Core Types:
//
// The Engine interface defines the contract for game operations, implemented by
// GameEngine, which owns one game. State holds the table (seven tableau columns,
// four foundations, stock and waste), the action log and the current GameState.
// Rules is a named preset (draw mode, auto-solve cadence) loaded from YAML by the
// config package.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultRules())
//	if err != nil {
//		log.Fatal(err)
//	}
//	eng.NewDeal(engine.DrawSingle)
//
//	eng.RequestDraw()
//	waste, _ := eng.GetState().Table.Waste.Top()
//	res := eng.RequestMove(waste.Card, engine.Waste, engine.TableauID(3))
//	if !res.Accepted {
//		eng.Undo()
//	}
//
// The engine never blocks. Callers drive the auto-solver by reporting elapsed time to
// Tick; while the game is AutoSolving each expired countdown moves one card to a
// foundation.
package engine
