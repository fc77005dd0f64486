// Command analyze plays a batch of seeded deals for each rule preset with a simple
// greedy policy and reports how often the policy wins, how often the auto-solver
// finishes the game, and how often play gets stuck.
//
// The policy takes foundation moves first, then tableau moves that turn a card,
// then waste-to-tableau moves, and otherwise works the stock. A game is stuck
// once a full pass through the stock makes no progress.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/logging"
	"go.uber.org/zap"
)

// Outcome is how a simulated deal ended
type Outcome int

const (
	Stuck Outcome = iota
	Won
	AutoSolved
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case AutoSolved:
		return "auto-solved"
	}
	return "stuck"
}

// DealReport is the result of one simulated deal
type DealReport struct {
	Seed        uint64
	Outcome     Outcome
	Actions     int
	Draws       int
	Resets      int
	SolverMoves int
	Home        int
}

// Summary aggregates the deals played under one preset
type Summary struct {
	Preset     string
	DrawMode   engine.DrawMode
	Deals      int
	Won        int
	AutoSolved int
	Stuck      int
	TotalHome  int
}

// WinRate is the share of deals that ended with every card home
func (s Summary) WinRate() float64 {
	if s.Deals == 0 {
		return 0
	}
	return float64(s.Won+s.AutoSolved) / float64(s.Deals)
}

// AvgHome is the mean number of cards on the foundations at the end of a deal
func (s Summary) AvgHome() float64 {
	if s.Deals == 0 {
		return 0
	}
	return float64(s.TotalHome) / float64(s.Deals)
}

func (s *Summary) add(r DealReport) {
	s.Deals++
	s.TotalHome += r.Home
	switch r.Outcome {
	case Won:
		s.Won++
	case AutoSolved:
		s.AutoSolved++
	default:
		s.Stuck++
	}
}

// progress never decreases under the greedy policy and strictly increases with
// every card move it makes, so an unchanged value across a stock pass means stuck
func progress(t *engine.Table) int {
	home, inTableau, faceDown := 0, 0, 0
	for _, f := range t.Foundations {
		home += len(f)
	}
	for _, col := range t.Tableau {
		inTableau += len(col)
		faceDown += col.FaceDownCount()
	}
	return 2*home + inTableau - faceDown
}

func foundationCount(t *engine.Table) int {
	n := 0
	for _, f := range t.Foundations {
		n += len(f)
	}
	return n
}

// choose picks the greedy policy's next action
func choose(hints []engine.Hint) (engine.Hint, bool) {
	var reveal, fromWaste, stock *engine.Hint
	for i := range hints {
		h := &hints[i]
		switch {
		case h.Kind != engine.HintMove:
			stock = h
		case h.From.Kind() == engine.FoundationPile:
			// never take cards back off a foundation
		case h.To.Kind() == engine.FoundationPile:
			return *h, true
		case h.Reveals && reveal == nil:
			reveal = h
		case h.From == engine.Waste && fromWaste == nil:
			fromWaste = h
		}
	}
	for _, h := range []*engine.Hint{reveal, fromWaste, stock} {
		if h != nil {
			return *h, true
		}
	}
	return engine.Hint{}, false
}

// playDeal simulates one deal to completion or until the policy is stuck
func playDeal(rules *engine.Rules, seed uint64, maxActions int, logger *zap.Logger) (DealReport, error) {
	eng, err := engine.NewEngine(rules, engine.WithLogger(logger))
	if err != nil {
		return DealReport{}, err
	}
	eng.NewSeededDeal(rules.DrawMode, seed)
	report := DealReport{Seed: seed}
	lastResetProgress := -1
	solved := false

	for report.Actions < maxActions {
		switch eng.Status() {
		case engine.Won:
			report.Outcome = Won
			if solved {
				report.Outcome = AutoSolved
			}
			report.Home = foundationCount(&eng.GetState().Table)
			return report, nil

		case engine.AutoSolving:
			solved = true
			if _, moved := eng.Tick(rules.AutoSolveInterval.Std()); moved {
				report.SolverMoves++
			}
			report.Actions++
			continue
		}

		hint, ok := choose(eng.Hints())
		if !ok {
			break
		}

		switch hint.Kind {
		case engine.HintDraw:
			eng.RequestDraw()
			report.Draws++
		case engine.HintResetDeck:
			p := progress(&eng.GetState().Table)
			if p == lastResetProgress {
				report.Home = foundationCount(&eng.GetState().Table)
				return report, nil
			}
			lastResetProgress = p
			eng.RequestResetDeck()
			report.Resets++
		default:
			if res := eng.RequestMove(hint.Card, hint.From, hint.To); !res.Accepted {
				return report, fmt.Errorf("seed %d: legal move %s %s -> %s was rejected", seed, hint.Card, hint.From, hint.To)
			}
		}
		report.Actions++
	}

	report.Home = foundationCount(&eng.GetState().Table)
	return report, nil
}

// analyzePreset plays deals consecutive seeds starting at firstSeed
func analyzePreset(id string, rules *engine.Rules, deals int, firstSeed uint64, maxActions int, logger *zap.Logger) (Summary, error) {
	summary := Summary{Preset: id, DrawMode: rules.DrawMode}
	for i := 0; i < deals; i++ {
		seed := firstSeed + uint64(i)
		report, err := playDeal(rules, seed, maxActions, logger)
		if err != nil {
			return summary, err
		}
		logger.Debug("deal finished",
			zap.String("preset", id),
			zap.Uint64("seed", seed),
			zap.Stringer("outcome", report.Outcome),
			zap.Int("actions", report.Actions),
			zap.Int("home", report.Home),
		)
		summary.add(report)
	}
	return summary, nil
}

func printSummaries(w io.Writer, summaries []Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRESET\tDRAW\tDEALS\tWON\tAUTO-SOLVED\tSTUCK\tWIN RATE\tAVG HOME")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\t%.1f\n",
			s.Preset, s.DrawMode, s.Deals, s.Won, s.AutoSolved, s.Stuck, 100*s.WinRate(), s.AvgHome())
	}
	tw.Flush()
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := logging.New(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	configs, err := config.NewManager(cmd.String("config-dir"), config.WithLogger(logger.Named("config")))
	if err != nil {
		return err
	}

	presets := cmd.StringSlice("preset")
	if len(presets) == 0 {
		infos, err := configs.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			presets = append(presets, info.ConfigID)
		}
	}

	deals := int(cmd.Int("deals"))
	if deals <= 0 {
		return fmt.Errorf("--deals must be positive")
	}

	var summaries []Summary
	for _, id := range presets {
		if err := ctx.Err(); err != nil {
			return err
		}
		rules, err := configs.LoadConfig(strings.TrimSpace(id))
		if err != nil {
			return err
		}
		summary, err := analyzePreset(id, rules, deals, cmd.Uint64("seed"), int(cmd.Int("max-actions")), logger.Named("engine"))
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	}

	printSummaries(cmd.Root().Writer, summaries)
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Play seeded deals with a greedy policy and report outcomes per preset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing rule presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringSliceFlag{
				Name:  "preset",
				Usage: "Preset id to analyze (repeatable, default all)",
			},
			&cli.IntFlag{
				Name:  "deals",
				Value: 100,
				Usage: "Deals to play per preset",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "Seed of the first deal; later deals use consecutive seeds",
			},
			&cli.IntFlag{
				Name:  "max-actions",
				Value: 5000,
				Usage: "Give up on a deal after this many actions",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log every deal",
			},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
