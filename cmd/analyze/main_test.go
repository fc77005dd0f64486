package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wricardo/klondike/game/engine"
	"go.uber.org/zap"
)

func TestChoose(t *testing.T) {
	toFoundation := engine.Hint{Kind: engine.HintMove, Card: engine.MustParseCard("AS"), From: engine.Tableau3, To: engine.FoundationSpades}
	backDown := engine.Hint{Kind: engine.HintMove, Card: engine.MustParseCard("2H"), From: engine.FoundationHearts, To: engine.Tableau1}
	reveal := engine.Hint{Kind: engine.HintMove, Card: engine.MustParseCard("9C"), From: engine.Tableau2, To: engine.Tableau4, Reveals: true}
	shuffle := engine.Hint{Kind: engine.HintMove, Card: engine.MustParseCard("8D"), From: engine.Tableau5, To: engine.Tableau6}
	fromWaste := engine.Hint{Kind: engine.HintMove, Card: engine.MustParseCard("7S"), From: engine.Waste, To: engine.Tableau0}
	draw := engine.Hint{Kind: engine.HintDraw, From: engine.Stock, To: engine.Waste}

	tests := []struct {
		name   string
		hints  []engine.Hint
		want   engine.Hint
		wantOK bool
	}{
		{"foundation first", []engine.Hint{backDown, reveal, toFoundation, draw}, toFoundation, true},
		{"reveal before waste", []engine.Hint{fromWaste, reveal, draw}, reveal, true},
		{"waste before stock", []engine.Hint{shuffle, fromWaste, draw}, fromWaste, true},
		{"stock when nothing useful", []engine.Hint{shuffle, backDown, draw}, draw, true},
		{"nothing useful", []engine.Hint{shuffle, backDown}, engine.Hint{}, false},
		{"no hints", nil, engine.Hint{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := choose(tt.hints)
			if ok != tt.wantOK {
				t.Fatalf("choose() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("choose() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPlayDeal_Terminates(t *testing.T) {
	rules := engine.DefaultRules()
	rules.AutoSolveInterval = engine.Duration(1)

	for seed := uint64(1); seed <= 20; seed++ {
		report, err := playDeal(rules, seed, 5000, zap.NewNop())
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if report.Actions >= 5000 {
			t.Errorf("seed %d: hit the action cap", seed)
		}
		if report.Outcome != Stuck && report.Home != engine.DeckSize {
			t.Errorf("seed %d: %s with only %d cards home", seed, report.Outcome, report.Home)
		}
		if report.Outcome == AutoSolved && report.SolverMoves == 0 {
			t.Errorf("seed %d: auto-solved without solver moves", seed)
		}
	}
}

func TestPlayDeal_Deterministic(t *testing.T) {
	rules := engine.DefaultRules()

	a, err := playDeal(rules, 77, 5000, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	b, err := playDeal(rules, 77, 5000, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same seed gave different reports: %+v vs %+v", a, b)
	}
}

func TestPlayDeal_ActionCap(t *testing.T) {
	report, err := playDeal(engine.DefaultRules(), 3, 5, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if report.Actions != 5 || report.Outcome != Stuck {
		t.Errorf("expected to stop at the cap, got %+v", report)
	}
}

func TestSummary(t *testing.T) {
	var s Summary
	if s.WinRate() != 0 || s.AvgHome() != 0 {
		t.Error("empty summary should report zeros")
	}

	s.add(DealReport{Outcome: Won, Home: 52})
	s.add(DealReport{Outcome: AutoSolved, Home: 52})
	s.add(DealReport{Outcome: Stuck, Home: 8})
	s.add(DealReport{Outcome: Stuck, Home: 0})

	if s.Deals != 4 || s.Won != 1 || s.AutoSolved != 1 || s.Stuck != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.WinRate() != 0.5 {
		t.Errorf("WinRate() = %v, want 0.5", s.WinRate())
	}
	if s.AvgHome() != 28 {
		t.Errorf("AvgHome() = %v, want 28", s.AvgHome())
	}
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out

	args := []string{"analyze", "--config-dir", "../../configs", "--preset", "classic", "--preset", "triple", "--deals", "3"}
	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	report := out.String()
	for _, want := range []string{"PRESET", "classic", "triple", "WIN RATE"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, report)
		}
	}
}

func TestRun_UnknownPreset(t *testing.T) {
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}

	args := []string{"analyze", "--config-dir", "../../configs", "--preset", "nope", "--deals", "1"}
	if err := cmd.Run(context.Background(), args); err == nil {
		t.Error("Expected error for unknown preset")
	}
}
