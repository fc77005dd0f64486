// Command validate checks the rule presets in a configs directory. For each
// *.yaml / *.yml file it checks:
//   - YAML structure, rejecting unknown keys
//   - Required fields and value ranges (via config.ParseRules)
//   - That the file name yields a usable preset id
//   - For seeded presets, that the fixed deal conserves all 52 cards and has a legal first action
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"gopkg.in/yaml.v3"
)

// ValidationResult captures the outcome of validating a single file.
// Notes are informational; Errors make the file invalid.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single preset file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	// strict decode first so typos in keys are reported instead of ignored
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var raw engine.Rules
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		result.fail("Invalid YAML: %v", err)
		return result
	}

	rules, err := config.ParseRules(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	id := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if id == "" || strings.ContainsAny(id, " /\\") {
		result.fail("File name %q does not make a usable preset id", result.File)
	}

	result.note("✓ Name: %s", rules.Name)
	result.note("✓ Draw mode: %s", rules.DrawMode)
	if rules.AutoSolve {
		result.note("✓ Auto-solve every %s", rules.AutoSolveInterval.Std())
	} else {
		result.note("✓ Auto-solve disabled")
	}
	if raw.Messages.Welcome == "" {
		result.note("✓ No welcome message, the default is used")
	}

	if rules.Seed != 0 {
		checkSeededDeal(rules, &result)
	}
	return result
}

// checkSeededDeal deals the preset's fixed game and sanity checks it
func checkSeededDeal(rules *engine.Rules, result *ValidationResult) {
	eng, err := engine.NewEngine(rules)
	if err != nil {
		result.fail("Engine rejected rules: %v", err)
		return
	}
	eng.NewSeededDeal(rules.DrawMode, rules.Seed)
	if err := eng.Conserved(); err != nil {
		result.fail("Seed %d does not deal a full deck: %v", rules.Seed, err)
		return
	}
	hints := eng.Hints()
	if len(hints) == 0 {
		result.fail("Seed %d deals a game with no legal first action", rules.Seed)
		return
	}
	result.note("✓ Seed %d deals %d legal opening action(s)", rules.Seed, len(hints))
}

// validateDir validates every preset in dir, printing a concise report.
// It returns false if any preset is invalid.
func validateDir(w io.Writer, dir string) (bool, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return false, fmt.Errorf("finding config files: %w", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no presets found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Notes {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate Klondike rule presets",
		ArgsUsage: "[configs-dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "../configs",
				Usage:   "Directory containing rule presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("dir")
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}
			ok, err := validateDir(cmd.Root().Writer, dir)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("some presets have errors")
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
