// Package config manages rule presets for Klondike sessions.
//
// Presets are YAML files in the configs directory; the file name without its
// extension is the preset id used when creating a session. Each preset sets:
//   - draw mode (single or triple)
//   - whether the auto-solver runs, and its step interval
//   - whether auto-solve moves go into the undo log
//   - an optional fixed seed, for reproducible deals
//   - optional player-facing messages
//
// Usage:
//
//	manager, err := config.NewManager("configs", config.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rules, err := manager.LoadConfig("triple")
//	defaults := manager.GetDefault()
//	presets, err := manager.ListConfigs()
//
// Loaded presets are validated with engine.ValidateRules and cached; classic.yaml
// is the default when present.
package config
