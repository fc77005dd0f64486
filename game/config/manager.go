package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	configExt    = ".yaml"
	altConfigExt = ".yml"
	defaultName  = "classic"
)

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for skipped or unreadable presets
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager loads, validates and caches rule presets stored as YAML files
type Manager struct {
	configDir     string
	defaultConfig *engine.Rules
	configs       map[string]*engine.Rules
	logger        *zap.Logger
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string, opts ...Option) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.Rules),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a preset by id (file name without extension)
func (m *Manager) LoadConfig(name string) (*engine.Rules, error) {
	name = configID(name)

	m.mu.RLock()
	if rules, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if rules, exists := m.configs[name]; exists {
		return rules, nil
	}

	rules, err := m.readConfig(name)
	if err != nil {
		return nil, err
	}

	m.configs[name] = rules
	return rules, nil
}

func (m *Manager) readConfig(name string) (*engine.Rules, error) {
	var data []byte
	var err error
	for _, ext := range []string{configExt, altConfigExt} {
		data, err = os.ReadFile(filepath.Join(m.configDir, name+ext))
		if err == nil || !os.IsNotExist(err) {
			break
		}
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ParseRules decodes and validates a YAML preset
func ParseRules(data []byte) (*engine.Rules, error) {
	var rules engine.Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}
	rules.ApplyDefaults()
	if err := engine.ValidateRules(&rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &rules, nil
}

// ListConfigs returns information about all available presets, sorted by id
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	for _, entry := range entries {
		if entry.IsDir() || !isConfigFile(entry.Name()) {
			continue
		}

		id := configID(entry.Name())
		rules, err := m.LoadConfig(id)
		if err != nil {
			m.logger.Warn("skipping invalid config", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        rules.Name,
			Description: rules.Description,
			DrawMode:    rules.DrawMode.String(),
			AutoSolve:   rules.AutoSolve,
			Seeded:      rules.Seed != 0,
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default preset by id
func (m *Manager) SetDefault(name string) error {
	rules, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = rules
	return nil
}

// RefreshCache drops cached presets and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.Rules)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig prefers classic.yaml, then the first valid preset, then built-in rules
func (m *Manager) loadDefaultConfig() error {
	rules, err := m.LoadConfig(defaultName)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.setDefault(engine.DefaultRules())
			return nil
		}

		rules, err = m.LoadConfig(configs[0].ConfigID)
		if err != nil {
			m.setDefault(engine.DefaultRules())
			return nil
		}
	}

	m.setDefault(rules)
	return nil
}

func (m *Manager) setDefault(rules *engine.Rules) {
	m.mu.Lock()
	m.defaultConfig = rules
	m.mu.Unlock()
}

// SaveConfig validates a preset and writes it as YAML
func (m *Manager) SaveConfig(name string, rules *engine.Rules) error {
	if rules == nil {
		return fmt.Errorf("%w: rules are nil", ErrInvalidConfig)
	}
	rules = rules.Clone()
	rules.ApplyDefaults()
	if err := engine.ValidateRules(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: bad config name %q", ErrInvalidConfig, name)
	}

	data, err := yaml.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, id+configExt), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = rules
	m.mu.Unlock()

	return nil
}

func isConfigFile(name string) bool {
	return strings.HasSuffix(name, configExt) || strings.HasSuffix(name, altConfigExt)
}

// configID strips a YAML extension from a file or preset name
func configID(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, configExt)
	return strings.TrimSuffix(name, altConfigExt)
}
