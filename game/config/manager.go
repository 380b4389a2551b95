package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	// DefaultConfigName is preferred as the default scenario when present
	DefaultConfigName = "harbour"
	// DefaultConfigID names the built-in scenario used when no file is available
	DefaultConfigID = "default"
)

// Manager handles scenario loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.SimConfig
	configs       map[string]*engine.SimConfig
	log           zerolog.Logger
	mu            sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager logger
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a new configuration manager
func NewManager(configDir string, opts ...Option) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.SimConfig),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// BaseDir is the directory relative topology paths resolve against
func (m *Manager) BaseDir() string {
	return m.configDir
}

// LoadConfig loads a scenario by name, with or without its extension
func (m *Manager) LoadConfig(name string) (*engine.SimConfig, error) {
	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	config, err := m.readConfig(id)
	if errors.Is(err, ErrConfigNotFound) && id == DefaultConfigID && m.defaultConfig != nil {
		return m.defaultConfig, nil
	}
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

// readConfig finds id under the config directory, trying each extension in turn
func (m *Manager) readConfig(id string) (*engine.SimConfig, error) {
	for _, ext := range engine.ConfigExtensions {
		configPath := filepath.Join(m.configDir, id+ext)
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config, err := engine.DecodeSimConfig(data, ext)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if config.Topology != "" {
			topology := config.Topology
			if !filepath.IsAbs(topology) {
				topology = filepath.Join(m.configDir, topology)
			}
			if _, err := os.Stat(topology); err != nil {
				return nil, fmt.Errorf("%w: topology %s: %v", ErrInvalidConfig, config.Topology, err)
			}
		}
		return config, nil
	}
	return nil, ErrConfigNotFound
}

// ListConfigs returns information about all available scenarios
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !hasConfigExtension(entry.Name()) {
			continue
		}

		name := configID(entry.Name())
		if seen[name] {
			continue
		}

		config, err := m.LoadConfig(name)
		if err != nil {
			m.log.Debug().Err(err).Str("file", entry.Name()).Msg("skipping invalid config")
			continue
		}
		seen[name] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Vehicle:     config.Vehicle.Name,
			Kind:        config.Vehicle.Kind,
			Terrain:     terrainKind(config),
			TickRate:    config.TickRate,
		})
	}

	return configs, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *engine.SimConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached scenarios and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.SimConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig prefers DefaultConfigName, then the first valid file,
// then the built-in open sea scenario
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultConfigName)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.setDefault(engine.DefaultSimConfig())
			return nil
		}

		config, err = m.LoadConfig(configs[0].ConfigID)
		if err != nil {
			m.setDefault(engine.DefaultSimConfig())
			return nil
		}
	}

	m.setDefault(config)
	return nil
}

func (m *Manager) setDefault(config *engine.SimConfig) {
	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	m.log.Debug().Str("config", config.Name).Msg("default config selected")
}

// SaveConfig validates and writes a scenario. The extension of name picks
// the format; JSON is used when it has none.
func (m *Manager) SaveConfig(name string, config *engine.SimConfig) error {
	if err := engine.ValidateSimConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: invalid config name '%s'", ErrInvalidConfig, name)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !hasConfigExtension(name) {
		ext = ".json"
	}

	config.ApplyDefaults()
	data, err := engine.EncodeSimConfig(config, ext)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+ext)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	m.log.Info().Str("config", id).Str("path", configPath).Msg("config saved")
	return nil
}

// configID strips a known scenario extension
func configID(name string) string {
	for _, ext := range engine.ConfigExtensions {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

func hasConfigExtension(name string) bool {
	return configID(name) != name
}

func terrainKind(config *engine.SimConfig) string {
	switch {
	case config.Topology != "":
		return "topology"
	case len(config.Layout) > 0:
		return "layout"
	}
	return "open"
}
