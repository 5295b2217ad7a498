// Package settingsstore loads and persists the bridge's user-facing
// settings document, following the same DefaultConfig-then-override
// shape as the teacher's pkg/config package.
package settingsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted configuration document described by the
// bridge's /api/v1/settings endpoint.
type Settings struct {
	BridgeName           string  `json:"bridgeName" yaml:"bridgeName"`
	HTTPPort             int     `json:"httpPort" yaml:"httpPort"`
	WebSocketPort        int     `json:"webSocketPort" yaml:"webSocketPort"`
	AutoConnect          bool    `json:"autoConnect" yaml:"autoConnect"`
	AutoConnectScale     bool    `json:"autoConnectScale" yaml:"autoConnectScale"`
	DE1Address           string  `json:"de1Address" yaml:"de1Address"`
	TargetWeight         float64 `json:"targetWeight" yaml:"targetWeight"`
	WeightFlowMultiplier float64 `json:"weightFlowMultiplier" yaml:"weightFlowMultiplier"`
}

// DefaultSettings returns the settings document's zero-config defaults.
func DefaultSettings() Settings {
	return Settings{
		BridgeName:           "decentbridge",
		HTTPPort:             8080,
		WebSocketPort:        8081,
		AutoConnect:          true,
		AutoConnectScale:     false,
		TargetWeight:         36.0,
		WeightFlowMultiplier: 1.0,
	}
}

// Store guards the live Settings document with a mutex so HTTP
// handlers can read/update it concurrently with the bridge's own use.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// Load reads path (JSON or YAML, selected by extension) into a Store,
// filling any fields the file omits from DefaultSettings. A path that
// doesn't exist yet yields a Store seeded with defaults only.
func Load(path string) (*Store, error) {
	s := &Store{path: path, settings: DefaultSettings()}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("settingsstore: read %s: %w", path, err)
	}

	settings := s.settings
	if isYAMLPath(path) {
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("settingsstore: parse yaml %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("settingsstore: parse json %s: %w", path, err)
		}
	}
	s.settings = settings
	return s, nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Get returns a copy of the current settings document.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Patch is a partial settings update: every field is optional, so
// POST /settings can change just targetWeight without resetting
// autoConnect to false the way a plain Settings zero-value would.
type Patch struct {
	BridgeName           *string  `json:"bridgeName,omitempty"`
	HTTPPort             *int     `json:"httpPort,omitempty"`
	WebSocketPort        *int     `json:"webSocketPort,omitempty"`
	AutoConnect          *bool    `json:"autoConnect,omitempty"`
	AutoConnectScale     *bool    `json:"autoConnectScale,omitempty"`
	DE1Address           *string  `json:"de1Address,omitempty"`
	TargetWeight         *float64 `json:"targetWeight,omitempty"`
	WeightFlowMultiplier *float64 `json:"weightFlowMultiplier,omitempty"`
}

// Update applies patch's set fields to the store and persists the
// result if a path was supplied at Load time.
func (s *Store) Update(patch Patch) (Settings, error) {
	s.mu.Lock()
	merge(&s.settings, patch)
	settings := s.settings
	path := s.path
	s.mu.Unlock()

	if path == "" {
		return settings, nil
	}
	if err := s.persist(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func (s *Store) persist(settings Settings) error {
	var (
		data []byte
		err  error
	)
	if isYAMLPath(s.path) {
		data, err = yaml.Marshal(settings)
	} else {
		data, err = json.MarshalIndent(settings, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("settingsstore: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("settingsstore: write %s: %w", s.path, err)
	}
	return nil
}

// merge overlays patch's set (non-nil) fields onto dst.
func merge(dst *Settings, patch Patch) {
	if patch.BridgeName != nil {
		dst.BridgeName = *patch.BridgeName
	}
	if patch.HTTPPort != nil {
		dst.HTTPPort = *patch.HTTPPort
	}
	if patch.WebSocketPort != nil {
		dst.WebSocketPort = *patch.WebSocketPort
	}
	if patch.AutoConnect != nil {
		dst.AutoConnect = *patch.AutoConnect
	}
	if patch.AutoConnectScale != nil {
		dst.AutoConnectScale = *patch.AutoConnectScale
	}
	if patch.DE1Address != nil {
		dst.DE1Address = *patch.DE1Address
	}
	if patch.TargetWeight != nil {
		dst.TargetWeight = *patch.TargetWeight
	}
	if patch.WeightFlowMultiplier != nil {
		dst.WeightFlowMultiplier = *patch.WeightFlowMultiplier
	}
}
