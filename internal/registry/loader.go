package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"inferd/internal/label"
	"inferd/pkg/types"
)

// configNames are the descriptor file names probed in each model
// directory, in priority order.
var configNames = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// LoadDir scans a model repository: every subdirectory holding a model
// descriptor file becomes one loaded model. Label files referenced by
// outputs are resolved relative to the model directory.
func LoadDir(dir string) ([]*Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read repository: %w", err)
	}
	var models []*Model
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		modelDir := filepath.Join(abs, e.Name())
		m, err := loadModelDir(modelDir)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", e.Name(), err)
		}
		if m == nil {
			continue
		}
		if m.Config.Name == "" {
			m.Config.Name = e.Name()
		}
		models = append(models, m)
	}
	return models, nil
}

// loadModelDir parses the descriptor and label files of one model
// directory, or returns nil when the directory holds no descriptor.
func loadModelDir(dir string) (*Model, error) {
	var path string
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg types.ModelConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported descriptor extension: %s", ext)
	}
	labels := label.NewProvider()
	for _, out := range cfg.Outputs {
		if out.LabelFilename == "" {
			continue
		}
		if err := labels.AddFromFile(out.Name, filepath.Join(dir, out.LabelFilename)); err != nil {
			return nil, err
		}
	}
	return &Model{Config: cfg, Labels: labels}, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
