package service

import (
	"os"

	"exec_bot/internal/models"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type presetFile struct {
	Strategies []models.StrategyConfig `yaml:"strategies"`
}

// LoadPresets читает yaml со списком стратегий.
func LoadPresets(path string) ([]models.StrategyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read presets %s", path)
	}
	return ParsePresets(raw)
}

func ParsePresets(raw []byte) ([]models.StrategyConfig, error) {
	var f presetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "decode presets")
	}
	return f.Strategies, nil
}
