// Package config loads the command line tool's YAML settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"github.com/imdario/mergo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/xmdhs/regioncopy/edit"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	// Progress shows a progress bar while an operation runs.
	Progress *bool `yaml:"progress"`
	// Rollback undoes a cancelled or failed operation instead of leaving
	// it half done in memory.
	Rollback *bool `yaml:"rollback"`
	Copy     Copy  `yaml:"copy"`
}

// Copy holds the defaults for copy, import, export and nudge. Unset
// fields take their value from Default.
type Copy struct {
	Entities              *bool `yaml:"entities"`
	CreateMissingChunks   *bool `yaml:"create_missing_chunks"`
	Biomes                *bool `yaml:"biomes"`
	TileTicks             *bool `yaml:"tile_ticks"`
	RelocateCommandBlocks *bool `yaml:"relocate_command_blocks"`
	RelocateSpawners      *bool `yaml:"relocate_spawners"`
	RegenerateUUIDs       *bool `yaml:"regenerate_uuids"`
}

func ptr(b bool) *bool { return &b }

// keepSet stops mergo from treating a false read from the file as unset.
type keepSet struct{}

func (keepSet) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t != reflect.TypeOf((*bool)(nil)) {
		return nil
	}
	return func(dst, src reflect.Value) error { return nil }
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Progress: ptr(true),
		Rollback: ptr(true),
		Copy: Copy{
			Entities:              ptr(true),
			CreateMissingChunks:   ptr(false),
			Biomes:                ptr(false),
			TileTicks:             ptr(true),
			RelocateCommandBlocks: ptr(true),
			RelocateSpawners:      ptr(true),
			RegenerateUUIDs:       ptr(true),
		},
	}
}

// Load reads path and fills every unset field from Default. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config.Load %s: %w", path, err)
		}
	}
	if err := mergo.Merge(c, Default(), mergo.WithTransformers(keepSet{})); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return nil, fmt.Errorf("config.Load %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// CopyOptions turns the copy section into engine options.
func (c *Config) CopyOptions() edit.CopyOptions {
	return edit.CopyOptions{
		CopyEntities:          *c.Copy.Entities,
		CreateMissingChunks:   *c.Copy.CreateMissingChunks,
		CopyBiomes:            *c.Copy.Biomes,
		CopyTileTicks:         *c.Copy.TileTicks,
		RelocateCommandBlocks: *c.Copy.RelocateCommandBlocks,
		RelocateSpawners:      *c.Copy.RelocateSpawners,
		RegenerateUUIDs:       *c.Copy.RegenerateUUIDs,
	}
}
