package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/pocket"
	"github.com/xmdhs/regioncopy/schematic"
)

var ErrUnknownFormat = errors.New("unknown world format")

// world is an opened level plus how to write it back.
type world struct {
	path  string
	level chunk.Level
	save  func() error
	close func() error
	// positions lists stored chunks; nil for schematics.
	positions func() ([]box.ChunkPos, error)
}

func isSchematic(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".schematic")
}

// openWorld picks the store from what is on disk: a .schematic file, a
// LevelDB world with a db directory, or an Anvil world with a region
// directory.
func openWorld(path string, log logrus.FieldLogger) (*world, error) {
	if isSchematic(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("openWorld: %w", err)
		}
		defer f.Close()
		s, err := schematic.Load(f)
		if err != nil {
			return nil, fmt.Errorf("openWorld %s: %w", path, err)
		}
		return schematicWorld(path, s), nil
	}
	if dirExists(filepath.Join(path, "db")) {
		l, err := pocket.Open(path, nil, log)
		if err != nil {
			return nil, fmt.Errorf("openWorld: %w", err)
		}
		return &world{path: path, level: l, save: l.Save, close: l.Close, positions: l.ChunkPositions}, nil
	}
	if dirExists(filepath.Join(path, "region")) {
		l, err := chunk.OpenRegionLevel(path, nil, log)
		if err != nil {
			return nil, fmt.Errorf("openWorld: %w", err)
		}
		return &world{path: path, level: l, save: l.Save, close: l.Close, positions: l.ChunkPositions}, nil
	}
	return nil, fmt.Errorf("openWorld %s: %w", path, ErrUnknownFormat)
}

func schematicWorld(path string, s *schematic.Schematic) *world {
	return &world{
		path:  path,
		level: s,
		save: func() error {
			return writeSchematic(path, s)
		},
		close: func() error { return nil },
	}
}

func writeSchematic(path string, s *schematic.Schematic) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeSchematic: %w", err)
	}
	if err := s.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("writeSchematic: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writeSchematic: %w", err)
	}
	return nil
}

func dirExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

// parseVec reads "x,y,z".
// sameWorld reports whether a and b name the same world on disk.
func sameWorld(a, b string) bool {
	ai, aerr := os.Stat(a)
	bi, berr := os.Stat(b)
	if aerr == nil && berr == nil {
		return os.SameFile(ai, bi)
	}
	aa, err := filepath.Abs(a)
	if err != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	ba, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return aa == ba
}

func parseVec(s string) (box.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return box.Vec{}, fmt.Errorf("parseVec %q: want x,y,z", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return box.Vec{}, fmt.Errorf("parseVec %q: %w", s, err)
		}
		n[i] = v
	}
	return box.Vec{X: n[0], Y: n[1], Z: n[2]}, nil
}
