// Package schematic reads and writes MCEdit .schematic clipboards. A
// Schematic is a finite chunk.Level anchored at the origin, so the edit
// package copies into and out of it like any world.
package schematic

import (
	"errors"
	"fmt"
	"io"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/edit"
	"github.com/xmdhs/regioncopy/materials"
	"github.com/xmdhs/regioncopy/model"
	"github.com/xmdhs/regioncopy/nbtutil"
)

var ErrFormat = errors.New("not a schematic")

// Materials names used in the file.
const (
	materialsJava   = "Alpha"
	materialsPocket = "Pocket"
)

type Schematic struct {
	*chunk.MemoryLevel
	size box.Vec
}

// New returns an empty schematic of the given size.
func New(size box.Vec, mat *materials.Table) (*Schematic, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 || size.X > 32767 || size.Y > 32767 || size.Z > 32767 {
		return nil, fmt.Errorf("schematic.New %v: %w", size, ErrFormat)
	}
	if mat == nil {
		mat = materials.Java()
	}
	b := box.New(box.Vec{}, size)
	s := &Schematic{MemoryLevel: chunk.NewBoundedMemoryLevel(b, mat), size: size}
	s.FillChunks(b)
	for _, p := range s.Positions() {
		c, _ := s.Chunk(p.X, p.Z)
		c.ClearDirty()
		c.NeedsLighting = false
	}
	return s, nil
}

func (s *Schematic) Size() box.Vec { return s.size }

// Box is the whole schematic, from the origin.
func (s *Schematic) Box() box.BoundingBox { return box.New(box.Vec{}, s.size) }

// Extract copies b out of source into a new schematic. The returned
// operation must be run before the schematic holds the blocks.
func Extract(source chunk.Level, b box.BoundingBox, opts edit.CopyOptions) (*Schematic, *edit.Operation, error) {
	src, _ := edit.AdjustCopyParameters(source, source, b, b.Origin)
	s, err := New(src.Size, source.Materials())
	if err != nil {
		return nil, nil, fmt.Errorf("Extract: %w", err)
	}
	op, err := edit.CopyRegion(s, source, src, box.Vec{}, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("Extract: %w", err)
	}
	return s, op, nil
}

func (s *Schematic) index(x, y, z int) int {
	return (y*s.size.Z+z)*s.size.X + x
}

func (s *Schematic) chunkAt(x, z int) *chunk.Chunk {
	c, _ := s.Chunk(x>>4, z>>4)
	return c
}

// cells flattens the blocks into y, z, x order.
func (s *Schematic) cells() (blocks, data []byte) {
	n := s.size.X * s.size.Y * s.size.Z
	blocks, data = make([]byte, n), make([]byte, n)
	for x := 0; x < s.size.X; x++ {
		for z := 0; z < s.size.Z; z++ {
			c := s.chunkAt(x, z)
			for y := 0; y < s.size.Y; y++ {
				id, d := c.Block(x&15, y, z&15)
				i := s.index(x, y, z)
				blocks[i], data[i] = id, d
			}
		}
	}
	return blocks, data
}

func (s *Schematic) setCells(blocks, data []byte) {
	for x := 0; x < s.size.X; x++ {
		for z := 0; z < s.size.Z; z++ {
			c := s.chunkAt(x, z)
			for y := 0; y < s.size.Y; y++ {
				i := s.index(x, y, z)
				c.SetBlock(x&15, y, z&15, blocks[i], data[i])
			}
		}
	}
}

// biomes returns the z, x ordered biome map, or nil when no chunk has one.
func (s *Schematic) biomes() []byte {
	var out []byte
	for x := 0; x < s.size.X; x++ {
		for z := 0; z < s.size.Z; z++ {
			c := s.chunkAt(x, z)
			if len(c.Biomes) != 256 {
				continue
			}
			if out == nil {
				out = make([]byte, s.size.X*s.size.Z)
			}
			out[z*s.size.X+x] = c.Biomes[(z&15)*16+x&15]
		}
	}
	return out
}

func (s *Schematic) setBiomes(b []byte) {
	if len(b) != s.size.X*s.size.Z {
		return
	}
	for x := 0; x < s.size.X; x++ {
		for z := 0; z < s.size.Z; z++ {
			c := s.chunkAt(x, z)
			if c.Biomes == nil {
				c.Biomes = make([]uint8, 256)
			}
			c.Biomes[(z&15)*16+x&15] = b[z*s.size.X+x]
		}
	}
}

func (s *Schematic) gather() (entities, tileEntities, tileTicks []nbtutil.Compound) {
	for _, p := range s.Positions() {
		c, _ := s.Chunk(p.X, p.Z)
		entities = append(entities, c.Entities...)
		tileEntities = append(tileEntities, c.TileEntities...)
		tileTicks = append(tileTicks, c.TileTicks...)
	}
	return
}

// owner returns the chunk a position belongs to, clamped into the
// schematic so stray entities are kept.
func (s *Schematic) owner(v box.Vec) *chunk.Chunk {
	x := min(max(v.X, 0), s.size.X-1)
	z := min(max(v.Z, 0), s.size.Z-1)
	return s.chunkAt(x, z)
}

func (s *Schematic) scatter(entities, tileEntities, tileTicks []nbtutil.Compound) {
	for _, e := range entities {
		p, _ := nbtutil.EntityBlock(e)
		c := s.owner(p)
		c.Entities = append(c.Entities, e)
	}
	for _, te := range tileEntities {
		p, ok := nbtutil.BlockPos(te)
		if !ok {
			continue
		}
		c := s.owner(p)
		c.TileEntities = append(c.TileEntities, te)
	}
	for _, tt := range tileTicks {
		p, ok := nbtutil.BlockPos(tt)
		if !ok {
			continue
		}
		c := s.owner(p)
		c.TileTicks = append(c.TileTicks, tt)
	}
}

func materialsFor(name string) (*materials.Table, error) {
	switch name {
	case materialsJava, "":
		return materials.Java(), nil
	case materialsPocket:
		return materials.Pocket(), nil
	}
	return nil, fmt.Errorf("materials %q: %w", name, ErrFormat)
}

func materialsName(t *materials.Table) string {
	if t.Name() == materials.Pocket().Name() {
		return materialsPocket
	}
	return materialsJava
}

// Load reads a gzip compressed schematic.
func Load(r io.Reader) (*Schematic, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("schematic.Load: %w", err)
	}
	defer zr.Close()
	b, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("schematic.Load: %w", err)
	}
	var m model.Schematic
	if err := nbt.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("schematic.Load: %w", err)
	}
	mat, err := materialsFor(m.Materials)
	if err != nil {
		return nil, fmt.Errorf("schematic.Load: %w", err)
	}
	s, err := New(box.Vec{X: int(m.Width), Y: int(m.Height), Z: int(m.Length)}, mat)
	if err != nil {
		return nil, fmt.Errorf("schematic.Load: %w", err)
	}
	n := s.size.X * s.size.Y * s.size.Z
	if len(m.Blocks) != n || len(m.Data) != n {
		return nil, fmt.Errorf("schematic.Load: %d blocks for %v: %w", len(m.Blocks), s.size, ErrFormat)
	}
	s.setCells(m.Blocks, m.Data)
	s.setBiomes(m.Biomes)
	s.scatter(m.Entities, m.TileEntities, m.TileTicks)
	return s, nil
}

// Save writes the schematic gzip compressed.
func (s *Schematic) Save(w io.Writer) error {
	blocks, data := s.cells()
	e, te, tt := s.gather()
	if e == nil {
		e = []nbtutil.Compound{}
	}
	if te == nil {
		te = []nbtutil.Compound{}
	}
	if tt == nil {
		tt = []nbtutil.Compound{}
	}
	m := map[string]any{
		"Width":        int16(s.size.X),
		"Height":       int16(s.size.Y),
		"Length":       int16(s.size.Z),
		"Materials":    materialsName(s.Materials()),
		"Blocks":       blocks,
		"Data":         data,
		"Entities":     nbtutil.JavaCompounds(e),
		"TileEntities": nbtutil.JavaCompounds(te),
		"TileTicks":    nbtutil.JavaCompounds(tt),
	}
	// Readers treat a Biomes tag of the wrong length as corrupt.
	if bio := s.biomes(); bio != nil {
		m["Biomes"] = bio
	}
	b, err := nbt.Marshal(m)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	zw := gzip.NewWriter(w)
	if _, err := zw.Write(b); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}
