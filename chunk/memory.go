package chunk

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/materials"
)

// MemoryLevel keeps its chunks in a map. It backs schematics and the
// scratch copies taken for overlapping self-copies.
type MemoryLevel struct {
	height    int
	materials *materials.Table
	bounds    box.BoundingBox
	bounded   bool
	chunks    map[box.ChunkPos]*Chunk
	saving    bool
}

func NewMemoryLevel(height int, mat *materials.Table) *MemoryLevel {
	return &MemoryLevel{
		height:    height,
		materials: mat,
		chunks:    map[box.ChunkPos]*Chunk{},
	}
}

// NewBoundedMemoryLevel returns a level limited horizontally to bounds;
// its height is the box's top.
func NewBoundedMemoryLevel(bounds box.BoundingBox, mat *materials.Table) *MemoryLevel {
	l := NewMemoryLevel(bounds.Maximum().Y, mat)
	l.bounds = bounds
	l.bounded = true
	return l
}

func (l *MemoryLevel) Height() int { return l.height }

func (l *MemoryLevel) Bounds() (box.BoundingBox, bool) { return l.bounds, l.bounded }

func (l *MemoryLevel) Materials() *materials.Table { return l.materials }

func (l *MemoryLevel) ContainsChunk(cx, cz int) bool {
	_, ok := l.chunks[box.ChunkPos{X: cx, Z: cz}]
	return ok
}

func (l *MemoryLevel) Chunk(cx, cz int) (*Chunk, error) {
	c, ok := l.chunks[box.ChunkPos{X: cx, Z: cz}]
	if !ok {
		return nil, fmt.Errorf("Chunk %d,%d: %w", cx, cz, ErrChunkNotFound)
	}
	return c, nil
}

func (l *MemoryLevel) CreateChunk(cx, cz int) (*Chunk, error) {
	p := box.ChunkPos{X: cx, Z: cz}
	if c, ok := l.chunks[p]; ok {
		return c, nil
	}
	c := NewChunk(cx, cz, l.height)
	c.NeedsLighting = true
	c.Changed()
	l.chunks[p] = c
	return c, nil
}

// AddChunk inserts or replaces a chunk. The chunk height must match.
func (l *MemoryLevel) AddChunk(c *Chunk) error {
	if c.Height() != l.height {
		return fmt.Errorf("AddChunk: height %d, level is %d: %w", c.Height(), l.height, ErrInvalidChunk)
	}
	l.chunks[c.Pos()] = c
	return nil
}

func (l *MemoryLevel) Saving() bool { return l.saving }

func (l *MemoryLevel) SetSaving(v bool) { l.saving = v }

// Positions lists every chunk in x, then z order.
func (l *MemoryLevel) Positions() []box.ChunkPos {
	out := make([]box.ChunkPos, 0, len(l.chunks))
	for p := range l.chunks {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b box.ChunkPos) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Z, b.Z)
	})
	return out
}

// FillChunks creates every chunk overlapping b.
func (l *MemoryLevel) FillChunks(b box.BoundingBox) {
	for p := range b.ChunkPositions() {
		l.CreateChunk(p.X, p.Z)
	}
}
