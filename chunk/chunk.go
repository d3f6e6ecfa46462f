package chunk

import (
	"errors"
	"slices"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/materials"
	"github.com/xmdhs/regioncopy/nbtutil"
)

// Level is a store of 16xHx16 chunks addressed by chunk coordinate.
type Level interface {
	Height() int
	// Bounds returns the horizontal extent of a finite level. ok is false
	// for levels without horizontal limits.
	Bounds() (b box.BoundingBox, ok bool)
	Materials() *materials.Table
	ContainsChunk(cx, cz int) bool
	Chunk(cx, cz int) (*Chunk, error)
	CreateChunk(cx, cz int) (*Chunk, error)
	// Saving reports whether the level is being written to disk.
	Saving() bool
}

var (
	ErrChunkNotFound      = errors.New("chunk not found")
	ErrInvalidChunk       = errors.New("invalid chunk")
	ErrUnKnownCompression = errors.New("unknown compression")
)

// Chunk is one column of blocks. Blocks, Data and the light arrays hold
// one value per cell in x, z, y order; Biomes is 16x16 in z, x order.
type Chunk struct {
	X, Z int

	Blocks     []uint8
	Data       []uint8
	BlockLight []uint8
	SkyLight   []uint8
	Biomes     []uint8

	Entities     []nbtutil.Compound
	TileEntities []nbtutil.Compound
	TileTicks    []nbtutil.Compound

	// NeedsLighting is set when block changes invalidated stored light.
	NeedsLighting bool

	// Meta is store-specific data carried between load and save.
	Meta any

	height int
	dirty  bool
}

func NewChunk(cx, cz, height int) *Chunk {
	n := 16 * 16 * height
	c := &Chunk{
		X:          cx,
		Z:          cz,
		Blocks:     make([]uint8, n),
		Data:       make([]uint8, n),
		BlockLight: make([]uint8, n),
		SkyLight:   make([]uint8, n),
		height:     height,
	}
	for i := range c.SkyLight {
		c.SkyLight[i] = 15
	}
	return c
}

func (c *Chunk) Height() int { return c.height }

func (c *Chunk) Pos() box.ChunkPos { return box.ChunkPos{X: c.X, Z: c.Z} }

// Index of local cell (x, y, z) in the cell arrays.
func (c *Chunk) Index(x, y, z int) int {
	return (x*16+z)*c.height + y
}

func (c *Chunk) Block(x, y, z int) (id, data uint8) {
	i := c.Index(x, y, z)
	return c.Blocks[i], c.Data[i]
}

func (c *Chunk) SetBlock(x, y, z int, id, data uint8) {
	i := c.Index(x, y, z)
	c.Blocks[i] = id
	c.Data[i] = data & 0xF
}

// Box is the world-space column covered by the chunk.
func (c *Chunk) Box() box.BoundingBox {
	return box.ChunkBox(c.X, c.Z, c.height)
}

// Changed marks the chunk as needing to be written back.
func (c *Chunk) Changed() { c.dirty = true }

func (c *Chunk) Dirty() bool { return c.dirty }

func (c *Chunk) ClearDirty() { c.dirty = false }

// RemoveTileEntitiesIn drops every tile entity positioned inside b.
func (c *Chunk) RemoveTileEntitiesIn(b box.BoundingBox) int {
	return removeIn(&c.TileEntities, b, nbtutil.BlockPos)
}

// RemoveTileTicksIn drops every scheduled tick positioned inside b.
func (c *Chunk) RemoveTileTicksIn(b box.BoundingBox) int {
	return removeIn(&c.TileTicks, b, nbtutil.BlockPos)
}

// RemoveEntitiesIn drops every entity standing inside b.
func (c *Chunk) RemoveEntitiesIn(b box.BoundingBox) int {
	return removeIn(&c.Entities, b, nbtutil.EntityBlock)
}

func removeIn(list *[]nbtutil.Compound, b box.BoundingBox, pos func(nbtutil.Compound) (box.Vec, bool)) int {
	before := len(*list)
	*list = slices.DeleteFunc(*list, func(m nbtutil.Compound) bool {
		p, ok := pos(m)
		return ok && b.Contains(p)
	})
	return before - len(*list)
}

// TileEntityAt returns the tile entity at world position p.
func (c *Chunk) TileEntityAt(p box.Vec) (nbtutil.Compound, bool) {
	for _, te := range c.TileEntities {
		if q, ok := nbtutil.BlockPos(te); ok && q == p {
			return te, true
		}
	}
	return nil, false
}

// Snapshot returns a deep copy of the chunk, dirty state included.
func (c *Chunk) Snapshot() *Chunk {
	n := &Chunk{
		X:             c.X,
		Z:             c.Z,
		Blocks:        slices.Clone(c.Blocks),
		Data:          slices.Clone(c.Data),
		BlockLight:    slices.Clone(c.BlockLight),
		SkyLight:      slices.Clone(c.SkyLight),
		Biomes:        slices.Clone(c.Biomes),
		Entities:      cloneList(c.Entities),
		TileEntities:  cloneList(c.TileEntities),
		TileTicks:     cloneList(c.TileTicks),
		NeedsLighting: c.NeedsLighting,
		Meta:          c.Meta,
		height:        c.height,
		dirty:         c.dirty,
	}
	return n
}

// Restore overwrites c with the contents of s, keeping c's identity.
func (c *Chunk) Restore(s *Chunk) {
	c.Blocks = slices.Clone(s.Blocks)
	c.Data = slices.Clone(s.Data)
	c.BlockLight = slices.Clone(s.BlockLight)
	c.SkyLight = slices.Clone(s.SkyLight)
	c.Biomes = slices.Clone(s.Biomes)
	c.Entities = cloneList(s.Entities)
	c.TileEntities = cloneList(s.TileEntities)
	c.TileTicks = cloneList(s.TileTicks)
	c.NeedsLighting = s.NeedsLighting
	c.height = s.height
}

func cloneList(l []nbtutil.Compound) []nbtutil.Compound {
	if l == nil {
		return nil
	}
	out := make([]nbtutil.Compound, len(l))
	for i, m := range l {
		out[i] = nbtutil.CloneCompound(m)
	}
	return out
}
