package edit

import (
	"fmt"

	"github.com/InVisionApp/conjungo"
	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/materials"
	"github.com/xmdhs/regioncopy/nbtutil"
)

type FillOptions struct {
	// PreserveData keeps the data value of replaced cells.
	PreserveData bool
	// ClearEntities removes entities standing in the box.
	ClearEntities bool

	Journal Recorder
	Logger  logrus.FieldLogger
}

type filler struct {
	dest    chunk.Level
	box     box.BoundingBox
	target  materials.Block
	replace *blockMask
	teID    string
	opts    FillOptions
	op      *Operation
}

// Fill sets every cell of b to target. When replace is not empty only
// cells holding one of those blocks change. Chunks that do not exist are
// left alone.
func Fill(dest chunk.Level, b box.BoundingBox, target materials.Block, replace []materials.Block, opts FillOptions) (*Operation, error) {
	if dest.Saving() {
		return nil, fmt.Errorf("Fill: %w", ErrLevelSaving)
	}
	b = clampBox(dest, b)
	f := &filler{
		dest:    dest,
		box:     b,
		target:  target,
		replace: newBlockMask(replace),
		teID:    dest.Materials().TileEntityID(target.ID),
		opts:    opts,
		op:      newOperation("fill", opts.Logger),
	}
	f.op.log = f.op.log.WithFields(logrus.Fields{"box": b, "block": target})
	for p := range b.ChunkPositions() {
		f.op.add(func() error { return f.fillChunk(p) })
	}
	return f.op, nil
}

func (f *filler) fillChunk(p box.ChunkPos) error {
	st := f.op.stats
	if !f.dest.ContainsChunk(p.X, p.Z) {
		st.Skipped++
		return nil
	}
	c, err := f.dest.Chunk(p.X, p.Z)
	if err != nil {
		return fmt.Errorf("fillChunk: %w", err)
	}
	slice := f.box.Intersect(c.Box())
	if slice.IsEmpty() {
		st.Skipped++
		return nil
	}

	var cells []box.Vec
	lo, hi := slice.Origin, slice.Maximum()
	for x := lo.X; x < hi.X; x++ {
		for z := lo.Z; z < hi.Z; z++ {
			for y := lo.Y; y < hi.Y; y++ {
				i := c.Index(x-c.X<<4, y, z-c.Z<<4)
				if f.replace.match(c.Blocks[i], c.Data[i]) {
					cells = append(cells, box.Vec{X: x, Y: y, Z: z})
				}
			}
		}
	}
	if len(cells) == 0 {
		f.op.log.WithField("chunk", p).Debug("no matching blocks")
		st.Skipped++
		return nil
	}

	if f.opts.Journal != nil {
		if err := f.opts.Journal.Record(f.dest, c); err != nil {
			return fmt.Errorf("fillChunk: %w", err)
		}
	}

	mat := f.dest.Materials()
	var seen [256]bool
	relight := false
	for _, v := range cells {
		i := c.Index(v.X-c.X<<4, v.Y, v.Z-c.Z<<4)
		old := c.Blocks[i]
		if !seen[old] {
			seen[old] = true
			if !mat.SameLight(old, f.target.ID) {
				relight = true
			}
		}
		c.Blocks[i] = f.target.ID
		if !f.opts.PreserveData {
			c.Data[i] = f.target.Data & 0xF
		}
	}
	st.Blocks += len(cells)
	if relight && !c.NeedsLighting {
		c.NeedsLighting = true
		st.Relit++
	}

	if f.replace == nil {
		c.RemoveTileEntitiesIn(slice)
	} else {
		hit := make(map[box.Vec]bool, len(cells))
		for _, v := range cells {
			hit[v] = true
		}
		c.TileEntities = removeAt(c.TileEntities, nbtutil.BlockPos, func(v box.Vec) bool { return hit[v] })
	}
	if f.teID != "" {
		for _, v := range cells {
			te, err := f.tileEntity(v)
			if err != nil {
				return fmt.Errorf("fillChunk: %w", err)
			}
			c.TileEntities = append(c.TileEntities, te)
			st.TileEntities++
		}
	}
	if f.opts.ClearEntities {
		st.Entities += c.RemoveEntitiesIn(slice)
	}

	c.Changed()
	st.Chunks++
	return nil
}

// tileEntity builds the default tile entity for the fill block at v.
func (f *filler) tileEntity(v box.Vec) (nbtutil.Compound, error) {
	te := nbtutil.CloneCompound(f.dest.Materials().TileEntityTemplate(f.teID))
	pos := map[string]any{
		"id": f.teID,
		"x":  int32(v.X),
		"y":  int32(v.Y),
		"z":  int32(v.Z),
	}
	if err := conjungo.Merge(&te, pos, nil); err != nil {
		return nil, fmt.Errorf("tileEntity %v: %w", f.teID, err)
	}
	return te, nil
}
