package edit

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/materials"
	"github.com/xmdhs/regioncopy/nbtutil"
)

type CopyOptions struct {
	// BlockFilter limits the copy to source cells holding one of these
	// blocks. Empty copies every cell.
	BlockFilter []materials.Block
	// CopyEntities moves entities standing in the box along with the
	// blocks and clears those already at the destination.
	CopyEntities bool
	// CreateMissingChunks creates destination chunks that do not exist
	// yet, but only under source chunks that do.
	CreateMissingChunks bool
	CopyBiomes          bool
	CopyTileTicks       bool
	// RelocateCommandBlocks shifts coordinates in command block text by
	// the copy offset.
	RelocateCommandBlocks bool
	// RelocateSpawners shifts the positions stored in spawner payloads.
	RelocateSpawners bool
	// RegenerateUUIDs gives every copied entity a fresh identity.
	RegenerateUUIDs bool

	Journal Recorder
	Logger  logrus.FieldLogger
}

type blockMask [256][16]bool

func newBlockMask(blocks []materials.Block) *blockMask {
	if len(blocks) == 0 {
		return nil
	}
	m := &blockMask{}
	for _, b := range blocks {
		if b.AnyData {
			for d := range m[b.ID] {
				m[b.ID][d] = true
			}
			continue
		}
		m[b.ID][b.Data&0xF] = true
	}
	return m
}

func (m *blockMask) match(id, data uint8) bool {
	return m == nil || m[id][data&0xF]
}

type copier struct {
	dest, source chunk.Level
	srcBox       box.BoundingBox
	dstBox       box.BoundingBox
	delta        box.Vec
	opts         CopyOptions
	mask         *blockMask
	conv         *materials.Converter
	op           *Operation
}

// CopyRegion copies sourceBox of source so that its origin lands on
// destOrigin in dest. The returned operation does one destination chunk
// per step.
func CopyRegion(dest, source chunk.Level, sourceBox box.BoundingBox, destOrigin box.Vec, opts CopyOptions) (*Operation, error) {
	if dest.Saving() {
		return nil, fmt.Errorf("CopyRegion: %w", ErrLevelSaving)
	}
	srcBox, dstOrigin := AdjustCopyParameters(dest, source, sourceBox, destOrigin)
	cp := &copier{
		dest:   dest,
		source: source,
		srcBox: srcBox,
		dstBox: box.New(dstOrigin, srcBox.Size),
		delta:  dstOrigin.Sub(srcBox.Origin),
		opts:   opts,
		mask:   newBlockMask(opts.BlockFilter),
		conv:   materials.NewConverter(source.Materials(), dest.Materials()),
		op:     newOperation("copy", opts.Logger),
	}
	cp.op.log = cp.op.log.WithFields(logrus.Fields{"source": srcBox, "dest": dstOrigin})
	if srcBox.IsEmpty() {
		cp.op.log.Debug("nothing to copy")
		return cp.op, nil
	}

	if dest == source && !srcBox.Intersect(cp.dstBox).IsEmpty() {
		snap, err := snapshot(source, srcBox)
		if err != nil {
			return nil, fmt.Errorf("CopyRegion: %w", err)
		}
		cp.source = snap
	}

	for p := range cp.dstBox.ChunkPositions() {
		cp.op.add(func() error { return cp.copyChunk(p) })
	}
	return cp.op, nil
}

// snapshot copies every chunk of l under b into a scratch level so an
// overlapping copy reads the original cells.
func snapshot(l chunk.Level, b box.BoundingBox) (*chunk.MemoryLevel, error) {
	m := chunk.NewMemoryLevel(l.Height(), l.Materials())
	for p := range b.ChunkPositions() {
		if !l.ContainsChunk(p.X, p.Z) {
			continue
		}
		c, err := l.Chunk(p.X, p.Z)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		if err := m.AddChunk(c.Snapshot()); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	}
	return m, nil
}

func (cp *copier) copyChunk(p box.ChunkPos) error {
	st := cp.op.stats
	log := cp.op.log.WithField("chunk", p)

	dstSlice := cp.dstBox.Intersect(box.ChunkBox(p.X, p.Z, cp.dest.Height()))
	srcSlice := dstSlice.Offset(box.Vec{}.Sub(cp.delta))
	if dstSlice.IsEmpty() {
		st.Skipped++
		return nil
	}

	var sources []*chunk.Chunk
	for sp := range srcSlice.ChunkPositions() {
		if !cp.source.ContainsChunk(sp.X, sp.Z) {
			continue
		}
		sc, err := cp.source.Chunk(sp.X, sp.Z)
		if err != nil {
			return fmt.Errorf("copyChunk: %w", err)
		}
		sources = append(sources, sc)
	}
	if len(sources) == 0 {
		log.Debug("no source chunks")
		st.Skipped++
		return nil
	}

	if !cp.dest.ContainsChunk(p.X, p.Z) {
		if !cp.opts.CreateMissingChunks {
			log.Debug("destination chunk missing")
			st.Skipped++
			return nil
		}
		st.Created++
	}
	dc, err := cp.dest.CreateChunk(p.X, p.Z)
	if err != nil {
		return fmt.Errorf("copyChunk: %w", err)
	}
	if cp.opts.Journal != nil {
		if err := cp.opts.Journal.Record(cp.dest, dc); err != nil {
			return fmt.Errorf("copyChunk: %w", err)
		}
	}

	// pieces are the overlaps with source chunks that exist; footprint is
	// the same cells in destination space. Nothing outside it is touched.
	var pieces []piece
	var footprint []box.BoundingBox
	for _, sc := range sources {
		part := srcSlice.Intersect(sc.Box())
		if part.IsEmpty() {
			continue
		}
		pieces = append(pieces, piece{sc: sc, part: part})
		footprint = append(footprint, part.Offset(cp.delta))
	}

	var written map[box.Vec]bool
	if cp.mask != nil {
		written = map[box.Vec]bool{}
	}
	for _, pc := range pieces {
		cp.copyBlocks(dc, pc.sc, pc.part, written)
	}

	inDest := func(v box.Vec) bool {
		if written != nil {
			return written[v]
		}
		for _, b := range footprint {
			if b.Contains(v) {
				return true
			}
		}
		return false
	}

	if cp.opts.CopyEntities {
		for _, b := range footprint {
			dc.RemoveEntitiesIn(b)
		}
		for _, pc := range pieces {
			cp.copyEntities(dc, pc.sc, pc.part)
		}
	}
	dc.TileEntities = removeAt(dc.TileEntities, nbtutil.BlockPos, inDest)
	for _, pc := range pieces {
		cp.copyTileEntities(dc, pc.sc, pc.part, inDest)
	}
	if cp.opts.CopyTileTicks {
		dc.TileTicks = removeAt(dc.TileTicks, nbtutil.BlockPos, inDest)
		for _, pc := range pieces {
			cp.copyTileTicks(dc, pc.sc, pc.part, inDest)
		}
	}
	if cp.opts.CopyBiomes && len(dc.Biomes) == 256 {
		for _, pc := range pieces {
			if len(pc.sc.Biomes) == 256 {
				copyBiomes(dc, pc.sc, pc.part, cp.delta)
			}
		}
	}

	dc.Changed()
	st.Chunks++
	return nil
}

type piece struct {
	sc   *chunk.Chunk
	part box.BoundingBox
}

func (cp *copier) copyBlocks(dc, sc *chunk.Chunk, part box.BoundingBox, written map[box.Vec]bool) {
	st := cp.op.stats
	mat := cp.dest.Materials()
	lo, hi := part.Origin, part.Maximum()
	for x := lo.X; x < hi.X; x++ {
		for z := lo.Z; z < hi.Z; z++ {
			for y := lo.Y; y < hi.Y; y++ {
				si := sc.Index(x-sc.X<<4, y, z-sc.Z<<4)
				id, data := sc.Blocks[si], sc.Data[si]
				if !cp.mask.match(id, data) {
					continue
				}
				id, data, ok := cp.conv.ConvertBlock(id, data)
				if !ok {
					st.Fallbacks++
				}
				to := box.Vec{X: x, Y: y, Z: z}.Add(cp.delta)
				di := dc.Index(to.X-dc.X<<4, to.Y, to.Z-dc.Z<<4)
				if !dc.NeedsLighting && !mat.SameLight(dc.Blocks[di], id) {
					dc.NeedsLighting = true
					st.Relit++
				}
				dc.Blocks[di] = id
				dc.Data[di] = data
				if written != nil {
					written[to] = true
				}
				st.Blocks++
			}
		}
	}
}

func (cp *copier) copyEntities(dc, sc *chunk.Chunk, part box.BoundingBox) {
	st := cp.op.stats
	for _, e := range sc.Entities {
		pos, ok := nbtutil.EntityBlock(e)
		if !ok || !part.Contains(pos) {
			continue
		}
		n := nbtutil.CloneCompound(e)
		nbtutil.OffsetEntity(n, cp.delta)
		if cp.opts.RegenerateUUIDs {
			nbtutil.RegenerateUUID(n)
		}
		dc.Entities = append(dc.Entities, n)
		st.Entities++
	}
}

func (cp *copier) copyTileEntities(dc, sc *chunk.Chunk, part box.BoundingBox, inDest func(box.Vec) bool) {
	st := cp.op.stats
	for _, te := range sc.TileEntities {
		pos, ok := nbtutil.BlockPos(te)
		if !ok || !part.Contains(pos) || !inDest(pos.Add(cp.delta)) {
			continue
		}
		n := nbtutil.CloneCompound(te)
		nbtutil.OffsetBlockPos(n, cp.delta)
		id := nbtutil.ID(n)
		if cp.opts.RelocateCommandBlocks && nbtutil.IsCommandBlock(id) {
			nbtutil.RelocateCommandBlock(n, cp.delta)
		}
		if cp.opts.RelocateSpawners && nbtutil.IsMobSpawner(id) {
			nbtutil.RelocateSpawner(n, cp.delta)
		}
		dc.TileEntities = append(dc.TileEntities, n)
		st.TileEntities++
	}
}

func (cp *copier) copyTileTicks(dc, sc *chunk.Chunk, part box.BoundingBox, inDest func(box.Vec) bool) {
	st := cp.op.stats
	for _, tt := range sc.TileTicks {
		pos, ok := nbtutil.BlockPos(tt)
		if !ok || !part.Contains(pos) || !inDest(pos.Add(cp.delta)) {
			continue
		}
		n := nbtutil.CloneCompound(tt)
		nbtutil.OffsetBlockPos(n, cp.delta)
		dc.TileTicks = append(dc.TileTicks, n)
		st.TileTicks++
	}
}

func copyBiomes(dc, sc *chunk.Chunk, part box.BoundingBox, delta box.Vec) {
	lo, hi := part.Origin, part.Maximum()
	for x := lo.X; x < hi.X; x++ {
		for z := lo.Z; z < hi.Z; z++ {
			tx, tz := x+delta.X, z+delta.Z
			dc.Biomes[(tz-dc.Z<<4)*16+tx-dc.X<<4] = sc.Biomes[(z-sc.Z<<4)*16+x-sc.X<<4]
		}
	}
}

func removeAt(list []nbtutil.Compound, pos func(nbtutil.Compound) (box.Vec, bool), drop func(box.Vec) bool) []nbtutil.Compound {
	out := list[:0]
	for _, m := range list {
		if p, ok := pos(m); ok && drop(p) {
			continue
		}
		out = append(out, m)
	}
	return out
}
