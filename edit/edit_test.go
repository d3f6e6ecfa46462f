package edit

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/materials"
	"github.com/xmdhs/regioncopy/nbtutil"
)

const (
	air   = 0
	stone = 1
	dirt  = 3
	glass = 20
	wool  = 35
	chest = 54
)

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

// newLevel returns a 16 high memory level holding clean chunks at ps.
func newLevel(t *testing.T, mat *materials.Table, ps ...box.ChunkPos) *chunk.MemoryLevel {
	t.Helper()
	if mat == nil {
		mat = materials.Java()
	}
	l := chunk.NewMemoryLevel(16, mat)
	for _, p := range ps {
		c, err := l.CreateChunk(p.X, p.Z)
		require.NoError(t, err)
		c.ClearDirty()
		c.NeedsLighting = false
	}
	return l
}

func setBlock(t *testing.T, l chunk.Level, v box.Vec, id, data uint8) {
	t.Helper()
	c, err := l.Chunk(box.FloorDiv(v.X, 16), box.FloorDiv(v.Z, 16))
	require.NoError(t, err)
	c.SetBlock(v.X-c.X<<4, v.Y, v.Z-c.Z<<4, id, data)
}

func block(t *testing.T, l chunk.Level, v box.Vec) (uint8, uint8) {
	t.Helper()
	c, err := l.Chunk(box.FloorDiv(v.X, 16), box.FloorDiv(v.Z, 16))
	require.NoError(t, err)
	return c.Block(v.X-c.X<<4, v.Y, v.Z-c.Z<<4)
}

func dirtyChunks(l *chunk.MemoryLevel) []box.ChunkPos {
	var out []box.ChunkPos
	for _, p := range l.Positions() {
		c, _ := l.Chunk(p.X, p.Z)
		if c.Dirty() {
			out = append(out, p)
		}
	}
	return out
}

func TestAdjustCopyParameters(t *testing.T) {
	unbounded := newLevel(t, nil)
	bounded := chunk.NewBoundedMemoryLevel(box.New(box.Vec{}, box.Vec{X: 20, Y: 10, Z: 20}), materials.Java())
	tests := []struct {
		name       string
		dest       chunk.Level
		source     chunk.Level
		src        box.BoundingBox
		origin     box.Vec
		wantSrc    box.BoundingBox
		wantOrigin box.Vec
	}{
		{
			name:       "inside",
			dest:       unbounded,
			src:        box.New(box.Vec{X: 1, Y: 2, Z: 3}, box.Vec{X: 4, Y: 4, Z: 4}),
			origin:     box.Vec{X: 100, Y: 5, Z: -7},
			wantSrc:    box.New(box.Vec{X: 1, Y: 2, Z: 3}, box.Vec{X: 4, Y: 4, Z: 4}),
			wantOrigin: box.Vec{X: 100, Y: 5, Z: -7},
		},
		{
			name:       "dest above top",
			dest:       unbounded,
			src:        box.New(box.Vec{}, box.Vec{X: 2, Y: 8, Z: 2}),
			origin:     box.Vec{Y: 12},
			wantSrc:    box.New(box.Vec{}, box.Vec{X: 2, Y: 4, Z: 2}),
			wantOrigin: box.Vec{Y: 12},
		},
		{
			name:       "dest below zero",
			dest:       unbounded,
			src:        box.New(box.Vec{}, box.Vec{X: 2, Y: 8, Z: 2}),
			origin:     box.Vec{Y: -3},
			wantSrc:    box.New(box.Vec{Y: 3}, box.Vec{X: 2, Y: 5, Z: 2}),
			wantOrigin: box.Vec{},
		},
		{
			name:       "source below zero",
			dest:       unbounded,
			src:        box.New(box.Vec{Y: -2}, box.Vec{X: 1, Y: 4, Z: 1}),
			origin:     box.Vec{Y: 5},
			wantSrc:    box.New(box.Vec{}, box.Vec{X: 1, Y: 2, Z: 1}),
			wantOrigin: box.Vec{Y: 7},
		},
		{
			name:       "finite bounds",
			dest:       bounded,
			src:        box.New(box.Vec{}, box.Vec{X: 10, Y: 10, Z: 10}),
			origin:     box.Vec{X: -4, Y: 0, Z: 15},
			wantSrc:    box.New(box.Vec{X: 4}, box.Vec{X: 6, Y: 10, Z: 5}),
			wantOrigin: box.Vec{X: 0, Y: 0, Z: 15},
		},
		{
			name:       "finite source",
			dest:       unbounded,
			source:     bounded,
			src:        box.New(box.Vec{X: 15}, box.Vec{X: 10, Y: 12, Z: 4}),
			origin:     box.Vec{X: 100, Y: 3},
			wantSrc:    box.New(box.Vec{X: 15}, box.Vec{X: 5, Y: 10, Z: 4}),
			wantOrigin: box.Vec{X: 100, Y: 3},
		},
		{
			name:       "finite source before its origin",
			dest:       unbounded,
			source:     bounded,
			src:        box.New(box.Vec{X: -5}, box.Vec{X: 10, Y: 4, Z: 4}),
			origin:     box.Vec{},
			wantSrc:    box.New(box.Vec{}, box.Vec{X: 5, Y: 4, Z: 4}),
			wantOrigin: box.Vec{X: 5},
		},
		{
			name:       "finite on both sides",
			dest:       bounded,
			source:     bounded,
			src:        box.New(box.Vec{X: 12, Y: 2}, box.Vec{X: 8, Y: 8, Z: 8}),
			origin:     box.Vec{X: 16, Y: 4, Z: 16},
			wantSrc:    box.New(box.Vec{X: 12, Y: 2}, box.Vec{X: 4, Y: 6, Z: 4}),
			wantOrigin: box.Vec{X: 16, Y: 4, Z: 16},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := tt.source
			if source == nil {
				source = unbounded
			}
			src, origin := AdjustCopyParameters(tt.dest, source, tt.src, tt.origin)
			assert.Equal(t, tt.wantSrc, src)
			assert.Equal(t, tt.wantOrigin, origin)

			src2, origin2 := AdjustCopyParameters(tt.dest, source, src, origin)
			assert.Equal(t, src, src2, "not idempotent")
			assert.Equal(t, origin, origin2, "not idempotent")
		})
	}
}

func TestCopyOneBlockAcrossChunks(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	setBlock(t, src, box.Vec{}, wool, 14)
	dst := newLevel(t, nil, box.ChunkPos{}, box.ChunkPos{X: 1})

	op, err := CopyRegion(dst, src, box.FromCorners(box.Vec{}, box.Vec{X: 1, Y: 1, Z: 1}), box.Vec{X: 16}, CopyOptions{Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, 1, op.Total())
	require.NoError(t, op.Complete())

	id, data := block(t, dst, box.Vec{X: 16})
	assert.Equal(t, uint8(wool), id)
	assert.Equal(t, uint8(14), data)
	assert.Equal(t, []box.ChunkPos{{X: 1}}, dirtyChunks(dst))
	assert.Equal(t, 1, op.Stats().Chunks)
	assert.Equal(t, 1, op.Stats().Blocks)
}

func TestCopyEmptyIntersection(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	dst := newLevel(t, nil, box.ChunkPos{})

	op, err := CopyRegion(dst, src, box.New(box.Vec{Y: -10}, box.Vec{X: 4, Y: 5, Z: 4}), box.Vec{}, CopyOptions{Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, 0, op.Total())
	require.NoError(t, op.Complete())
	assert.Empty(t, dirtyChunks(dst))
}

func TestCopyMissingChunks(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	setBlock(t, src, box.Vec{X: 1}, stone, 0)
	b := box.New(box.Vec{}, box.Vec{X: 32, Y: 1, Z: 1})

	dst := newLevel(t, nil)
	op, err := CopyRegion(dst, src, b, box.Vec{Z: 32}, CopyOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())
	assert.Empty(t, dst.Positions())
	assert.Equal(t, 2, op.Stats().Skipped)

	op, err = CopyRegion(dst, src, b, box.Vec{Z: 32}, CopyOptions{CreateMissingChunks: true, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())
	// Only the destination chunk above an existing source chunk is created.
	assert.Equal(t, []box.ChunkPos{{X: 0, Z: 2}}, dst.Positions())
	assert.Equal(t, 1, op.Stats().Created)
	id, _ := block(t, dst, box.Vec{X: 1, Z: 32})
	assert.Equal(t, uint8(stone), id)
}

func TestCopyTileEntitiesAreUnique(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	setBlock(t, src, box.Vec{X: 1, Y: 1, Z: 1}, chest, 2)
	sc, _ := src.Chunk(0, 0)
	sc.TileEntities = []nbtutil.Compound{
		{"id": "Chest", "x": int32(1), "y": int32(1), "z": int32(1), "CustomName": "loot"},
	}

	dst := newLevel(t, nil, box.ChunkPos{X: 1})
	dc, _ := dst.Chunk(1, 0)
	dc.TileEntities = []nbtutil.Compound{
		{"id": "Chest", "x": int32(17), "y": int32(1), "z": int32(1), "CustomName": "old"},
		{"id": "Chest", "x": int32(30), "y": int32(1), "z": int32(1)},
	}

	for i := 0; i < 2; i++ {
		op, err := CopyRegion(dst, src, box.New(box.Vec{}, box.Vec{X: 4, Y: 4, Z: 4}), box.Vec{X: 16}, CopyOptions{Logger: quietLogger()})
		require.NoError(t, err)
		require.NoError(t, op.Complete())
	}

	count := map[box.Vec]int{}
	for _, te := range dc.TileEntities {
		p, ok := nbtutil.BlockPos(te)
		require.True(t, ok)
		count[p]++
	}
	assert.Equal(t, map[box.Vec]int{{X: 17, Y: 1, Z: 1}: 1, {X: 30, Y: 1, Z: 1}: 1}, count)
	te, ok := dc.TileEntityAt(box.Vec{X: 17, Y: 1, Z: 1})
	require.True(t, ok)
	assert.Equal(t, "loot", te["CustomName"])
	// The source is untouched.
	assert.Equal(t, int32(1), sc.TileEntities[0]["x"])
}

func TestCopyEntities(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	sc, _ := src.Chunk(0, 0)
	sc.Entities = []nbtutil.Compound{
		{"id": "Pig", "Pos": []any{1.5, 2.0, 1.5}, "UUIDMost": int64(1), "UUIDLeast": int64(2)},
		{"id": "Cow", "Pos": []any{12.5, 2.0, 1.5}},
	}
	dst := newLevel(t, nil, box.ChunkPos{X: 2})
	dc, _ := dst.Chunk(2, 0)
	dc.Entities = []nbtutil.Compound{{"id": "Sheep", "Pos": []any{33.5, 2.0, 2.5}}}

	op, err := CopyRegion(dst, src, box.New(box.Vec{}, box.Vec{X: 4, Y: 4, Z: 4}), box.Vec{X: 32}, CopyOptions{
		CopyEntities:    true,
		RegenerateUUIDs: true,
		Logger:          quietLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, op.Complete())

	require.Len(t, dc.Entities, 1)
	e := dc.Entities[0]
	assert.Equal(t, "Pig", e["id"])
	pos, ok := nbtutil.EntityPos(e)
	require.True(t, ok)
	assert.Equal(t, [3]float64{33.5, 2, 1.5}, pos)
	assert.NotEqual(t, int64(1), e["UUIDMost"])
	assert.Equal(t, int64(1), sc.Entities[0]["UUIDMost"])
}

func TestCopyLeavesUnsourcedCellsAlone(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	setBlock(t, src, box.Vec{X: 9, Y: 1, Z: 1}, stone, 0)
	sc, _ := src.Chunk(0, 0)
	sc.TileEntities = []nbtutil.Compound{{"id": "Sign", "x": int32(9), "y": int32(1), "z": int32(1)}}

	dst := newLevel(t, nil, box.ChunkPos{X: 2})
	setBlock(t, dst, box.Vec{X: 33, Y: 1, Z: 1}, chest, 2)
	setBlock(t, dst, box.Vec{X: 40, Y: 1, Z: 1}, chest, 2)
	dc, _ := dst.Chunk(2, 0)
	dc.TileEntities = []nbtutil.Compound{
		{"id": "Chest", "x": int32(33), "y": int32(1), "z": int32(1)},
		{"id": "Chest", "x": int32(40), "y": int32(1), "z": int32(1)},
	}
	dc.TileTicks = []nbtutil.Compound{{"i": "minecraft:chest", "x": int32(40), "y": int32(1), "z": int32(1), "t": int32(3)}}
	dc.Entities = []nbtutil.Compound{
		{"id": "Pig", "Pos": []any{40.5, 1.0, 1.5}},
		{"id": "Cow", "Pos": []any{34.5, 1.0, 1.5}},
	}

	// Source x 16..24 lies in chunk (1,0), which does not exist.
	op, err := CopyRegion(dst, src, box.New(box.Vec{X: 8}, box.Vec{X: 16, Y: 4, Z: 4}), box.Vec{X: 32}, CopyOptions{
		CopyEntities:  true,
		CopyTileTicks: true,
		Logger:        quietLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, op.Complete())

	id, _ := block(t, dst, box.Vec{X: 40, Y: 1, Z: 1})
	assert.Equal(t, uint8(chest), id)
	te, ok := dc.TileEntityAt(box.Vec{X: 40, Y: 1, Z: 1})
	require.True(t, ok)
	assert.Equal(t, "Chest", te["id"])
	assert.Len(t, dc.TileTicks, 1)
	require.Len(t, dc.Entities, 1)
	assert.Equal(t, "Pig", dc.Entities[0]["id"])

	id, _ = block(t, dst, box.Vec{X: 33, Y: 1, Z: 1})
	assert.Equal(t, uint8(stone), id)
	te, ok = dc.TileEntityAt(box.Vec{X: 33, Y: 1, Z: 1})
	require.True(t, ok)
	assert.Equal(t, "Sign", te["id"])
	assert.Len(t, dc.TileEntities, 2)
}

func TestCopyTileTicks(t *testing.T) {
	tick := func(x int, name string) nbtutil.Compound {
		return nbtutil.Compound{"i": name, "x": int32(x), "y": int32(1), "z": int32(2), "t": int32(5)}
	}
	tests := []struct {
		name   string
		filter []materials.Block
		want   map[box.Vec]string
	}{
		{
			name: "all",
			want: map[box.Vec]string{
				{X: 18, Y: 1, Z: 2}: "minecraft:stone",
				{X: 19, Y: 1, Z: 2}: "minecraft:dirt",
			},
		},
		{
			name:   "follow the block filter",
			filter: []materials.Block{{ID: stone, AnyData: true}},
			want: map[box.Vec]string{
				{X: 18, Y: 1, Z: 2}: "minecraft:stone",
				{X: 19, Y: 1, Z: 2}: "old",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newLevel(t, nil, box.ChunkPos{})
			setBlock(t, src, box.Vec{X: 2, Y: 1, Z: 2}, stone, 0)
			setBlock(t, src, box.Vec{X: 3, Y: 1, Z: 2}, dirt, 0)
			sc, _ := src.Chunk(0, 0)
			sc.TileTicks = []nbtutil.Compound{tick(2, "minecraft:stone"), tick(3, "minecraft:dirt")}

			dst := newLevel(t, nil, box.ChunkPos{X: 1})
			dc, _ := dst.Chunk(1, 0)
			dc.TileTicks = []nbtutil.Compound{tick(18, "old"), tick(19, "old")}

			for i := 0; i < 2; i++ {
				op, err := CopyRegion(dst, src, box.New(box.Vec{}, box.Vec{X: 4, Y: 4, Z: 4}), box.Vec{X: 16}, CopyOptions{
					BlockFilter:   tt.filter,
					CopyTileTicks: true,
					Logger:        quietLogger(),
				})
				require.NoError(t, err)
				require.NoError(t, op.Complete())
			}

			got := map[box.Vec]string{}
			for _, v := range dc.TileTicks {
				p, ok := nbtutil.BlockPos(v)
				require.True(t, ok)
				_, dup := got[p]
				assert.False(t, dup, "two ticks at %v", p)
				got[p] = v["i"].(string)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, int32(2), sc.TileTicks[0]["x"])
		})
	}
}

func TestCopyRelocatesCommandBlocks(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	sc, _ := src.Chunk(0, 0)
	sc.TileEntities = []nbtutil.Compound{
		{"id": "Control", "x": int32(0), "y": int32(0), "z": int32(0), "Command": "setblock 1 2 3 stone"},
	}
	dst := newLevel(t, nil, box.ChunkPos{})

	op, err := CopyRegion(dst, src, box.New(box.Vec{}, box.Vec{X: 1, Y: 1, Z: 1}), box.Vec{X: 5, Y: 1}, CopyOptions{
		RelocateCommandBlocks: true,
		Logger:                quietLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, op.Complete())
	dc, _ := dst.Chunk(0, 0)
	te, ok := dc.TileEntityAt(box.Vec{X: 5, Y: 1})
	require.True(t, ok)
	assert.Equal(t, "setblock 6 3 3 stone", te["Command"])
}

func TestCopyBlockFilterAndBiomes(t *testing.T) {
	src := newLevel(t, nil, box.ChunkPos{})
	setBlock(t, src, box.Vec{X: 0}, stone, 0)
	setBlock(t, src, box.Vec{X: 1}, dirt, 0)
	sc, _ := src.Chunk(0, 0)
	sc.Biomes = make([]uint8, 256)
	sc.Biomes[1] = 7

	dst := newLevel(t, nil, box.ChunkPos{})
	setBlock(t, dst, box.Vec{X: 8}, glass, 0)
	setBlock(t, dst, box.Vec{X: 9}, glass, 0)
	dc, _ := dst.Chunk(0, 0)
	dc.Biomes = make([]uint8, 256)

	op, err := CopyRegion(dst, src, box.New(box.Vec{}, box.Vec{X: 2, Y: 1, Z: 1}), box.Vec{X: 8}, CopyOptions{
		BlockFilter: []materials.Block{{ID: stone, AnyData: true}},
		CopyBiomes:  true,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, op.Complete())

	id, _ := block(t, dst, box.Vec{X: 8})
	assert.Equal(t, uint8(stone), id)
	id, _ = block(t, dst, box.Vec{X: 9})
	assert.Equal(t, uint8(glass), id, "filtered out")
	assert.Equal(t, uint8(7), dc.Biomes[9])
	assert.True(t, dc.NeedsLighting)
}

func TestCopyConvertsMaterials(t *testing.T) {
	src := newLevel(t, materials.Pocket(), box.ChunkPos{})
	setBlock(t, src, box.Vec{X: 0}, 126, 2)
	setBlock(t, src, box.Vec{X: 1}, 247, 0)
	dst := newLevel(t, nil, box.ChunkPos{})

	op, err := CopyRegion(dst, src, box.New(box.Vec{}, box.Vec{X: 2, Y: 1, Z: 1}), box.Vec{}, CopyOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())

	id, data := block(t, dst, box.Vec{X: 0})
	assert.Equal(t, uint8(157), id)
	assert.Equal(t, uint8(2), data)
	id, _ = block(t, dst, box.Vec{X: 1})
	assert.Equal(t, materials.Java().Placeholder(), id)
	assert.Equal(t, 1, op.Stats().Fallbacks)
}

func TestLevelSaving(t *testing.T) {
	l := newLevel(t, nil, box.ChunkPos{})
	l.SetSaving(true)
	_, err := CopyRegion(l, l, box.New(box.Vec{}, box.Vec{X: 1, Y: 1, Z: 1}), box.Vec{X: 2}, CopyOptions{})
	assert.ErrorIs(t, err, ErrLevelSaving)
	_, err = Fill(l, box.New(box.Vec{}, box.Vec{X: 1, Y: 1, Z: 1}), materials.Block{ID: stone}, nil, FillOptions{})
	assert.ErrorIs(t, err, ErrLevelSaving)
}

func TestNudgeSelfOverlap(t *testing.T) {
	l := newLevel(t, nil, box.ChunkPos{})
	for x, id := range []uint8{stone, dirt, wool} {
		setBlock(t, l, box.Vec{X: x}, id, 0)
	}

	op, err := Nudge(l, box.New(box.Vec{}, box.Vec{X: 3, Y: 1, Z: 1}), box.Vec{X: 1}, CopyOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, Run(context.Background(), op, nil))
	assert.True(t, op.Done())

	var got []uint8
	for x := 0; x < 4; x++ {
		id, _ := block(t, l, box.Vec{X: x})
		got = append(got, id)
	}
	assert.Equal(t, []uint8{air, stone, dirt, wool}, got)
}

func TestNudgeAcrossChunks(t *testing.T) {
	l := newLevel(t, nil, box.ChunkPos{}, box.ChunkPos{X: 1})
	for x := 12; x < 20; x++ {
		setBlock(t, l, box.Vec{X: x, Y: 3}, uint8(x), 0)
	}
	op, err := Nudge(l, box.New(box.Vec{X: 12, Y: 3}, box.Vec{X: 8, Y: 1, Z: 1}), box.Vec{X: 5}, CopyOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())
	for x := 12; x < 25; x++ {
		id, _ := block(t, l, box.Vec{X: x, Y: 3})
		want := uint8(0)
		if x >= 17 {
			want = uint8(x - 5)
		}
		assert.Equal(t, want, id, "x=%d", x)
	}
}

func TestFillReplaceLighting(t *testing.T) {
	tests := []struct {
		name    string
		old     uint8
		replace []materials.Block
		target  uint8
		relight bool
	}{
		{"same class", dirt, []materials.Block{{ID: dirt, AnyData: true}}, stone, false},
		{"transparent to opaque", glass, []materials.Block{{ID: glass, AnyData: true}}, stone, true},
		{"unfiltered same class", dirt, nil, stone, false},
		{"unfiltered mixed", glass, nil, stone, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLevel(t, nil, box.ChunkPos{})
			c, _ := l.Chunk(0, 0)
			b := box.New(box.Vec{}, box.Vec{X: 16, Y: 16, Z: 16})
			for i := range c.Blocks {
				c.Blocks[i] = tt.old
			}
			op, err := Fill(l, b, materials.Block{ID: tt.target, Data: 3}, tt.replace, FillOptions{Logger: quietLogger()})
			require.NoError(t, err)
			require.NoError(t, op.Complete())
			assert.Equal(t, tt.relight, c.NeedsLighting)
			assert.True(t, c.Dirty())
			id, data := c.Block(5, 5, 5)
			assert.Equal(t, tt.target, id)
			assert.Equal(t, uint8(3), data)
		})
	}
}

func TestFillMask(t *testing.T) {
	l := newLevel(t, nil, box.ChunkPos{}, box.ChunkPos{X: 1})
	setBlock(t, l, box.Vec{X: 2}, wool, 5)
	setBlock(t, l, box.Vec{X: 3}, wool, 6)
	setBlock(t, l, box.Vec{X: 4}, wool, 5)

	b := box.New(box.Vec{}, box.Vec{X: 32, Y: 16, Z: 16})
	op, err := Fill(l, b, materials.Block{ID: stone}, []materials.Block{{ID: wool, Data: 5}}, FillOptions{PreserveData: true, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())

	id, data := block(t, l, box.Vec{X: 2})
	assert.Equal(t, uint8(stone), id)
	assert.Equal(t, uint8(5), data, "data preserved")
	id, _ = block(t, l, box.Vec{X: 3})
	assert.Equal(t, uint8(wool), id)
	assert.Equal(t, 2, op.Stats().Blocks)
	assert.Equal(t, []box.ChunkPos{{}}, dirtyChunks(l), "chunk without matches stays clean")
	assert.Equal(t, 1, op.Stats().Skipped)
}

func TestFillTileEntities(t *testing.T) {
	l := newLevel(t, nil, box.ChunkPos{})
	c, _ := l.Chunk(0, 0)
	c.TileEntities = []nbtutil.Compound{
		{"id": "Furnace", "x": int32(1), "y": int32(0), "z": int32(0)},
		{"id": "Furnace", "x": int32(9), "y": int32(0), "z": int32(0)},
	}

	op, err := Fill(l, box.New(box.Vec{}, box.Vec{X: 2, Y: 1, Z: 1}), materials.Block{ID: 137}, nil, FillOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())

	require.Len(t, c.TileEntities, 3)
	_, ok := c.TileEntityAt(box.Vec{X: 9})
	assert.True(t, ok)
	te, ok := c.TileEntityAt(box.Vec{X: 1})
	require.True(t, ok)
	assert.Equal(t, "Control", te["id"])
	assert.Equal(t, "", te["Command"])
	assert.Equal(t, int32(1), te["x"])
	_, ok = c.TileEntityAt(box.Vec{})
	assert.True(t, ok)

	op, err = Fill(l, box.New(box.Vec{}, box.Vec{X: 2, Y: 1, Z: 1}), materials.Block{ID: air}, nil, FillOptions{Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())
	assert.Len(t, c.TileEntities, 1)
}

func TestRunCancelled(t *testing.T) {
	l := newLevel(t, nil, box.ChunkPos{}, box.ChunkPos{X: 1}, box.ChunkPos{X: 2})
	op, err := Fill(l, box.New(box.Vec{}, box.Vec{X: 48, Y: 1, Z: 1}), materials.Block{ID: stone}, nil, FillOptions{Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var steps []Step
	err = Run(ctx, op, func(s Step) {
		steps = append(steps, s)
		cancel()
	})
	require.NoError(t, err)
	assert.False(t, op.Done())
	assert.Equal(t, []Step{{Done: 1, Total: 3}}, steps)
	assert.Equal(t, []box.ChunkPos{{}}, dirtyChunks(l))

	require.NoError(t, Run(context.Background(), op, nil))
	assert.True(t, op.Done())
	assert.Len(t, dirtyChunks(l), 3)
}

type recorder struct {
	seen map[box.ChunkPos]int
}

func (r *recorder) Record(_ chunk.Level, c *chunk.Chunk) error {
	r.seen[c.Pos()]++
	return nil
}

func TestJournalSeesChunksBeforeWrite(t *testing.T) {
	l := newLevel(t, nil, box.ChunkPos{}, box.ChunkPos{X: 1})
	r := &recorder{seen: map[box.ChunkPos]int{}}
	op, err := Fill(l, box.New(box.Vec{}, box.Vec{X: 20, Y: 1, Z: 1}), materials.Block{ID: stone}, nil, FillOptions{Journal: r, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, op.Complete())
	assert.Equal(t, map[box.ChunkPos]int{{}: 1, {X: 1}: 1}, r.seen)
}
