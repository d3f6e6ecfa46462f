package rotation

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmdhs/regioncopy/materials"
)

func javaTables(t *testing.T) *Tables {
	t.Helper()
	tb, err := Build(materials.Java(), DefaultFamilies())
	require.NoError(t, err)
	return tb
}

func blockID(t *testing.T, name string) uint8 {
	t.Helper()
	id, ok := materials.Java().ID(name)
	require.True(t, ok, name)
	return id
}

func TestRoundTrip(t *testing.T) {
	tb := javaTables(t)
	tests := []struct {
		op    Op
		times int
	}{
		{RotateLeft, 4},
		{Roll, 4},
		{FlipVertical, 2},
		{FlipEastWest, 2},
		{FlipNorthSouth, 2},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			tab := tb.Table(tt.op)
			inv := tb.Inverse(tt.op)
			for id := 0; id < 256; id++ {
				for d := 0; d < 16; d++ {
					v := uint8(d)
					for i := 0; i < tt.times; i++ {
						v = tab[id][v]
					}
					if v != uint8(d) {
						t.Fatalf("block %d data %d: %v x%d = %d", id, d, tt.op, tt.times, v)
					}
					if back := inv[id][tab[id][d]]; back != uint8(d) {
						t.Fatalf("block %d data %d: inverse gave %d", id, d, back)
					}
					if tab[id][d] > 15 {
						t.Fatalf("block %d data %d out of range", id, d)
					}
				}
			}
		})
	}
}

func TestStairs(t *testing.T) {
	tb := javaTables(t)
	id := blockID(t, "oak_stairs")

	// east, north, west, south
	assert.Equal(t, uint8(stairNorth), tb.Data(RotateLeft, id, stairEast))
	assert.Equal(t, uint8(stairWest), tb.Data(RotateLeft, id, stairNorth))
	assert.Equal(t, uint8(stairSouth|stairUpper), tb.Data(RotateLeft, id, stairWest|stairUpper))

	roll := []uint8{stairNorth, stairSouth, stairSouth | stairUpper, stairNorth | stairUpper}
	for i, d := range roll {
		assert.Equal(t, roll[(i+1)%4], tb.Data(Roll, id, d))
	}
	assert.Equal(t, uint8(stairEast), tb.Data(Roll, id, stairEast))
	assert.Equal(t, uint8(stairEast|stairUpper), tb.Data(FlipVertical, id, stairEast))
	assert.Equal(t, uint8(stairWest), tb.Data(FlipEastWest, id, stairEast))
}

func TestRails(t *testing.T) {
	tb := javaTables(t)
	rail := blockID(t, "rail")
	golden := blockID(t, "golden_rail")
	tests := []struct {
		name  string
		op    Op
		block uint8
		in    uint8
		want  uint8
	}{
		{"straight", RotateLeft, rail, 0, 1},
		{"ascending", RotateLeft, rail, 4, 3},
		{"curve", RotateLeft, rail, 6, 9},
		{"flip curve", FlipEastWest, rail, 9, 8},
		{"flip ns curve", FlipNorthSouth, rail, 7, 8},
		{"powered keeps bit", RotateLeft, golden, 8 | 2, 8 | 4},
		{"powered no curves", RotateLeft, golden, 6, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tb.Data(tt.op, tt.block, tt.in))
		})
	}
}

func TestDirectional(t *testing.T) {
	tb := javaTables(t)
	torch := blockID(t, "torch")
	piston := blockID(t, "piston")
	trapdoor := blockID(t, "trapdoor")
	vine := blockID(t, "vine")
	log := blockID(t, "log")
	door := blockID(t, "wooden_door")

	assert.Equal(t, uint8(2), tb.Data(RotateLeft, torch, 4), "north torch turns west")
	assert.Equal(t, uint8(5), tb.Data(RotateLeft, torch, 5), "standing torch")
	assert.Equal(t, uint8(4), tb.Data(Roll, torch, 4), "torches cannot roll")

	assert.Equal(t, uint8(8|2), tb.Data(Roll, piston, 8|1), "extended piston up rolls north")
	assert.Equal(t, uint8(0), tb.Data(FlipVertical, piston, 1))

	assert.Equal(t, uint8(8|1), tb.Data(FlipVertical, trapdoor, 1))

	assert.Equal(t, uint8(2|1), tb.Data(RotateLeft, vine, 4|2), "north and west vines turn west and south")

	assert.Equal(t, uint8(8|1), tb.Data(RotateLeft, log, 4|1), "spruce x log")
	assert.Equal(t, uint8(12), tb.Data(Roll, log, 12), "bark")

	assert.Equal(t, uint8(4|3), tb.Data(RotateLeft, door, 4|0), "open east door")
	assert.Equal(t, uint8(8|1), tb.Data(FlipEastWest, door, 8), "upper half hinge")
	assert.Equal(t, uint8(8), tb.Data(RotateLeft, door, 8))
}

func TestApply(t *testing.T) {
	tb := javaTables(t)
	blocks := []uint8{0, blockID(t, "torch"), blockID(t, "stone")}
	data := []uint8{3, 1, 5}
	got := tb.Apply(RotateLeft, blocks, data)
	assert.Equal(t, []uint8{3, 4, 5}, got)
	assert.Equal(t, []uint8{3, 1, 5}, data)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(materials.Java(), []Family{{Name: "bad", Kind: Slab, Blocks: []string{"no_such_block"}}})
	var ub ErrUnknownBlock
	require.True(t, errors.As(err, &ub))
	assert.Equal(t, "no_such_block", ub.Block)

	_, err = Build(materials.Java(), []Family{{
		Name:   "merge",
		Kind:   Permutation,
		Blocks: []string{"stone"},
		Mask:   0xF,
		Perms:  map[Op]map[uint8]uint8{RotateLeft: {0: 1}},
	}})
	var nb ErrNotBijective
	require.True(t, errors.As(err, &nb))
	assert.Equal(t, RotateLeft, nb.Op)
}

func TestDefaultPocket(t *testing.T) {
	tb, err := Default(materials.Pocket(), nil)
	require.NoError(t, err)
	id, ok := materials.Pocket().ID("torch")
	require.True(t, ok)
	assert.Equal(t, uint8(2), tb.Data(RotateLeft, id, 4))
}

func TestDefaultLogsSkippedBlocks(t *testing.T) {
	mat, err := materials.Parse([]byte("name: no-redstone-torch\ninherit: java\nremove: [76]\n"))
	require.NoError(t, err)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	tb, err := Default(mat, log)
	require.NoError(t, err)
	id, ok := mat.ID("torch")
	require.True(t, ok)
	assert.Equal(t, uint8(2), tb.Data(RotateLeft, id, 4))

	var missing []string
	for _, e := range hook.AllEntries() {
		if e.Data["family"] == "torch" {
			assert.Equal(t, logrus.DebugLevel, e.Level)
			missing = e.Data["missing"].([]string)
		}
	}
	assert.Equal(t, []string{"redstone_torch"}, missing)
}

func TestParseOp(t *testing.T) {
	for _, op := range Ops {
		got, err := ParseOp(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	_, err := ParseOp("spin")
	assert.Error(t, err)
}
