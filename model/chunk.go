package model

import (
	"encoding/binary"
	"io"

	"github.com/Tnze/go-mc/nbt"
)

// AnvilChunk is the root compound of a pre-flattening (1.2 - 1.12) region
// chunk.
type AnvilChunk struct {
	DataVersion int32      `nbt:"DataVersion"`
	Level       AnvilLevel `nbt:"Level"`
}

type AnvilLevel struct {
	V                byte             `nbt:"V"`
	XPos             int32            `nbt:"xPos"`
	ZPos             int32            `nbt:"zPos"`
	LastUpdate       int64            `nbt:"LastUpdate"`
	InhabitedTime    int64            `nbt:"InhabitedTime"`
	LightPopulated   byte             `nbt:"LightPopulated"`
	TerrainPopulated byte             `nbt:"TerrainPopulated"`
	Biomes           []byte           `nbt:"Biomes"`
	HeightMap        []int32          `nbt:"HeightMap"`
	Sections         AnvilSections    `nbt:"Sections"`
	Entities         []map[string]any `nbt:"Entities"`
	TileEntities     []map[string]any `nbt:"TileEntities"`
	TileTicks        []map[string]any `nbt:"TileTicks"`
}

// AnvilSection is a 16x16x16 slab. Blocks is in y, z, x order; the other
// arrays pack two cells per byte, low nibble first. Add holds the high four
// bits of block ids above 255 and is only written when present.
type AnvilSection struct {
	Y          byte   `nbt:"Y"`
	Blocks     []byte `nbt:"Blocks"`
	Add        []byte `nbt:"Add"`
	Data       []byte `nbt:"Data"`
	BlockLight []byte `nbt:"BlockLight"`
	SkyLight   []byte `nbt:"SkyLight"`
}

// AnvilSections writes each section by hand so Add can be left out.
type AnvilSections []AnvilSection

func (l AnvilSections) TagType() byte { return nbt.TagList }

func (l AnvilSections) MarshalNBT(w io.Writer) error {
	var head [5]byte
	head[0] = nbt.TagCompound
	binary.BigEndian.PutUint32(head[1:], uint32(len(l)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	enc := nbt.NewEncoder(w)
	for _, s := range l {
		fields := []any{s.Y, s.Blocks, s.Data, s.BlockLight, s.SkyLight}
		names := []string{"Y", "Blocks", "Data", "BlockLight", "SkyLight"}
		if len(s.Add) > 0 {
			fields = append(fields, s.Add)
			names = append(names, "Add")
		}
		for i, v := range fields {
			if err := enc.Encode(v, names[i]); err != nil {
				return err
			}
		}
		if _, err := w.Write([]byte{nbt.TagEnd}); err != nil {
			return err
		}
	}
	return nil
}

// Schematic is the root compound of an MCEdit .schematic clipboard.
// Blocks and Data are in y, z, x order, one byte per cell.
type Schematic struct {
	Width        int16            `nbt:"Width"`
	Height       int16            `nbt:"Height"`
	Length       int16            `nbt:"Length"`
	Materials    string           `nbt:"Materials"`
	Blocks       []byte           `nbt:"Blocks"`
	Data         []byte           `nbt:"Data"`
	Biomes       []byte           `nbt:"Biomes"`
	Entities     []map[string]any `nbt:"Entities"`
	TileEntities []map[string]any `nbt:"TileEntities"`
	TileTicks    []map[string]any `nbt:"TileTicks"`
}

// Snapshot is the undo journal's record of one chunk.
type Snapshot struct {
	X             int32            `nbt:"X"`
	Z             int32            `nbt:"Z"`
	Height        int32            `nbt:"Height"`
	Blocks        []byte           `nbt:"Blocks"`
	Data          []byte           `nbt:"Data"`
	BlockLight    []byte           `nbt:"BlockLight"`
	SkyLight      []byte           `nbt:"SkyLight"`
	Biomes        []byte           `nbt:"Biomes"`
	NeedsLighting byte             `nbt:"NeedsLighting"`
	Entities      []map[string]any `nbt:"Entities"`
	TileEntities  []map[string]any `nbt:"TileEntities"`
	TileTicks     []map[string]any `nbt:"TileTicks"`
}
