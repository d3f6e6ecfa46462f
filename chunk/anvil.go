package chunk

import (
	"fmt"

	"github.com/Tnze/go-mc/nbt"

	"github.com/xmdhs/regioncopy/model"
	"github.com/xmdhs/regioncopy/nbtutil"
)

// AnvilHeight is the build height of pre-flattening Java worlds.
const AnvilHeight = 256

// anvilDataVersion is written for chunks created from scratch (1.12.2).
const anvilDataVersion = 1343

func nibble(b []byte, i int) uint8 {
	if i>>1 >= len(b) {
		return 0
	}
	if i&1 == 0 {
		return b[i>>1] & 0xF
	}
	return b[i>>1] >> 4
}

func setNibble(b []byte, i int, v uint8) {
	if i&1 == 0 {
		b[i>>1] = b[i>>1]&0xF0 | v&0xF
	} else {
		b[i>>1] = b[i>>1]&0x0F | v<<4
	}
}

// DecodeAnvil parses the uncompressed NBT of a region chunk.
func DecodeAnvil(data []byte) (*Chunk, error) {
	var ac model.AnvilChunk
	if err := nbt.Unmarshal(data, &ac); err != nil {
		return nil, fmt.Errorf("DecodeAnvil: %w", err)
	}
	lv := ac.Level
	c := NewChunk(int(lv.XPos), int(lv.ZPos), AnvilHeight)
	var adds model.AnvilSections
	for _, s := range lv.Sections {
		base := int(int8(s.Y)) * 16
		if base < 0 || base >= AnvilHeight {
			continue
		}
		if len(s.Blocks) != 4096 {
			return nil, fmt.Errorf("DecodeAnvil: section %d has %d blocks: %w", s.Y, len(s.Blocks), ErrInvalidChunk)
		}
		for i := 0; i < 4096; i++ {
			x, z, y := i&15, (i>>4)&15, i>>8
			idx := c.Index(x, base+y, z)
			c.Blocks[idx] = s.Blocks[i]
			c.Data[idx] = nibble(s.Data, i)
			c.BlockLight[idx] = nibble(s.BlockLight, i)
			c.SkyLight[idx] = nibble(s.SkyLight, i)
			if len(s.SkyLight) == 0 {
				c.SkyLight[idx] = 15
			}
		}
		if len(s.Add) == 2048 {
			adds = append(adds, model.AnvilSection{Y: s.Y, Blocks: s.Blocks, Add: s.Add})
		}
	}
	if len(lv.Biomes) == 256 {
		c.Biomes = lv.Biomes
	}
	c.Entities = compounds(lv.Entities)
	c.TileEntities = compounds(lv.TileEntities)
	c.TileTicks = compounds(lv.TileTicks)

	// Sections with Add nibbles stay in Meta with their original ids.
	lv.Sections = adds
	lv.Entities, lv.TileEntities, lv.TileTicks, lv.Biomes = nil, nil, nil, nil
	c.Meta = &model.AnvilChunk{DataVersion: ac.DataVersion, Level: lv}
	c.NeedsLighting = lv.LightPopulated == 0
	return c, nil
}

func compounds(l []map[string]any) []nbtutil.Compound {
	out := make([]nbtutil.Compound, 0, len(l))
	for _, m := range l {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// EncodeAnvil produces the uncompressed NBT for a region chunk. Sections
// that hold only air are omitted.
func EncodeAnvil(c *Chunk) ([]byte, error) {
	if c.Height() != AnvilHeight {
		return nil, fmt.Errorf("EncodeAnvil: height %d: %w", c.Height(), ErrInvalidChunk)
	}
	ac := model.AnvilChunk{DataVersion: anvilDataVersion}
	if m, ok := c.Meta.(*model.AnvilChunk); ok {
		ac = *m
	}
	lv := ac.Level
	adds := lv.Sections
	lv.Sections = nil
	if lv.V == 0 {
		lv.V = 1
	}
	lv.XPos, lv.ZPos = int32(c.X), int32(c.Z)
	lv.TerrainPopulated = 1
	lv.LightPopulated = 1
	if c.NeedsLighting {
		lv.LightPopulated = 0
	}
	if len(lv.HeightMap) != 256 {
		lv.HeightMap = make([]int32, 256)
	}
	for sy := 0; sy < AnvilHeight/16; sy++ {
		s := model.AnvilSection{
			Y:          byte(sy),
			Blocks:     make([]byte, 4096),
			Data:       make([]byte, 2048),
			BlockLight: make([]byte, 2048),
			SkyLight:   make([]byte, 2048),
		}
		var used bool
		for i := 0; i < 4096; i++ {
			x, z, y := i&15, (i>>4)&15, i>>8
			idx := c.Index(x, sy*16+y, z)
			s.Blocks[i] = c.Blocks[idx]
			if c.Blocks[idx] != 0 {
				used = true
			}
			setNibble(s.Data, i, c.Data[idx])
			setNibble(s.BlockLight, i, c.BlockLight[idx])
			setNibble(s.SkyLight, i, c.SkyLight[idx])
		}
		if s.Add = keepAdd(adds, byte(sy), s.Blocks); s.Add != nil {
			used = true
		}
		if used {
			lv.Sections = append(lv.Sections, s)
		}
	}
	lv.Biomes = c.Biomes
	if len(lv.Biomes) != 256 {
		lv.Biomes = unknownBiomes()
	}
	lv.Entities = nbtutil.JavaCompounds(c.Entities)
	lv.TileEntities = nbtutil.JavaCompounds(c.TileEntities)
	lv.TileTicks = nbtutil.JavaCompounds(c.TileTicks)
	ac.Level = lv

	b, err := nbt.Marshal(ac)
	if err != nil {
		return nil, fmt.Errorf("EncodeAnvil: %w", err)
	}
	return b, nil
}

// unknownBiomes is a biome array the game fills in on load.
func unknownBiomes() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}

// keepAdd returns the Add nibbles loaded for section sy, limited to cells
// whose low id byte is unchanged. Nil when nothing is left.
func keepAdd(adds model.AnvilSections, sy byte, blocks []byte) []byte {
	for _, a := range adds {
		if a.Y != sy {
			continue
		}
		var out []byte
		for i := 0; i < 4096; i++ {
			n := nibble(a.Add, i)
			if n == 0 || blocks[i] != a.Blocks[i] {
				continue
			}
			if out == nil {
				out = make([]byte, 2048)
			}
			setNibble(out, i, n)
		}
		return out
	}
	return nil
}

// extendedIDs reports whether c was loaded with block ids above 255.
func extendedIDs(c *Chunk) bool {
	m, ok := c.Meta.(*model.AnvilChunk)
	return ok && len(m.Level.Sections) > 0
}
