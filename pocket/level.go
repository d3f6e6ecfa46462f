// Package pocket reads and writes Pocket Edition worlds in the legacy
// LevelDB layout, where every chunk is a single 128 high terrain record.
package pocket

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/materials"
	"github.com/xmdhs/regioncopy/nbtutil"
)

// Height of a legacy Pocket chunk.
const Height = 128

// Per-chunk record tags, appended to the 8 byte position prefix.
const (
	keyTerrain      = 0x30
	keyTileEntities = 0x31
	keyEntities     = 0x32
	keyTileTicks    = 0x33
	keyVersion      = 0x76
)

const chunkVersion = 2

const (
	cells       = 16 * 16 * Height
	terrainSize = cells + cells/2*3 + 256 + 1024
)

// terrain keeps the parts of the terrain record the Chunk does not model.
type terrain struct {
	heightMap   []byte
	biomeColors []byte
}

// Level is a Pocket world opened from <dir>/db.
type Level struct {
	db        *leveldb.DB
	materials *materials.Table
	log       logrus.FieldLogger

	mu     sync.Mutex
	chunks map[box.ChunkPos]*chunk.Chunk
	saving atomic.Bool
}

// Open opens or creates the LevelDB store under dir/db.
func Open(dir string, mat *materials.Table, log logrus.FieldLogger) (*Level, error) {
	db, err := leveldb.OpenFile(filepath.Join(dir, "db"), &opt.Options{
		Compression: opt.FlateCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("pocket.Open: %w", err)
	}
	return New(db, mat, log), nil
}

// New wraps an already opened database.
func New(db *leveldb.DB, mat *materials.Table, log logrus.FieldLogger) *Level {
	if mat == nil {
		mat = materials.Pocket()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Level{
		db:        db,
		materials: mat,
		log:       log.WithField("level", "pocket"),
		chunks:    map[box.ChunkPos]*chunk.Chunk{},
	}
}

func key(cx, cz int, tag byte) []byte {
	b := make([]byte, 9)
	binary.LittleEndian.PutUint32(b, uint32(int32(cx)))
	binary.LittleEndian.PutUint32(b[4:], uint32(int32(cz)))
	b[8] = tag
	return b
}

func (l *Level) Height() int { return Height }

func (l *Level) Bounds() (box.BoundingBox, bool) { return box.BoundingBox{}, false }

func (l *Level) Materials() *materials.Table { return l.materials }

func (l *Level) Saving() bool { return l.saving.Load() }

func (l *Level) ContainsChunk(cx, cz int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.chunks[box.ChunkPos{X: cx, Z: cz}]; ok {
		return true
	}
	ok, err := l.db.Has(key(cx, cz, keyTerrain), nil)
	return err == nil && ok
}

func (l *Level) Chunk(cx, cz int) (*chunk.Chunk, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := box.ChunkPos{X: cx, Z: cz}
	if c, ok := l.chunks[p]; ok {
		return c, nil
	}
	b, err := l.db.Get(key(cx, cz, keyTerrain), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("Chunk %d,%d: %w", cx, cz, chunk.ErrChunkNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Chunk: %w", err)
	}
	c, err := decodeTerrain(cx, cz, b)
	if err != nil {
		return nil, fmt.Errorf("Chunk: %w", err)
	}
	for _, v := range []struct {
		tag  byte
		list *[]nbtutil.Compound
	}{
		{keyTileEntities, &c.TileEntities},
		{keyEntities, &c.Entities},
		{keyTileTicks, &c.TileTicks},
	} {
		raw, err := l.db.Get(key(cx, cz, v.tag), nil)
		if errors.Is(err, leveldb.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("Chunk: %w", err)
		}
		*v.list, err = DecodeCompounds(raw)
		if err != nil {
			return nil, fmt.Errorf("Chunk: %w", err)
		}
	}
	l.chunks[p] = c
	return c, nil
}

func (l *Level) CreateChunk(cx, cz int) (*chunk.Chunk, error) {
	if l.ContainsChunk(cx, cz) {
		return l.Chunk(cx, cz)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c := chunk.NewChunk(cx, cz, Height)
	c.Biomes = make([]uint8, 256)
	c.NeedsLighting = true
	c.Changed()
	l.chunks[c.Pos()] = c
	return c, nil
}

func decodeTerrain(cx, cz int, b []byte) (*chunk.Chunk, error) {
	if len(b) < cells+cells/2*3 {
		return nil, fmt.Errorf("terrain record of %d bytes: %w", len(b), chunk.ErrInvalidChunk)
	}
	c := chunk.NewChunk(cx, cz, Height)
	copy(c.Blocks, b[:cells])
	off := cells
	for _, dst := range [][]uint8{c.Data, c.SkyLight, c.BlockLight} {
		unpackNibbles(dst, b[off:off+cells/2])
		off += cells / 2
	}
	t := &terrain{}
	if len(b) >= off+256 {
		t.heightMap = bytes.Clone(b[off : off+256])
		off += 256
	}
	c.Biomes = make([]uint8, 256)
	if len(b) >= off+1024 {
		t.biomeColors = bytes.Clone(b[off : off+1024])
		for i := range c.Biomes {
			c.Biomes[i] = b[off+i*4]
		}
	}
	c.Meta = t
	return c, nil
}

func encodeTerrain(c *chunk.Chunk) []byte {
	b := make([]byte, terrainSize)
	copy(b, c.Blocks)
	off := cells
	for _, src := range [][]uint8{c.Data, c.SkyLight, c.BlockLight} {
		packNibbles(b[off:off+cells/2], src)
		off += cells / 2
	}
	t, _ := c.Meta.(*terrain)
	if t != nil && len(t.heightMap) == 256 {
		copy(b[off:], t.heightMap)
	}
	off += 256
	if t != nil && len(t.biomeColors) == 1024 {
		copy(b[off:], t.biomeColors)
	}
	for i := 0; i < 256 && i < len(c.Biomes); i++ {
		b[off+i*4] = c.Biomes[i]
	}
	return b
}

func unpackNibbles(dst []uint8, src []byte) {
	for i := range dst {
		v := src[i>>1]
		if i&1 == 0 {
			dst[i] = v & 0xF
		} else {
			dst[i] = v >> 4
		}
	}
}

func packNibbles(dst []byte, src []uint8) {
	for i := 0; i < len(src); i += 2 {
		dst[i>>1] = src[i]&0xF | src[i+1]<<4
	}
}

// DecodeCompounds reads back to back little endian NBT compounds.
func DecodeCompounds(b []byte) ([]nbtutil.Compound, error) {
	r := bytes.NewReader(b)
	dec := nbt.NewDecoderWithEncoding(r, nbt.LittleEndian)
	var out []nbtutil.Compound
	for r.Len() > 0 {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("DecodeCompounds: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// EncodeCompounds writes each compound as little endian NBT. Values
// decoded from Java worlds are converted on the way out.
func EncodeCompounds(l []nbtutil.Compound) ([]byte, error) {
	var buf bytes.Buffer
	enc := nbt.NewEncoderWithEncoding(&buf, nbt.LittleEndian)
	for _, m := range l {
		if err := enc.Encode(pocketCompound(m)); err != nil {
			return nil, fmt.Errorf("EncodeCompounds: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Save writes every changed chunk in one batch.
func (l *Level) Save() error {
	l.saving.Store(true)
	defer l.saving.Store(false)
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := new(leveldb.Batch)
	var saved []*chunk.Chunk
	for p, c := range l.chunks {
		if !c.Dirty() {
			continue
		}
		batch.Put(key(p.X, p.Z, keyVersion), []byte{chunkVersion})
		batch.Put(key(p.X, p.Z, keyTerrain), encodeTerrain(c))
		for _, v := range []struct {
			tag  byte
			list []nbtutil.Compound
		}{
			{keyTileEntities, c.TileEntities},
			{keyEntities, c.Entities},
			{keyTileTicks, c.TileTicks},
		} {
			k := key(p.X, p.Z, v.tag)
			if len(v.list) == 0 {
				batch.Delete(k)
				continue
			}
			b, err := EncodeCompounds(v.list)
			if err != nil {
				return fmt.Errorf("Save: chunk %v: %w", p, err)
			}
			batch.Put(k, b)
		}
		saved = append(saved, c)
	}
	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	for _, c := range saved {
		c.ClearDirty()
	}
	l.log.WithField("chunks", len(saved)).Info("saved")
	return nil
}

// ChunkPositions lists every chunk with a terrain record.
func (l *Level) ChunkPositions() ([]box.ChunkPos, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := map[box.ChunkPos]bool{}
	var out []box.ChunkPos
	it := l.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		k := it.Key()
		if len(k) != 9 || k[8] != keyTerrain {
			continue
		}
		p := box.ChunkPos{
			X: int(int32(binary.LittleEndian.Uint32(k))),
			Z: int(int32(binary.LittleEndian.Uint32(k[4:]))),
		}
		seen[p] = true
		out = append(out, p)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("ChunkPositions: %w", err)
	}
	for p := range l.chunks {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l *Level) Close() error {
	return l.db.Close()
}
