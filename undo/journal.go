// Package undo keeps compressed copies of chunks taken just before an
// edit first writes to them, and puts them back on request.
package undo

import (
	"fmt"
	"sync"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/model"
	"github.com/xmdhs/regioncopy/nbtutil"
)

type entry struct {
	level chunk.Level
	pos   box.ChunkPos
	data  []byte
}

type key struct {
	level chunk.Level
	pos   box.ChunkPos
}

// Journal records each chunk once. The zero value is not usable; call New.
type Journal struct {
	mu      sync.Mutex
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	entries []entry
	seen    map[key]bool
	size    int
	log     logrus.FieldLogger
}

func New(log logrus.FieldLogger) (*Journal, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("undo.New: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("undo.New: %w", err)
	}
	return &Journal{
		enc:  enc,
		dec:  dec,
		seen: map[key]bool{},
		log:  log.WithField("component", "undo"),
	}, nil
}

// Record stores c unless it was already recorded for l.
func (j *Journal) Record(l chunk.Level, c *chunk.Chunk) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	k := key{level: l, pos: c.Pos()}
	if j.seen[k] {
		return nil
	}
	b, err := nbt.Marshal(toSnapshot(c))
	if err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	data := j.enc.EncodeAll(b, nil)
	j.entries = append(j.entries, entry{level: l, pos: c.Pos(), data: data})
	j.seen[k] = true
	j.size += len(data)
	return nil
}

// Len is the number of recorded chunks.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Size is the compressed size of all snapshots in bytes.
func (j *Journal) Size() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Undo restores every recorded chunk, newest first, marks it changed and
// empties the journal.
func (j *Journal) Undo() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if e.level.Saving() {
			return fmt.Errorf("Undo: chunk %v: level is saving", e.pos)
		}
		b, err := j.dec.DecodeAll(e.data, nil)
		if err != nil {
			return fmt.Errorf("Undo: %w", err)
		}
		var s model.Snapshot
		if err := nbt.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("Undo: %w", err)
		}
		c, err := e.level.CreateChunk(e.pos.X, e.pos.Z)
		if err != nil {
			return fmt.Errorf("Undo: %w", err)
		}
		c.Restore(fromSnapshot(&s))
		c.Changed()
		j.entries = j.entries[:i]
		delete(j.seen, key{level: e.level, pos: e.pos})
	}
	j.log.Info("undone")
	j.size = 0
	return nil
}

// Close releases the compressors.
func (j *Journal) Close() {
	j.enc.Close()
	j.dec.Close()
}

func toSnapshot(c *chunk.Chunk) model.Snapshot {
	var light byte
	if c.NeedsLighting {
		light = 1
	}
	return model.Snapshot{
		X:             int32(c.X),
		Z:             int32(c.Z),
		Height:        int32(c.Height()),
		Blocks:        c.Blocks,
		Data:          c.Data,
		BlockLight:    c.BlockLight,
		SkyLight:      c.SkyLight,
		Biomes:        c.Biomes,
		NeedsLighting: light,
		Entities:      nbtutil.JavaCompounds(c.Entities),
		TileEntities:  nbtutil.JavaCompounds(c.TileEntities),
		TileTicks:     nbtutil.JavaCompounds(c.TileTicks),
	}
}

func fromSnapshot(s *model.Snapshot) *chunk.Chunk {
	c := chunk.NewChunk(int(s.X), int(s.Z), int(s.Height))
	copy(c.Blocks, s.Blocks)
	copy(c.Data, s.Data)
	copy(c.BlockLight, s.BlockLight)
	copy(c.SkyLight, s.SkyLight)
	if len(s.Biomes) == 256 {
		c.Biomes = s.Biomes
	}
	c.NeedsLighting = s.NeedsLighting != 0
	c.Entities = s.Entities
	c.TileEntities = s.TileEntities
	c.TileTicks = s.TileTicks
	return c
}
