package chunk

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Tnze/go-mc/save/region"
	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/materials"
)

// RegionLevel is a Java world stored as .mca region files under
// <dir>/region. Chunks are loaded lazily and kept until Close.
type RegionLevel struct {
	dir       string
	materials *materials.Table
	log       logrus.FieldLogger

	mu      sync.Mutex
	regions map[box.ChunkPos]*region.Region
	chunks  map[box.ChunkPos]*Chunk
	saving  atomic.Bool
}

// OpenRegionLevel opens the world directory dir. The region directory is
// created when missing.
func OpenRegionLevel(dir string, mat *materials.Table, log logrus.FieldLogger) (*RegionLevel, error) {
	if mat == nil {
		mat = materials.Java()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Join(dir, "region"), 0o755); err != nil {
		return nil, fmt.Errorf("OpenRegionLevel: %w", err)
	}
	return &RegionLevel{
		dir:       dir,
		materials: mat,
		log:       log.WithField("level", dir),
		regions:   map[box.ChunkPos]*region.Region{},
		chunks:    map[box.ChunkPos]*Chunk{},
	}, nil
}

// BlockPos2Mca names the region file holding block column (x, z).
func BlockPos2Mca(x, z int) string {
	x = int(math.Floor(float64(x) / 512.0))
	z = int(math.Floor(float64(z) / 512.0))
	return fmt.Sprintf("r.%v.%v.mca", x, z)
}

// RegionFileName names the region file holding chunk (cx, cz).
func RegionFileName(cx, cz int) string {
	return BlockPos2Mca(cx<<4, cz<<4)
}

var mcaName = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

type ErrNotExistSector struct {
	X        int
	Z        int
	FilePath string
}

func (e ErrNotExistSector) Error() string {
	return fmt.Sprintf("no chunk %v %v in %v", e.X, e.Z, e.FilePath)
}

func (e ErrNotExistSector) Unwrap() error { return ErrChunkNotFound }

func (l *RegionLevel) Height() int { return AnvilHeight }

func (l *RegionLevel) Bounds() (box.BoundingBox, bool) { return box.BoundingBox{}, false }

func (l *RegionLevel) Materials() *materials.Table { return l.materials }

func (l *RegionLevel) Saving() bool { return l.saving.Load() }

func (l *RegionLevel) regionPath(cx, cz int) string {
	return filepath.Join(l.dir, "region", RegionFileName(cx, cz))
}

// region returns the open region file holding chunk (cx, cz), or nil when
// it does not exist and create is false. Callers hold l.mu.
func (l *RegionLevel) region(cx, cz int, create bool) (*region.Region, error) {
	key := box.ChunkPos{X: cx >> 5, Z: cz >> 5}
	if r, ok := l.regions[key]; ok {
		return r, nil
	}
	path := l.regionPath(cx, cz)
	r, err := region.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if !create {
			return nil, nil
		}
		r, err = region.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("region %v: %w", path, err)
	}
	l.regions[key] = r
	return r, nil
}

func (l *RegionLevel) ContainsChunk(cx, cz int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.chunks[box.ChunkPos{X: cx, Z: cz}]; ok {
		return true
	}
	r, err := l.region(cx, cz, false)
	if err != nil || r == nil {
		return false
	}
	return r.ExistSector(cx&31, cz&31)
}

func (l *RegionLevel) Chunk(cx, cz int) (*Chunk, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := box.ChunkPos{X: cx, Z: cz}
	if c, ok := l.chunks[p]; ok {
		return c, nil
	}
	r, err := l.region(cx, cz, false)
	if err != nil {
		return nil, fmt.Errorf("Chunk: %w", err)
	}
	if r == nil || !r.ExistSector(cx&31, cz&31) {
		return nil, fmt.Errorf("Chunk: %w", ErrNotExistSector{X: cx, Z: cz, FilePath: l.regionPath(cx, cz)})
	}
	b, err := r.ReadSector(cx&31, cz&31)
	if err != nil {
		return nil, fmt.Errorf("Chunk: %w", err)
	}
	b, err = mcDecompress(b)
	if err != nil {
		return nil, fmt.Errorf("Chunk: %w", err)
	}
	c, err := DecodeAnvil(b)
	if err != nil {
		return nil, fmt.Errorf("Chunk: %w", err)
	}
	if c.X != cx || c.Z != cz {
		l.log.WithFields(logrus.Fields{"want": p, "got": c.Pos()}).Warn("chunk position mismatch, using sector position")
		c.X, c.Z = cx, cz
	}
	if extendedIDs(c) {
		l.log.WithField("chunk", p).Warn("chunk has block ids above 255, copies carry only the low byte")
	}
	l.chunks[p] = c
	return c, nil
}

func (l *RegionLevel) CreateChunk(cx, cz int) (*Chunk, error) {
	if l.ContainsChunk(cx, cz) {
		return l.Chunk(cx, cz)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c := NewChunk(cx, cz, AnvilHeight)
	c.NeedsLighting = true
	c.Changed()
	l.chunks[box.ChunkPos{X: cx, Z: cz}] = c
	return c, nil
}

// Save writes every changed chunk back to its region file. Saving reports
// true for the duration.
func (l *RegionLevel) Save() error {
	l.saving.Store(true)
	defer l.saving.Store(false)
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for p, c := range l.chunks {
		if !c.Dirty() {
			continue
		}
		b, err := EncodeAnvil(c)
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		b, err = mcCompress(b)
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		r, err := l.region(p.X, p.Z, true)
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		if err := r.WriteSector(p.X&31, p.Z&31, b); err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		c.ClearDirty()
		n++
	}
	l.log.WithField("chunks", n).Info("saved")
	return nil
}

// Close releases every open region file. Unsaved changes are lost.
func (l *RegionLevel) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for k, r := range l.regions {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(l.regions, k)
	}
	return errors.Join(errs...)
}

// ChunkPositions scans the region directory and lists every stored chunk,
// plus chunks created in memory but not saved yet.
func (l *RegionLevel) ChunkPositions() ([]box.ChunkPos, error) {
	dir := filepath.Join(l.dir, "region")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ChunkPositions: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := map[box.ChunkPos]bool{}
	var out []box.ChunkPos
	for _, e := range entries {
		m := mcaName.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		rx, _ := strconv.Atoi(m[1])
		rz, _ := strconv.Atoi(m[2])
		r, err := l.region(rx<<5, rz<<5, false)
		if err != nil {
			return nil, fmt.Errorf("ChunkPositions: %w", err)
		}
		if r == nil {
			continue
		}
		for x := 0; x < 32; x++ {
			for z := 0; z < 32; z++ {
				if !r.ExistSector(x, z) {
					continue
				}
				p := box.ChunkPos{X: rx<<5 | x, Z: rz<<5 | z}
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	for p := range l.chunks {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out, nil
}
