package box

import (
	"fmt"
	"iter"
)

// Vec is an integer world coordinate or extent.
type Vec struct {
	X, Y, Z int
}

func (v Vec) Add(o Vec) Vec {
	return Vec{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec) Sub(o Vec) Vec {
	return Vec{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// ChunkPos addresses a 16x16 column.
type ChunkPos struct {
	X, Z int
}

// BoundingBox is an axis-aligned box of blocks. The zero value is an empty
// box at the origin.
type BoundingBox struct {
	Origin Vec
	Size   Vec
}

// New returns a box at origin with the given size. Negative size
// components are clamped to zero.
func New(origin, size Vec) BoundingBox {
	return BoundingBox{
		Origin: origin,
		Size:   Vec{max(size.X, 0), max(size.Y, 0), max(size.Z, 0)},
	}
}

// FromCorners returns the box spanning [min, max).
func FromCorners(lo, hi Vec) BoundingBox {
	return New(lo, hi.Sub(lo))
}

func (b BoundingBox) Maximum() Vec {
	return b.Origin.Add(b.Size)
}

func (b BoundingBox) Volume() int {
	return b.Size.X * b.Size.Y * b.Size.Z
}

func (b BoundingBox) IsEmpty() bool {
	return b.Volume() == 0
}

func (b BoundingBox) Contains(v Vec) bool {
	m := b.Maximum()
	return v.X >= b.Origin.X && v.X < m.X &&
		v.Y >= b.Origin.Y && v.Y < m.Y &&
		v.Z >= b.Origin.Z && v.Z < m.Z
}

// ContainsFloat reports whether the block containing the point lies in b.
func (b BoundingBox) ContainsFloat(x, y, z float64) bool {
	return b.Contains(Vec{FloorFloat(x), FloorFloat(y), FloorFloat(z)})
}

func (b BoundingBox) Offset(d Vec) BoundingBox {
	return BoundingBox{Origin: b.Origin.Add(d), Size: b.Size}
}

// Intersect returns the overlap of two boxes, or an empty box at the
// clamped origin when they do not overlap.
func (b BoundingBox) Intersect(o BoundingBox) BoundingBox {
	bm, om := b.Maximum(), o.Maximum()
	lo := Vec{max(b.Origin.X, o.Origin.X), max(b.Origin.Y, o.Origin.Y), max(b.Origin.Z, o.Origin.Z)}
	hi := Vec{min(bm.X, om.X), min(bm.Y, om.Y), min(bm.Z, om.Z)}
	if hi.X <= lo.X || hi.Y <= lo.Y || hi.Z <= lo.Z {
		return BoundingBox{Origin: lo}
	}
	return FromCorners(lo, hi)
}

func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	bm, om := b.Maximum(), o.Maximum()
	lo := Vec{min(b.Origin.X, o.Origin.X), min(b.Origin.Y, o.Origin.Y), min(b.Origin.Z, o.Origin.Z)}
	hi := Vec{max(bm.X, om.X), max(bm.Y, om.Y), max(bm.Z, om.Z)}
	return FromCorners(lo, hi)
}

// Expand grows the box by n on every face.
func (b BoundingBox) Expand(n int) BoundingBox {
	d := Vec{n, n, n}
	return New(b.Origin.Sub(d), b.Size.Add(Vec{2 * n, 2 * n, 2 * n}))
}

func (b BoundingBox) MinCX() int { return FloorDiv(b.Origin.X, 16) }
func (b BoundingBox) MinCZ() int { return FloorDiv(b.Origin.Z, 16) }
func (b BoundingBox) MaxCX() int { return CeilDiv(b.Maximum().X, 16) }
func (b BoundingBox) MaxCZ() int { return CeilDiv(b.Maximum().Z, 16) }

// ChunkCount is the number of chunk positions ChunkPositions yields.
func (b BoundingBox) ChunkCount() int {
	if b.IsEmpty() {
		return 0
	}
	return (b.MaxCX() - b.MinCX()) * (b.MaxCZ() - b.MinCZ())
}

// ChunkPositions yields every chunk column overlapping b exactly once,
// x-major. Each call to the returned sequence starts over.
func (b BoundingBox) ChunkPositions() iter.Seq[ChunkPos] {
	return func(yield func(ChunkPos) bool) {
		if b.IsEmpty() {
			return
		}
		for cx := b.MinCX(); cx < b.MaxCX(); cx++ {
			for cz := b.MinCZ(); cz < b.MaxCZ(); cz++ {
				if !yield(ChunkPos{cx, cz}) {
					return
				}
			}
		}
	}
}

// ChunkBox is the full column of chunk (cx, cz) for a level of the given height.
func ChunkBox(cx, cz, height int) BoundingBox {
	return New(Vec{cx << 4, 0, cz << 4}, Vec{16, height, 16})
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("BoundingBox(origin=%v, size=%v)", b.Origin, b.Size)
}

func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func CeilDiv(a, b int) int {
	return -FloorDiv(-a, b)
}

func FloorFloat(f float64) int {
	i := int(f)
	if f < float64(i) {
		i--
	}
	return i
}

// Subtract returns disjoint boxes covering the cells of b outside o. When
// o is b shifted by some offset the result has at most three boxes.
func (b BoundingBox) Subtract(o BoundingBox) []BoundingBox {
	in := b.Intersect(o)
	if in.IsEmpty() {
		if b.IsEmpty() {
			return nil
		}
		return []BoundingBox{b}
	}
	var out []BoundingBox
	add := func(lo, hi Vec) {
		if c := FromCorners(lo, hi); !c.IsEmpty() {
			out = append(out, c)
		}
	}
	lo, hi := b.Origin, b.Maximum()
	ilo, ihi := in.Origin, in.Maximum()
	add(lo, Vec{ilo.X, hi.Y, hi.Z})
	add(Vec{ihi.X, lo.Y, lo.Z}, hi)
	add(Vec{ilo.X, lo.Y, lo.Z}, Vec{ihi.X, ilo.Y, hi.Z})
	add(Vec{ilo.X, ihi.Y, lo.Z}, Vec{ihi.X, hi.Y, hi.Z})
	add(Vec{ilo.X, ilo.Y, lo.Z}, Vec{ihi.X, ihi.Y, ilo.Z})
	add(Vec{ilo.X, ilo.Y, ihi.Z}, Vec{ihi.X, ihi.Y, hi.Z})
	return out
}
