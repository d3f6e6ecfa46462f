package edit

import (
	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
)

// limits is the region of l that can hold blocks: the vertical range
// always, the horizontal bounds when the level is finite.
func limits(l chunk.Level, around box.BoundingBox) box.BoundingBox {
	lim := box.New(
		box.Vec{X: around.Origin.X, Y: 0, Z: around.Origin.Z},
		box.Vec{X: around.Size.X, Y: l.Height(), Z: around.Size.Z},
	)
	if b, ok := l.Bounds(); ok {
		lim = lim.Intersect(box.New(
			box.Vec{X: b.Origin.X, Y: 0, Z: b.Origin.Z},
			box.Vec{X: b.Size.X, Y: l.Height(), Z: b.Size.Z},
		))
	}
	return lim
}

// AdjustCopyParameters shrinks a copy so both boxes fit their levels. The
// source box and destination origin move together, so the cells that do
// get copied land where they would have without clamping. Applying it to
// its own output changes nothing.
func AdjustCopyParameters(dest, source chunk.Level, sourceBox box.BoundingBox, destOrigin box.Vec) (box.BoundingBox, box.Vec) {
	delta := destOrigin.Sub(sourceBox.Origin)

	src := sourceBox.Intersect(limits(source, sourceBox))
	dst := src.Offset(delta)
	dst = dst.Intersect(limits(dest, dst))

	src = dst.Offset(box.Vec{}.Sub(delta))
	return src, dst.Origin
}

// clampBox limits a box to the cells l can hold.
func clampBox(l chunk.Level, b box.BoundingBox) box.BoundingBox {
	return b.Intersect(limits(l, b))
}
