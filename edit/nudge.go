package edit

import (
	"fmt"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/chunk"
	"github.com/xmdhs/regioncopy/materials"
)

// Nudge moves b by offset within l and fills the cells it left behind
// with air.
func Nudge(l chunk.Level, b box.BoundingBox, offset box.Vec, opts CopyOptions) (*Operation, error) {
	src, dstOrigin := AdjustCopyParameters(l, l, b, b.Origin.Add(offset))
	op, err := CopyRegion(l, l, src, dstOrigin, opts)
	if err != nil {
		return nil, fmt.Errorf("Nudge: %w", err)
	}
	op.name = "nudge"
	op.log = op.log.WithField("op", "nudge")
	if src.IsEmpty() {
		return op, nil
	}
	for _, v := range src.Subtract(box.New(dstOrigin, src.Size)) {
		f, err := Fill(l, v, materials.Block{}, nil, FillOptions{
			ClearEntities: opts.CopyEntities,
			Journal:       opts.Journal,
			Logger:        opts.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("Nudge: %w", err)
		}
		op.Then(f)
	}
	return op, nil
}
