// Package rotation builds the lookup tables that remap block data when a
// selection is rotated or mirrored.
package rotation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xmdhs/regioncopy/materials"
)

// Op is one of the five symmetry operations.
type Op int

const (
	RotateLeft Op = iota
	Roll
	FlipVertical
	FlipEastWest
	FlipNorthSouth
	numOps
)

// Ops lists every operation.
var Ops = []Op{RotateLeft, Roll, FlipVertical, FlipEastWest, FlipNorthSouth}

func (o Op) String() string {
	switch o {
	case RotateLeft:
		return "rotate-left"
	case Roll:
		return "roll"
	case FlipVertical:
		return "flip-vertical"
	case FlipEastWest:
		return "flip-east-west"
	case FlipNorthSouth:
		return "flip-north-south"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp accepts the names printed by Op.String.
func ParseOp(s string) (Op, error) {
	for _, o := range Ops {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("ParseOp: unknown operation %q", s)
}

// ErrUnknownBlock is returned by Build when a family names a block the
// materials table does not define.
type ErrUnknownBlock struct {
	Family string
	Block  string
}

func (e ErrUnknownBlock) Error() string {
	return fmt.Sprintf("family %v: unknown block %v", e.Family, e.Block)
}

// ErrNotBijective is returned by Build when a family's mapping would merge
// two data values.
type ErrNotBijective struct {
	Family string
	Op     Op
}

func (e ErrNotBijective) Error() string {
	return fmt.Sprintf("family %v: %v is not a permutation", e.Family, e.Op)
}

// Table maps (block id, data) to new data.
type Table [256][16]uint8

// Apply returns the remapped data for parallel block and data arrays.
func (t *Table) Apply(blocks, data []uint8) []uint8 {
	out := make([]uint8, len(data))
	for i := range data {
		out[i] = t[blocks[i]][data[i]&0xF]
	}
	return out
}

// Tables holds all five operations and their inverses. It is immutable
// after Build.
type Tables struct {
	fwd [numOps]Table
	inv [numOps]Table
}

// Build resolves every family against mat and scatters its permutations
// into the tables. Blocks not named by any family keep their data.
func Build(mat *materials.Table, families []Family) (*Tables, error) {
	t := &Tables{}
	for op := range t.fwd {
		for id := range t.fwd[op] {
			t.fwd[op][id] = identity()
		}
	}
	for _, f := range families {
		ids := make([]uint8, 0, len(f.Blocks))
		for _, name := range f.Blocks {
			id, ok := mat.ID(name)
			if !ok {
				return nil, fmt.Errorf("Build: %w", ErrUnknownBlock{Family: f.Name, Block: name})
			}
			ids = append(ids, id)
		}
		for _, op := range Ops {
			p := f.permutation(op)
			if !bijective(p) {
				return nil, fmt.Errorf("Build: %w", ErrNotBijective{Family: f.Name, Op: op})
			}
			for _, id := range ids {
				t.fwd[op][id] = p
			}
		}
	}
	for op := range t.fwd {
		for id := range t.fwd[op] {
			for d, to := range t.fwd[op][id] {
				t.inv[op][id][to] = uint8(d)
			}
		}
	}
	return t, nil
}

func bijective(p [16]uint8) bool {
	var seen [16]bool
	for _, v := range p {
		if v > 15 || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Default builds the tables for the built-in families, skipping blocks
// mat does not define. Skipped names are logged at debug level.
func Default(mat *materials.Table, log logrus.FieldLogger) (*Tables, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	fs := DefaultFamilies()
	for i, f := range fs {
		fs[i] = f.Available(mat)
		if len(fs[i].Blocks) == len(f.Blocks) {
			continue
		}
		var missing []string
		for _, n := range f.Blocks {
			if _, ok := mat.ID(n); !ok {
				missing = append(missing, n)
			}
		}
		log.WithFields(logrus.Fields{
			"family":    f.Name,
			"materials": mat.Name(),
			"missing":   missing,
		}).Debug("rotation family blocks not defined, skipped")
	}
	return Build(mat, fs)
}

// Available returns a copy of f restricted to the blocks mat defines.
func (f Family) Available(mat *materials.Table) Family {
	var names []string
	for _, n := range f.Blocks {
		if _, ok := mat.ID(n); ok {
			names = append(names, n)
		}
	}
	f.Blocks = names
	return f
}

// Table returns the forward table for op.
func (t *Tables) Table(op Op) *Table { return &t.fwd[op] }

// Inverse returns the table that undoes op.
func (t *Tables) Inverse(op Op) *Table { return &t.inv[op] }

// Apply remaps data for op.
func (t *Tables) Apply(op Op, blocks, data []uint8) []uint8 {
	return t.fwd[op].Apply(blocks, data)
}

// Data returns the remapped data of a single block.
func (t *Tables) Data(op Op, id, data uint8) uint8 {
	return t.fwd[op][id][data&0xF]
}
