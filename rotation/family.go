package rotation

// Kind selects how a family derives its data permutation.
type Kind int

const (
	// Directional blocks store one facing in the Mask bits.
	Directional Kind = iota
	// Bitmask blocks set one bit per attached horizontal side (vines).
	Bitmask
	// Axis blocks store the axis they run along (logs, pillars).
	Axis
	// Stairs: bits 0-1 facing, bit 2 upside down.
	Stairs
	// Slab: bit 3 top half.
	Slab
	// Door: lower half holds facing and open, upper half holds hinge.
	Door
	// Permutation families list their mappings explicitly.
	Permutation
)

func (k Kind) String() string {
	switch k {
	case Directional:
		return "directional"
	case Bitmask:
		return "bitmask"
	case Axis:
		return "axis"
	case Stairs:
		return "stairs"
	case Slab:
		return "slab"
	case Door:
		return "door"
	case Permutation:
		return "permutation"
	}
	return "unknown"
}

type Dir int

const (
	Down Dir = iota
	Up
	North
	South
	West
	East
)

// Orientation of an axis-aligned block.
type Orientation int

const (
	AxisY Orientation = iota
	AxisX
	AxisZ
)

// Family is a set of blocks that share one data layout for orientation.
type Family struct {
	Name   string
	Kind   Kind
	Blocks []string

	// Mask selects the data bits that hold orientation. Bits outside
	// Mask pass through unchanged.
	Mask uint8
	// Dirs maps a facing to its value for Directional and Bitmask.
	Dirs map[Dir]uint8
	// Axes maps an axis to its value for Axis.
	Axes map[Orientation]uint8
	// TopBit is toggled by FlipVertical on Directional blocks that have
	// no vertical facing (trapdoors).
	TopBit uint8
	// Perms holds the explicit mapping per operation for Permutation.
	// Values missing from a map are left alone.
	Perms map[Op]map[uint8]uint8
}

// turn applies op to a direction.
func turn(op Op, d Dir) Dir {
	switch op {
	case RotateLeft:
		switch d {
		case North:
			return West
		case West:
			return South
		case South:
			return East
		case East:
			return North
		}
	case Roll:
		switch d {
		case Up:
			return North
		case North:
			return Down
		case Down:
			return South
		case South:
			return Up
		}
	case FlipVertical:
		switch d {
		case Up:
			return Down
		case Down:
			return Up
		}
	case FlipEastWest:
		switch d {
		case East:
			return West
		case West:
			return East
		}
	case FlipNorthSouth:
		switch d {
		case North:
			return South
		case South:
			return North
		}
	}
	return d
}

func turnAxis(op Op, a Orientation) Orientation {
	switch op {
	case RotateLeft:
		switch a {
		case AxisX:
			return AxisZ
		case AxisZ:
			return AxisX
		}
	case Roll:
		switch a {
		case AxisY:
			return AxisZ
		case AxisZ:
			return AxisY
		}
	}
	return a
}

func identity() [16]uint8 {
	var p [16]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	return p
}

// closed reports whether every mapped direction turns into another mapped
// direction under op.
func closed(op Op, dirs map[Dir]uint8) bool {
	for d := range dirs {
		if _, ok := dirs[turn(op, d)]; !ok {
			return false
		}
	}
	return true
}

// permutation returns the 16 entry data mapping of the family for op.
func (f Family) permutation(op Op) [16]uint8 {
	p := identity()
	switch f.Kind {
	case Directional:
		if !closed(op, f.Dirs) {
			if op == FlipVertical && f.TopBit != 0 {
				for i := range p {
					p[i] = uint8(i) ^ f.TopBit
				}
			}
			return p
		}
		for d, v := range f.Dirs {
			to := f.Dirs[turn(op, d)]
			for i := range p {
				if uint8(i)&f.Mask == v {
					p[i] = uint8(i)&^f.Mask | to
				}
			}
		}
		if op == FlipVertical && f.TopBit != 0 {
			for i := range p {
				p[i] ^= f.TopBit
			}
		}
	case Bitmask:
		if !closed(op, f.Dirs) {
			return p
		}
		for i := range p {
			out := uint8(i) &^ f.Mask
			for d, bit := range f.Dirs {
				if uint8(i)&bit != 0 {
					out |= f.Dirs[turn(op, d)]
				}
			}
			p[i] = out
		}
	case Axis:
		for a, v := range f.Axes {
			to, ok := f.Axes[turnAxis(op, a)]
			if !ok {
				continue
			}
			for i := range p {
				if uint8(i)&f.Mask == v {
					p[i] = uint8(i)&^f.Mask | to
				}
			}
		}
	case Stairs:
		p = stairs(op)
	case Slab:
		if op == FlipVertical {
			for i := range p {
				p[i] = uint8(i) ^ 0x8
			}
		}
	case Door:
		p = door(op)
	case Permutation:
		for from, to := range f.Perms[op] {
			for i := range p {
				if uint8(i)&f.Mask == from {
					p[i] = uint8(i)&^f.Mask | to
				}
			}
		}
	}
	return p
}

// Stair facing values.
const (
	stairEast  = 0
	stairWest  = 1
	stairSouth = 2
	stairNorth = 3
	stairUpper = 4
)

var stairDirs = map[Dir]uint8{East: stairEast, West: stairWest, South: stairSouth, North: stairNorth}

func stairs(op Op) [16]uint8 {
	p := identity()
	for i := 0; i < 8; i++ {
		facing, upper := uint8(i)&3, uint8(i)&stairUpper
		switch op {
		case Roll:
			// Quarter turn about the east-west axis: upright north, upright
			// south, upside-down south, upside-down north.
			switch {
			case facing == stairNorth && upper == 0:
				p[i] = stairSouth
			case facing == stairSouth && upper == 0:
				p[i] = stairSouth | stairUpper
			case facing == stairSouth:
				p[i] = stairNorth | stairUpper
			case facing == stairNorth:
				p[i] = stairNorth
			}
		case FlipVertical:
			p[i] = uint8(i) ^ stairUpper
		default:
			for d, v := range stairDirs {
				if v == facing {
					p[i] = stairDirs[turn(op, d)] | upper
				}
			}
		}
	}
	return p
}

// Door lower half facing values.
var doorDirs = map[Dir]uint8{East: 0, South: 1, West: 2, North: 3}

func door(op Op) [16]uint8 {
	p := identity()
	switch op {
	case RotateLeft, FlipEastWest, FlipNorthSouth:
	default:
		return p
	}
	for i := 0; i < 8; i++ {
		facing := uint8(i) & 3
		for d, v := range doorDirs {
			if v == facing {
				p[i] = uint8(i)&^3 | doorDirs[turn(op, d)]
			}
		}
	}
	if op != RotateLeft {
		// Mirroring a door swaps its hinge side.
		for i := 8; i < 16; i++ {
			p[i] = uint8(i) ^ 1
		}
	}
	return p
}
