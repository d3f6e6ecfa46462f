package schematic

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/nbtutil"
	"github.com/xmdhs/regioncopy/rotation"
)

// geometry returns the size after op and the affine map from old to new
// continuous coordinates for a schematic of size s.
func geometry(op rotation.Op, s box.Vec) (box.Vec, mgl64.Mat4) {
	w, h, l := float64(s.X), float64(s.Y), float64(s.Z)
	switch op {
	case rotation.RotateLeft:
		// north turns west: x' = z, z' = w - x
		return box.Vec{X: s.Z, Y: s.Y, Z: s.X}, mgl64.Mat4{
			0, 0, -1, 0,
			0, 1, 0, 0,
			1, 0, 0, 0,
			0, 0, w, 1,
		}
	case rotation.Roll:
		// up turns north: y' = z, z' = h - y
		return box.Vec{X: s.X, Y: s.Z, Z: s.Y}, mgl64.Mat4{
			1, 0, 0, 0,
			0, 0, -1, 0,
			0, 1, 0, 0,
			0, 0, h, 1,
		}
	case rotation.FlipVertical:
		return s, mgl64.Translate3D(0, h, 0).Mul4(mgl64.Scale3D(1, -1, 1))
	case rotation.FlipEastWest:
		return s, mgl64.Translate3D(w, 0, 0).Mul4(mgl64.Scale3D(-1, 1, 1))
	case rotation.FlipNorthSouth:
		return s, mgl64.Translate3D(0, 0, l).Mul4(mgl64.Scale3D(1, 1, -1))
	}
	return s, mgl64.Ident4()
}

func mapPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, m)
}

// mapCell maps a block position through the centre of the cell.
func mapCell(m mgl64.Mat4, v box.Vec) box.Vec {
	p := mapPoint(m, mgl64.Vec3{float64(v.X) + 0.5, float64(v.Y) + 0.5, float64(v.Z) + 0.5})
	return box.Vec{X: int(math.Floor(p[0])), Y: int(math.Floor(p[1])), Z: int(math.Floor(p[2]))}
}

// Transform returns a rotated or mirrored copy of s. Block data is remapped
// through tables; entities, tile entities and ticks move with their cells.
func (s *Schematic) Transform(tables *rotation.Tables, op rotation.Op) (*Schematic, error) {
	size, m := geometry(op, s.size)
	out, err := New(size, s.Materials())
	if err != nil {
		return nil, fmt.Errorf("Transform: %w", err)
	}

	blocks, data := s.cells()
	data = tables.Apply(op, blocks, data)
	nb, nd := make([]byte, len(blocks)), make([]byte, len(data))
	for x := 0; x < s.size.X; x++ {
		for y := 0; y < s.size.Y; y++ {
			for z := 0; z < s.size.Z; z++ {
				to := mapCell(m, box.Vec{X: x, Y: y, Z: z})
				j := out.index(to.X, to.Y, to.Z)
				i := s.index(x, y, z)
				nb[j], nd[j] = blocks[i], data[i]
			}
		}
	}
	out.setCells(nb, nd)

	if bio := s.biomes(); bio != nil && op != rotation.Roll {
		nbio := make([]byte, len(bio))
		for x := 0; x < s.size.X; x++ {
			for z := 0; z < s.size.Z; z++ {
				to := mapCell(m, box.Vec{X: x, Z: z})
				nbio[to.Z*size.X+to.X] = bio[z*s.size.X+x]
			}
		}
		out.setBiomes(nbio)
	}

	e, te, tt := s.gather()
	var ne, nte, ntt []nbtutil.Compound
	for _, v := range e {
		n := nbtutil.CloneCompound(v)
		transformEntity(n, op, m)
		ne = append(ne, n)
	}
	for _, v := range te {
		n := nbtutil.CloneCompound(v)
		if p, ok := nbtutil.BlockPos(n); ok {
			nbtutil.SetBlockPos(n, mapCell(m, p))
		}
		nte = append(nte, n)
	}
	for _, v := range tt {
		n := nbtutil.CloneCompound(v)
		if p, ok := nbtutil.BlockPos(n); ok {
			nbtutil.SetBlockPos(n, mapCell(m, p))
		}
		ntt = append(ntt, n)
	}
	out.scatter(ne, nte, ntt)
	return out, nil
}

func transformEntity(e nbtutil.Compound, op rotation.Op, m mgl64.Mat4) {
	if p, ok := nbtutil.EntityPos(e); ok {
		q := mapPoint(m, mgl64.Vec3{p[0], p[1], p[2]})
		nbtutil.SetEntityPos(e, [3]float64{q[0], q[1], q[2]})
	}
	if x, ok := e["TileX"].(int32); ok {
		y, _ := e["TileY"].(int32)
		z, _ := e["TileZ"].(int32)
		tile := mapCell(m, box.Vec{X: int(x), Y: int(y), Z: int(z)})
		e["TileX"], e["TileY"], e["TileZ"] = int32(tile.X), int32(tile.Y), int32(tile.Z)
	}

	var yaw float32
	switch rot := e["Rotation"].(type) {
	case []float32:
		if len(rot) != 2 {
			return
		}
		yaw = rot[0]
	case []any:
		if len(rot) != 2 {
			return
		}
		v, ok := rot[0].(float32)
		if !ok {
			return
		}
		yaw = v
	default:
		return
	}
	switch op {
	case rotation.RotateLeft:
		yaw -= 90
	case rotation.FlipEastWest:
		yaw = -yaw
	case rotation.FlipNorthSouth:
		yaw = 180 - yaw
	default:
		return
	}
	yaw = float32(math.Mod(float64(yaw)+360, 360))
	switch rot := e["Rotation"].(type) {
	case []float32:
		rot[0] = yaw
	case []any:
		rot[0] = yaw
	}
}
